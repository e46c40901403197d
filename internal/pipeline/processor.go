package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/archive"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/entity"
	"github.com/joseph-ayodele/permits-ledger/internal/extract"
	"github.com/joseph-ayodele/permits-ledger/internal/ledger"
	"github.com/joseph-ayodele/permits-ledger/internal/repository"
	"github.com/joseph-ayodele/permits-ledger/internal/scan"
)

// PageCounter reports how many pages a PDF has.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// Scanner extracts permit fields from a PDF.
type Scanner interface {
	Scan(ctx context.Context, path string, pages int, employer extract.EmployerResolver) (*scan.State, scan.Stats, error)
}

// Ledger is the persistent record store.
type Ledger interface {
	Append(records []entity.Record) (ledger.Result, error)
	Links() ([]string, error)
	Path() string
}

// Input is one submitted document. Either Reader (an upload) or Path (a
// file on disk) is set. Name is the original filename.
type Input struct {
	Name   string
	Path   string
	Reader io.Reader
}

type Options struct {
	EmployerStrategy string
	Categories       []constants.Category
	Dedup            bool
	DocTimeout       time.Duration
	// Documents and Jobs are optional; without them nothing is indexed.
	Documents repository.DocumentRepository
	Jobs      repository.ExtractJobRepository
}

// Processor turns submitted permits into ledger rows, one batch at a time.
type Processor struct {
	archiver   *archive.Archiver
	pages      PageCounter
	scanner    Scanner
	ledger     Ledger
	docs       repository.DocumentRepository
	jobs       repository.ExtractJobRepository
	strategy   string
	categories []constants.Category
	dedup      bool
	docTimeout time.Duration
	logger     *slog.Logger
}

func NewProcessor(arch *archive.Archiver, pages PageCounter, scanner Scanner, led Ledger, opts Options, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	cats := opts.Categories
	if len(cats) == 0 {
		cats = constants.DefaultCategories()
	}
	strategy := opts.EmployerStrategy
	if strategy == "" {
		strategy = extract.StrategyConstant
	}
	return &Processor{
		archiver:   arch,
		pages:      pages,
		scanner:    scanner,
		ledger:     led,
		docs:       opts.Documents,
		jobs:       opts.Jobs,
		strategy:   strategy,
		categories: cats,
		dedup:      opts.Dedup,
		docTimeout: opts.DocTimeout,
		logger:     logger,
	}
}

// ProcessBatch runs every input of category cat through stage, scan and
// archive, then appends all resulting records to the ledger in one write.
// Per-document failures are reported in the Summary; only a ledger write
// failure is returned as an error (wrapping common.ErrLedgerWrite).
func (p *Processor) ProcessBatch(ctx context.Context, cat constants.Category, inputs []Input) (Summary, error) {
	start := time.Now()
	batchID := uuid.New()
	ctx = common.WithBatchID(ctx, batchID.String())
	logger := common.LoggerFrom(ctx, p.logger).With("category", cat.Folder)

	sum := Summary{
		BatchID:    batchID,
		Category:   cat,
		LedgerPath: p.ledger.Path(),
		Submitted:  len(inputs),
	}

	resolver, err := extract.NewEmployerResolver(p.strategy, cat, constants.EmployerNames(p.categories))
	if err != nil {
		return sum, err
	}

	seen := make(map[string]struct{})
	if p.dedup {
		links, err := p.ledger.Links()
		if err != nil {
			return sum, common.NewAppError("LEDGER_READ", "read existing links", err)
		}
		for _, l := range links {
			seen[l] = struct{}{}
		}
	}

	logger.Info("pipeline.batch.start", "documents", len(inputs), "known_links", len(seen))

	var (
		records []entity.Record
		pending []int
	)
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			sum.add(Outcome{Input: inputName(in), Status: constants.JobStatusFailed, Err: err})
			continue
		}
		o := p.processDocument(ctx, cat, resolver, in, seen)
		if o.Status == constants.JobStatusArchived {
			records = append(records, o.Record)
			pending = append(pending, len(sum.Outcomes))
			seen[o.Record.Link] = struct{}{}
		}
		sum.add(o)
	}

	if len(records) > 0 {
		res, err := p.ledger.Append(records)
		if err != nil {
			logger.Error("pipeline.ledger.failed", "path", p.ledger.Path(), "records", len(records), "error", err)
			for _, i := range pending {
				o := &sum.Outcomes[i]
				o.Err = err
				p.finishJob(ctx, *o)
			}
			return sum, common.NewAppError("LEDGER_WRITE", "append to "+p.ledger.Path(), err)
		}
		sum.Warnings = append(sum.Warnings, res.Warnings...)
		for _, i := range pending {
			o := &sum.Outcomes[i]
			o.Status = constants.JobStatusWritten
			sum.Written++
			sum.classify(*o)
			p.finishJob(ctx, *o)
		}
	}

	logger.Info("pipeline.batch.done",
		"submitted", sum.Submitted,
		"written", sum.Written,
		"failed", sum.Failed,
		"duplicates", sum.Duplicates,
		"partial", sum.Partial,
		"empty", sum.Empty,
		"warnings", len(sum.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if sum.Written > 0 && sum.NothingResolved() {
		logger.Warn("pipeline.batch.nothing_resolved", "written", sum.Written)
	}
	return sum, nil
}

func (p *Processor) processDocument(ctx context.Context, cat constants.Category, resolver extract.EmployerResolver, in Input, seen map[string]struct{}) Outcome {
	name := inputName(in)
	o := Outcome{Input: name, Status: constants.JobStatusFailed}
	logger := common.LoggerFrom(ctx, p.logger).With("input", name)

	fail := func(err error) Outcome {
		o.Status = constants.JobStatusFailed
		o.Err = err
		logger.Warn("pipeline.document.failed", "error", err)
		p.finishJob(ctx, o)
		return o
	}

	staged, err := p.stage(cat, in)
	if err != nil {
		return fail(err)
	}
	p.register(ctx, logger, cat, staged, name, &o)
	if o.DocumentID != uuid.Nil {
		ctx = common.WithDocumentID(ctx, o.DocumentID.String())
	}

	if p.dedup {
		link, err := p.archiver.LinkFor(cat, staged)
		if err != nil {
			return fail(err)
		}
		if _, dup := seen[link]; dup {
			o.Status = constants.JobStatusDuplicate
			o.Record.Link = link
			logger.Info("pipeline.document.duplicate", "link", link)
			p.finishJob(ctx, o)
			return o
		}
	}

	pages, err := p.pages.PageCount(staged)
	if err != nil {
		return fail(err)
	}
	if pages < 1 {
		return fail(fmt.Errorf("%w: %s has no pages", common.ErrDocumentOpen, name))
	}
	o.Pages = pages

	scanCtx := ctx
	if p.docTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, p.docTimeout)
		defer cancel()
	}
	state, stats, err := p.scanner.Scan(scanCtx, staged, pages, resolver)
	o.PagesScanned = stats.PagesScanned
	o.Passes = stats.OCRPasses + stats.TextLayerPasses
	if err != nil {
		return fail(err)
	}

	rec := buildRecord(state, name, resolver)

	final, err := p.archiver.Archive(cat, staged)
	if err != nil {
		return fail(err)
	}
	if rec.Link, err = p.archiver.Link(final); err != nil {
		return fail(err)
	}

	o.Record = rec
	o.Status = constants.JobStatusArchived
	o.Resolved = state.Resolved() != 0
	o.Unresolved = rec.Unresolved()
	if !state.Found(scan.FieldName) {
		o.Unresolved = append([]string{"person_name"}, o.Unresolved...)
	}

	logger.Info("pipeline.document.ok",
		"name", rec.PersonName,
		"resolved", state.Resolved().String(),
		"unresolved", strings.Join(o.Unresolved, ","),
		"pages", pages,
		"pages_scanned", stats.PagesScanned,
		"stop", stats.StopReason,
		"link", rec.Link,
	)
	return o
}

// stage places the input in the intake folder of cat. Files already in
// that folder are used in place; anything else is copied in.
func (p *Processor) stage(cat constants.Category, in Input) (string, error) {
	name := inputName(in)
	if constants.MapExtToFormat(filepath.Ext(name)) == "" {
		return "", fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, filepath.Ext(name))
	}
	if in.Reader != nil {
		return p.archiver.Stage(cat, name, in.Reader)
	}

	abs, err := filepath.Abs(in.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDocumentOpen, err)
	}
	intake, err := filepath.Abs(p.archiver.IntakeDir(cat))
	if err == nil && filepath.Dir(abs) == intake {
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrDocumentOpen, err)
		}
		return abs, nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDocumentOpen, err)
	}
	defer f.Close()
	return p.archiver.Stage(cat, name, f)
}

// register records the staged document in the index. The index is
// advisory: failures are logged and processing continues.
func (p *Processor) register(ctx context.Context, logger *slog.Logger, cat constants.Category, staged, name string, o *Outcome) {
	if p.docs == nil {
		return
	}
	sum, size, err := hashFile(staged)
	if err != nil {
		logger.Warn("pipeline.index.hash_failed", "error", err)
		return
	}
	doc, dup, err := p.docs.UpsertByHash(ctx, cat.Folder, staged, name, size, sum, time.Now().UTC())
	if err != nil {
		logger.Warn("pipeline.index.upsert_failed", "error", err)
		return
	}
	o.DocumentID = doc.ID
	if dup {
		logger.Info("pipeline.document.seen_before", "document_id", doc.ID, "first_filename", doc.Filename)
	}

	if p.jobs == nil {
		return
	}
	batchID, _ := uuid.Parse(common.BatchIDFromContext(ctx))
	job, err := p.jobs.Start(ctx, doc.ID, batchID)
	if err != nil {
		logger.Warn("pipeline.index.job_start_failed", "error", err)
		return
	}
	o.JobID = job.ID
}

func (p *Processor) finishJob(ctx context.Context, o Outcome) {
	if p.jobs == nil || o.JobID == uuid.Nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	switch {
	case o.Err != nil:
		err = p.jobs.FinishFailure(ctx, o.JobID, o.Err.Error())
	default:
		err = p.jobs.Finish(ctx, o.JobID, o.Status, o.Pages, o.Passes, o.Record.Link)
	}
	if err != nil {
		p.logger.Warn("pipeline.index.job_finish_failed", "job_id", o.JobID, "error", err)
	}
}

func buildRecord(state *scan.State, filename string, resolver extract.EmployerResolver) entity.Record {
	name := state.Name
	if !state.Found(scan.FieldName) || name == "" {
		name = FallbackName(filename)
	}
	employer := resolver.Default()
	if state.Found(scan.FieldEmployer) {
		employer = state.Employer
	}
	return entity.Record{
		PersonName: name,
		Employer:   employer,
		JobTitle:   state.JobTitle,
		ValidFrom:  state.ValidFrom,
		ValidTo:    state.ValidTo,
	}
}

// FallbackName derives a person name from a filename. If normalization
// leaves nothing, the bare filename is used.
func FallbackName(filename string) string {
	base := filepath.Base(filename)
	if name := extract.TitleCase(extract.NormalizeFilename(base)); name != "" {
		return name
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func inputName(in Input) string {
	if in.Name != "" {
		return filepath.Base(in.Name)
	}
	return filepath.Base(in.Path)
}
