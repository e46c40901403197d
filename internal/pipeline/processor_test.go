package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/archive"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/entity"
	"github.com/joseph-ayodele/permits-ledger/internal/extract"
	"github.com/joseph-ayodele/permits-ledger/internal/ledger"
	"github.com/joseph-ayodele/permits-ledger/internal/repository"
	"github.com/joseph-ayodele/permits-ledger/internal/scan"
)

const baseURL = "https://example.sharepoint.com/Radne_Dozvole_Evidencija"

// fakePDF serves OCR text per staged file name, one string per page.
type fakePDF struct {
	pages map[string][]string
	bad   map[string]bool
}

func (f *fakePDF) PageCount(path string) (int, error) {
	name := filepath.Base(path)
	if f.bad[name] {
		return 0, fmt.Errorf("%w: %s", common.ErrDocumentOpen, name)
	}
	return len(f.pages[name]), nil
}

func (f *fakePDF) Rasterize(_ context.Context, path string, page, dpi int) (string, func(), error) {
	return fmt.Sprintf("%s#%d", filepath.Base(path), page), func() {}, nil
}

func (f *fakePDF) Recognize(_ context.Context, image string) (string, error) {
	i := strings.LastIndex(image, "#")
	var page int
	_, _ = fmt.Sscanf(image[i+1:], "%d", &page)
	return f.pages[image[:i]][page-1], nil
}

type failingLedger struct{}

func (failingLedger) Append([]entity.Record) (ledger.Result, error) {
	return ledger.Result{}, fmt.Errorf("%w: disk full", common.ErrLedgerWrite)
}
func (failingLedger) Links() ([]string, error) { return nil, nil }
func (failingLedger) Path() string             { return "ledger.xlsx" }

type fixture struct {
	root   string
	src    string
	pdf    *fakePDF
	ledger *ledger.Writer
	proc   *Processor
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	root := t.TempDir()
	pdf := &fakePDF{pages: map[string][]string{}, bad: map[string]bool{}}
	arch := archive.NewArchiver(root, baseURL, nil)
	controller := scan.NewController(pdf, pdf, extract.NewMatchers(), scan.Options{
		DPIs:   []int{150, 300},
		Policy: scan.DefaultStopPolicy(),
	}, nil)
	led := ledger.NewWriter(filepath.Join(root, "Radne_dozvole.xlsx"), "Sheet1", nil)
	return &fixture{
		root:   root,
		src:    t.TempDir(),
		pdf:    pdf,
		ledger: led,
		proc:   NewProcessor(arch, pdf, controller, led, opts, nil),
	}
}

// upload registers OCR text for name and returns an input reading from a
// file outside the storage root.
func (f *fixture) upload(t *testing.T, name string, pages ...string) Input {
	t.Helper()
	f.pdf.pages[name] = pages
	path := filepath.Join(f.src, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o644))
	return Input{Path: path}
}

func TestProcessBatchEndToEnd(t *testing.T) {
	f := newFixture(t, Options{Dedup: true})
	in := f.upload(t, "Ivan Horvat - Radna dozvola 01.01.2024.pdf",
		"REPUBLIKA HRVATSKA\nDozvola za boravak i rad vrijedi od 01.01.2024. do 01.01.2025\n"+
			"za radno mjesto: VOZAC, kod poslodavca")

	sum, err := f.proc.ProcessBatch(context.Background(), constants.Agram, []Input{in})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Submitted)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Partial)
	assert.False(t, sum.NothingResolved())
	require.Len(t, sum.Outcomes, 1)

	o := sum.Outcomes[0]
	assert.Equal(t, constants.JobStatusWritten, o.Status)
	assert.Equal(t, []string{"person_name"}, o.Unresolved)
	assert.Equal(t, entity.Record{
		PersonName: "Ivan Horvat",
		Employer:   constants.Agram.Employer,
		JobTitle:   "VOZAC",
		ValidFrom:  "01.01.2024",
		ValidTo:    "01.01.2025",
		Link:       baseURL + "/Agram/Processed/Ivan%20Horvat%20-%20Radna%20dozvola%2001.01.2024.pdf",
	}, o.Record)

	_, err = os.Stat(filepath.Join(f.root, "Agram", "Processed", "Ivan Horvat - Radna dozvola 01.01.2024.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(in.Path)
	assert.NoError(t, err, "the submitted file is copied, not moved")

	rows, err := f.ledger.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, o.Record.Row(), rows[0])
}

func TestProcessBatchDedupByLink(t *testing.T) {
	f := newFixture(t, Options{Dedup: true})
	text := "Za državljanina treće zemlje: ANA KOVAČ, rođena\n" +
		"Dozvola za boravak i rad vrijedi od 01.01.2024. do 01.01.2025\nza zanimanje: kuhar, kod poslodavca"
	in := f.upload(t, "ana.pdf", text)

	sum, err := f.proc.ProcessBatch(context.Background(), constants.MainPartner, []Input{in, in})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Duplicates)
	assert.Equal(t, 1, sum.Complete)

	sum, err = f.proc.ProcessBatch(context.Background(), constants.MainPartner, []Input{in})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Written)
	assert.Equal(t, 1, sum.Duplicates)

	rows, err := f.ledger.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Kovač", rows[0][0])
	assert.Equal(t, "KUHAR", rows[0][2])
}

func TestProcessBatchFailuresDoNotAbort(t *testing.T) {
	f := newFixture(t, Options{})
	broken := f.upload(t, "broken.pdf", "x")
	f.pdf.bad["broken.pdf"] = true
	blank := f.upload(t, "Marko Marić.pdf", "", "")
	unsupported := Input{Name: "scan.docx", Path: filepath.Join(f.src, "scan.docx")}

	sum, err := f.proc.ProcessBatch(context.Background(), constants.GlobalTeam, []Input{broken, unsupported, blank})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Submitted)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Empty)
	assert.True(t, sum.NothingResolved())

	assert.ErrorIs(t, sum.Outcomes[0].Err, common.ErrDocumentOpen)
	assert.ErrorIs(t, sum.Outcomes[1].Err, common.ErrInvalidInput)

	rec := sum.Outcomes[2].Record
	assert.Equal(t, "Marko Marić", rec.PersonName)
	assert.Equal(t, constants.GlobalTeam.Employer, rec.Employer)
	assert.Equal(t, constants.DataNotFound, rec.JobTitle)
	assert.Equal(t, constants.DateNotFound, rec.ValidFrom)
	assert.Equal(t, constants.DateNotFound, rec.ValidTo)

	// a failed document stays in intake for a retry
	_, err = os.Stat(filepath.Join(f.root, "GTM", "broken.pdf"))
	assert.NoError(t, err)
}

func TestProcessBatchLedgerFailure(t *testing.T) {
	root := t.TempDir()
	pdf := &fakePDF{pages: map[string][]string{"a.pdf": {"Dozvola za boravak i rad vrijedi do 31.12.2025."}}}
	controller := scan.NewController(pdf, pdf, nil, scan.Options{Policy: scan.DefaultStopPolicy()}, nil)
	proc := NewProcessor(archive.NewArchiver(root, baseURL, nil), pdf, controller, failingLedger{}, Options{}, nil)

	sum, err := proc.ProcessBatch(context.Background(), constants.Abilitas, []Input{
		{Name: "a.pdf", Reader: strings.NewReader("%PDF")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrLedgerWrite)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "LEDGER_WRITE", appErr.Code)
	assert.Zero(t, sum.Written)
}

func TestProcessBatchIndexesDocuments(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: filepath.Join(t.TempDir(), "permits.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	jobs := repository.NewExtractJobRepository(db, nil)
	f := newFixture(t, Options{
		Dedup:     true,
		Documents: repository.NewDocumentRepository(db, nil),
		Jobs:      jobs,
	})
	ok := f.upload(t, "ok.pdf", "Dozvola za boravak i rad vrijedi od 01.01.2024. do 01.01.2025")
	bad := f.upload(t, "bad.pdf", "x")
	f.pdf.bad["bad.pdf"] = true

	sum, err := f.proc.ProcessBatch(ctx, constants.Agram, []Input{ok, bad})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, sum.Outcomes[0].DocumentID)

	list, err := jobs.ListByBatch(ctx, sum.BatchID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	statuses := map[string]int{}
	for _, j := range list {
		statuses[j.Status]++
	}
	assert.Equal(t, map[string]int{
		string(constants.JobStatusWritten): 1,
		string(constants.JobStatusFailed):  1,
	}, statuses)
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "Ivan Horvat", FallbackName("Ivan Horvat - Radna dozvola 01.01.2024.pdf"))
	assert.Equal(t, "Ana Kovač", FallbackName("ANA_KOVAČ.pdf"))
	assert.Equal(t, "dozvola za boravak i rad", FallbackName("dozvola za boravak i rad.pdf"))
}
