package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/extract"
)

// Rasterizer renders one PDF page at a resolution. release frees the image.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, page, dpi int) (image string, release func(), err error)
}

// Recognizer turns a raster image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image string) (string, error)
}

// TextLayer reads text embedded in a PDF page, if any.
type TextLayer interface {
	PageText(path string, page int) (string, error)
}

// StopPolicy decides when the scan ends early.
//
// Once every Immediate field (restricted to the tracked fields) is resolved
// the scan stops at once. Once every PageGate field is resolved the scan
// finishes the resolutions of the current page and then stops instead of
// moving to the next page. An empty set never triggers.
type StopPolicy struct {
	Immediate FieldSet
	PageGate  FieldSet
}

// AllFields is every field the controller can track.
var AllFields = Fields(FieldName, FieldDates, FieldJobTitle, FieldEmployer)

// DefaultStopPolicy stops at once when everything is found and stops
// advancing pages once the validity dates are found.
func DefaultStopPolicy() StopPolicy {
	return StopPolicy{Immediate: AllFields, PageGate: Fields(FieldDates)}
}

// StopWhenAllPolicy only ever stops when every tracked field is found.
func StopWhenAllPolicy() StopPolicy {
	return StopPolicy{Immediate: AllFields}
}

// Options configure a Controller.
type Options struct {
	DPIs      []int
	Policy    StopPolicy
	TextLayer TextLayer // optional
}

// Stats describes how much work one scan did.
type Stats struct {
	Pages             int
	PagesScanned      int
	TextLayerPasses   int
	OCRPasses         int
	RasterFailures    int
	RecognizeFailures int
	StopReason        string
	Duration          time.Duration
}

// Stop reasons reported in Stats.
const (
	StopAllResolved = "all_resolved"
	StopPageGate    = "page_gate"
	StopExhausted   = "exhausted"
	StopCancelled   = "cancelled"
)

// Controller drives the page x resolution OCR loop for one document at a time.
type Controller struct {
	raster   Rasterizer
	recog    Recognizer
	text     TextLayer
	matchers *extract.Matchers
	dpis     []int
	policy   StopPolicy
	logger   *slog.Logger
}

func NewController(r Rasterizer, rec Recognizer, m *extract.Matchers, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = extract.NewMatchers()
	}
	dpis := opts.DPIs
	if len(dpis) == 0 {
		dpis = []int{150, 200, 300}
	}
	return &Controller{
		raster:   r,
		recog:    rec,
		text:     opts.TextLayer,
		matchers: m,
		dpis:     append([]int(nil), dpis...),
		policy:   opts.Policy,
		logger:   logger,
	}
}

// Scan reads pages 1..pages of the PDF at path, trying every resolution
// in order per page, until the stop policy triggers or the search space is
// exhausted. The returned State holds whatever was resolved; unresolved
// fields keep their placeholders (the name stays empty).
//
// A failed attempt only skips that (page, resolution) pair. If no attempt
// produced any text the error wraps common.ErrNoText.
func (c *Controller) Scan(ctx context.Context, path string, pages int, employer extract.EmployerResolver) (*State, Stats, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, c.logger).With("path", path)

	tracked := Fields(FieldName, FieldDates, FieldJobTitle)
	if employer != nil && employer.NeedsText() {
		tracked |= FieldSet(FieldEmployer)
	}
	immediate := c.policy.Immediate & tracked
	gate := c.policy.PageGate & tracked

	st := NewState()
	stats := Stats{Pages: pages}
	producedText := false

	finish := func(reason string) (*State, Stats, error) {
		stats.StopReason = reason
		stats.Duration = time.Since(start)
		logger.Info("scan.done",
			"reason", reason,
			"resolved", st.Resolved().String(),
			"pages_scanned", stats.PagesScanned,
			"ocr_passes", stats.OCRPasses,
			"duration_ms", stats.Duration.Milliseconds(),
		)
		if !producedText && reason != StopCancelled {
			return st, stats, fmt.Errorf("%w: %d pages x %d resolutions", common.ErrNoText, pages, len(c.dpis))
		}
		return st, stats, nil
	}
	satisfied := func(set FieldSet) bool {
		return set != 0 && st.Resolved().Covers(set)
	}

	for page := 1; page <= pages; page++ {
		stats.PagesScanned = page

		if c.text != nil {
			txt, err := c.text.PageText(path, page)
			if err != nil {
				logger.Debug("scan.text_layer.unavailable", "page", page, "error", err)
			} else if txt != "" {
				producedText = true
				stats.TextLayerPasses++
				c.apply(logger, st, tracked, employer, txt, page, 0)
				if satisfied(immediate) {
					return finish(StopAllResolved)
				}
			}
		}

		for _, dpi := range c.dpis {
			if err := ctx.Err(); err != nil {
				st, stats, _ := finish(StopCancelled)
				return st, stats, err
			}

			img, release, err := c.raster.Rasterize(ctx, path, page, dpi)
			if err != nil {
				stats.RasterFailures++
				logger.Warn("scan.rasterize.failed", "page", page, "dpi", dpi, "error", err)
				continue
			}
			txt, err := c.recog.Recognize(ctx, img)
			if release != nil {
				release()
			}
			if err != nil {
				stats.RecognizeFailures++
				logger.Warn("scan.recognize.failed", "page", page, "dpi", dpi, "error", err)
				continue
			}
			producedText = true
			stats.OCRPasses++

			c.apply(logger, st, tracked, employer, txt, page, dpi)
			if satisfied(immediate) {
				return finish(StopAllResolved)
			}
		}

		if satisfied(gate) {
			return finish(StopPageGate)
		}
	}
	return finish(StopExhausted)
}

// apply runs the extractor of every still-unresolved tracked field.
func (c *Controller) apply(logger *slog.Logger, st *State, tracked FieldSet, employer extract.EmployerResolver, txt string, page, dpi int) {
	if tracked.Has(FieldName) && !st.Found(FieldName) {
		if name, ok := c.matchers.PersonName(txt); ok && st.SetName(name) {
			logger.Debug("scan.field.found", "field", "name", "page", page, "dpi", dpi)
		}
	}
	if tracked.Has(FieldDates) && !st.Found(FieldDates) {
		if from, to, ok := c.matchers.Validity(txt); ok && st.SetDates(from, to) {
			logger.Debug("scan.field.found", "field", "dates", "page", page, "dpi", dpi, "from", from, "to", to)
		}
	}
	if tracked.Has(FieldJobTitle) && !st.Found(FieldJobTitle) {
		if title, ok := c.matchers.JobTitle(txt); ok && st.SetJobTitle(title) {
			logger.Debug("scan.field.found", "field", "job_title", "page", page, "dpi", dpi)
		}
	}
	if tracked.Has(FieldEmployer) && !st.Found(FieldEmployer) {
		if name, ok := employer.Match(txt); ok && st.SetEmployer(name) {
			logger.Debug("scan.field.found", "field", "employer", "page", page, "dpi", dpi)
		}
	}
}
