package ocr

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

// PageCount parses the PDF and returns its number of pages. Any failure is
// reported as common.ErrDocumentOpen.
func (e *Extractor) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDocumentOpen, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("failed to close pdf", "path", path, "error", cerr)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, fmt.Errorf("%w: read: %v", common.ErrDocumentOpen, err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("%w: page count: %v", common.ErrDocumentOpen, err)
	}
	if pctx.PageCount < 1 {
		return 0, fmt.Errorf("%w: document has no pages", common.ErrDocumentOpen)
	}
	return pctx.PageCount, nil
}

// PageText returns the embedded text layer of one page, or "" for scanned
// pages without one.
func (e *Extractor) PageText(path string, page int) (text string, err error) {
	// the text layer parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("text layer page %d: %v", page, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("text layer: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("failed to close pdf", "path", path, "error", cerr)
		}
	}()

	if page < 1 || page > r.NumPage() {
		return "", fmt.Errorf("text layer: page %d out of range (document has %d pages)", page, r.NumPage())
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	raw, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("text layer page %d: %w", page, err)
	}
	return Normalize(raw), nil
}
