package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/entity"
)

// Writer appends permit records to an XLSX workbook. The workbook is
// created with a header row on first use; later appends go after the last
// used row. One Writer must be the only writer of its file.
type Writer struct {
	path   string
	sheet  string
	logger *slog.Logger
	mu     sync.Mutex
}

// Result describes one Append.
type Result struct {
	Path     string
	Appended int
	FirstRow int
	LastRow  int
	Created  bool
	Warnings []string
}

func NewWriter(path, sheet string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &Writer{path: path, sheet: sheet, logger: logger}
}

// Path returns the workbook location.
func (w *Writer) Path() string { return w.path }

// Append writes one row per record and saves the workbook once. Link
// cells become hyperlinks; a hyperlink that cannot be set is reported in
// Result.Warnings and the plain text value is kept.
func (w *Writer) Append(records []entity.Record) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := Result{Path: w.path}
	if len(records) == 0 {
		return res, nil
	}
	start := time.Now()

	f, created, err := w.open()
	if err != nil {
		return res, err
	}
	defer func() { _ = f.Close() }()
	res.Created = created

	last, err := w.ensureHeader(f)
	if err != nil {
		return res, err
	}

	linkStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "0563C1", Underline: "single"},
	})
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("link style: %v", err))
		linkStyle = 0
	}

	row := last
	for _, rec := range records {
		row++
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := rec.Row()
		vals := make([]interface{}, len(values))
		for i, v := range values {
			vals[i] = v
		}
		if err := f.SetSheetRow(w.sheet, cell, &vals); err != nil {
			return res, fmt.Errorf("%w: row %d: %v", common.ErrLedgerWrite, row, err)
		}
		if rec.Link == "" {
			continue
		}
		if err := w.hyperlink(f, row, rec.Link, linkStyle); err != nil {
			msg := fmt.Sprintf("row %d: %v: %v", row, common.ErrPostProcess, err)
			res.Warnings = append(res.Warnings, msg)
			w.logger.Warn("ledger.hyperlink.failed", "row", row, "error", err)
		}
	}

	if err := w.save(f); err != nil {
		return res, err
	}

	res.Appended = len(records)
	res.FirstRow = last + 1
	res.LastRow = row
	w.logger.Info("ledger.append.ok",
		"path", w.path,
		"rows", res.Appended,
		"first_row", res.FirstRow,
		"last_row", res.LastRow,
		"created", created,
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Links returns the link column of every stored row.
func (w *Writer) Links() ([]string, error) {
	rows, err := w.Rows()
	if err != nil {
		return nil, err
	}
	links := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) >= constants.LinkColumn && r[constants.LinkColumn-1] != "" {
			links = append(links, r[constants.LinkColumn-1])
		}
	}
	return links, nil
}

// Rows returns the stored rows without the header. A missing workbook has
// no rows.
func (w *Writer) Rows() ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrLedgerWrite, w.path, err)
	}
	defer func() { _ = f.Close() }()

	if idx, _ := f.GetSheetIndex(w.sheet); idx == -1 {
		return nil, nil
	}
	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrLedgerWrite, w.sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func (w *Writer) open() (*excelize.File, bool, error) {
	_, err := os.Stat(w.path)
	switch {
	case err == nil:
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, false, fmt.Errorf("%w: open %s: %v", common.ErrLedgerWrite, w.path, err)
		}
		if idx, _ := f.GetSheetIndex(w.sheet); idx == -1 {
			if _, err := f.NewSheet(w.sheet); err != nil {
				_ = f.Close()
				return nil, false, fmt.Errorf("%w: new sheet %s: %v", common.ErrLedgerWrite, w.sheet, err)
			}
		}
		return f, false, nil
	case errors.Is(err, os.ErrNotExist):
		f := excelize.NewFile()
		if def := f.GetSheetName(0); def != w.sheet {
			if err := f.SetSheetName(def, w.sheet); err != nil {
				_ = f.Close()
				return nil, false, fmt.Errorf("%w: rename sheet: %v", common.ErrLedgerWrite, err)
			}
		}
		return f, true, nil
	default:
		return nil, false, fmt.Errorf("%w: stat %s: %v", common.ErrLedgerWrite, w.path, err)
	}
}

// ensureHeader writes the header into an empty sheet and returns the last
// used row number.
func (w *Writer) ensureHeader(f *excelize.File) (int, error) {
	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", common.ErrLedgerWrite, w.sheet, err)
	}
	if len(rows) > 0 {
		return len(rows), nil
	}

	header := make([]interface{}, len(constants.LedgerHeaders))
	for i, h := range constants.LedgerHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("%w: header: %v", common.ErrLedgerWrite, err)
	}

	_ = f.SetColWidth(w.sheet, "A", "A", 28) // name
	_ = f.SetColWidth(w.sheet, "B", "B", 30) // employer
	_ = f.SetColWidth(w.sheet, "C", "C", 28) // job title
	_ = f.SetColWidth(w.sheet, "D", "E", 14) // dates
	_ = f.SetColWidth(w.sheet, "F", "F", 60) // link
	_ = f.SetPanes(w.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return 1, nil
}

func (w *Writer) hyperlink(f *excelize.File, row int, link string, style int) error {
	cell, err := excelize.CoordinatesToCellName(constants.LinkColumn, row)
	if err != nil {
		return err
	}
	display := link
	if err := f.SetCellHyperLink(w.sheet, cell, link, "External", excelize.HyperlinkOpts{Display: &display}); err != nil {
		return err
	}
	if style != 0 {
		return f.SetCellStyle(w.sheet, cell, cell, style)
	}
	return nil
}

// save writes to a temporary file beside the workbook and renames it over
// the original, so a failed save leaves the previous workbook intact.
func (w *Writer) save(f *excelize.File) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", common.ErrLedgerWrite, err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.xlsx")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", common.ErrLedgerWrite, err)
	}
	tmpName := tmp.Name()

	err = f.Write(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, w.path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: save %s: %v", common.ErrLedgerWrite, w.path, err)
	}
	return nil
}
