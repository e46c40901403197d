package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "hrv"
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text; 0 = tesseract default
	OEM int // 1 = LSTM; leave 0 to use default

	// LanguageCheck runs language detection on recognized text and warns
	// when a pass does not look like Croatian.
	LanguageCheck bool
	// TempDir holds rasterized pages; "" uses the OS temp dir.
	TempDir string
}

// Extractor rasterizes PDF pages with pdftoppm and recognizes them with
// tesseract. It also reads page counts and embedded text layers.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	detectorOnce sync.Once
	detector     lingua.LanguageDetector
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, execRunner{}, logger)
}

// NewExtractorWithRunner is NewExtractor with an explicit command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "hrv"
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Check verifies the external tools are installed.
func (e *Extractor) Check() error {
	var errs []error
	for _, bin := range []string{e.cfg.Pdftoppm, e.cfg.Tesseract} {
		if _, err := e.runner.LookPath(bin); err != nil {
			errs = append(errs, fmt.Errorf("%s not found: %w", bin, err))
		}
	}
	return errors.Join(errs...)
}

// Rasterize renders one page (1-based) of the PDF at dpi into a PNG and
// returns its path. release removes the image; it is never nil.
func (e *Extractor) Rasterize(ctx context.Context, path string, page, dpi int) (string, func(), error) {
	noop := func() {}
	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "permit-page-*")
	if err != nil {
		return "", noop, fmt.Errorf("%w: temp dir: %v", common.ErrRasterize, err)
	}
	release := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove raster temp dir", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	p := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <tmp/page>  => tmp/page.png
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger,
		"-f", p, "-l", p, "-r", strconv.Itoa(dpi), "-png", "-singlefile", path, prefix)
	if err != nil {
		release()
		return "", noop, fmt.Errorf("%w: page %d at %d dpi: %v: %s", common.ErrRasterize, page, dpi, err, truncate(string(errb), 512))
	}

	out := prefix + ".png"
	if _, statErr := os.Stat(out); statErr != nil {
		release()
		return "", noop, fmt.Errorf("%w: page %d at %d dpi produced no image", common.ErrRasterize, page, dpi)
	}
	return out, release, nil
}

// Recognize runs tesseract on an image and returns normalized text.
func (e *Extractor) Recognize(ctx context.Context, image string) (string, error) {
	args := []string{image, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %v: %s", common.ErrRecognize, err, truncate(string(errb), 512))
	}

	txt := Normalize(string(out))
	e.assess(image, txt)
	return txt, nil
}

// assess logs a quality estimate of one recognition pass.
func (e *Extractor) assess(image, txt string) {
	conf := heuristicConfidence(txt)
	attrs := []any{"image", filepath.Base(image), "chars", len(txt), "confidence", conf}
	if e.cfg.LanguageCheck && txt != "" {
		lang, ok := e.languageDetector().DetectLanguageOf(txt)
		attrs = append(attrs, "language", lang.String())
		if !ok || lang != lingua.Croatian {
			e.logger.Warn("ocr.pass.unexpected_language", attrs...)
			return
		}
	}
	e.logger.Debug("ocr.pass", attrs...)
}

func (e *Extractor) languageDetector() lingua.LanguageDetector {
	e.detectorOnce.Do(func() {
		e.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Croatian, lingua.Bosnian, lingua.Serbian, lingua.Slovene, lingua.English).
			Build()
	})
	return e.detector
}
