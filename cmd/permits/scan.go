package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/catalog"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/extract"
	"github.com/joseph-ayodele/permits-ledger/internal/ocr"
	"github.com/joseph-ayodele/permits-ledger/internal/pipeline"
	"github.com/joseph-ayodele/permits-ledger/internal/scan"
)

// scanCmd runs the extraction on one PDF without staging, archiving or
// touching the ledger. Useful for tuning DPIs and the stop policy.
var scanCmd = &cobra.Command{
	Use:   "scan <file.pdf>",
	Short: "Extract the permit fields of one PDF and print them",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var scanCategory string

func init() {
	scanCmd.Flags().StringVarP(&scanCategory, "category", "c", "", "agency used for the employer column (default: first catalog entry)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	cats, err := catalog.Load(cfg.Storage.CatalogPath)
	if err != nil {
		return err
	}
	cat, err := scanCategoryFor(cats, scanCategory)
	if err != nil {
		return err
	}
	resolver, err := extract.NewEmployerResolver(cfg.Pipeline.EmployerStrategy, cat, constants.EmployerNames(cats))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		LanguageCheck: cfg.OCR.LanguageCheck,
	}, logger)
	if err := extractor.Check(); err != nil {
		return fmt.Errorf("ocr tools: %w", err)
	}

	path := args[0]
	pages, err := extractor.PageCount(path)
	if err != nil {
		return err
	}

	opts := scan.Options{DPIs: cfg.OCR.DPIs, Policy: stopPolicy(cfg.Pipeline.StopPolicy)}
	if cfg.OCR.TextLayer {
		opts.TextLayer = extractor
	}
	ctx, cancel := withDocTimeout(cmd.Context(), cfg.Pipeline.DocTimeout)
	defer cancel()

	start := time.Now()
	state, stats, err := scan.NewController(extractor, extractor, extract.NewMatchers(), opts, logger).
		Scan(ctx, path, pages, resolver)
	if err != nil {
		return err
	}

	employer := state.Employer
	if !state.Found(scan.FieldEmployer) {
		employer = resolver.Default()
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:       %s\n", scannedName(state, path))
	fmt.Fprintf(out, "Employer:   %s\n", employer)
	fmt.Fprintf(out, "Job title:  %s\n", state.JobTitle)
	fmt.Fprintf(out, "Valid from: %s\n", state.ValidFrom)
	fmt.Fprintf(out, "Valid to:   %s\n", state.ValidTo)
	fmt.Fprintf(out, "Pages %d/%d, text layer %d, OCR passes %d, stop %s, %s\n",
		stats.PagesScanned, stats.Pages, stats.TextLayerPasses, stats.OCRPasses, stats.StopReason,
		time.Since(start).Round(time.Millisecond))
	return nil
}

// scanCategoryFor resolves --category against the catalog; empty picks the
// first entry.
func scanCategoryFor(cats []constants.Category, input string) (constants.Category, error) {
	if input == "" && len(cats) > 0 {
		return cats[0], nil
	}
	cat, ok := constants.Canonicalize(cats, input)
	if !ok {
		return constants.Category{}, fmt.Errorf("%w: unknown category %q", common.ErrInvalidInput, input)
	}
	return cat, nil
}

// scannedName is the name the ledger would get, marked when it comes from
// the filename.
func scannedName(state *scan.State, path string) string {
	if state.Found(scan.FieldName) && state.Name != "" {
		return state.Name
	}
	return pipeline.FallbackName(path) + " (from filename)"
}
