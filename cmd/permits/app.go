package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/archive"
	"github.com/joseph-ayodele/permits-ledger/internal/catalog"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/extract"
	"github.com/joseph-ayodele/permits-ledger/internal/ledger"
	"github.com/joseph-ayodele/permits-ledger/internal/ocr"
	"github.com/joseph-ayodele/permits-ledger/internal/pipeline"
	"github.com/joseph-ayodele/permits-ledger/internal/repository"
	"github.com/joseph-ayodele/permits-ledger/internal/scan"
	"github.com/joseph-ayodele/permits-ledger/internal/server"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg        *common.Config
	logger     *slog.Logger
	categories []constants.Category
	archiver   *archive.Archiver
	ledger     *ledger.Writer
	processor  *pipeline.Processor
	db         *repository.DB
}

// loadConfig reads the environment, applies flag overrides and validates.
func loadConfig() (*common.Config, error) {
	cfg := common.LoadConfig()
	overrides.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	cats, err := catalog.Load(cfg.Storage.CatalogPath)
	if err != nil {
		return nil, err
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		LanguageCheck: cfg.OCR.LanguageCheck,
	}, logger)
	if err := extractor.Check(); err != nil {
		return nil, fmt.Errorf("ocr tools: %w", err)
	}

	opts := scan.Options{DPIs: cfg.OCR.DPIs, Policy: stopPolicy(cfg.Pipeline.StopPolicy)}
	if cfg.OCR.TextLayer {
		opts.TextLayer = extractor
	}
	controller := scan.NewController(extractor, extractor, extract.NewMatchers(), opts, logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		categories: cats,
		archiver:   archive.NewArchiver(cfg.Storage.Root, cfg.Storage.BaseURL, logger),
		ledger:     ledger.NewWriter(cfg.LedgerPath(), cfg.Storage.LedgerSheet, logger),
	}

	popts := pipeline.Options{
		EmployerStrategy: cfg.Pipeline.EmployerStrategy,
		Categories:       cats,
		Dedup:            cfg.Pipeline.Dedup,
		DocTimeout:       cfg.Pipeline.DocTimeout,
	}
	if cfg.Database.Enabled {
		dbCfg := cfg.Database
		dbCfg.DSN = cfg.DatabaseDSN()
		db, err := server.ConnectDB(ctx, dbCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("document index: %w", err)
		}
		a.db = db
		popts.Documents = repository.NewDocumentRepository(db, logger)
		popts.Jobs = repository.NewExtractJobRepository(db, logger)
	}

	a.processor = pipeline.NewProcessor(a.archiver, extractor, controller, a.ledger, popts, logger)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// category resolves a --category value (employer name or folder).
func (a *app) category(input string) (constants.Category, error) {
	cat, ok := constants.Canonicalize(a.categories, input)
	if !ok {
		return constants.Category{}, fmt.Errorf("%w: unknown category %q (see `permits categories`)", common.ErrInvalidInput, input)
	}
	return cat, nil
}

// withDocTimeout bounds ctx by d; zero or negative means no deadline, as
// in the batch processor.
func withDocTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func stopPolicy(name string) scan.StopPolicy {
	if name == common.StopAll {
		return scan.StopWhenAllPolicy()
	}
	return scan.DefaultStopPolicy()
}
