package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/async"
	"github.com/joseph-ayodele/permits-ledger/internal/ingest"
	"github.com/joseph-ayodele/permits-ledger/internal/pipeline"
	"github.com/joseph-ayodele/permits-ledger/internal/server"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch every category intake folder and process permits as they arrive",
	RunE:  runWatch,
}

var (
	watchNoInitial bool
	watchQueueSize int
)

func init() {
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial-scan", false, "ignore documents already waiting in the intake folders")
	watchCmd.Flags().IntVar(&watchQueueSize, "queue-size", 256, "documents buffered before the watcher blocks")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger.With("component", "watch")

	roots := make([]string, 0, len(a.categories))
	for _, cat := range a.categories {
		dir := a.archiver.IntakeDir(cat)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create intake dir %s: %w", dir, err)
		}
		roots = append(roots, dir)
	}

	var health *server.HealthServer
	if a.cfg.Server.HealthAddr != "" {
		health, err = server.NewHealthServer(a.cfg.Server.HealthAddr, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := health.Serve(); err != nil {
				logger.Error("health server stopped", "error", err)
			}
		}()
		defer health.Stop()
	}

	queue := async.NewProcessorQueue(a.processor, logger, queueOptions(a.cfg.Pipeline.DocTimeout, func(sum pipeline.Summary, _ error) {
		printSummary(cmd.OutOrStdout(), sum)
	})...)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: !watchNoInitial,
		Debounce:    a.cfg.Server.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if health != nil {
		health.SetServing(true)
	}
	logger.Info("watching intake folders", "root", a.archiver.Root(), "categories", len(roots))

loop:
	for {
		select {
		case path, ok := <-events:
			if !ok {
				break loop
			}
			cat, ok := categoryForPath(a.archiver.Root(), a.categories, path)
			if !ok {
				logger.Warn("document outside any category folder", "path", path)
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Category: cat, Path: path}); err != nil {
				logger.Warn("enqueue failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("watcher error", "error", err)
		case <-ctx.Done():
			break loop
		}
	}

	if health != nil {
		health.SetServing(false)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	return nil
}

// queueOptions sizes the watch queue and bounds each batch per document:
// the scan timeout plus a minute for staging, archiving and the ledger.
// A zero scan timeout leaves batches unbounded.
func queueOptions(docTimeout time.Duration, onDone func(pipeline.Summary, error)) []async.Option {
	opts := []async.Option{async.WithQueueSize(watchQueueSize), async.WithOnDone(onDone)}
	if docTimeout > 0 {
		opts = append(opts, async.WithProcessTimeout(docTimeout+time.Minute))
	}
	return opts
}

// categoryForPath maps a document to the category whose folder is the
// first path element under root.
func categoryForPath(root string, cats []constants.Category, path string) (constants.Category, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return constants.Category{}, false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	for _, c := range cats {
		if c.Folder == first {
			return c, true
		}
	}
	return constants.Category{}, false
}
