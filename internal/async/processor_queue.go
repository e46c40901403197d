package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/pipeline"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// BatchProcessor is the work the queue drives.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, cat constants.Category, inputs []pipeline.Input) (pipeline.Summary, error)
}

// ProcessorQueue feeds jobs to a single worker. Jobs already waiting when
// the worker wakes up are grouped per category into one batch, so the
// ledger is written once per group and never concurrently.
type ProcessorQueue struct {
	proc    BatchProcessor
	logger  *slog.Logger
	timeout time.Duration
	onDone  func(pipeline.Summary, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds each batch to d per document in it. Without it
// batches run without a deadline.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked after every batch.
func WithOnDone(fn func(pipeline.Summary, error)) Option {
	return func(q *ProcessorQueue) {
		q.onDone = fn
	}
}

func NewProcessorQueue(proc BatchProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("worker started")

			for job := range q.ch {
				jobs := append([]Job{job}, q.drain()...)
				for _, group := range groupByCategory(jobs) {
					q.run(group)
				}
			}

			q.logger.Info("worker stopped")
		}()
	})
}

// drain takes whatever is already queued without blocking.
func (q *ProcessorQueue) drain() []Job {
	var out []Job
	for {
		select {
		case job, ok := <-q.ch:
			if !ok {
				return out
			}
			out = append(out, job)
		default:
			return out
		}
	}
}

func (q *ProcessorQueue) run(group []Job) {
	cat := group[0].Category
	inputs := make([]pipeline.Input, len(group))
	for i, j := range group {
		inputs[i] = pipeline.Input{Path: j.Path}
	}

	ctx, cancel := q.batchContext(len(group))
	sum, err := q.proc.ProcessBatch(ctx, cat, inputs)
	cancel()

	if err != nil {
		q.logger.Error("processing failed", "category", cat.Folder, "documents", len(group), "error", err)
	} else {
		q.logger.Info("processed batch", "category", cat.Folder, "documents", len(group),
			"written", sum.Written, "failed", sum.Failed, "duplicates", sum.Duplicates)
	}
	if q.onDone != nil {
		q.onDone(sum, err)
	}
}

// batchContext scales the per-document budget by the batch size, so a
// large backlog merged into one batch is not cut short.
func (q *ProcessorQueue) batchContext(documents int) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(documents)*q.timeout)
}

func groupByCategory(jobs []Job) [][]Job {
	var (
		order  []string
		groups = map[string][]Job{}
	)
	for _, j := range jobs {
		key := j.Category.Folder
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], j)
	}
	out := make([][]Job, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	return out
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document for processing", "path", job.Path, "category", job.Category.Folder)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
