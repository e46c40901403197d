package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/pipeline"
)

type recordingProcessor struct {
	mu      sync.Mutex
	batches [][]string
	cats    []string
	active  int
	overlap bool
	gate    chan struct{}
}

func (r *recordingProcessor) ProcessBatch(_ context.Context, cat constants.Category, inputs []pipeline.Input) (pipeline.Summary, error) {
	r.mu.Lock()
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	if r.gate != nil {
		<-r.gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	var paths []string
	for _, in := range inputs {
		paths = append(paths, in.Path)
	}
	r.batches = append(r.batches, paths)
	r.cats = append(r.cats, cat.Folder)
	return pipeline.Summary{Submitted: len(inputs), Written: len(inputs)}, nil
}

func TestQueueProcessesEveryJobSerially(t *testing.T) {
	proc := &recordingProcessor{gate: make(chan struct{})}
	var (
		mu      sync.Mutex
		written int
	)
	q := NewProcessorQueue(proc, nil, WithOnDone(func(s pipeline.Summary, err error) {
		assert.NoError(t, err)
		mu.Lock()
		written += s.Written
		mu.Unlock()
	}))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: "a1.pdf"}))
	// the worker is now blocked on the first batch; these pile up
	require.Eventually(t, func() bool {
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return proc.active == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: "a2.pdf"}))
	require.NoError(t, q.Enqueue(ctx, Job{Category: constants.GlobalTeam, Path: "g1.pdf"}))
	require.NoError(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: "a3.pdf"}))
	close(proc.gate)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	assert.False(t, proc.overlap)
	assert.Equal(t, [][]string{{"a1.pdf"}, {"a2.pdf", "a3.pdf"}, {"g1.pdf"}}, proc.batches)
	assert.Equal(t, []string{"Agram", "Agram", "GTM"}, proc.cats)
	assert.Equal(t, 4, written)

	assert.ErrorIs(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: "late.pdf"}), ErrClosed)
}

// deadlineProcessor records the deadline of each batch and how many
// documents were still inside it when processed.
type deadlineProcessor struct {
	mu        sync.Mutex
	delay     time.Duration
	deadlines []time.Duration
	hasDL     []bool
	expired   int
	done      int
	entered   chan struct{}
	gate      chan struct{}
}

func (d *deadlineProcessor) ProcessBatch(ctx context.Context, _ constants.Category, inputs []pipeline.Input) (pipeline.Summary, error) {
	if d.gate != nil {
		close(d.entered)
		<-d.gate
		d.gate = nil
	}
	dl, ok := ctx.Deadline()
	d.mu.Lock()
	d.hasDL = append(d.hasDL, ok)
	if ok {
		d.deadlines = append(d.deadlines, time.Until(dl))
	}
	d.mu.Unlock()

	for range inputs {
		time.Sleep(d.delay)
		d.mu.Lock()
		if ctx.Err() != nil {
			d.expired++
		} else {
			d.done++
		}
		d.mu.Unlock()
	}
	return pipeline.Summary{Submitted: len(inputs)}, nil
}

func TestQueueWithoutTimeoutHasNoDeadline(t *testing.T) {
	proc := &deadlineProcessor{delay: 20 * time.Millisecond}
	q := NewProcessorQueue(proc, nil)

	ctx := context.Background()
	for _, p := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		require.NoError(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: p}))
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	assert.Equal(t, 4, proc.done)
	assert.Zero(t, proc.expired)
	for _, ok := range proc.hasDL {
		assert.False(t, ok)
	}
}

func TestQueueTimeoutScalesWithBatchSize(t *testing.T) {
	proc := &deadlineProcessor{entered: make(chan struct{}), gate: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithProcessTimeout(time.Hour))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: "first.pdf"}))
	// the backlog piles up behind the first batch
	<-proc.entered
	for _, p := range []string{"b.pdf", "c.pdf", "d.pdf"} {
		require.NoError(t, q.Enqueue(ctx, Job{Category: constants.Agram, Path: p}))
	}
	close(proc.gate)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	require.Len(t, proc.deadlines, 2)
	assert.Greater(t, proc.deadlines[0], 59*time.Minute)
	assert.LessOrEqual(t, proc.deadlines[0], time.Hour)
	assert.Greater(t, proc.deadlines[1], 179*time.Minute)
	assert.Equal(t, 4, proc.done)
}
