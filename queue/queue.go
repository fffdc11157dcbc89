package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FlushInterval is how often pending rows are drained into one storage
// transaction.
const FlushInterval = 500 * time.Millisecond

// DegradedEnterDepth is the queue depth at which non-critical writes
// start being dropped.
const DegradedEnterDepth = 1000

// DegradedExitDepth is the depth the queue must fall back under before
// non-critical writes resume; half the enter threshold so the queue
// doesn't thrash at the boundary.
const DegradedExitDepth = DegradedEnterDepth / 2

// Row is a single request's log entry, written after the response to
// the client has already been produced.
type Row struct {
	RequestID     string
	TenantID      string
	PromptPreview string
	Provider      string
	Model         string
	Intent        string
	Tier          string
	StatusCode    int
	InputTokens   int
	OutputTokens  int
	CostUSD       float64
	LatencyMs     int64
	CacheHit      bool
	Timeout       bool
	Error         string
	CreatedAt     time.Time

	// Critical rows (completion writes) are never dropped in degraded
	// mode; non-critical rows (e.g. a cache-hit-only log) are.
	Critical bool
}

// Sink persists a batch of rows inside a single transaction.
type Sink interface {
	WriteBatch(ctx context.Context, rows []Row) error
}

// Stats is a point-in-time snapshot of queue health.
type Stats struct {
	Depth    int
	Degraded bool
	Dropped  int64
	Flushed  int64
	Errors   int64
}

// Queue batches Rows and flushes them to a Sink on a timer.
type Queue struct {
	sink Sink

	mu      sync.Mutex
	pending []Row

	degraded atomic.Bool
	dropped  atomic.Int64
	flushed  atomic.Int64
	errors   atomic.Int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Queue bound to sink. Call Start to begin the background
// flush timer.
func New(sink Sink) *Queue {
	return &Queue{
		sink:   sink,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the background flush timer. It returns once the timer
// goroutine is running; call Shutdown to stop it.
func (q *Queue) Start() {
	go q.run()
}

func (q *Queue) run() {
	defer close(q.doneCh)
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.flush()
		case <-q.stopCh:
			q.flush()
			return
		}
	}
}

// Enqueue appends row to the pending batch. Non-critical rows are
// dropped while the queue is in degraded mode.
func (q *Queue) Enqueue(row Row) {
	if q.degraded.Load() && !row.Critical {
		q.dropped.Add(1)
		return
	}

	q.mu.Lock()
	q.pending = append(q.pending, row)
	depth := len(q.pending)
	q.mu.Unlock()

	q.updateDegraded(depth)
}

func (q *Queue) updateDegraded(depth int) {
	switch {
	case depth > DegradedEnterDepth:
		q.degraded.Store(true)
	case depth < DegradedExitDepth:
		q.degraded.Store(false)
	}
}

func (q *Queue) flush() {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	q.updateDegraded(0)

	if err := q.sink.WriteBatch(context.Background(), batch); err != nil {
		q.errors.Add(1)
		return
	}
	q.flushed.Add(int64(len(batch)))
}

// Shutdown stops the flush timer and synchronously flushes whatever is
// pending.
func (q *Queue) Shutdown(ctx context.Context) error {
	close(q.stopCh)
	select {
	case <-q.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Snapshot returns current queue health.
func (q *Queue) Snapshot() Stats {
	q.mu.Lock()
	depth := len(q.pending)
	q.mu.Unlock()

	return Stats{
		Depth:    depth,
		Degraded: q.degraded.Load(),
		Dropped:  q.dropped.Load(),
		Flushed:  q.flushed.Load(),
		Errors:   q.errors.Load(),
	}
}
