package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Row
	err     error
}

func (f *fakeSink) WriteBatch(ctx context.Context, rows []Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]Row, len(rows))
	copy(cp, rows)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeSink) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestEnqueue_IncreasesDepthUntilFlush(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)

	q.Enqueue(Row{RequestID: "1"})
	q.Enqueue(Row{RequestID: "2"})

	assert.Equal(t, 2, q.Snapshot().Depth)
}

func TestShutdown_FlushesPendingRowsSynchronously(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)
	q.Start()

	q.Enqueue(Row{RequestID: "1", Critical: true})
	q.Enqueue(Row{RequestID: "2", Critical: true})

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, 2, sink.rowCount())
	assert.Equal(t, 0, q.Snapshot().Depth)
}

func TestFlush_RunsOnTimer(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)
	q.Start()
	defer q.Shutdown(context.Background())

	q.Enqueue(Row{RequestID: "1"})

	require.Eventually(t, func() bool {
		return sink.rowCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnqueue_EntersDegradedModeAboveThreshold(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)

	for i := 0; i <= DegradedEnterDepth; i++ {
		q.Enqueue(Row{RequestID: "x"})
	}

	assert.True(t, q.Snapshot().Degraded)
}

func TestEnqueue_DropsNonCriticalRowsWhileDegraded(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)
	q.degraded.Store(true)

	q.Enqueue(Row{RequestID: "noncritical", Critical: false})
	q.Enqueue(Row{RequestID: "critical", Critical: true})

	assert.Equal(t, 1, q.Snapshot().Depth)
	assert.Equal(t, int64(1), q.Snapshot().Dropped)
}

func TestUpdateDegraded_ExitsBelowHalfThreshold(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)
	q.degraded.Store(true)

	q.updateDegraded(DegradedExitDepth - 1)

	assert.False(t, q.Snapshot().Degraded)
}

func TestUpdateDegraded_StaysDegradedInHysteresisBand(t *testing.T) {
	sink := &fakeSink{}
	q := New(sink)
	q.degraded.Store(true)

	q.updateDegraded(DegradedExitDepth + 10)

	assert.True(t, q.Snapshot().Degraded)
}

func TestFlush_RecordsSinkErrorsWithoutLosingDroppedCount(t *testing.T) {
	sink := &fakeSink{err: assertErr{}}
	q := New(sink)

	q.Enqueue(Row{RequestID: "1"})
	q.flush()

	assert.Equal(t, int64(1), q.Snapshot().Errors)
}

type assertErr struct{}

func (assertErr) Error() string { return "write failed" }
