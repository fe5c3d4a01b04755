package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l7tap/l7tap/internal/model"
)

// fakeProcessor is a Processor whose Process call is instrumented for
// assertions: it counts invocations, can be made to panic, and can block
// until released so tests can observe queue depth under load.
type fakeProcessor struct {
	mu       sync.Mutex
	seen     []*model.Datagram
	panicOn  *model.Datagram
	release  chan struct{}
	blocking bool
	entered  atomic.Int32
}

func (f *fakeProcessor) Process(ctx context.Context, dg *model.Datagram) {
	f.entered.Add(1)
	if f.blocking {
		<-f.release
	}
	f.mu.Lock()
	f.seen = append(f.seen, dg)
	f.mu.Unlock()

	if f.panicOn == dg {
		panic("synthetic classify panic")
	}
}

func (f *fakeProcessor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func newDatagram() *model.Datagram {
	return model.NewDatagram([]byte{1, 2, 3}, time.Unix(0, 0))
}

func waitForCount(t *testing.T, proc *fakeProcessor, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if proc.count() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d classifications, got %d", want, proc.count())
}

func waitForEntered(t *testing.T, proc *fakeProcessor, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if proc.entered.Load() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d Process entries, got %d", want, proc.entered.Load())
}

func TestNewPoolAppliesConfig(t *testing.T) {
	proc := &fakeProcessor{}
	pool := NewPool(Config{Workers: 4, QueueSize: 100}, proc)
	defer pool.Close()

	assert.Equal(t, 4, pool.workers)
	assert.Equal(t, 100, pool.queueSize)
}

func TestNewPoolDefaults(t *testing.T) {
	proc := &fakeProcessor{}
	pool := NewPool(Config{}, proc)
	defer pool.Close()

	assert.NotZero(t, pool.workers)
	assert.NotZero(t, pool.queueSize)
}

func TestTrySubmitClassifiesDatagram(t *testing.T) {
	proc := &fakeProcessor{}
	pool := NewPool(Config{Workers: 2, QueueSize: 4}, proc)
	defer pool.Close()

	dg := newDatagram()
	require.NoError(t, pool.TrySubmit(dg))

	waitForCount(t, proc, 1)

	stats := pool.GetStats()
	assert.EqualValues(t, 1, stats.Submitted)
	assert.EqualValues(t, 1, stats.Classified)
	assert.Zero(t, stats.Dropped)
	assert.Zero(t, stats.Failed)
}

func TestTrySubmitReturnsErrQueueFullWhenSaturated(t *testing.T) {
	proc := &fakeProcessor{blocking: true, release: make(chan struct{})}
	pool := NewPool(Config{Workers: 1, QueueSize: 1}, proc)
	defer func() {
		close(proc.release)
		pool.Close()
	}()

	// First datagram occupies the single worker (blocked on release);
	// second fills the one-slot queue; third must be rejected.
	require.NoError(t, pool.TrySubmit(newDatagram()))
	waitForEntered(t, proc, 1) // worker has dequeued it, queue slot is free

	require.NoError(t, pool.TrySubmit(newDatagram()))

	err := pool.TrySubmit(newDatagram())
	assert.Equal(t, ErrQueueFull, err)

	stats := pool.GetStats()
	assert.EqualValues(t, 1, stats.Dropped)
}

func TestTrySubmitAfterCloseReturnsErrPoolClosed(t *testing.T) {
	proc := &fakeProcessor{}
	pool := NewPool(Config{Workers: 1, QueueSize: 1}, proc)
	require.NoError(t, pool.Close())

	err := pool.TrySubmit(newDatagram())
	assert.Equal(t, ErrPoolClosed, err)
}

func TestCloseIsIdempotentAndReturnsErrPoolClosed(t *testing.T) {
	proc := &fakeProcessor{}
	pool := NewPool(Config{Workers: 1, QueueSize: 1}, proc)

	require.NoError(t, pool.Close())
	assert.Equal(t, ErrPoolClosed, pool.Close())
}

func TestCloseWaitsForQueuedDatagrams(t *testing.T) {
	proc := &fakeProcessor{}
	pool := NewPool(Config{Workers: 2, QueueSize: 8}, proc)

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.TrySubmit(newDatagram()))
	}
	require.NoError(t, pool.Close())

	assert.Equal(t, 5, proc.count())
}

// TestClassifyRecoversFromPanic ensures one panicking datagram costs only
// itself: the worker keeps draining the queue afterward (spec §7:
// "nothing inside the core aborts the process").
func TestClassifyRecoversFromPanic(t *testing.T) {
	panicking := newDatagram()
	proc := &fakeProcessor{panicOn: panicking}

	var recovered atomic.Int32
	pool := NewPool(Config{
		Workers:   1,
		QueueSize: 4,
		PanicHandler: func(r interface{}) {
			recovered.Add(1)
		},
	}, proc)
	defer pool.Close()

	require.NoError(t, pool.TrySubmit(panicking))
	require.NoError(t, pool.TrySubmit(newDatagram()))

	waitForCount(t, proc, 2)

	assert.EqualValues(t, 1, recovered.Load())
	stats := pool.GetStats()
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 1, stats.Classified)
}

func TestGetStatsReportsQueueDepth(t *testing.T) {
	proc := &fakeProcessor{blocking: true, release: make(chan struct{})}
	pool := NewPool(Config{Workers: 1, QueueSize: 4}, proc)
	defer func() {
		close(proc.release)
		pool.Close()
	}()

	require.NoError(t, pool.TrySubmit(newDatagram())) // occupies the worker
	waitForEntered(t, proc, 1)
	require.NoError(t, pool.TrySubmit(newDatagram()))
	require.NoError(t, pool.TrySubmit(newDatagram()))

	stats := pool.GetStats()
	assert.Equal(t, 2, stats.QueueDepth)
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, 4, stats.QueueSize)
}
