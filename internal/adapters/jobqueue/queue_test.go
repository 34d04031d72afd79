package jobqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	ran     []uuid.UUID
	block   chan struct{}
	running int32
	maxSeen int32
}

func (f *fakeRunner) Execute(ctx context.Context, jobID uuid.UUID) error {
	n := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}
	if ctx.Err() != nil {
		panic("job context must not be cancelled")
	}
	f.mu.Lock()
	f.ran = append(f.ran, jobID)
	f.mu.Unlock()
	return nil
}

func TestQueue_FullReturnsErrQueueFull(t *testing.T) {
	q, err := NewQueue(&fakeRunner{}, 1, 1, contextkeys.LoggerFromContext(context.Background()))
	require.NoError(t, err)

	require.NoError(t, q.Dispatch(context.Background(), uuid.New()))
	assert.ErrorIs(t, q.Dispatch(context.Background(), uuid.New()), domain.ErrQueueFull)
}

func TestQueue_DrainsOnShutdown(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	q, err := NewQueue(runner, 2, 10, contextkeys.LoggerFromContext(context.Background()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Dispatch(ctx, uuid.New()))
	}
	cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(runner.block)
	}()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, q.Shutdown(shutdownCtx))

	assert.Len(t, runner.ran, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.maxSeen), int32(2))
	assert.ErrorIs(t, q.Dispatch(context.Background(), uuid.New()), ErrQueueClosed)
}

type panickyRunner struct{ calls int32 }

func (p *panickyRunner) Execute(ctx context.Context, jobID uuid.UUID) error {
	if atomic.AddInt32(&p.calls, 1) == 1 {
		panic("boom")
	}
	return nil
}

func TestQueue_WorkerSurvivesPanic(t *testing.T) {
	runner := &panickyRunner{}
	q, err := NewQueue(runner, 1, 4, contextkeys.LoggerFromContext(context.Background()))
	require.NoError(t, err)
	q.Start(context.Background())

	require.NoError(t, q.Dispatch(context.Background(), uuid.New()))
	require.NoError(t, q.Dispatch(context.Background(), uuid.New()))
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&runner.calls))
}

func TestNewQueue_Validation(t *testing.T) {
	l := contextkeys.LoggerFromContext(context.Background())
	_, err := NewQueue(nil, 1, 1, l)
	assert.Error(t, err)
	_, err = NewQueue(&fakeRunner{}, 0, 1, l)
	assert.Error(t, err)
}
