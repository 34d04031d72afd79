package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"import-service/internal/core/port/usecases_port"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

var ErrQueueClosed = errors.New("import queue is closed")

// queuedJob - задача в очереди вместе с trace_id запроса, который ее создал
type queuedJob struct {
	ID      uuid.UUID
	TraceID string
}

// Queue - явная очередь задач импорта с ограниченным пулом воркеров.
// Задачи выполняются в контексте, отвязанном от HTTP-запроса.
type Queue struct {
	runner  usecases_port.RunImportUseCase
	workers int
	jobs    chan queuedJob
	logger  port.LoggerPort

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewQueue создает очередь емкостью size, обслуживаемую workers воркерами
func NewQueue(runner usecases_port.RunImportUseCase, workers, size int, logger port.LoggerPort) (*Queue, error) {
	if runner == nil {
		return nil, fmt.Errorf("job queue: runner cannot be nil")
	}
	if workers < 1 {
		return nil, fmt.Errorf("job queue: workers must be positive, got %d", workers)
	}
	if size < 0 {
		return nil, fmt.Errorf("job queue: size cannot be negative, got %d", size)
	}
	return &Queue{
		runner:  runner,
		workers: workers,
		jobs:    make(chan queuedJob, size),
		logger:  logger.WithFields(port.Fields{"component": "JobQueue"}),
	}, nil
}

// Dispatch ставит задачу в очередь, не блокируясь. Полная очередь - domain.ErrQueueFull.
func (q *Queue) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- queuedJob{ID: jobID, TraceID: contextkeys.TraceIDFromContext(ctx)}:
		q.logger.Debug("Job enqueued", port.Fields{"job_id": jobID.String(), "queued": len(q.jobs)})
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Start запускает воркеров. Повторный вызов ничего не делает.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	// Воркеры не должны прерываться вместе с родительским контекстом:
	// начатые задачи доводятся до конца при остановке сервиса.
	base := contextkeys.ContextWithLogger(context.WithoutCancel(ctx), q.logger)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(base, i)
	}
	q.logger.Info("Job queue started", port.Fields{"workers": q.workers, "capacity": cap(q.jobs)})
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(ctx, id, job)
	}
}

func (q *Queue) run(ctx context.Context, workerID int, job queuedJob) {
	workerLogger := q.logger.WithFields(port.Fields{"worker": workerID})
	if job.TraceID != "" {
		ctx = contextkeys.ContextWithTraceID(ctx, job.TraceID)
		workerLogger = workerLogger.WithFields(port.Fields{"trace_id": job.TraceID})
	}
	// job_id к логгеру добавляет сам use case
	ctx = contextkeys.ContextWithLogger(ctx, workerLogger)
	logger := workerLogger.WithFields(port.Fields{"job_id": job.ID.String()})
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job runner panicked", fmt.Errorf("panic: %v", r), port.Fields{"stack": string(debug.Stack())})
		}
	}()

	if err := q.runner.Execute(ctx, job.ID); err != nil {
		logger.Error("Import job finished with error", err, nil)
	}
}

// Shutdown перестает принимать задачи и ждет, пока воркеры разберут очередь.
// Если ctx истекает раньше, возвращает его ошибку.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Job queue drained", nil)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job queue: shutdown interrupted: %w", ctx.Err())
	}
}

var _ port.JobDispatcherPort = (*Queue)(nil)
