package port

import (
	"context"

	"github.com/google/uuid"
)

// JobDispatcherPort ставит задачу импорта в очередь на выполнение в фоне.
// Возвращает domain.ErrQueueFull, если очередь переполнена.
type JobDispatcherPort interface {
	Dispatch(ctx context.Context, jobID uuid.UUID) error
}
