package port

import (
	"context"
	"import-service/internal/core/domain"

	"github.com/google/uuid"
)

// JobStorePort - хранилище задач импорта. Реализация в памяти и надежная очередь/таблица
// взаимозаменяемы.
type JobStorePort interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	// Get возвращает снимок задачи; изменения снимка не влияют на хранилище
	Get(ctx context.Context, jobID uuid.UUID) (*domain.ImportJob, error)
	Update(ctx context.Context, job *domain.ImportJob) error
}
