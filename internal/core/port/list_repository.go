package port

import (
	"context"
	"import-service/internal/core/domain"

	"github.com/google/uuid"
)

// ListRepositoryPort сохраняет агрегат списка целиком или не сохраняет ничего
type ListRepositoryPort interface {
	SaveList(ctx context.Context, list *domain.ListAggregate) error
	GetList(ctx context.Context, listID uuid.UUID) (*domain.ListAggregate, error)
}
