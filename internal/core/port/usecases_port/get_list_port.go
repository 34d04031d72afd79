package usecases_port

import (
	"context"
	"import-service/internal/core/domain"

	"github.com/google/uuid"
)

type GetListUseCase interface {
	Execute(ctx context.Context, listID uuid.UUID) (*domain.ListAggregate, error)
}
