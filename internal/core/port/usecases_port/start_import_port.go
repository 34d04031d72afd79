package usecases_port

import (
	"context"
	"import-service/internal/core/domain"

	"github.com/google/uuid"
)

type StartImportUseCase interface {
	Execute(ctx context.Context, ownerID uuid.UUID, req domain.ImportRequest) (uuid.UUID, error)
}
