package usecases_port

import (
	"context"

	"github.com/google/uuid"
)

type RunImportUseCase interface {
	Execute(ctx context.Context, jobID uuid.UUID) error
}
