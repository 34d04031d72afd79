package usecases_port

import (
	"context"
	"import-service/internal/core/domain"

	"github.com/google/uuid"
)

type GetJobStatusUseCase interface {
	Execute(ctx context.Context, jobID uuid.UUID) (*domain.ImportJob, error)
}
