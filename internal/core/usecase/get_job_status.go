package usecase

import (
	"context"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"

	"github.com/google/uuid"
)

type GetJobStatusUseCase struct {
	jobs port.JobStorePort
}

func NewGetJobStatusUseCase(jobs port.JobStorePort) *GetJobStatusUseCase {
	return &GetJobStatusUseCase{jobs: jobs}
}

// Execute возвращает снимок задачи. Опрос не влияет на выполнение.
func (uc *GetJobStatusUseCase) Execute(ctx context.Context, jobID uuid.UUID) (*domain.ImportJob, error) {
	logger := contextkeys.LoggerFromContext(ctx)

	job, err := uc.jobs.Get(ctx, jobID)
	if err != nil {
		logger.Debug("Import job lookup failed", port.Fields{"job_id": jobID.String(), "error": err.Error()})
		return nil, err
	}
	return job, nil
}
