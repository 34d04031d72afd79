package usecase

import (
	"context"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"

	"github.com/google/uuid"
)

type StartImportUseCase struct {
	jobs       port.JobStorePort
	dispatcher port.JobDispatcherPort
}

func NewStartImportUseCase(jobs port.JobStorePort, dispatcher port.JobDispatcherPort) *StartImportUseCase {
	return &StartImportUseCase{jobs: jobs, dispatcher: dispatcher}
}

// Execute создает задачу импорта и ставит ее в очередь. Возвращается сразу,
// обработка идет в фоне.
func (uc *StartImportUseCase) Execute(ctx context.Context, ownerID uuid.UUID, req domain.ImportRequest) (uuid.UUID, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":  "StartImport",
		"owner_id":  ownerID.String(),
		"fast_path": req.FastPath,
	})

	if ownerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("owner id is required")
	}

	job := domain.NewImportJob(ownerID, req)
	if err := uc.jobs.Create(ctx, job); err != nil {
		ucLogger.Error("Failed to create import job", err, nil)
		return uuid.Nil, fmt.Errorf("could not create import job: %w", err)
	}

	if err := uc.dispatcher.Dispatch(ctx, job.ID); err != nil {
		ucLogger.Warn("Import job was not queued", port.Fields{"job_id": job.ID.String(), "error": err.Error()})
		if failErr := job.Fail(err); failErr == nil {
			if updErr := uc.jobs.Update(ctx, job); updErr != nil {
				ucLogger.Error("Failed to mark unqueued job as failed", updErr, nil)
			}
		}
		return uuid.Nil, err
	}

	ucLogger.Info("Import job queued", port.Fields{
		"job_id":         job.ID.String(),
		"selected_lists": len(req.Lists),
	})
	return job.ID, nil
}
