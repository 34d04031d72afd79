package usecases_port

import (
	"context"
	"import-service/internal/core/domain"
)

type AnalyzeArchiveUseCase interface {
	Execute(ctx context.Context, archivePath string) ([]domain.ListSummary, error)
}
