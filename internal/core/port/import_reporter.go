package port

import (
	"context"
	"import-service/internal/core/domain"
)

// ImportReporterPort сообщает остальной системе о результатах импорта
type ImportReporterPort interface {
	ReportListImported(ctx context.Context, list *domain.ListAggregate) error
	ReportJobFinished(ctx context.Context, job *domain.ImportJob) error
}
