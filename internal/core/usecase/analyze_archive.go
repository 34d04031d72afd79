package usecase

import (
	"context"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
)

type AnalyzeArchiveUseCase struct {
	inspector port.ArchiveInspectorPort
	parser    port.ExportParserPort
}

func NewAnalyzeArchiveUseCase(inspector port.ArchiveInspectorPort, parser port.ExportParserPort) *AnalyzeArchiveUseCase {
	return &AnalyzeArchiveUseCase{inspector: inspector, parser: parser}
}

// Execute перечисляет списки архива с форматом и числом мест, ничего не сохраняя.
// Нераспознанный или битый файл не прерывает анализ, а попадает в поле Error.
func (uc *AnalyzeArchiveUseCase) Execute(ctx context.Context, archivePath string) ([]domain.ListSummary, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "AnalyzeArchive"})

	sources, err := uc.inspector.Inspect(ctx, archivePath)
	if err != nil {
		ucLogger.Warn("Archive analysis failed", port.Fields{"error": err.Error()})
		return nil, err
	}

	summaries := make([]domain.ListSummary, 0, len(sources))
	for _, src := range sources {
		summary := domain.ListSummary{Name: src.Name, FileName: src.FileName, Format: domain.FormatUnknown}

		if src.Err != nil {
			summary.Error = src.Err.Error()
			summaries = append(summaries, summary)
			continue
		}

		format, err := uc.parser.Detect(src.Data)
		if err != nil {
			summary.Error = err.Error()
			summaries = append(summaries, summary)
			continue
		}
		summary.Format = format

		records, err := uc.parser.Parse(src.Data)
		if err != nil {
			summary.Error = err.Error()
		} else {
			summary.PlaceCount = len(records)
		}
		summaries = append(summaries, summary)
	}

	ucLogger.Info("Archive analyzed", port.Fields{"lists": len(summaries)})
	return summaries, nil
}
