package port

import (
	"context"
	"import-service/internal/core/domain"
)

// ArchiveInspectorPort открывает архив и перечисляет файлы-экспорты списков
type ArchiveInspectorPort interface {
	Inspect(ctx context.Context, archivePath string) ([]domain.ListSource, error)
}

// ArchiveFetcherPort делает архив доступным локально (например, скачивает из бакета).
// cleanup нужно вызвать после работы с файлом.
type ArchiveFetcherPort interface {
	Fetch(ctx context.Context, archivePath string) (localPath string, cleanup func(), err error)
}

// ExportParserPort определяет формат файла и разбирает его в сырые записи
type ExportParserPort interface {
	Detect(data []byte) (domain.Format, error)
	Parse(data []byte) ([]domain.RawRecord, error)
}
