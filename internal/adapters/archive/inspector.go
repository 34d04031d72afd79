package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"io"
	"path"
	"sort"
	"strings"
)

const savedDir = "saved"

var listExtensions = map[string]struct{}{
	".csv":     {},
	".json":    {},
	".geojson": {},
}

// ZipInspector открывает zip-архив экспорта и возвращает файлы списков из каталога Saved/
type ZipInspector struct {
	fetcher       port.ArchiveFetcherPort
	maxEntryBytes int64
}

// NewZipInspector создает инспектор. fetcher отвечает за то, чтобы архив оказался на диске.
func NewZipInspector(fetcher port.ArchiveFetcherPort, maxEntryBytes int64) (*ZipInspector, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("archive inspector: fetcher cannot be nil")
	}
	if maxEntryBytes <= 0 {
		return nil, fmt.Errorf("archive inspector: maxEntryBytes must be positive, got %d", maxEntryBytes)
	}
	return &ZipInspector{fetcher: fetcher, maxEntryBytes: maxEntryBytes}, nil
}

func (z *ZipInspector) Inspect(ctx context.Context, archivePath string) ([]domain.ListSource, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":    "ZipInspector",
		"archive_path": archivePath,
	})

	localPath, cleanup, err := z.fetcher.Fetch(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	reader, err := zip.OpenReader(localPath)
	if err != nil {
		logger.Error("Failed to open archive", err, nil)
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}
	defer reader.Close()

	sources := make([]domain.ListSource, 0)
	for _, f := range reader.File {
		if !isListEntry(f) {
			continue
		}
		src := domain.ListSource{Name: listName(f.Name), FileName: f.Name}
		src.Data, src.Err = z.readEntry(f)
		if src.Err != nil {
			logger.Warn("Archive entry is unreadable, list will be skipped", port.Fields{"entry": f.Name, "error": src.Err.Error()})
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		logger.Warn("Archive has no saved lists", port.Fields{"entries": len(reader.File)})
		return nil, domain.ErrArchiveEmpty
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].FileName < sources[j].FileName })

	logger.Info("Archive inspected", port.Fields{"lists_found": len(sources)})
	return sources, nil
}

// readEntry читает запись целиком. Ошибки записи - ErrParse: битая запись портит
// только свой список, а не весь архив. Заголовку о размере не доверяем: читаем не больше лимита+1.
func (z *ZipInspector) readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(z.maxEntryBytes) {
		return nil, fmt.Errorf("%w: entry is %d bytes, limit is %d", domain.ErrParse, f.UncompressedSize64, z.maxEntryBytes)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry: %v", domain.ErrParse, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, z.maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read entry: %v", domain.ErrParse, err)
	}
	if int64(len(data)) > z.maxEntryBytes {
		return nil, fmt.Errorf("%w: entry exceeds %d bytes", domain.ErrParse, z.maxEntryBytes)
	}
	return data, nil
}

func isListEntry(f *zip.File) bool {
	name := f.Name
	if f.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
		return false
	}
	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return false
	}
	base := path.Base(name)
	if strings.HasPrefix(base, "._") {
		return false
	}
	if _, ok := listExtensions[strings.ToLower(path.Ext(base))]; !ok {
		return false
	}

	dirs := strings.Split(path.Dir(name), "/")
	for _, d := range dirs {
		if strings.EqualFold(d, savedDir) {
			return true
		}
	}
	return false
}

// listName - имя файла без каталога и расширения
func listName(entry string) string {
	base := path.Base(entry)
	return strings.TrimSuffix(base, path.Ext(base))
}

var _ port.ArchiveInspectorPort = (*ZipInspector)(nil)
