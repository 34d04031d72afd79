package archive

import (
	"context"
	"errors"
	"fmt"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"os"
	"path/filepath"
	"strings"
)

var ErrArchiveNotFound = errors.New("archive not found")

// LocalFetcher отдает архивы, загруженные в каталог uploadRoot.
// Пути вне uploadRoot отклоняются.
type LocalFetcher struct {
	root string
}

func NewLocalFetcher(uploadRoot string) (*LocalFetcher, error) {
	abs, err := filepath.Abs(uploadRoot)
	if err != nil {
		return nil, fmt.Errorf("local fetcher: resolve upload root %q: %w", uploadRoot, err)
	}
	return &LocalFetcher{root: abs}, nil
}

func (l *LocalFetcher) Fetch(ctx context.Context, archivePath string) (string, func(), error) {
	p, err := l.resolve(archivePath)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %w: %s", domain.ErrArchiveCorrupt, ErrArchiveNotFound, archivePath)
		}
		return "", nil, fmt.Errorf("%w: stat %s: %v", domain.ErrArchiveCorrupt, archivePath, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", domain.ErrArchiveCorrupt, archivePath)
	}
	return p, func() {}, nil
}

func (l *LocalFetcher) resolve(archivePath string) (string, error) {
	if archivePath == "" {
		return "", fmt.Errorf("%w: empty archive path", domain.ErrArchiveCorrupt)
	}
	var p string
	if filepath.IsAbs(archivePath) {
		p = filepath.Clean(archivePath)
	} else {
		p = filepath.Join(l.root, archivePath)
	}
	rel, err := filepath.Rel(l.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes upload root", domain.ErrArchiveCorrupt, archivePath)
	}
	return p, nil
}

var _ port.ArchiveFetcherPort = (*LocalFetcher)(nil)

// IsNotFound сообщает, что архив не найден по указанному пути
func IsNotFound(err error) bool {
	return errors.Is(err, ErrArchiveNotFound)
}
