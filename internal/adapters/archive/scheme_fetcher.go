package archive

import (
	"context"
	"fmt"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"strings"
)

const gcsScheme = "gs://"

// SchemeFetcher выбирает источник архива по схеме пути: gs:// уходит в бакет,
// все остальное читается из каталога загрузок.
type SchemeFetcher struct {
	local  port.ArchiveFetcherPort
	bucket port.ArchiveFetcherPort
}

// NewSchemeFetcher - bucket может быть nil, тогда пути gs:// отклоняются
func NewSchemeFetcher(local, bucket port.ArchiveFetcherPort) *SchemeFetcher {
	return &SchemeFetcher{local: local, bucket: bucket}
}

func (s *SchemeFetcher) Fetch(ctx context.Context, archivePath string) (string, func(), error) {
	if strings.HasPrefix(archivePath, gcsScheme) {
		if s.bucket == nil {
			return "", nil, fmt.Errorf("%w: %s archives are not enabled", domain.ErrArchiveCorrupt, gcsScheme)
		}
		return s.bucket.Fetch(ctx, archivePath)
	}
	return s.local.Fetch(ctx, archivePath)
}

var _ port.ArchiveFetcherPort = (*SchemeFetcher)(nil)
