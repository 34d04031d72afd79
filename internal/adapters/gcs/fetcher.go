package gcs

import (
	"context"
	"errors"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const scheme = "gs://"

// ObjectOpener открывает объект бакета на чтение
type ObjectOpener interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// StorageOpener - ObjectOpener поверх клиента Cloud Storage
type StorageOpener struct {
	client *storage.Client
}

func NewStorageOpener(client *storage.Client) *StorageOpener {
	return &StorageOpener{client: client}
}

func (s *StorageOpener) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return s.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// Fetcher скачивает архив gs://bucket/object во временный файл
type Fetcher struct {
	opener ObjectOpener
	tmpDir string
}

// NewFetcher создает загрузчик архивов из бакета. Пустой tmpDir означает os.TempDir().
func NewFetcher(opener ObjectOpener, tmpDir string) (*Fetcher, error) {
	if opener == nil {
		return nil, fmt.Errorf("gcs fetcher: opener cannot be nil")
	}
	return &Fetcher{opener: opener, tmpDir: tmpDir}, nil
}

func (f *Fetcher) Fetch(ctx context.Context, archivePath string) (string, func(), error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":    "GCSFetcher",
		"archive_path": archivePath,
	})

	bucket, object, err := ParseURL(archivePath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}

	rc, err := f.opener.Open(ctx, bucket, object)
	if err != nil {
		logger.Error("Failed to open archive object", err, nil)
		return "", nil, fmt.Errorf("%w: %s", domain.ErrArchiveCorrupt, describe(err))
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(f.tmpDir, "import-*.zip")
	if err != nil {
		return "", nil, fmt.Errorf("gcs fetcher: create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, rc)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		logger.Error("Failed to download archive object", err, nil)
		return "", nil, fmt.Errorf("%w: download %s: %v", domain.ErrArchiveCorrupt, archivePath, err)
	}

	logger.Debug("Archive downloaded", port.Fields{"bytes": n, "local_path": tmp.Name()})
	return tmp.Name(), cleanup, nil
}

// ParseURL разбирает gs://bucket/path/to/object
func ParseURL(u string) (bucket, object string, err error) {
	if !strings.HasPrefix(u, scheme) {
		return "", "", fmt.Errorf("not a %s url: %q", scheme, u)
	}
	rest := strings.TrimPrefix(u, scheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("url %q must look like %sbucket/object", u, scheme)
	}
	return bucket, object, nil
}

func describe(err error) string {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return "archive object does not exist"
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusForbidden || gerr.Code == http.StatusUnauthorized) {
		return "no access to archive object"
	}
	return err.Error()
}

var _ port.ArchiveFetcherPort = (*Fetcher)(nil)
