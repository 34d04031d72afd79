package gcs

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"import-service/internal/core/domain"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	objects map[string]string
}

func (f *fakeOpener) Open(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	body, ok := f.objects[bucket+"/"+object]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestParseURL(t *testing.T) {
	b, o, err := ParseURL("gs://uploads/user-1/takeout.zip")
	require.NoError(t, err)
	assert.Equal(t, "uploads", b)
	assert.Equal(t, "user-1/takeout.zip", o)

	for _, bad := range []string{"uploads/x.zip", "gs://", "gs://bucket", "gs://bucket/", "gs:///obj", "gs://b/dir/"} {
		_, _, err := ParseURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetch_DownloadsAndCleansUp(t *testing.T) {
	f, err := NewFetcher(&fakeOpener{objects: map[string]string{"b/a.zip": "PK-bytes"}}, t.TempDir())
	require.NoError(t, err)

	local, cleanup, err := f.Fetch(context.Background(), "gs://b/a.zip")
	require.NoError(t, err)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "PK-bytes", string(data))

	cleanup()
	_, err = os.Stat(local)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFetch_MissingObject(t *testing.T) {
	f, err := NewFetcher(&fakeOpener{}, t.TempDir())
	require.NoError(t, err)

	_, _, err = f.Fetch(context.Background(), "gs://b/missing.zip")
	assert.ErrorIs(t, err, domain.ErrArchiveCorrupt)
	assert.Contains(t, err.Error(), "does not exist")
}
