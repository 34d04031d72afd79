package memory

import (
	"context"
	"sync"
	"testing"

	"import-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStore_SnapshotsAreIsolated(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()
	job := domain.NewImportJob(uuid.New(), domain.ImportRequest{ArchivePath: "a.zip"})
	require.NoError(t, store.Create(ctx, job))
	assert.Error(t, store.Create(ctx, job))

	job.Progress = 50
	snap, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Progress, "writer changes are invisible until Update")

	require.NoError(t, store.Update(ctx, job))
	snap, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Progress)

	snap.Errors = append(snap.Errors, "reader scribble")
	again, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Errors)
}

func TestJobStore_NotFound(t *testing.T) {
	store := NewJobStore()
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	err = store.Update(context.Background(), domain.NewImportJob(uuid.New(), domain.ImportRequest{}))
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobStore_ConcurrentReaders(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()
	job := domain.NewImportJob(uuid.New(), domain.ImportRequest{})
	require.NoError(t, store.Create(ctx, job))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			job.SetProgress(i)
			_ = store.Update(ctx, job)
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for i := 0; i < 100; i++ {
				snap, err := store.Get(ctx, job.ID)
				if assert.NoError(t, err) {
					assert.GreaterOrEqual(t, snap.Progress, last)
					last = snap.Progress
				}
			}
		}()
	}
	wg.Wait()
}

func TestListRepository_SaveAndGet(t *testing.T) {
	repo := NewListRepository()
	ctx := context.Background()

	list := &domain.ListAggregate{
		ID:     uuid.New(),
		Title:  "Tokyo Eats",
		Places: []domain.ListPlace{{PlaceID: uuid.New(), Place: domain.NormalizedPlace{Name: "A"}}},
	}
	require.NoError(t, repo.SaveList(ctx, list))
	assert.ErrorIs(t, repo.SaveList(ctx, list), domain.ErrPersistence)

	got, err := repo.GetList(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo Eats", got.Title)
	require.Len(t, got.Places, 1)
	assert.Equal(t, 1, repo.Count())

	_, err = repo.GetList(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	err = repo.SaveList(ctx, &domain.ListAggregate{ID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
