package usecase_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"import-service/internal/adapters/archive"
	"import-service/internal/adapters/exportparser"
	"import-service/internal/adapters/memory"
	"import-service/internal/adapters/rabbitmq"
	"import-service/internal/adapters/rules"
	"import-service/internal/core/domain"
	"import-service/internal/core/geocoding"
	"import-service/internal/core/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entryLimit = 256

// writeArchive собирает настоящий zip в dir и возвращает его имя относительно dir
func writeArchive(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "takeout.zip"))
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, body := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return "takeout.zip"
}

type archiveEnv struct {
	jobs    *memory.JobStore
	lists   *memory.ListRepository
	run     *usecase.RunImportUseCase
	analyze *usecase.AnalyzeArchiveUseCase
}

func newArchiveEnv(t *testing.T, dir string) *archiveEnv {
	t.Helper()
	fetcher, err := archive.NewLocalFetcher(dir)
	require.NoError(t, err)
	inspector, err := archive.NewZipInspector(fetcher, entryLimit)
	require.NoError(t, err)
	ruleSet, err := rules.Default()
	require.NoError(t, err)
	resolver, err := geocoding.NewResolver(nil, ruleSet, geocoding.Config{Concurrency: 2})
	require.NoError(t, err)

	parser := exportparser.NewParser()
	env := &archiveEnv{
		jobs:  memory.NewJobStore(),
		lists: memory.NewListRepository(),
	}
	env.run = usecase.NewRunImportUseCase(env.jobs, inspector, parser, resolver, usecase.NewListWriter(env.lists), rabbitmq.NoopReporter{})
	env.analyze = usecase.NewAnalyzeArchiveUseCase(inspector, parser)
	return env
}

func (e *archiveEnv) runJob(t *testing.T, req domain.ImportRequest) *domain.ImportJob {
	t.Helper()
	ctx := context.Background()
	job := domain.NewImportJob(uuid.New(), req)
	require.NoError(t, e.jobs.Create(ctx, job))
	require.NoError(t, e.run.Execute(ctx, job.ID))

	got, err := e.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	return got
}

func oversizeCSV() string {
	return "Title,Note,URL\n" + strings.Repeat("Somewhere far away,,\n", 20)
}

func TestArchiveImport_OversizeEntryFailsOnlyItsList(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, map[string]string{
		"Takeout/Saved/A.csv":   "Title,Note,URL\nFirst,,https://maps.google.com/?q=35.68,139.76\n",
		"Takeout/Saved/B.csv":   "Title,Note,URL\nSecond,,https://maps.google.com/?q=34.69,135.50\n",
		"Takeout/Saved/C.csv":   "Title,Note,URL\nThird,,\n",
		"Takeout/Saved/Big.csv": oversizeCSV(),
	})
	env := newArchiveEnv(t, dir)

	job := env.runJob(t, domain.ImportRequest{ArchivePath: path})

	assert.Equal(t, domain.StageComplete, job.Stage)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 4, job.TotalLists)
	assert.Equal(t, 4, job.ListsProcessed)
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "Big")
	assert.Equal(t, 3, env.lists.Count())

	created := 0
	for _, r := range job.Results {
		if r.Name == "Big" {
			assert.Equal(t, domain.OutcomeFailed, r.Status)
			assert.Equal(t, domain.KindParse, r.Kind)
			continue
		}
		assert.Equal(t, domain.OutcomeCreated, r.Status, r.Name)
		assert.Equal(t, 1, r.PlaceCount, r.Name)
		created++
	}
	assert.Equal(t, 3, created)
}

func TestArchiveImport_UnselectedOversizeEntryIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, map[string]string{
		"Takeout/Saved/A.csv":   "Title,Note,URL\nFirst,,https://maps.google.com/?q=35.68,139.76\n",
		"Takeout/Saved/Big.csv": oversizeCSV(),
	})
	env := newArchiveEnv(t, dir)

	job := env.runJob(t, domain.ImportRequest{
		ArchivePath: path,
		Lists:       []domain.SelectedList{{Name: "A"}},
	})

	assert.Equal(t, domain.StageComplete, job.Stage)
	assert.Empty(t, job.Errors)
	assert.Equal(t, 1, job.TotalLists)
	assert.Equal(t, 1, env.lists.Count())
}

func TestArchiveImport_FastPathUsesDefaultRules(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, map[string]string{
		"Takeout/Saved/Tokyo Eats.csv": "Title,Note,URL\nIchiran,,\nAfuri,,\nFuunji,,\nTsuta,,\nNagi,,\n",
	})
	env := newArchiveEnv(t, dir)

	job := env.runJob(t, domain.ImportRequest{ArchivePath: path, FastPath: true})

	require.Equal(t, domain.StageComplete, job.Stage)
	require.Empty(t, job.Errors)
	require.Len(t, job.Results, 1)
	require.NotNil(t, job.Results[0].ListID)

	list, err := env.lists.GetList(context.Background(), *job.Results[0].ListID)
	require.NoError(t, err)
	require.NotNil(t, list.City)
	assert.Equal(t, "Tokyo", *list.City)
	require.Len(t, list.Places, 5)

	seen := make(map[domain.Coordinates]bool)
	for i, lp := range list.Places {
		c := lp.Place.Coordinates()
		assert.True(t, c.Valid())
		assert.Equal(t, domain.PrecisionPlaceholder, lp.Place.Precision)
		assert.InDelta(t, 35.6762+float64(i)*0.001, c.Latitude, 1e-9)
		assert.InDelta(t, 139.6503+float64(i)*0.001, c.Longitude, 1e-9)
		assert.False(t, seen[c], "places %d collide", i)
		seen[c] = true
	}
}

func TestArchiveAnalyze_ReportsUnreadableEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, map[string]string{
		"Takeout/Saved/A.csv":   "Title,Note,URL\nFirst,,\nSecond,,\n",
		"Takeout/Saved/Big.csv": oversizeCSV(),
	})
	env := newArchiveEnv(t, dir)

	summaries, err := env.analyze.Execute(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byName := make(map[string]domain.ListSummary)
	for _, s := range summaries {
		byName[s.Name] = s
	}
	assert.Empty(t, byName["A"].Error)
	assert.Equal(t, 2, byName["A"].PlaceCount)
	assert.NotEmpty(t, byName["Big"].Error)
}
