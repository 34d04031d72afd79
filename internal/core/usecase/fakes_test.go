package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"import-service/internal/core/domain"

	"github.com/google/uuid"
)

// fakeInspector отдает заранее подготовленные файлы списков
type fakeInspector struct {
	sources []domain.ListSource
	err     error
}

func (f *fakeInspector) Inspect(ctx context.Context, archivePath string) ([]domain.ListSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.ListSource(nil), f.sources...), nil
}

// lineParser разбирает строки вида "title" или "title;lat;lng".
// Файл, начинающийся с "!", считается битым.
type lineParser struct{}

func (lineParser) Detect(data []byte) (domain.Format, error) {
	if strings.HasPrefix(string(data), "!") {
		return domain.FormatUnknown, fmt.Errorf("%w: unrecognized export", domain.ErrParse)
	}
	return domain.FormatTabular, nil
}

func (p lineParser) Parse(data []byte) ([]domain.RawRecord, error) {
	if _, err := p.Detect(data); err != nil {
		return nil, err
	}
	var records []domain.RawRecord
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, ";")
		rec := domain.RawRecord{Title: parts[0]}
		if len(parts) == 3 {
			lat, _ := strconv.ParseFloat(parts[1], 64)
			lng, _ := strconv.ParseFloat(parts[2], 64)
			rec.Hint = &domain.Coordinates{Latitude: lat, Longitude: lng}
		}
		records = append(records, rec)
	}
	return records, nil
}

type fakeGeocoder struct {
	mu    sync.Mutex
	calls int
	res   *domain.GeocodeResult
	err   error
}

func (g *fakeGeocoder) Lookup(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	res := *g.res
	return &res, nil
}

func (g *fakeGeocoder) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingReporter struct {
	mu       sync.Mutex
	lists    []uuid.UUID
	finished []domain.Stage
}

func (r *recordingReporter) ReportListImported(ctx context.Context, list *domain.ListAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, list.ID)
	return nil
}

func (r *recordingReporter) ReportJobFinished(ctx context.Context, job *domain.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, job.Stage)
	return nil
}

// snapshot - состояние задачи на момент очередного Update
type snapshot struct {
	Stage           domain.Stage
	Progress        int
	ListsProcessed  int
	PlacesProcessed int
	TotalPlaces     int
}

// historyStore - хранилище задач, запоминающее все сохраненные снимки
type historyStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*domain.ImportJob
	history map[uuid.UUID][]snapshot
}

func newHistoryStore() *historyStore {
	return &historyStore{
		jobs:    make(map[uuid.UUID]*domain.ImportJob),
		history: make(map[uuid.UUID][]snapshot),
	}
}

func (s *historyStore) Create(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *historyStore) Get(ctx context.Context, jobID uuid.UUID) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *historyStore) Update(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	s.jobs[job.ID] = job.Clone()
	s.history[job.ID] = append(s.history[job.ID], snapshot{
		Stage:           job.Stage,
		Progress:        job.Progress,
		ListsProcessed:  job.ListsProcessed,
		PlacesProcessed: job.PlacesProcessed,
		TotalPlaces:     job.TotalPlaces,
	})
	return nil
}

func (s *historyStore) History(jobID uuid.UUID) []snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]snapshot(nil), s.history[jobID]...)
}

type listRepo struct {
	mu    sync.Mutex
	lists map[uuid.UUID]*domain.ListAggregate
	err   error
}

func newListRepo() *listRepo {
	return &listRepo{lists: make(map[uuid.UUID]*domain.ListAggregate)}
}

func (r *listRepo) SaveList(ctx context.Context, list *domain.ListAggregate) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[list.ID] = list
	return nil
}

func (r *listRepo) GetList(ctx context.Context, listID uuid.UUID) (*domain.ListAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.lists[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}
	return list, nil
}

func (r *listRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lists)
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
	return nil
}
