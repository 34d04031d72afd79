package memory

import (
	"context"
	"fmt"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"sync"

	"github.com/google/uuid"
)

// JobStore хранит задачи импорта в памяти процесса. Наружу отдаются только копии.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*domain.ImportJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]*domain.ImportJob)}
}

func (s *JobStore) Create(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *JobStore) Get(ctx context.Context, jobID uuid.UUID) (*domain.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *JobStore) Update(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

var _ port.JobStorePort = (*JobStore)(nil)
