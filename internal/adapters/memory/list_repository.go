package memory

import (
	"context"
	"fmt"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"sync"

	"github.com/google/uuid"
)

// ListRepository - хранилище списков в памяти. Агрегат кладется целиком под
// мьютексом, поэтому читатель никогда не видит список без мест.
type ListRepository struct {
	mu    sync.RWMutex
	lists map[uuid.UUID]*domain.ListAggregate
}

func NewListRepository() *ListRepository {
	return &ListRepository{lists: make(map[uuid.UUID]*domain.ListAggregate)}
}

func (r *ListRepository) SaveList(ctx context.Context, list *domain.ListAggregate) error {
	if len(list.Places) == 0 {
		return fmt.Errorf("%w: list %s has no places", domain.ErrPersistence, list.ID)
	}
	stored := cloneList(list)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.lists[list.ID]; exists {
		return fmt.Errorf("%w: list %s already exists", domain.ErrPersistence, list.ID)
	}
	r.lists[list.ID] = stored
	return nil
}

func (r *ListRepository) GetList(ctx context.Context, listID uuid.UUID) (*domain.ListAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list, ok := r.lists[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}
	return cloneList(list), nil
}

// Count возвращает число сохраненных списков
func (r *ListRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lists)
}

func cloneList(list *domain.ListAggregate) *domain.ListAggregate {
	c := *list
	c.Places = append([]domain.ListPlace(nil), list.Places...)
	return &c
}

var _ port.ListRepositoryPort = (*ListRepository)(nil)
