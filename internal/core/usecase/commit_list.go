package usecase

import (
	"context"
	"errors"
	"fmt"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
)

// ListWriter собирает агрегат списка и сохраняет его целиком
type ListWriter struct {
	repo port.ListRepositoryPort
}

func NewListWriter(repo port.ListRepositoryPort) *ListWriter {
	return &ListWriter{repo: repo}
}

// Commit строит агрегат (центр, геохеш, порядок мест) и сохраняет его.
// Ошибки хранилища всегда оборачиваются в domain.ErrPersistence.
func (w *ListWriter) Commit(ctx context.Context, draft domain.ListDraft) (*domain.ListAggregate, error) {
	agg, err := domain.BuildListAggregate(draft)
	if err != nil {
		return nil, err
	}

	if err := w.repo.SaveList(ctx, agg); err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return agg, nil
}
