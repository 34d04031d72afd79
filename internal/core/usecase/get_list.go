package usecase

import (
	"context"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"

	"github.com/google/uuid"
)

type GetListUseCase struct {
	repo port.ListRepositoryPort
}

func NewGetListUseCase(repo port.ListRepositoryPort) *GetListUseCase {
	return &GetListUseCase{repo: repo}
}

func (uc *GetListUseCase) Execute(ctx context.Context, listID uuid.UUID) (*domain.ListAggregate, error) {
	return uc.repo.GetList(ctx, listID)
}
