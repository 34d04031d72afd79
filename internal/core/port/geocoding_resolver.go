package port

import (
	"context"
	"import-service/internal/core/domain"
)

// ResolvedPlace - результат разрешения одной записи
type ResolvedPlace struct {
	Index int
	Place domain.NormalizedPlace
}

// PlaceResolverPort превращает сырые записи в нормализованные места с координатами.
// Никогда не возвращает ошибку: при недоступности геокодера используется заглушка.
type PlaceResolverPort interface {
	// ResolveAll отправляет результаты в out по мере готовности (в любом порядке)
	// и возвращается, когда все записи разрешены. Канал out не закрывается.
	ResolveAll(ctx context.Context, list domain.ListContext, records []domain.RawRecord, skipLookup bool, out chan<- ResolvedPlace)
	// ListContext выводит город и категорию списка по названию и записям
	ListContext(title string, records []domain.RawRecord) domain.ListContext
}
