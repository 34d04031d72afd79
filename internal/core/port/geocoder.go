package port

import (
	"context"
	"import-service/internal/core/domain"
)

// GeocoderPort - внешний сервис поиска координат по адресу или названию.
// Возвращает domain.ErrGeocodingUnavailable, если сервис объявлен недоступным,
// и domain.ErrGeocodeNoMatch, если по запросу ничего не найдено. Остальные ошибки
// считаются временными.
type GeocoderPort interface {
	Lookup(ctx context.Context, query string) (*domain.GeocodeResult, error)
}
