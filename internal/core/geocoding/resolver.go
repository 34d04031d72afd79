package geocoding

import (
	"context"
	"errors"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const maxBackoff = 10 * time.Second

// Config - параметры пула обращений к геокодеру
type Config struct {
	Concurrency int
	RPS         float64
	MaxRetries  int
	Backoff     time.Duration
	Timeout     time.Duration
}

// Resolver находит координаты для сырых записей. Пул обращений к геокодеру
// (семафор и лимитер) общий для всех задач, которые используют этот Resolver.
type Resolver struct {
	geocoder port.GeocoderPort
	rules    *domain.RuleSet
	cfg      Config

	pool    *semaphore.Weighted
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewResolver создает резолвер. geocoder может быть nil: тогда все записи без
// координат получают заглушку.
func NewResolver(geocoder port.GeocoderPort, rules *domain.RuleSet, cfg Config) (*Resolver, error) {
	if rules == nil {
		return nil, fmt.Errorf("geocoding resolver: rules cannot be nil")
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("geocoding resolver: concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Resolver{
		geocoder: geocoder,
		rules:    rules,
		cfg:      cfg,
		pool:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:  rate.NewLimiter(limit, cfg.Concurrency),
		sleep:    sleepContext,
	}, nil
}

// ResolveAll разрешает записи списка параллельно (в пределах пула) и отправляет
// результаты в out. Возвращается, когда все записи отправлены.
func (r *Resolver) ResolveAll(ctx context.Context, list domain.ListContext, records []domain.RawRecord, skipLookup bool, out chan<- port.ResolvedPlace) {
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for i := range records {
		i := i
		g.Go(func() error {
			place := r.Resolve(ctx, list, records[i], i, skipLookup)
			out <- port.ResolvedPlace{Index: i, Place: place}
			return nil
		})
	}
	_ = g.Wait()
}

// Resolve разрешает одну запись: координаты из экспорта, затем геокодер, затем
// детерминированная заглушка. Никогда не возвращает ошибку.
func (r *Resolver) Resolve(ctx context.Context, list domain.ListContext, rec domain.RawRecord, index int, skipLookup bool) domain.NormalizedPlace {
	place := domain.NormalizedPlace{
		Name:    rec.Title,
		Address: rec.Address,
		Note:    rec.Note,
	}
	if rec.ExternalPlaceID != "" {
		id := rec.ExternalPlaceID
		place.ExternalPlaceID = &id
	}

	switch {
	case rec.Hint != nil && rec.Hint.Valid():
		r.applySource(&place, rec)
	case !skipLookup && r.tryLookup(ctx, list, rec, &place):
	default:
		r.applyPlaceholder(&place, list, rec, index)
	}

	place.Category = r.placeCategory(list, rec)
	place.Geohash = geohash.Encode(place.Latitude, place.Longitude)
	return place
}

func (r *Resolver) applySource(place *domain.NormalizedPlace, rec domain.RawRecord) {
	place.Latitude, place.Longitude = rec.Hint.Latitude, rec.Hint.Longitude
	place.Precision = domain.PrecisionSource
	if rule, ok := r.rules.MatchCity(rec.Address, rec.Title); ok {
		place.City = strPtr(rule.City)
		place.Country = strPtr(rule.Country)
	}
	if rec.CountryCode != "" {
		place.Country = strPtr(rec.CountryCode)
	}
}

func (r *Resolver) tryLookup(ctx context.Context, list domain.ListContext, rec domain.RawRecord, place *domain.NormalizedPlace) bool {
	if r.geocoder == nil {
		return false
	}
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "GeocodingResolver",
		"place":     rec.Title,
	})

	query := lookupQuery(list, rec)
	res, err := r.lookup(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGeocodingUnavailable), errors.Is(err, domain.ErrGeocodeNoMatch):
			logger.Debug("Lookup gave no result, using placeholder", port.Fields{"reason": err.Error()})
		default:
			logger.Warn("Lookup failed after retries, using placeholder", port.Fields{"error": err.Error(), "query": query})
		}
		return false
	}
	if !res.Coordinates.Valid() {
		logger.Warn("Geocoder returned out-of-range coordinates, ignoring", port.Fields{
			"latitude":  res.Coordinates.Latitude,
			"longitude": res.Coordinates.Longitude,
		})
		return false
	}

	place.Latitude, place.Longitude = res.Coordinates.Latitude, res.Coordinates.Longitude
	place.Precision = domain.PrecisionGeocoded
	if res.City != "" {
		place.City = strPtr(res.City)
	} else if rule, ok := r.rules.MatchCity(rec.Address, rec.Title); ok {
		place.City = strPtr(rule.City)
	}
	if res.Country != "" {
		place.Country = strPtr(res.Country)
	} else if rec.CountryCode != "" {
		place.Country = strPtr(rec.CountryCode)
	}
	if place.ExternalPlaceID == nil && res.PlaceID != "" {
		place.ExternalPlaceID = strPtr(res.PlaceID)
	}
	return true
}

func (r *Resolver) applyPlaceholder(place *domain.NormalizedPlace, list domain.ListContext, rec domain.RawRecord, index int) {
	c := r.rules.Placeholder(list.Title, index)
	place.Latitude, place.Longitude = c.Latitude, c.Longitude
	place.Precision = domain.PrecisionPlaceholder

	// город заглушки по умолчанию не приписываем месту
	if rule, ok := r.rules.MatchCity(list.Title); ok {
		place.City = strPtr(rule.City)
		place.Country = strPtr(rule.Country)
	}
	if list.City != nil {
		place.City = strPtr(*list.City)
	}
	if rec.CountryCode != "" {
		place.Country = strPtr(rec.CountryCode)
	}
}

func (r *Resolver) placeCategory(list domain.ListContext, rec domain.RawRecord) string {
	if c, ok := r.rules.MatchCategory(rec.Title, rec.Address); ok {
		return c
	}
	if list.Category != nil {
		return *list.Category
	}
	return domain.DefaultPlaceCategory
}

// lookup выполняет запрос с повторами и экспоненциальной задержкой
func (r *Resolver) lookup(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		res, err := r.lookupOnce(ctx, query)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrGeocodingUnavailable) || errors.Is(err, domain.ErrGeocodeNoMatch) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("geocoding %q: %d attempts: %w", query, r.cfg.MaxRetries+1, lastErr)
}

// lookupOnce занимает слот общего пула и токен лимитера на время одного запроса
func (r *Resolver) lookupOnce(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	if err := r.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.pool.Release(1)

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	res, err := r.geocoder.Lookup(callCtx, query)
	if err == nil && res == nil {
		return nil, domain.ErrGeocodeNoMatch
	}
	return res, err
}

// backoff - base * 2^attempt, не больше maxBackoff
func (r *Resolver) backoff(attempt int) time.Duration {
	d := r.cfg.Backoff
	if d <= 0 {
		return 0
	}
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// lookupQuery - адрес, если он есть, иначе название и город списка
func lookupQuery(list domain.ListContext, rec domain.RawRecord) string {
	if rec.Address != "" {
		return rec.Address
	}
	parts := []string{rec.Title}
	if list.City != nil && *list.City != "" {
		parts = append(parts, *list.City)
	}
	return strings.Join(parts, ", ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ port.PlaceResolverPort = (*Resolver)(nil)
