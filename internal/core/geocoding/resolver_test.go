package geocoding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"import-service/internal/core/domain"
	"import-service/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() *domain.RuleSet {
	return &domain.RuleSet{
		DefaultCity:       "Tokyo",
		PlaceholderOffset: 0.001,
		Cities: []domain.CityRule{
			{City: "Tokyo", Country: "Japan", Keywords: []string{"tokyo", "shibuya"}, Latitude: 35.6762, Longitude: 139.6503},
			{City: "Paris", Country: "France", Keywords: []string{"paris"}, Latitude: 48.8566, Longitude: 2.3522},
		},
		Categories: []domain.CategoryRule{
			{Category: "restaurant", Keywords: []string{"eats", "ramen"}},
			{Category: "cafe", Keywords: []string{"cafe", "coffee"}},
		},
	}
}

type fakeGeocoder struct {
	mu       sync.Mutex
	calls    map[string]int
	fn       func(query string, call int) (*domain.GeocodeResult, error)
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeGeocoder) Lookup(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[query]++
	call := f.calls[query]
	f.mu.Unlock()
	return f.fn(query, call)
}

func (f *fakeGeocoder) callCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

func newResolver(t *testing.T, g port.GeocoderPort, cfg Config) *Resolver {
	t.Helper()
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	r, err := NewResolver(g, testRules(), cfg)
	require.NoError(t, err)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestResolve_SourceHintWins(t *testing.T) {
	g := &fakeGeocoder{fn: func(string, int) (*domain.GeocodeResult, error) {
		t.Fatal("geocoder must not be called")
		return nil, nil
	}}
	r := newResolver(t, g, Config{})

	p := r.Resolve(context.Background(), domain.ListContext{Title: "Trip"}, domain.RawRecord{
		Title:   "Blue Bottle Coffee",
		Address: "Shibuya",
		Hint:    &domain.Coordinates{Latitude: 35.66, Longitude: 139.70},
	}, 0, false)

	assert.Equal(t, domain.PrecisionSource, p.Precision)
	assert.InDelta(t, 35.66, p.Latitude, 1e-9)
	require.NotNil(t, p.City)
	assert.Equal(t, "Tokyo", *p.City)
	assert.Equal(t, "cafe", p.Category)
	assert.NotEmpty(t, p.Geohash)
}

func TestResolve_GeocodedWithRetries(t *testing.T) {
	g := &fakeGeocoder{fn: func(q string, call int) (*domain.GeocodeResult, error) {
		if call < 3 {
			return nil, errors.New("503 from upstream")
		}
		return &domain.GeocodeResult{Coordinates: domain.Coordinates{Latitude: 48.86, Longitude: 2.33}, City: "Paris", Country: "France", PlaceID: "osm:1"}, nil
	}}
	r := newResolver(t, g, Config{MaxRetries: 3})

	p := r.Resolve(context.Background(), domain.ListContext{Title: "Paris"}, domain.RawRecord{Title: "Louvre", Address: "Rue de Rivoli"}, 0, false)

	assert.Equal(t, domain.PrecisionGeocoded, p.Precision)
	assert.Equal(t, 3, g.callCount("Rue de Rivoli"))
	require.NotNil(t, p.ExternalPlaceID)
	assert.Equal(t, "osm:1", *p.ExternalPlaceID)
	assert.Equal(t, domain.DefaultPlaceCategory, p.Category)
}

func TestResolve_RetriesExhaustedFallsBack(t *testing.T) {
	g := &fakeGeocoder{fn: func(string, int) (*domain.GeocodeResult, error) {
		return nil, errors.New("timeout")
	}}
	r := newResolver(t, g, Config{MaxRetries: 2})

	p := r.Resolve(context.Background(), domain.ListContext{Title: "Paris picks"}, domain.RawRecord{Title: "Somewhere"}, 4, false)

	assert.Equal(t, domain.PrecisionPlaceholder, p.Precision)
	assert.Equal(t, 3, g.callCount("Somewhere"))
	assert.InDelta(t, 48.8566+0.004, p.Latitude, 1e-9)
	assert.InDelta(t, 2.3522+0.004, p.Longitude, 1e-9)
}

func TestResolve_UnavailableSkipsRetries(t *testing.T) {
	g := &fakeGeocoder{fn: func(string, int) (*domain.GeocodeResult, error) {
		return nil, domain.ErrGeocodingUnavailable
	}}
	r := newResolver(t, g, Config{MaxRetries: 5})

	p := r.Resolve(context.Background(), domain.ListContext{Title: "x"}, domain.RawRecord{Title: "A"}, 0, false)
	assert.Equal(t, domain.PrecisionPlaceholder, p.Precision)
	assert.Equal(t, 1, g.callCount("A"))
}

func TestResolve_OutOfRangeResultIsMiss(t *testing.T) {
	g := &fakeGeocoder{fn: func(string, int) (*domain.GeocodeResult, error) {
		return &domain.GeocodeResult{Coordinates: domain.Coordinates{Latitude: 123, Longitude: 0}}, nil
	}}
	r := newResolver(t, g, Config{})

	p := r.Resolve(context.Background(), domain.ListContext{Title: "x"}, domain.RawRecord{Title: "A"}, 0, false)
	assert.Equal(t, domain.PrecisionPlaceholder, p.Precision)
	assert.Nil(t, p.City, "default city is not attributed to placeholders")
}

func TestResolve_QueryUsesListCity(t *testing.T) {
	g := &fakeGeocoder{fn: func(string, int) (*domain.GeocodeResult, error) {
		return nil, domain.ErrGeocodeNoMatch
	}}
	r := newResolver(t, g, Config{})
	tokyo := "Tokyo"

	r.Resolve(context.Background(), domain.ListContext{Title: "Tokyo Eats", City: &tokyo}, domain.RawRecord{Title: "Afuri"}, 0, false)
	assert.Equal(t, 1, g.callCount("Afuri, Tokyo"))
}

func TestResolveAll_FastPathDeterministic(t *testing.T) {
	r := newResolver(t, nil, Config{})
	records := make([]domain.RawRecord, 5)
	for i := range records {
		records[i] = domain.RawRecord{Title: "Place"}
	}
	list := r.ListContext("Tokyo Eats", records)
	require.NotNil(t, list.City)
	require.NotNil(t, list.Category)
	assert.Equal(t, "Tokyo", *list.City)
	assert.Equal(t, "restaurant", *list.Category)

	run := func() []domain.NormalizedPlace {
		out := make(chan port.ResolvedPlace, len(records))
		r.ResolveAll(context.Background(), list, records, true, out)
		close(out)
		places := make([]domain.NormalizedPlace, len(records))
		for rp := range out {
			places[rp.Index] = rp.Place
		}
		return places
	}

	first, second := run(), run()
	assert.Equal(t, first, second)
	for i, p := range first {
		assert.Equal(t, domain.PrecisionPlaceholder, p.Precision)
		assert.InDelta(t, 35.6762+float64(i)*0.001, p.Latitude, 1e-9)
		assert.InDelta(t, 139.6503+float64(i)*0.001, p.Longitude, 1e-9)
		assert.Equal(t, "restaurant", p.Category)
		require.NotNil(t, p.City)
		assert.Equal(t, "Tokyo", *p.City)
	}
}

func TestResolveAll_PoolBoundsConcurrency(t *testing.T) {
	g := &fakeGeocoder{
		delay: 5 * time.Millisecond,
		fn: func(string, int) (*domain.GeocodeResult, error) {
			return &domain.GeocodeResult{Coordinates: domain.Coordinates{Latitude: 1, Longitude: 1}}, nil
		},
	}
	r := newResolver(t, g, Config{Concurrency: 2})

	records := make([]domain.RawRecord, 12)
	for i := range records {
		records[i] = domain.RawRecord{Title: "p", Address: string(rune('a' + i))}
	}

	// две задачи делят один пул
	var wg sync.WaitGroup
	for j := 0; j < 2; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := make(chan port.ResolvedPlace, len(records))
			r.ResolveAll(context.Background(), domain.ListContext{Title: "x"}, records, false, out)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&g.maxSeen), int32(2))
}

func TestBackoffCapped(t *testing.T) {
	r := newResolver(t, nil, Config{Backoff: 100 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, r.backoff(0))
	assert.Equal(t, 400*time.Millisecond, r.backoff(2))
	assert.Equal(t, maxBackoff, r.backoff(20))
	assert.Equal(t, maxBackoff, r.backoff(62))
}
