package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Ichiran, Tokyo", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "import-service-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "trace-1", r.Header.Get("X-Trace-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"place_id":42,"osm_type":"node","osm_id":7,"lat":"35.6612","lon":"139.7016",
			"address":{"town":"Shibuya","country":"Japan"}}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "import-service-test", time.Second)
	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-1")

	res, err := c.Lookup(ctx, "Ichiran, Tokyo")
	require.NoError(t, err)
	assert.InDelta(t, 35.6612, res.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 139.7016, res.Coordinates.Longitude, 1e-9)
	assert.Equal(t, "Shibuya", res.City)
	assert.Equal(t, "Japan", res.Country)
	assert.Equal(t, "osm:node:7", res.PlaceID)
}

func TestLookup_StatusMapping(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		sentinel  error
		retryable bool
	}{
		{"empty result", http.StatusOK, `[]`, domain.ErrGeocodeNoMatch, false},
		{"forbidden", http.StatusForbidden, ``, domain.ErrGeocodingUnavailable, false},
		{"rate limited", http.StatusTooManyRequests, `slow down`, nil, true},
		{"server error", http.StatusBadGateway, ``, nil, true},
		{"bad request", http.StatusBadRequest, ``, domain.ErrGeocodeNoMatch, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).Lookup(context.Background(), "x")
			require.Error(t, err)
			if tc.sentinel != nil {
				assert.ErrorIs(t, err, tc.sentinel)
			}
			if tc.retryable {
				assert.False(t, errors.Is(err, domain.ErrGeocodeNoMatch))
				assert.False(t, errors.Is(err, domain.ErrGeocodingUnavailable))
			}
		})
	}
}

func TestLookup_NotConfigured(t *testing.T) {
	_, err := NewClient("", "", time.Second).Lookup(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrGeocodingUnavailable)
}
