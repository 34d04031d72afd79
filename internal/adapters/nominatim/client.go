package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client - клиент геокодера с API в стиле Nominatim
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient создает клиента. Пустой baseURL означает, что геокодер не настроен,
// и каждый Lookup вернет domain.ErrGeocodingUnavailable.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// doRequest - внутренний хелпер для выполнения запросов
func (c *Client) doRequest(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return c.httpClient.Do(req)
}

func (c *Client) Lookup(ctx context.Context, query string) (*domain.GeocodeResult, error) {
	if c.baseURL == "" {
		return nil, domain.ErrGeocodingUnavailable
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrGeocodeNoMatch
	}

	clientLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "NominatimClient",
		"method":    "Lookup",
	})

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	clientLogger.Debug("Sending geocoding request", port.Fields{"query": query})

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		clientLogger.Warn("Geocoder refused the request", port.Fields{"status_code": resp.StatusCode})
		return nil, fmt.Errorf("%w: status %d", domain.ErrGeocodingUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocoder returned retryable status %d: %s", resp.StatusCode, string(body))
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrGeocodeNoMatch, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		clientLogger.Error("Failed to decode geocoder response", err, nil)
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, domain.ErrGeocodeNoMatch
	}

	return toDomain(results[0])
}

func toDomain(r searchResult) (*domain.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", domain.ErrGeocodeNoMatch, r.Lat)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", domain.ErrGeocodeNoMatch, r.Lon)
	}

	res := &domain.GeocodeResult{
		Coordinates: domain.Coordinates{Latitude: lat, Longitude: lon},
		City:        firstNonEmpty(r.Address.City, r.Address.Town, r.Address.Village),
		Country:     r.Address.Country,
	}
	if r.OSMType != "" && r.OSMID != 0 {
		res.PlaceID = fmt.Sprintf("osm:%s:%d", r.OSMType, r.OSMID)
	} else if r.PlaceID != 0 {
		res.PlaceID = "nominatim:" + strconv.FormatInt(r.PlaceID, 10)
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ port.GeocoderPort = (*Client)(nil)
