package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/obs"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// ErrNoResult is returned when the geocoder finds nothing for an address.
var ErrNoResult = errors.New("geocode: no result")

// ORSGeocoder resolves free-form addresses through the OpenRouteService
// /geocode/search endpoint.
type ORSGeocoder struct {
	apiKey      string
	baseURL     string
	country     string
	session     *http.Client
	maxAttempts int
	backoff     time.Duration
}

type Option func(*ORSGeocoder)

// WithBaseURL points the client at another host (tests, self-hosted ORS).
func WithBaseURL(u string) Option {
	return func(g *ORSGeocoder) { g.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *ORSGeocoder) { g.session = c }
}

func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(g *ORSGeocoder) {
		if maxAttempts > 0 {
			g.maxAttempts = maxAttempts
		}
		if backoff > 0 {
			g.backoff = backoff
		}
	}
}

// NewORSGeocoder builds a geocoder limited to the given ISO country code.
// An empty country disables the boundary filter.
func NewORSGeocoder(apiKey, country string, opts ...Option) (*ORSGeocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("geocode: api key is required")
	}

	g := &ORSGeocoder{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		country:     strings.ToUpper(strings.TrimSpace(country)),
		session:     &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode returns the best match for address.
func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.GeoPoint, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	text := strings.TrimSpace(address)
	if text == "" {
		return domain.GeoPoint{}, errors.New("geocode: empty address")
	}

	resp, err := g.search(ctx, text)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: %w", text, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("%w for %q", ErrNoResult, text)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("invalid coordinate format for %q", text)
	}

	// GeoJSON order is [lng, lat].
	p := domain.GeoPoint{Lat: coords[1], Lng: coords[0]}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: coordinates out of range", text)
	}
	return p, nil
}
