package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"fleet-scheduling-service/internal/adapters/ors"
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
)

// ErrNoMatch is returned when the search finds no feature for an address.
var ErrNoMatch = errors.New("no geocode results")

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder resolves addresses through OpenRouteService
// (/geocode/search). It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - De-duplication of concurrent lookups for the same address
//   - External API calls with throttling
//
// A failed lookup is returned to the caller; nothing is retried.
//
// The geocoder is safe for concurrent use.
type ORSGeocoder struct {
	client  *ors.Client
	cache   ports.GeocodeCache
	country string
	group   singleflight.Group
}

// NewORSGeocoder builds a geocoder. cache may be nil; country restricts
// results to an ISO 3166 alpha-2 or alpha-3 code when set.
func NewORSGeocoder(client *ors.Client, cache ports.GeocodeCache, country string) *ORSGeocoder {
	return &ORSGeocoder{client: client, cache: cache, country: strings.TrimSpace(country)}
}

// ClientOptions configures the ORS client for geocoding: requests are
// throttled to rps and every lookup makes a single attempt.
func ClientOptions(rps float64) []ors.Option {
	return []ors.Option{ors.WithRateLimit(rps, 1), ors.WithBackoff(1, 0)}
}

// Normalize produces the cache key for an address by collapsing
// whitespace and case.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (g *ORSGeocoder) Resolve(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.Resolve")(&err)

	key := Normalize(address)
	if key == "" {
		return domain.Coordinates{}, errors.New("resolve address: address must be non-empty")
	}

	if g.cache != nil {
		hits, err := g.cache.GetMany(ctx, []string{key})
		if err != nil {
			log.Printf("geocode cache read failed: %v", err)
		} else if c, ok := hits[key]; ok {
			obs.GeocodeLookups.WithLabelValues("cache_hit").Inc()
			return c, nil
		}
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		return g.search(ctx, key)
	})
	if err != nil {
		obs.GeocodeLookups.WithLabelValues("failed").Inc()
		return domain.Coordinates{}, fmt.Errorf("resolve address %q: %w", address, err)
	}
	c := v.(domain.Coordinates)
	obs.GeocodeLookups.WithLabelValues("resolved").Inc()

	if g.cache != nil {
		if err := g.cache.PutMany(ctx, map[string]domain.Coordinates{key: c}); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	return c, nil
}

func (g *ORSGeocoder) search(ctx context.Context, text string) (domain.Coordinates, error) {
	endpoint := g.client.BaseURL() + "/geocode/search"

	resp, err := g.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		if g.country != "" {
			q.Set("boundary.country", g.country)
		}
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, ErrNoMatch
	}

	c, err := domain.CoordsFromList(decoded.Features[0].Geometry.Coordinates)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("invalid coordinate format: %w", err)
	}
	return c, nil
}
