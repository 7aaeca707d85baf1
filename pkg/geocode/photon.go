// Package geocode resolves operator-supplied addresses into coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/upstream"
)

const (
	// DefaultBaseURL is the public Photon (komoot) endpoint
	DefaultBaseURL = "https://photon.komoot.io/api/"

	// DefaultUserAgent identifies this tool to the geocoder
	DefaultUserAgent = "ads-loiter/1.0"

	serviceName = "photon"
)

// ErrNotFound is returned when the geocoder has no match for an address.
var ErrNotFound = errors.New("address not found")

// Location is a resolved address.
type Location struct {
	Coordinates      coordinates.Geographic `json:"coordinates"`
	FormattedAddress string                 `json:"formatted_address"`
}

// Resolver is the interface the entry points depend on.
type Resolver interface {
	Resolve(ctx context.Context, address string) (Location, error)
}

// Config contains configuration for the Photon client.
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             upstream.RetryConfig
}

// PhotonClient geocodes addresses with the Photon API.
type PhotonClient struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retry       upstream.RetryConfig
}

// NewPhotonClient creates a Photon client, filling unset fields with defaults.
func NewPhotonClient(cfg Config) *PhotonClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Retry == (upstream.RetryConfig{}) {
		cfg.Retry = upstream.DefaultRetryConfig()
	}

	return &PhotonClient{
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retry:       cfg.Retry,
	}
}

// Resolve returns the best match for address.
// Transient failures are retried; ErrNotFound is not.
func (c *PhotonClient) Resolve(ctx context.Context, address string) (Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, fmt.Errorf("address must not be empty")
	}

	return upstream.RetryWithBackoffResult(ctx, c.retry, func(ctx context.Context) (Location, error) {
		return c.lookup(ctx, address)
	})
}

func (c *PhotonClient) lookup(ctx context.Context, address string) (Location, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Location{}, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocoder unavailable: %w", err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckResponse(serviceName, resp); err != nil {
		return Location{}, err
	}

	var fc photonResponse
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return Location{}, fmt.Errorf("failed to parse geocoder response: %w", err)
	}
	if len(fc.Features) == 0 || len(fc.Features[0].Geometry.Coordinates) < 2 {
		return Location{}, fmt.Errorf("%w: %q", ErrNotFound, address)
	}

	f := fc.Features[0]
	loc := Location{
		// GeoJSON order is longitude, latitude
		Coordinates: coordinates.Geographic{
			Latitude:  f.Geometry.Coordinates[1],
			Longitude: f.Geometry.Coordinates[0],
		},
		FormattedAddress: f.Properties.format(),
	}
	if err := loc.Coordinates.Validate(); err != nil {
		return Location{}, fmt.Errorf("geocoder returned bad coordinates: %w", err)
	}
	return loc, nil
}

// ResolveOrDefault resolves address, falling back to def when the geocoder
// is unavailable or has no match. The bool reports whether the fallback was used.
func ResolveOrDefault(ctx context.Context, r Resolver, address string, def coordinates.Geographic) (Location, bool) {
	loc, err := r.Resolve(ctx, address)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("⚠️  Location not found: %q", address)
		} else {
			log.Printf("⚠️  Geocoder is unavailable: %v", err)
		}
		log.Printf("Using default location %.6f, %.6f", def.Latitude, def.Longitude)
		return Location{Coordinates: def}, true
	}
	return loc, false
}

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties photonProperties `json:"properties"`
	} `json:"features"`
}

type photonProperties struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"housenumber"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
}

// format joins the populated address parts the way Photon clients display them.
func (p photonProperties) format() string {
	street := strings.TrimSpace(strings.Join([]string{p.Street, p.HouseNumber}, " "))
	parts := make([]string, 0, 6)
	for _, s := range []string{p.Name, street, p.Postcode, p.City, p.State, p.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
