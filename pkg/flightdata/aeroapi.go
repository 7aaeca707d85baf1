package flightdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/flight"
	"github.com/unklstewy/ads-loiter/pkg/upstream"
)

const (
	// AeroAPIBaseURL is the FlightAware AeroAPI v4 base URL
	AeroAPIBaseURL = "https://aeroapi.flightaware.com/aeroapi"

	aeroAPIService = "aeroapi"
)

// AeroAPIConfig contains configuration for the FlightAware AeroAPI source.
type AeroAPIConfig struct {
	BaseURL         string
	APIKey          string
	RequestsPerHour int
	Timeout         time.Duration
}

// AeroAPIClient implements Source against FlightAware AeroAPI v4.
//
// The area search returns flight metadata, the track endpoint returns
// positions; metadata seen by FindFlights is remembered for GetTrail so
// each flight costs one track request. Aircraft models are ICAO type
// designators (e.g. "C402"), so manufacturer exclusion needs prefixes in
// that form to match.
type AeroAPIClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter

	mu   sync.Mutex
	meta map[FlightID]aeroFlight
}

// NewAeroAPIClient creates an AeroAPI client, filling unset fields with defaults.
func NewAeroAPIClient(cfg AeroAPIConfig) *AeroAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = AeroAPIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = 600
	}

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerHour)/3600.0), 1)

	return &AeroAPIClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: limiter,
		meta:        make(map[FlightID]aeroFlight),
	}
}

// aeroFlight is the subset of an AeroAPI flight object we use.
type aeroFlight struct {
	FAFlightID   string `json:"fa_flight_id"`
	Ident        string `json:"ident"`
	Registration string `json:"registration"`
	AircraftType string `json:"aircraft_type"`
	Operator     string `json:"operator"`
}

// aeroPosition is one track point. Altitude is in hundreds of feet.
type aeroPosition struct {
	Altitude  *float64  `json:"altitude"`
	Heading   *float64  `json:"heading"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// FindFlights returns the flights AeroAPI reports inside the area's box.
func (c *AeroAPIClient) FindFlights(ctx context.Context, area coordinates.Area) ([]FlightID, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}

	box := area.Bounds()
	q := url.Values{}
	q.Set("query", fmt.Sprintf("-latlong \"%.4f %.4f %.4f %.4f\"", box.SW.Lat, box.SW.Long, box.NE.Lat, box.NE.Long))
	q.Set("max_pages", "1")

	var response struct {
		Flights []aeroFlight `json:"flights"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/flights/search?"+q.Encode(), &response); err != nil {
		return nil, fmt.Errorf("failed to search flights: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]FlightID, 0, len(response.Flights))
	for _, f := range response.Flights {
		if f.FAFlightID == "" {
			continue
		}
		id := FlightID(f.FAFlightID)
		c.meta[id] = f
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// GetTrail fetches the track for one flight.
func (c *AeroAPIClient) GetTrail(ctx context.Context, id FlightID) (flight.Record, error) {
	var response struct {
		Positions []aeroPosition `json:"positions"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/flights/"+url.PathEscape(string(id))+"/track", &response); err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return flight.Record{}, fmt.Errorf("%w: %s", ErrFlightGone, id)
		}
		return flight.Record{}, fmt.Errorf("failed to fetch track %s: %w", id, err)
	}

	c.mu.Lock()
	f, known := c.meta[id]
	delete(c.meta, id)
	c.mu.Unlock()

	rec := flight.Record{ID: string(id)}
	if known {
		rec.Callsign = f.Ident
		rec.Model = f.AircraftType
		rec.Owner = f.Operator
	}

	points := append([]aeroPosition(nil), response.Positions...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	rec.Samples = make([]flight.Sample, 0, len(points))
	for i, p := range points {
		if p.Heading == nil || p.Altitude == nil {
			return rec, fmt.Errorf("%w: flight %s point %d missing heading or altitude", ErrMalformedTrail, id, i)
		}
		s := flight.Sample{
			HeadingDeg: coordinates.NormalizeHeading(*p.Heading),
			AltitudeM:  *p.Altitude * 100 * coordinates.FeetToMeters,
		}
		if err := s.Validate(); err != nil {
			return rec, fmt.Errorf("%w: flight %s point %d: %v", ErrMalformedTrail, id, i, err)
		}
		rec.Samples = append(rec.Samples, s)
	}

	return rec, nil
}

func (c *AeroAPIClient) getJSON(ctx context.Context, u string, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := upstream.CheckResponse(aeroAPIService, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
