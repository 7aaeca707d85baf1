package flightdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/flight"
	"github.com/unklstewy/ads-loiter/pkg/upstream"
)

const (
	// DefaultFeedURL lists live flights inside a bounding box
	DefaultFeedURL = "https://data-cloud.flightradar24.com/zones/fcgi/feed.js"

	// DefaultDetailsURL returns metadata and trail for one flight
	DefaultDetailsURL = "https://data-live.flightradar24.com/clickhandler/"

	// DefaultTimeout for API requests
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent with every request; the feed rejects empty agents
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	serviceName = "flightradar24"
)

// feedMetaKeys are the non-flight entries of a feed response.
var feedMetaKeys = map[string]bool{
	"full_count": true,
	"version":    true,
	"stats":      true,
}

// FR24Config contains configuration for the FlightRadar24 client.
type FR24Config struct {
	FeedURL           string
	DetailsURL        string
	UserAgent         string
	RequestsPerMinute int
	Timeout           time.Duration
}

// FR24Client implements Source against the public FlightRadar24 web feed.
// Requests are paced by a token bucket; the client never retries.
type FR24Client struct {
	feedURL     string
	detailsURL  string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewFR24Client creates a FlightRadar24 client, filling unset fields with defaults.
func NewFR24Client(cfg FR24Config) *FR24Client {
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	if cfg.DetailsURL == "" {
		cfg.DetailsURL = DefaultDetailsURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}

	// Burst of 1 keeps detail lookups evenly spaced
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)

	return &FR24Client{
		feedURL:     cfg.FeedURL,
		detailsURL:  cfg.DetailsURL,
		userAgent:   cfg.UserAgent,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: limiter,
	}
}

// FindFlights returns the IDs of airborne and ground flights inside the area's box.
func (c *FR24Client) FindFlights(ctx context.Context, area coordinates.Area) ([]FlightID, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}

	box := area.Bounds()
	q := url.Values{}
	// Order is north, south, west, east
	q.Set("bounds", fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", box.NE.Lat, box.SW.Lat, box.SW.Long, box.NE.Long))
	for _, k := range []string{"faa", "satellite", "mlat", "flarm", "adsb", "gnd", "air", "estimated"} {
		q.Set(k, "1")
	}
	q.Set("vehicles", "0")
	q.Set("gliders", "1")
	q.Set("maxage", "14400")

	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, c.feedURL+"?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch flight feed: %w", err)
	}

	ids := make([]FlightID, 0, len(raw))
	for key, val := range raw {
		if feedMetaKeys[key] || len(val) == 0 || val[0] != '[' {
			continue
		}
		ids = append(ids, FlightID(key))
	}
	// Map order is random; keep cycles reproducible
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// GetTrail fetches the details document for one flight.
func (c *FR24Client) GetTrail(ctx context.Context, id FlightID) (flight.Record, error) {
	q := url.Values{}
	q.Set("flight", string(id))
	q.Set("version", "1.5")

	var details fr24Details
	if err := c.getJSON(ctx, c.detailsURL+"?"+q.Encode(), &details); err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return flight.Record{}, fmt.Errorf("%w: %s", ErrFlightGone, id)
		}
		return flight.Record{}, fmt.Errorf("failed to fetch flight %s: %w", id, err)
	}

	return details.toRecord(id)
}

func (c *FR24Client) getJSON(ctx context.Context, u string, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := upstream.CheckResponse(serviceName, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// fr24Details is the subset of the clickhandler document we use.
// Most objects are null for private or untracked aircraft.
type fr24Details struct {
	Identification *struct {
		ID       string  `json:"id"`
		Callsign *string `json:"callsign"`
	} `json:"identification"`

	Aircraft *struct {
		Model *struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"model"`
		Registration *string `json:"registration"`
	} `json:"aircraft"`

	Airline *struct {
		Name string `json:"name"`
	} `json:"airline"`

	Owner *struct {
		Name string `json:"name"`
	} `json:"owner"`

	Trail []fr24TrailPoint `json:"trail"`
}

// fr24TrailPoint is one trail entry. The feed lists points newest first.
type fr24TrailPoint struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`

	// Alt is the altitude in feet
	Alt *float64 `json:"alt"`

	// Spd is the ground speed in knots
	Spd *float64 `json:"spd"`

	// Ts is the Unix timestamp of the point
	Ts int64 `json:"ts"`

	// Hd is the heading in degrees
	Hd *float64 `json:"hd"`
}

func (d fr24Details) toRecord(id FlightID) (flight.Record, error) {
	rec := flight.Record{ID: string(id)}

	if d.Identification != nil && d.Identification.Callsign != nil {
		rec.Callsign = *d.Identification.Callsign
	}
	if d.Aircraft != nil && d.Aircraft.Model != nil {
		rec.Model = d.Aircraft.Model.Text
	}
	switch {
	case d.Airline != nil && d.Airline.Name != "":
		rec.Owner = d.Airline.Name
	case d.Owner != nil && d.Owner.Name != "":
		rec.Owner = d.Owner.Name
	}

	points := append([]fr24TrailPoint(nil), d.Trail...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Ts < points[j].Ts })

	rec.Samples = make([]flight.Sample, 0, len(points))
	for i, p := range points {
		if p.Hd == nil || p.Alt == nil {
			return rec, fmt.Errorf("%w: flight %s point %d missing heading or altitude", ErrMalformedTrail, id, i)
		}
		s := flight.Sample{
			HeadingDeg: coordinates.NormalizeHeading(*p.Hd),
			AltitudeM:  *p.Alt * coordinates.FeetToMeters,
		}
		if err := s.Validate(); err != nil {
			return rec, fmt.Errorf("%w: flight %s point %d: %v", ErrMalformedTrail, id, i, err)
		}
		rec.Samples = append(rec.Samples, s)
	}

	return rec, nil
}
