package flightdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/flight"
)

// SkippedFlight records a candidate dropped because its trail was unusable.
type SkippedFlight struct {
	ID     FlightID
	Reason string
}

// Collection is the outcome of one collection pass over an area.
type Collection struct {
	// Found is the number of flights the provider listed in the area
	Found int

	// Records are the candidates that survived exclusion, in provider order
	Records []flight.Record

	// Excluded counts flights dropped by the manufacturer filter
	Excluded int

	// Skipped lists flights dropped for malformed or vanished trails
	Skipped []SkippedFlight
}

// Collector turns a Source into ready-to-detect flight records.
type Collector struct {
	source   Source
	excluded []string
	verbose  bool
}

// NewCollector creates a collector that drops models starting with any of
// the excluded manufacturer prefixes.
func NewCollector(source Source, excludedManufacturers []string) *Collector {
	return &Collector{
		source:   source,
		excluded: append([]string(nil), excludedManufacturers...),
	}
}

// SetVerbose enables per-flight model/owner logging.
func (c *Collector) SetVerbose(v bool) {
	c.verbose = v
}

// Collect lists flights in the area and fetches each trail sequentially.
// Errors from the provider's flight listing are returned unchanged.
func (c *Collector) Collect(ctx context.Context, area coordinates.Area) (*Collection, error) {
	ids, err := c.source.FindFlights(ctx, area)
	if err != nil {
		return nil, err
	}

	out := &Collection{Found: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := c.source.GetTrail(ctx, id)
		switch {
		case errors.Is(err, ErrMalformedTrail), errors.Is(err, ErrFlightGone):
			log.Printf("  ℹ Skipping flight %s: %v", id, err)
			out.Skipped = append(out.Skipped, SkippedFlight{ID: id, Reason: err.Error()})
			continue
		case err != nil:
			return nil, fmt.Errorf("flight %s: %w", id, err)
		}

		fillMissing(&rec, id)

		if c.verbose {
			log.Printf("Flight details: model=%s owner=%s callsign=%s samples=%d",
				rec.Model, rec.Owner, rec.Callsign, len(rec.Samples))
		}

		if Excluded(rec.Model, c.excluded) {
			out.Excluded++
			continue
		}
		out.Records = append(out.Records, rec)
	}

	return out, nil
}

// fillMissing substitutes placeholders for metadata the provider omitted.
// A missing callsign falls back to the flight ID so dedup keys stay distinct.
func fillMissing(rec *flight.Record, id FlightID) {
	rec.Owner = strings.TrimSpace(rec.Owner)
	rec.Model = strings.TrimSpace(rec.Model)
	rec.Callsign = strings.TrimSpace(rec.Callsign)

	if rec.Owner == "" {
		rec.Owner = flight.UnknownField
	}
	if rec.Model == "" {
		rec.Model = flight.UnknownField
	}
	if rec.Callsign == "" {
		rec.Callsign = string(id)
	}
	if rec.ID == "" {
		rec.ID = string(id)
	}
}
