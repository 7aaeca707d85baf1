// Package flightdata retrieves candidate flights and their heading/altitude
// trails from a live flight-tracking provider.
package flightdata

import (
	"context"
	"errors"
	"strings"

	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/flight"
)

// FlightID is the provider's identifier for a live flight.
type FlightID string

// ErrMalformedTrail is returned by GetTrail when the provider's trail cannot
// be turned into samples. The flight is skipped, the batch continues.
var ErrMalformedTrail = errors.New("malformed trail")

// ErrFlightGone is returned by GetTrail when the provider no longer knows the flight.
var ErrFlightGone = errors.New("flight no longer tracked")

// Source is the interface that all flight-data providers must implement.
// Implementations return typed samples; callers never parse provider text.
type Source interface {
	// FindFlights returns the flights currently inside the area's bounding box.
	FindFlights(ctx context.Context, area coordinates.Area) ([]FlightID, error)

	// GetTrail returns the metadata and chronological trail for one flight.
	// Missing owner or model are returned empty; the Collector fills them in.
	GetTrail(ctx context.Context, id FlightID) (flight.Record, error)
}

// Excluded reports whether model starts with any of the manufacturer
// prefixes, ignoring case. Empty prefixes never match.
func Excluded(model string, manufacturers []string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, manufacturer := range manufacturers {
		p := strings.ToLower(strings.TrimSpace(manufacturer))
		if p != "" && strings.HasPrefix(m, p) {
			return true
		}
	}
	return false
}
