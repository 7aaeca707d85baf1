package coordinates

import (
	"errors"
	"fmt"
	"math"

	"github.com/skypies/geo"
)

// Constants for coordinate calculations
const (
	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048

	// MetersToFeet converts meters to feet
	MetersToFeet = 3.28084

	// MaxRadiusMeters caps the search radius; larger areas are rejected by providers
	MaxRadiusMeters = 500000.0
)

// ErrInvalidArea is returned when a search area is outside valid ranges.
var ErrInvalidArea = errors.New("invalid search area")

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64 `json:"longitude"`
}

// Validate checks the latitude and longitude ranges.
func (g Geographic) Validate() error {
	if math.IsNaN(g.Latitude) || g.Latitude < -90 || g.Latitude > 90 {
		return fmt.Errorf("%w: latitude %.6f outside [-90, 90]", ErrInvalidArea, g.Latitude)
	}
	if math.IsNaN(g.Longitude) || g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("%w: longitude %.6f outside [-180, 180]", ErrInvalidArea, g.Longitude)
	}
	return nil
}

// Latlong converts to the geo package representation.
func (g Geographic) Latlong() geo.Latlong {
	return geo.Latlong{Lat: g.Latitude, Long: g.Longitude}
}

// DistanceKM returns the great-circle distance between two points in kilometers.
func DistanceKM(from, to Geographic) float64 {
	return from.Latlong().DistKM(to.Latlong())
}

// Area is a circular search area around a center point.
type Area struct {
	// Center of the search area
	Center Geographic `json:"center"`

	// RadiusMeters is the search radius in meters
	RadiusMeters float64 `json:"radius_meters"`
}

// Validate rejects areas providers cannot be queried with.
func (a Area) Validate() error {
	if err := a.Center.Validate(); err != nil {
		return err
	}
	if math.IsNaN(a.RadiusMeters) || a.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %.1f", ErrInvalidArea, a.RadiusMeters)
	}
	if a.RadiusMeters > MaxRadiusMeters {
		return fmt.Errorf("%w: radius %.0f m exceeds %.0f m", ErrInvalidArea, a.RadiusMeters, MaxRadiusMeters)
	}
	return nil
}

// Bounds returns the box circumscribing the area.
// Provider feeds are queried by box, so results may include flights
// in the corners outside the circle.
func (a Area) Bounds() geo.LatlongBox {
	sideKM := 2 * a.RadiusMeters / 1000.0
	return a.Center.Latlong().Box(sideKM, sideKM)
}

// Contains reports whether p lies within the area's radius.
func (a Area) Contains(p Geographic) bool {
	return DistanceKM(a.Center, p)*1000.0 <= a.RadiusMeters
}

// NormalizeHeading ensures a heading is in the range [0, 360).
func NormalizeHeading(heading float64) float64 {
	h := math.Mod(heading, 360.0)
	if h < 0 {
		h += 360.0
	}
	return h
}
