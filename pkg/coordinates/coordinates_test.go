package coordinates

import (
	"errors"
	"math"
	"testing"
)

var utrecht = Geographic{Latitude: 52.089805, Longitude: 5.1075}

// TestAreaValidate tests the boundary checks on search areas.
func TestAreaValidate(t *testing.T) {
	tests := []struct {
		name    string
		area    Area
		wantErr bool
	}{
		{"Default area", Area{Center: utrecht, RadiusMeters: 20000}, false},
		{"Zero radius", Area{Center: utrecht, RadiusMeters: 0}, true},
		{"Negative radius", Area{Center: utrecht, RadiusMeters: -10}, true},
		{"Radius too large", Area{Center: utrecht, RadiusMeters: MaxRadiusMeters + 1}, true},
		{"Latitude out of range", Area{Center: Geographic{Latitude: 91, Longitude: 0}, RadiusMeters: 1000}, true},
		{"Longitude out of range", Area{Center: Geographic{Latitude: 0, Longitude: -181}, RadiusMeters: 1000}, true},
		{"NaN latitude", Area{Center: Geographic{Latitude: math.NaN()}, RadiusMeters: 1000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.area.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidArea) {
				t.Errorf("Expected ErrInvalidArea, got %v", err)
			}
		})
	}
}

// TestAreaBounds tests that the box surrounds the center symmetrically.
func TestAreaBounds(t *testing.T) {
	area := Area{Center: utrecht, RadiusMeters: 20000}
	box := area.Bounds()

	if !(box.SW.Lat < utrecht.Latitude && utrecht.Latitude < box.NE.Lat) {
		t.Errorf("Expected center latitude inside box, got SW=%v NE=%v", box.SW, box.NE)
	}
	if !(box.SW.Long < utrecht.Longitude && utrecht.Longitude < box.NE.Long) {
		t.Errorf("Expected center longitude inside box, got SW=%v NE=%v", box.SW, box.NE)
	}

	// 20 km north/south is ~0.18 degrees of latitude
	halfHeight := box.NE.Lat - utrecht.Latitude
	if halfHeight < 0.15 || halfHeight > 0.21 {
		t.Errorf("Expected ~0.18° half height, got %.4f", halfHeight)
	}
	if !box.Contains(utrecht.Latlong()) {
		t.Error("Expected box to contain its center")
	}
}

// TestAreaContains tests circular containment.
func TestAreaContains(t *testing.T) {
	area := Area{Center: utrecht, RadiusMeters: 20000}

	amersfoort := Geographic{Latitude: 52.1561, Longitude: 5.3878} // ~20 km east
	amsterdam := Geographic{Latitude: 52.3676, Longitude: 4.9041}  // ~34 km north

	if area.Contains(amsterdam) {
		t.Error("Expected Amsterdam outside a 20 km radius of Utrecht")
	}
	if !(Area{Center: utrecht, RadiusMeters: 25000}).Contains(amersfoort) {
		t.Error("Expected Amersfoort inside a 25 km radius of Utrecht")
	}
	nearby := Geographic{Latitude: 52.0907, Longitude: 5.1214}
	if !area.Contains(nearby) {
		t.Error("Expected a point 1 km away inside the area")
	}
}

// TestDistanceKM tests the great-circle distance helper.
func TestDistanceKM(t *testing.T) {
	amsterdam := Geographic{Latitude: 52.3676, Longitude: 4.9041}
	d := DistanceKM(utrecht, amsterdam)
	if d < 32 || d > 36 {
		t.Errorf("Expected ~34 km Utrecht-Amsterdam, got %.1f", d)
	}
}

// TestNormalizeHeading tests wrapping into [0, 360).
func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{370, 10},
		{-90, 270},
		{179.5, 179.5},
	}

	for _, tt := range tests {
		if got := NormalizeHeading(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeHeading(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
