package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unklstewy/ads-loiter/internal/app"
	"github.com/unklstewy/ads-loiter/pkg/config"
	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/flight"
	"github.com/unklstewy/ads-loiter/pkg/flightdata"
	"github.com/unklstewy/ads-loiter/pkg/geocode"
)

type noFlights struct{}

func (noFlights) FindFlights(ctx context.Context, area coordinates.Area) ([]flightdata.FlightID, error) {
	return nil, nil
}

func (noFlights) GetTrail(ctx context.Context, id flightdata.FlightID) (flight.Record, error) {
	return flight.Record{}, nil
}

// addressBook resolves only the addresses it knows.
type addressBook map[string]coordinates.Geographic

func (b addressBook) Resolve(ctx context.Context, address string) (geocode.Location, error) {
	if c, ok := b[address]; ok {
		return geocode.Location{Coordinates: c, FormattedAddress: address}, nil
	}
	return geocode.Location{}, geocode.ErrNotFound
}

func testApp(t *testing.T) *app.App {
	cfg := config.DefaultConfig()
	cfg.Output.LogPath = filepath.Join(t.TempDir(), "log.txt")
	a := app.NewWithSource(cfg, noFlights{})
	a.Geocoder = addressBook{"Rotterdam": {Latitude: 51.9225, Longitude: 4.4792}}
	return a
}

// TestPromptArea tests the interactive address prompt.
func TestPromptArea(t *testing.T) {
	utrecht := coordinates.Geographic{Latitude: 52.089805, Longitude: 5.1075}

	tests := []struct {
		name     string
		input    string
		expected coordinates.Geographic
	}{
		{"First try", "Rotterdam\n", coordinates.Geographic{Latitude: 51.9225, Longitude: 4.4792}},
		{"Third try", "Atlantis\n\nRotterdam\n", coordinates.Geographic{Latitude: 51.9225, Longitude: 4.4792}},
		{"Attempts exhausted", "Atlantis\nMu\nLemuria\nRotterdam\n", utrecht},
		{"End of input", "", utrecht},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area := promptArea(context.Background(), testApp(t), strings.NewReader(tt.input))
			if area.Center != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, area.Center)
			}
		})
	}
}

// TestSplitList tests manufacturer list parsing.
func TestSplitList(t *testing.T) {
	got := splitList(" Airbus, ,Boeing ,ATR")
	want := []string{"Airbus", "Boeing", "ATR"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, got[i])
		}
	}
}
