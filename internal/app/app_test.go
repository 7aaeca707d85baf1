package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/unklstewy/ads-loiter/pkg/config"
	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/flight"
	"github.com/unklstewy/ads-loiter/pkg/flightdata"
	"github.com/unklstewy/ads-loiter/pkg/geocode"
)

type stubResolver struct {
	loc geocode.Location
	err error
}

func (s stubResolver) Resolve(ctx context.Context, address string) (geocode.Location, error) {
	return s.loc, s.err
}

type stubSource struct {
	records map[flightdata.FlightID]flight.Record
}

func (s stubSource) FindFlights(ctx context.Context, area coordinates.Area) ([]flightdata.FlightID, error) {
	var ids []flightdata.FlightID
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s stubSource) GetTrail(ctx context.Context, id flightdata.FlightID) (flight.Record, error) {
	return s.records[id], nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.LogPath = filepath.Join(t.TempDir(), "flights_over_area.txt")
	cfg.Geocoder.Enabled = false
	return cfg
}

// TestNewRejectsInvalidConfig tests validation on construction.
func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Area.RadiusMeters = 0
	if _, err := New(cfg); err == nil {
		t.Error("Expected invalid configuration error")
	}
}

// TestNewSource tests provider selection.
func TestNewSource(t *testing.T) {
	cfg := testConfig(t)
	if _, ok := newSource(cfg.FlightData).(*flightdata.FR24Client); !ok {
		t.Error("Expected FlightRadar24 source by default")
	}

	cfg.FlightData.Provider = config.ProviderAeroAPI
	cfg.FlightData.AeroAPIKey = "key"
	if _, ok := newSource(cfg.FlightData).(*flightdata.AeroAPIClient); !ok {
		t.Error("Expected AeroAPI source")
	}
	if _, err := New(cfg); err != nil {
		t.Errorf("Expected valid AeroAPI configuration, got %v", err)
	}
}

// TestArea tests address resolution and fallback.
func TestArea(t *testing.T) {
	rotterdam := coordinates.Geographic{Latitude: 51.9225, Longitude: 4.4792}

	tests := []struct {
		name     string
		resolver geocode.Resolver
		address  string
		expected coordinates.Geographic
	}{
		{"No address uses configured center", stubResolver{loc: geocode.Location{Coordinates: rotterdam}}, "", coordinates.Geographic{Latitude: 52.089805, Longitude: 5.1075}},
		{"Resolved address", stubResolver{loc: geocode.Location{Coordinates: rotterdam, FormattedAddress: "Rotterdam"}}, "Rotterdam", rotterdam},
		{"Not found falls back", stubResolver{err: geocode.ErrNotFound}, "Nowhere", coordinates.Geographic{Latitude: 52.089805, Longitude: 5.1075}},
		{"Unavailable falls back", stubResolver{err: errors.New("dial tcp: timeout")}, "Rotterdam", coordinates.Geographic{Latitude: 52.089805, Longitude: 5.1075}},
		{"Geocoder disabled", nil, "Rotterdam", coordinates.Geographic{Latitude: 52.089805, Longitude: 5.1075}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewWithSource(testConfig(t), stubSource{})
			a.Geocoder = tt.resolver
			area := a.Area(context.Background(), tt.address)
			if area.Center != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, area.Center)
			}
			if area.RadiusMeters != 20000 {
				t.Errorf("Expected configured radius, got %.0f", area.RadiusMeters)
			}
		})
	}
}

// TestEndToEnd tests a cycle through the assembled pipeline.
func TestEndToEnd(t *testing.T) {
	var samples []flight.Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, flight.Sample{HeadingDeg: 10, AltitudeM: 1000})
	}
	for i := 0; i < 10; i++ {
		samples = append(samples, flight.Sample{HeadingDeg: 190, AltitudeM: 1000})
	}

	src := stubSource{records: map[flightdata.FlightID]flight.Record{
		"2f1a": {Callsign: "PHOTO1", Owner: "Aerodata", Model: "Cessna 402C", Samples: samples},
		"2f1b": {Callsign: "KLM1", Owner: "KLM", Model: "Boeing 737", Samples: samples},
	}}

	cfg := testConfig(t)
	a := NewWithSource(cfg, src)
	a.SetVerbose(true)
	if err := a.AttachDatabase(context.Background()); err != nil {
		t.Fatalf("Expected disabled database to be a no-op, got %v", err)
	}

	res, err := a.Pipeline.RunCycle(context.Background(), a.Area(context.Background(), ""))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if res.Excluded != 1 {
		t.Errorf("Expected Boeing excluded, got %d", res.Excluded)
	}
	if len(res.Recorded) != 1 || res.Recorded[0].Callsign != "PHOTO1" {
		t.Errorf("Expected PHOTO1 recorded, got %+v", res.Recorded)
	}

	entries, err := a.Log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Owner != "Aerodata" {
		t.Errorf("Expected one Aerodata entry, got %+v", entries)
	}
	a.Close()
}
