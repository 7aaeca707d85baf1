// Package app assembles the detection pipeline from configuration so every
// command wires the collector, detector and recorders the same way.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/unklstewy/ads-loiter/internal/dailylog"
	"github.com/unklstewy/ads-loiter/internal/db"
	"github.com/unklstewy/ads-loiter/pkg/config"
	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/detector"
	"github.com/unklstewy/ads-loiter/pkg/flightdata"
	"github.com/unklstewy/ads-loiter/pkg/geocode"
	"github.com/unklstewy/ads-loiter/pkg/loiter"
)

// App holds the components built from one configuration.
type App struct {
	Config    *config.Config
	Log       *dailylog.Log
	Pipeline  *loiter.Pipeline
	Collector *flightdata.Collector
	Geocoder  geocode.Resolver

	// DB is set by AttachDatabase
	DB       *db.DB
	Verdicts *db.VerdictRepository
}

// New validates cfg and builds the pipeline around the configured provider.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return NewWithSource(cfg, newSource(cfg.FlightData)), nil
}

func newSource(fd config.FlightDataConfig) flightdata.Source {
	timeout := time.Duration(fd.TimeoutSeconds) * time.Second
	if fd.Provider == config.ProviderAeroAPI {
		return flightdata.NewAeroAPIClient(flightdata.AeroAPIConfig{
			BaseURL:         fd.AeroAPIURL,
			APIKey:          fd.AeroAPIKey,
			RequestsPerHour: fd.RequestsPerMinute * 60,
			Timeout:         timeout,
		})
	}
	return flightdata.NewFR24Client(flightdata.FR24Config{
		FeedURL:           fd.FeedURL,
		DetailsURL:        fd.DetailsURL,
		RequestsPerMinute: fd.RequestsPerMinute,
		Timeout:           timeout,
	})
}

// NewWithSource builds the pipeline around an arbitrary flight source.
// cfg must already be valid.
func NewWithSource(cfg *config.Config, source flightdata.Source) *App {
	collector := flightdata.NewCollector(source, cfg.Filter.ExcludedManufacturers)
	collector.SetVerbose(cfg.Output.Verbose)

	textLog := dailylog.New(cfg.Output.LogPath)
	pipeline := loiter.New(collector, detector.New(cfg.Detection), textLog)
	pipeline.SetVerbose(cfg.Output.Verbose)

	a := &App{
		Config:    cfg,
		Log:       textLog,
		Pipeline:  pipeline,
		Collector: collector,
	}
	if cfg.Geocoder.Enabled {
		a.Geocoder = geocode.NewPhotonClient(geocode.Config{
			BaseURL:   cfg.Geocoder.BaseURL,
			UserAgent: cfg.Geocoder.UserAgent,
		})
	}
	return a
}

// SetVerbose toggles diagnostics on the collector and the pipeline.
func (a *App) SetVerbose(v bool) {
	a.Config.Output.Verbose = v
	a.Collector.SetVerbose(v)
	a.Pipeline.SetVerbose(v)
}

// Area returns the search area, geocoding address (or the configured
// address when empty) if a geocoder is available. Lookup failures fall
// back to the configured coordinates.
func (a *App) Area(ctx context.Context, address string) coordinates.Area {
	area := a.Config.Area.Area()
	if address == "" {
		address = a.Config.Area.Address
	}
	if address == "" {
		return area
	}
	if a.Geocoder == nil {
		log.Printf("⚠️  Geocoder disabled, ignoring address %q", address)
		return area
	}

	loc, fellBack := geocode.ResolveOrDefault(ctx, a.Geocoder, address, area.Center)
	if !fellBack {
		log.Printf("✓ Location: %s (%.6f, %.6f)", loc.FormattedAddress, loc.Coordinates.Latitude, loc.Coordinates.Longitude)
	}
	area.Center = loc.Coordinates
	return area
}

// AttachDatabase connects to PostgreSQL, creates the schema and mirrors
// recorded verdicts into it. It is a no-op when the database is disabled.
func (a *App) AttachDatabase(ctx context.Context) error {
	if !a.Config.Database.Enabled {
		return nil
	}

	database, err := db.ReconnectWithRetry(ctx, a.Config.Database, 3, time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.InitSchema(ctx); err != nil {
		database.Close()
		return err
	}
	log.Println("✓ Database schema initialized")

	a.DB = database
	a.Verdicts = db.NewVerdictRepository(database.DB)
	a.Pipeline.AddMirror(a.Verdicts)
	return nil
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
