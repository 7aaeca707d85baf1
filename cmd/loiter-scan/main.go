// loiter-scan runs a single detection cycle and exits.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/unklstewy/ads-loiter/internal/app"
	"github.com/unklstewy/ads-loiter/pkg/config"
	"github.com/unklstewy/ads-loiter/pkg/coordinates"
	"github.com/unklstewy/ads-loiter/pkg/geocode"
)

const promptAttempts = 3

func main() {
	configPath := flag.String("config", "configs/loiter.yaml", "Path to configuration file")
	lat := flag.Float64("lat", 0, "Center latitude (overrides config)")
	lon := flag.Float64("lon", 0, "Center longitude (overrides config)")
	radius := flag.Float64("radius", 0, "Search radius in meters (overrides config)")
	address := flag.String("address", "", "Address to center the search on")
	prompt := flag.Bool("prompt", false, "Ask for an address interactively")
	exclude := flag.String("exclude", "", "Comma-separated manufacturer prefixes to skip (overrides config)")
	minAlt := flag.Float64("min-alt", 0, "Minimum mean altitude in meters (overrides config)")
	maxAlt := flag.Float64("max-alt", 0, "Maximum mean altitude in meters (overrides config)")
	logPath := flag.String("log", "", "Output log path (overrides config)")
	verbose := flag.Bool("v", false, "Print per-flight details and per-half statistics")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			cfg.Area.Latitude = *lat
		case "lon":
			cfg.Area.Longitude = *lon
		case "radius":
			cfg.Area.RadiusMeters = *radius
		case "exclude":
			cfg.Filter.ExcludedManufacturers = splitList(*exclude)
		case "min-alt":
			cfg.Detection.MinAltitudeM = *minAlt
		case "max-alt":
			cfg.Detection.MaxAltitudeM = *maxAlt
		case "log":
			cfg.Output.LogPath = *logPath
		case "v":
			cfg.Output.Verbose = *verbose
		}
	})

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.AttachDatabase(ctx); err != nil {
		log.Printf("⚠️  Database mirror disabled: %v", err)
	}

	var area coordinates.Area
	if *prompt {
		area = promptArea(ctx, a, os.Stdin)
	} else {
		area = a.Area(ctx, *address)
	}

	log.Printf("Searching %.0f m around %.6f, %.6f", area.RadiusMeters, area.Center.Latitude, area.Center.Longitude)
	log.Printf("Altitude band: %.0f-%.0f m | Excluding: %s",
		cfg.Detection.MinAltitudeM, cfg.Detection.MaxAltitudeM, strings.Join(cfg.Filter.ExcludedManufacturers, ", "))

	res, err := a.Pipeline.RunCycle(ctx, area)
	if err != nil {
		log.Fatalf("✗ Detection cycle failed: %v", err)
	}

	if len(res.Recorded) > 0 {
		fmt.Printf("%d loitering flight(s) recorded in %s\n", len(res.Recorded), cfg.Output.LogPath)
	}
}

// promptArea asks for an address until one resolves or the attempts run out,
// then falls back to the configured center.
func promptArea(ctx context.Context, a *app.App, in io.Reader) coordinates.Area {
	area := a.Config.Area.Area()
	if a.Geocoder == nil {
		log.Println("⚠️  Geocoder disabled, using configured location")
		return area
	}

	scanner := bufio.NewScanner(in)
	for attempt := 1; attempt <= promptAttempts; attempt++ {
		fmt.Print("Enter the address to watch: ")
		if !scanner.Scan() {
			break
		}
		address := strings.TrimSpace(scanner.Text())
		if address == "" {
			continue
		}

		loc, err := a.Geocoder.Resolve(ctx, address)
		if err == nil {
			log.Printf("✓ Location: %s", loc.FormattedAddress)
			area.Center = loc.Coordinates
			return area
		}
		if !errors.Is(err, geocode.ErrNotFound) {
			log.Printf("⚠️  Geocoder is unavailable: %v", err)
			break
		}
		log.Printf("Location not found, try again (%d/%d)", attempt, promptAttempts)
	}

	log.Printf("Using default location %.6f, %.6f", area.Center.Latitude, area.Center.Longitude)
	return area
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
