package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unklstewy/ads-loiter/internal/app"
	"github.com/unklstewy/ads-loiter/internal/db"
	"github.com/unklstewy/ads-loiter/internal/metrics"
	"github.com/unklstewy/ads-loiter/pkg/config"
	"github.com/unklstewy/ads-loiter/pkg/coordinates"
)

// loiter-watch runs detection cycles on a fixed interval until stopped.
// Recorded verdicts can be mirrored to PostgreSQL and cycle metrics
// exposed for Prometheus.
func main() {
	configPath := flag.String("config", "configs/loiter.yaml", "Path to configuration file")
	address := flag.String("address", "", "Address to center the search on")
	verbose := flag.Bool("v", false, "Print per-flight details and per-half statistics")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Loitering Flight Watcher")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.AttachDatabase(ctx); err != nil {
		log.Printf("⚠️  Database mirror disabled: %v", err)
	}

	if cfg.Metrics.Enabled {
		a.Pipeline.SetObserver(metrics.NewPromObserver(prometheus.DefaultRegisterer))
		go serveMetrics(cfg.Metrics.ListenAddr)
	}

	area := a.Area(ctx, *address)
	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Area: %.6f, %.6f radius %.0f m", area.Center.Latitude, area.Center.Longitude, area.RadiusMeters)
	log.Printf("Log file: %s", cfg.Output.LogPath)
	log.Printf("Update interval: %d seconds", cfg.Schedule.IntervalSeconds)

	w := &Watcher{
		app:      a,
		area:     area,
		interval: time.Duration(cfg.Schedule.IntervalSeconds) * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	doneChan := make(chan struct{})
	go func() {
		defer close(doneChan)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in watcher goroutine: %v", r)
			}
		}()
		w.Run(ctx)
	}()

	log.Println("\n===========================================")
	log.Println("  Watcher started")
	log.Println("  Press Ctrl+C to stop")
	log.Println("===========================================")

	select {
	case sig := <-sigChan:
		log.Printf("\nReceived signal: %v", sig)
	case <-doneChan:
		log.Println("\nWatcher stopped")
	}

	log.Println("Shutting down gracefully...")
	cancel()
	<-doneChan
	log.Println("✓ Watcher stopped")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("📊 Metrics on http://%s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("✗ Metrics listener failed: %v", err)
	}
}

// Watcher drives the periodic cycles.
type Watcher struct {
	app      *app.App
	area     coordinates.Area
	interval time.Duration

	// Statistics
	cycles   int
	failures int
	recorded int
	lastRun  time.Time
}

// Run starts the cycle loop and returns when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Retention cleanup (hourly)
	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	log.Println("Performing initial cycle...")
	w.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cycle(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// cycle runs one detection cycle. Failures and panics are logged and the
// next tick tries again.
func (w *Watcher) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.failures++
			log.Printf("PANIC in cycle(): %v", r)
			log.Println("Cycle will be retried on next tick")
		}
	}()

	w.cycles++
	res, err := w.app.Pipeline.RunCycle(ctx, w.area)
	w.lastRun = time.Now()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.failures++
		log.Printf("✗ Cycle #%d failed: %v (will retry in next cycle)", w.cycles, err)
		return
	}
	w.recorded += len(res.Recorded)

	log.Printf("[%s] Cycle #%d: %d found, %d evaluated, %d recorded | totals: %d recorded, %d failed",
		w.lastRun.Format("15:04:05"), w.cycles, res.Found, len(res.Outcomes), len(res.Recorded), w.recorded, w.failures)
}

// cleanup prunes mirrored verdicts past the retention window.
func (w *Watcher) cleanup(ctx context.Context) {
	if w.app.DB == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in cleanup(): %v", r)
		}
	}()

	database := w.app.DB
	if !db.HealthCheck(ctx, database) {
		log.Println("⚠️  Database unhealthy, skipping cleanup")
		return
	}

	retention := time.Duration(w.app.Config.Database.RetentionDays) * 24 * time.Hour
	var pruned int64
	err := db.WithRetry(func() error {
		var err error
		pruned, err = db.PruneVerdicts(ctx, database.DB, retention, time.Now())
		return err
	}, 2)
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
		return
	}

	stats, err := db.GetStats(ctx, database.DB, time.Now())
	if err != nil {
		log.Printf("Error getting stats: %v", err)
		return
	}
	log.Printf("✓ Cleanup completed: %d pruned | 📊 %d verdicts over %d days, %d today",
		pruned, stats["verdicts_total"], stats["days_recorded"], stats["verdicts_today"])
}
