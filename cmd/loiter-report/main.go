// loiter-report writes a PDF summary of recorded loitering flights.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unklstewy/ads-loiter/internal/dailylog"
	"github.com/unklstewy/ads-loiter/internal/db"
	"github.com/unklstewy/ads-loiter/internal/report"
	"github.com/unklstewy/ads-loiter/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/loiter.yaml", "Path to configuration file")
	logPath := flag.String("log", "", "Path to the flight log (overrides config)")
	source := flag.String("source", "log", "Where to read flights from: log or db")
	out := flag.String("out", "loiter-report.pdf", "Output PDF path")
	days := flag.Int("days", 30, "Number of most recent days to include (0 = all)")
	title := flag.String("title", "Loitering Flights", "Report title")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *logPath != "" {
		cfg.Output.LogPath = *logPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var grouped []report.Day
	switch *source {
	case "log":
		grouped, err = fromLog(dailylog.New(cfg.Output.LogPath), *days)
	case "db":
		database, cerr := db.Connect(cfg.Database)
		if cerr != nil {
			log.Fatalf("Failed to connect to database: %v", cerr)
		}
		defer database.Close()
		grouped, err = fromDB(ctx, db.NewVerdictRepository(database.DB), *days)
	default:
		log.Fatalf("Unknown source %q (use log or db)", *source)
	}
	if err != nil {
		log.Fatalf("✗ Failed to read flights: %v", err)
	}

	if err := writeReport(*out, *title, grouped, time.Now()); err != nil {
		log.Fatalf("✗ %v", err)
	}

	total := 0
	for _, d := range grouped {
		total += len(d.Entries)
	}
	fmt.Printf("✓ Wrote %s: %d flight(s) over %d day(s)\n", *out, total, len(grouped))
}

// fromLog groups the text log by day and keeps the newest limit days.
func fromLog(l *dailylog.Log, limit int) ([]report.Day, error) {
	entries, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	grouped := report.GroupByDay(entries)
	if limit > 0 && len(grouped) > limit {
		grouped = grouped[:limit]
	}
	return grouped, nil
}

// fromDB reads the newest limit days from the database mirror.
func fromDB(ctx context.Context, repo *db.VerdictRepository, limit int) ([]report.Day, error) {
	dates, err := repo.ListDates(ctx, limit)
	if err != nil {
		return nil, err
	}

	grouped := make([]report.Day, 0, len(dates))
	for _, d := range dates {
		verdicts, err := repo.ListByDate(ctx, d)
		if err != nil {
			return nil, err
		}
		day := report.Day{Date: d}
		for _, v := range verdicts {
			day.Entries = append(day.Entries, dailylog.EntryFromVerdict(v, time.Now()))
		}
		grouped = append(grouped, day)
	}
	return grouped, nil
}

func writeReport(path, title string, days []report.Day, generated time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.Write(f, title, days, generated); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
