// log-viewer browses the daily loitering log, or its database mirror, in a
// terminal UI.
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
	"github.com/unklstewy/ads-loiter/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/loiter.yaml", "Path to configuration file")
	logPath := flag.String("log", "", "Path to the flight log (overrides config)")
	source := flag.String("source", "log", "Where to read flights from: log or db")
	refresh := flag.Duration("refresh", 30*time.Second, "Reload interval (0 disables)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logPath != "" {
		cfg.Output.LogPath = *logPath
	}

	var src entrySource
	switch *source {
	case "log":
		src = logSource{log: dailylog.New(cfg.Output.LogPath)}
	case "db":
		database, err := db.ReconnectWithRetry(context.Background(), cfg.Database, 3, time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		src = dbSource{repo: db.NewVerdictRepository(database.DB)}
	default:
		log.Fatalf("Unknown source %q (use log or db)", *source)
	}

	if err := NewViewer(src, *refresh).Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func printHelp() {
	fmt.Println("log-viewer - browse recorded loitering flights")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  log-viewer [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("KEYBOARD SHORTCUTS:")
	fmt.Println("  ↑/↓ or j/k     Select day or flight")
	fmt.Println("  TAB            Switch between days and flights")
	fmt.Println("  r              Reload")
	fmt.Println("  q or ESC       Quit")
}
