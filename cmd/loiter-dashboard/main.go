// loiter-dashboard runs detection cycles on a schedule and shows each
// candidate's half modes, mean altitude and verdict in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/ads-loiter/internal/app"
	"github.com/unklstewy/ads-loiter/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/loiter.yaml", "Path to configuration file")
	address := flag.String("address", "", "Address to center the search on")
	verbose := flag.Bool("v", false, "Show per-half statistics in the log pane")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	tail := &logTail{max: 8}
	log.SetOutput(tail)
	log.SetFlags(log.Ltime)

	if err := a.AttachDatabase(context.Background()); err != nil {
		log.Printf("⚠️  Database mirror disabled: %v", err)
	}

	m := model{
		runner:   a.Pipeline,
		area:     a.Area(context.Background(), *address),
		interval: time.Duration(cfg.Schedule.IntervalSeconds) * time.Second,
		logs:     tail,
		running:  true,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
