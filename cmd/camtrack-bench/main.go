package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/camtrack/internal/app"
	"github.com/ayusman/camtrack/internal/bench"
	"github.com/ayusman/camtrack/internal/config"
	"github.com/ayusman/camtrack/internal/feature"
)

func main() {
	configPath := flag.String("config", "", "YAML run configuration (optional)")
	workers := flag.Int("workers", 0, "Combinations processed in parallel (default from config)")
	output := flag.String("out", "", "Directory for CSV reports and charts (default from config)")
	dbPath := flag.String("db", "", "SQLite database path; each combination becomes a run")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs every detector and descriptor combination over the configured\n")
		fmt.Fprintf(os.Stderr, "frames and writes %s, %s and %s.\n\n", bench.DetectorsFile, bench.MatchersFile, bench.TimingFile)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if *workers > 0 {
		cfg.Bench.Workers = *workers
	}
	if *output != "" {
		cfg.Bench.OutputDir = *output
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	a, err := app.New(app.Config{Run: cfg})
	if err != nil {
		var cfgErr *feature.ConfigError
		if errors.As(err, &cfgErr) {
			log.Printf("Invalid configuration: %v", cfgErr)
			os.Exit(2)
		}
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := a.Bench(ctx)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	for _, r := range bench.Fastest(results) {
		fmt.Printf("%-18s keypoints=%7.1f matches=%7.1f total=%8.3f ms\n", r.String(), r.MeanFiltered, r.MeanMatches, r.TotalMs())
	}
}
