// Package app wires the run configuration, storage, tracker, bench sweep and
// HTTP server together for the command-line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ayusman/camtrack/internal/bench"
	"github.com/ayusman/camtrack/internal/capture"
	"github.com/ayusman/camtrack/internal/config"
	"github.com/ayusman/camtrack/internal/matching"
	"github.com/ayusman/camtrack/internal/server"
	"github.com/ayusman/camtrack/internal/store"
	"github.com/ayusman/camtrack/internal/tracker"
	"github.com/ayusman/camtrack/internal/vision"
)

// Config holds configuration options for the application.
type Config struct {
	Run       config.Config
	StaticDir string

	// OpenSource, when set, replaces the configured frame source. It is
	// called once per tracker.
	OpenSource func() (capture.Source, error)
	// Searcher, when set, replaces the OpenCV matcher.
	Searcher func(matching.Config) matching.Searcher
}

// App runs the tracker or the bench sweep with the configured collaborators.
type App struct {
	config Config

	mu   sync.RWMutex
	last *tracker.FrameResult
}

// New validates the run configuration and creates an App. Invalid settings
// are returned as *feature.ConfigError.
func New(cfg Config) (*App, error) {
	if err := cfg.Run.Validate(); err != nil {
		return nil, err
	}
	if cfg.OpenSource == nil {
		cfg.OpenSource = cfg.Run.OpenSource
	}
	return &App{config: cfg}, nil
}

// LastResult returns the most recent frame result, or nil.
func (a *App) LastResult() *tracker.FrameResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Run processes the configured source once. With a serve address the
// result API and live feed stay up until ctx is cancelled. Cancelling ctx
// stops processing at the next frame boundary and is not an error.
func (a *App) Run(ctx context.Context) ([]*tracker.FrameResult, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}

	var live *server.LiveHandler
	serveCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	serveErr := make(chan error, 1)
	if addr := a.config.Run.Serve; addr != "" {
		live = server.NewLiveHandler()
		srv := server.New(server.Config{StaticDir: a.config.StaticDir, Store: st, Live: live})
		go func() { serveErr <- srv.ListenAndServe(serveCtx, addr) }()
		log.Printf("Serving results on %s", addr)
	}

	tc, err := a.config.Run.Tracker()
	if err != nil {
		return nil, err
	}
	tc.Store = st
	tc.OnFrame = func(r *tracker.FrameResult) {
		a.mu.Lock()
		a.last = r
		a.mu.Unlock()
		if live != nil {
			live.Publish(r)
		}
	}

	results, err := a.track(ctx, tc)
	if errors.Is(err, context.Canceled) {
		log.Printf("Stopped after %d frames", len(results))
		err = nil
	}
	if err != nil {
		return results, err
	}
	log.Printf("Processed %d frames", len(results))

	if live != nil {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			return results, fmt.Errorf("server: %w", err)
		}
		stopServer()
		if err := <-serveErr; err != nil {
			return results, fmt.Errorf("server: %w", err)
		}
	}
	return results, nil
}

func (a *App) track(ctx context.Context, tc tracker.Config) ([]*tracker.FrameResult, error) {
	tr, err := tracker.New(tc)
	if err != nil {
		return nil, err
	}
	if a.config.Searcher != nil {
		tr.SetSearcher(a.config.Searcher(tc.MatchConfig()))
	}

	src, err := a.config.OpenSource()
	if err != nil {
		tr.Close()
		return nil, fmt.Errorf("open source: %w", err)
	}

	results, err := tr.Run(ctx, src)
	if cerr := src.Close(); cerr != nil {
		log.Printf("Error closing source: %v", cerr)
	}
	if cerr := tr.Close(); cerr != nil {
		log.Printf("Error closing tracker: %v", cerr)
	}
	return results, err
}

// Bench sweeps every detector and descriptor combination and writes the
// CSV reports and charts into the bench output directory.
func (a *App) Bench(ctx context.Context) ([]bench.Result, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}

	base, err := a.config.Run.Tracker()
	if err != nil {
		return nil, err
	}
	base.Visualize = false
	base.OutputDir = ""

	opts := bench.Options{
		Base:     base,
		Open:     a.config.OpenSource,
		Workers:  a.config.Run.Bench.Workers,
		Store:    st,
		Searcher: a.config.Searcher,
	}
	combos := bench.Combinations(vision.DetectorTypes, vision.ExtractorTypes)
	log.Printf("Benchmarking %d combinations with %d workers", len(combos), opts.Workers)

	results, err := bench.Run(ctx, opts, combos)
	if err != nil {
		return results, err
	}

	dir := a.config.Run.Bench.OutputDir
	if err := bench.WriteCSV(dir, results); err != nil {
		return results, err
	}
	n, err := bench.WriteCharts(dir, results)
	if err != nil {
		return results, err
	}
	log.Printf("Wrote reports and %d charts to %s", n, dir)
	return results, nil
}

func (a *App) openStore() (*store.Store, error) {
	path := a.config.Run.DBPath
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return st, nil
}
