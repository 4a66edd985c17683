package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/camtrack/internal/bench"
	"github.com/ayusman/camtrack/internal/capture"
	"github.com/ayusman/camtrack/internal/config"
	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/internal/matching"
	"github.com/ayusman/camtrack/internal/store"
	"github.com/ayusman/camtrack/testdata"
)

func linear(cfg matching.Config) matching.Searcher {
	return matching.NewLinear(cfg.ResolvedNorm(), cfg.CrossCheck)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Matcher = "MAT_FLANN"

	_, err := New(Config{Run: cfg})
	var cfgErr *feature.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New() error = %v, want ConfigError", err)
	}
}

func TestApp_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frames, err := testdata.ShiftedFrames(120, 100, 5, 3, 5)
	if err != nil {
		t.Fatalf("ShiftedFrames() error = %v", err)
	}
	defer testdata.Close(frames)

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "data", "runs.db")

	a, err := New(Config{
		Run: cfg,
		OpenSource: func() (capture.Source, error) {
			return capture.NewMockSource(frames, 0, false), nil
		},
		Searcher: linear,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Run() returned %d results, want 3", len(results))
	}
	if last := a.LastResult(); last == nil || last.Index != 2 {
		t.Errorf("LastResult() = %+v, want frame 2", last)
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()
	runs, err := s.Runs().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Frames != 3 || runs[0].Detector != "SHITOMASI" {
		t.Errorf("stored runs = %+v, want one finished SHITOMASI run of 3 frames", runs)
	}
}

func TestApp_Run_SourceError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, err := New(Config{
		Run: config.Default(),
		OpenSource: func() (capture.Source, error) {
			return nil, errors.New("no camera")
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := a.Run(context.Background()); err == nil {
		t.Error("Run() should fail when the source cannot be opened")
	}
}

func TestApp_Bench(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frames, err := testdata.ShiftedFrames(100, 80, 4, 2, 9)
	if err != nil {
		t.Fatalf("ShiftedFrames() error = %v", err)
	}
	defer testdata.Close(frames)

	cfg := config.Default()
	cfg.Bench.OutputDir = filepath.Join(t.TempDir(), "bench")
	cfg.Bench.Workers = 3

	a, err := New(Config{
		Run: cfg,
		OpenSource: func() (capture.Source, error) {
			return capture.NewMockSource(frames, 0, false), nil
		},
		Searcher: linear,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results, err := a.Bench(context.Background())
	if err != nil {
		t.Fatalf("Bench() error = %v", err)
	}

	var ok, failed int
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	if ok == 0 || failed == 0 {
		t.Errorf("ok = %d, failed = %d; want both contrib failures and successes", ok, failed)
	}

	for _, name := range []string{bench.DetectorsFile, bench.MatchersFile, bench.TimingFile, bench.KeypointsChart, bench.TimingChart} {
		if _, err := os.Stat(filepath.Join(cfg.Bench.OutputDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
