package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/camtrack/internal/app"
	"github.com/ayusman/camtrack/internal/config"
	"github.com/ayusman/camtrack/internal/feature"
)

type options struct {
	configPath string
	detector   string
	descriptor string
	matcher    string
	selector   string
	visualize  bool
	dbPath     string
	serve      string
	outputDir  string
	video      string
	still      float64
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML run configuration (optional)")
	flag.StringVar(&o.detector, "det", "SHITOMASI", "Keypoint detector: SHITOMASI, HARRIS, FAST, BRISK, ORB, AKAZE, SIFT, KAZE")
	flag.StringVar(&o.descriptor, "des", "BRISK", "Descriptor: BRISK, BRIEF, ORB, FREAK, AKAZE, SIFT, KAZE")
	flag.StringVar(&o.matcher, "mat", "MAT_BF", "Matcher: MAT_BF or MAT_FLANN")
	flag.StringVar(&o.selector, "sel", "SEL_KNN", "Selector: SEL_NN or SEL_KNN")
	flag.BoolVar(&o.visualize, "vis", false, "Show keypoints and matches in a window")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database path (optional, for persistence)")
	flag.StringVar(&o.serve, "serve", "", "HTTP address for the result API and live feed, e.g. :8080")
	flag.StringVar(&o.outputDir, "out", "", "Directory for saved visualisations")
	flag.StringVar(&o.video, "video", "", "Video file or camera id instead of the image sequence")
	flag.Float64Var(&o.still, "still", 0, "Drop video frames with at most this percentage of changed pixels")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Detects, describes and matches keypoints across consecutive frames.\n")
		fmt.Fprintf(os.Stderr, "Flags override the configuration file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -det FAST -des ORB -sel SEL_NN\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -video 0 -still 1.5\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -det SIFT -des SIFT -mat MAT_FLANN -db runs.db -serve :8080\n", os.Args[0])
	}

	flag.Parse()
	return o
}

// apply copies the explicitly set flags over cfg.
func (o options) apply(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "det":
			cfg.Detector = o.detector
		case "des":
			cfg.Descriptor = o.descriptor
		case "mat":
			cfg.Matcher = o.matcher
		case "sel":
			cfg.Selector = o.selector
		case "vis":
			cfg.Visualize = o.visualize
		case "db":
			cfg.DBPath = o.dbPath
		case "serve":
			cfg.Serve = o.serve
		case "out":
			cfg.OutputDir = o.outputDir
		case "video":
			cfg.Video = o.video
		case "still":
			cfg.VideoMinChange = o.still
		}
	})
}

func main() {
	o := parseFlags()

	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	o.apply(&cfg)

	a, err := app.New(app.Config{Run: cfg, StaticDir: findWebDir()})
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

	log.Printf("%s/%s with %s %s on %s", cfg.Detector, cfg.Descriptor, cfg.Matcher, cfg.Selector, cfg.SourceName())
	if _, err := a.Run(ctx); err != nil {
		var resErr *feature.ResourceError
		if errors.As(err, &resErr) {
			log.Fatalf("Failed to load image %s: %v", resErr.Path, resErr.Err)
		}
		log.Fatalf("Run failed: %v", err)
	}
}

// findWebDir returns the first existing "web" directory next to the
// working directory, or "" when there is none.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
