// Package bench sweeps detector and descriptor combinations over one frame
// source and aggregates keypoint counts, sizes, matches and timings.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/camtrack/internal/capture"
	"github.com/ayusman/camtrack/internal/matching"
	"github.com/ayusman/camtrack/internal/store"
	"github.com/ayusman/camtrack/internal/tracker"
	"github.com/ayusman/camtrack/internal/vision"
)

// DefaultWorkers is the number of combinations processed in parallel.
const DefaultWorkers = 4

// Combination is one detector/descriptor pair.
type Combination struct {
	Detector   vision.DetectorType
	Descriptor vision.ExtractorType
}

func (c Combination) String() string {
	return string(c.Detector) + "/" + string(c.Descriptor)
}

// Combinations returns every detector paired with every descriptor,
// detectors outermost. Incompatible pairs are included; Run reports them.
func Combinations(dets []vision.DetectorType, descs []vision.ExtractorType) []Combination {
	combos := make([]Combination, 0, len(dets)*len(descs))
	for _, d := range dets {
		for _, e := range descs {
			combos = append(combos, Combination{Detector: d, Descriptor: e})
		}
	}
	return combos
}

// Result aggregates one combination over all of its frames.
type Result struct {
	Combination
	RunID  string
	Frames int

	MeanKeypoints float64
	MeanFiltered  float64
	MeanSize      float64
	// SizeRMS is the root mean square of the per-frame size deviations.
	SizeRMS        float64
	MeanDescriptor float64
	MeanMatches    float64

	DetectMs   float64
	DescribeMs float64
	MatchMs    float64

	// Err is set when the combination could not run.
	Err error
}

// TotalMs is the mean detection plus description time per frame.
func (r Result) TotalMs() float64 {
	return r.DetectMs + r.DescribeMs
}

// OK reports whether the combination ran.
func (r Result) OK() bool {
	return r.Err == nil
}

// Options configures a sweep.
type Options struct {
	// Base provides matcher, selector, focus and limit settings; the
	// detector and descriptor are overwritten per combination.
	Base tracker.Config
	// Open returns a fresh source for each combination.
	Open func() (capture.Source, error)
	// Workers bounds the combinations processed at once.
	Workers int
	// Store, when set, receives one run per combination.
	Store *store.Store
	// Searcher, when set, replaces the OpenCV matcher of each tracker.
	Searcher func(matching.Config) matching.Searcher
}

// Run processes every combination and returns the results in combination
// order. A combination that fails is recorded with its error and does not
// stop the others; only cancellation of ctx aborts the sweep.
func Run(ctx context.Context, opts Options, combos []Combination) ([]Result, error) {
	if opts.Open == nil {
		return nil, errors.New("bench: no frame source")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	results := make([]Result, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, c := range combos {
		g.Go(func() error {
			res := runOne(gctx, opts, c)
			results[i] = res
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				return res.Err
			}
			if res.Err != nil {
				log.Printf("%s skipped: %v", c, res.Err)
			} else {
				log.Printf("%s done frames=%d n=%.1f t=%.3f ms", c, res.Frames, res.MeanFiltered, res.TotalMs())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runOne(ctx context.Context, opts Options, c Combination) Result {
	res := Result{Combination: c}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	cfg := opts.Base
	cfg.Detector = c.Detector
	cfg.Descriptor = c.Descriptor
	cfg.Store = opts.Store
	cfg.Visualize = false
	cfg.OnFrame = nil

	tr, err := tracker.New(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	if opts.Searcher != nil {
		tr.SetSearcher(opts.Searcher(cfg.MatchConfig()))
	}

	src, err := opts.Open()
	if err != nil {
		tr.Close()
		res.Err = fmt.Errorf("open source: %w", err)
		return res
	}

	frames, err := tr.Run(ctx, src)
	res.RunID = tr.RunID()
	err = errors.Join(err, src.Close(), tr.Close())
	if err != nil {
		res.Err = err
		return res
	}

	aggregate(&res, frames)
	return res
}

func aggregate(res *Result, frames []*tracker.FrameResult) {
	res.Frames = len(frames)
	if len(frames) == 0 {
		return
	}

	n := len(frames)
	keypoints := make([]float64, n)
	filtered := make([]float64, n)
	sizes := make([]float64, n)
	variances := make([]float64, n)
	descriptors := make([]float64, n)
	detect := make([]float64, n)
	describe := make([]float64, n)
	var matches, match []float64

	for i, f := range frames {
		keypoints[i] = float64(f.Keypoints)
		filtered[i] = float64(f.FilteredKeypoints)
		sizes[i] = f.MeanSize
		variances[i] = f.SizeStdDev * f.SizeStdDev
		descriptors[i] = float64(f.Descriptors)
		detect[i] = f.DetectMs
		describe[i] = f.DescribeMs
		// The first frame has nothing to match against.
		if i > 0 {
			matches = append(matches, float64(len(f.Matches)))
			match = append(match, f.MatchMs)
		}
	}

	res.MeanKeypoints = stat.Mean(keypoints, nil)
	res.MeanFiltered = stat.Mean(filtered, nil)
	res.MeanSize = stat.Mean(sizes, nil)
	res.SizeRMS = math.Sqrt(stat.Mean(variances, nil))
	res.MeanDescriptor = stat.Mean(descriptors, nil)
	res.DetectMs = stat.Mean(detect, nil)
	res.DescribeMs = stat.Mean(describe, nil)
	if len(matches) > 0 {
		res.MeanMatches = stat.Mean(matches, nil)
		res.MatchMs = stat.Mean(match, nil)
	}
}
