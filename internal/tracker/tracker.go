package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/camtrack/internal/capture"
	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/internal/history"
	"github.com/ayusman/camtrack/internal/matching"
	"github.com/ayusman/camtrack/internal/store"
	"github.com/ayusman/camtrack/internal/vision"
	"github.com/ayusman/camtrack/internal/visual"
)

// MatchesLabel names match visualisations.
const MatchesLabel = "MATCHES"

// ErrEmptyFrame is wrapped in the *feature.ResourceError Process returns for
// a frame without pixels.
var ErrEmptyFrame = errors.New("empty image")

// Frame is one buffered image with its keypoints, descriptors and the
// matches against the frame before it.
type Frame struct {
	Index       int
	Image       gocv.Mat
	Keypoints   []feature.Keypoint
	Descriptors feature.Descriptors
	Matches     []feature.Match
}

// FrameResult summarises the processing of one frame.
type FrameResult struct {
	RunID             string           `json:"run_id,omitempty"`
	Index             int              `json:"index"`
	Detector          string           `json:"detector"`
	Descriptor        string           `json:"descriptor"`
	Keypoints         int              `json:"keypoints"`
	FilteredKeypoints int              `json:"filtered_keypoints"`
	Descriptors       int              `json:"descriptors"`
	MeanSize          float64          `json:"mean_size"`
	SizeStdDev        float64          `json:"size_stddev"`
	Matches           []feature.Match  `json:"matches"`
	Distance          matching.Summary `json:"distance"`
	DetectMs          float64          `json:"detect_ms"`
	DescribeMs        float64          `json:"describe_ms"`
	MatchMs           float64          `json:"match_ms"`
}

// Tracker owns the frame history and the vision objects of one run. It
// processes frames strictly in order and is not safe for concurrent
// Process calls.
type Tracker struct {
	cfg       Config
	match     matching.Config
	detector  vision.Detector
	extractor vision.Extractor
	searcher  matching.Searcher
	frames    *history.Ring[*Frame]
	visual    *visual.Visualizer

	mu        sync.Mutex
	runID     string
	processed int
	closed    bool
}

// New validates cfg and allocates the detector, extractor and matcher.
// Configuration problems are returned as *feature.ConfigError.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	det, err := vision.NewDetector(cfg.Detector)
	if err != nil {
		return nil, err
	}
	ext, err := vision.NewExtractor(cfg.Descriptor)
	if err != nil {
		det.Close()
		return nil, err
	}
	match := cfg.MatchConfig()
	searcher, err := vision.NewSearcher(match)
	if err != nil {
		det.Close()
		ext.Close()
		return nil, err
	}

	size := cfg.BufferSize
	if size < 1 {
		size = DefaultBufferSize
	}

	t := &Tracker{
		cfg:       cfg,
		match:     match,
		detector:  det,
		extractor: ext,
		searcher:  searcher,
		frames:    history.New[*Frame](size),
	}
	if cfg.Visualize || cfg.OutputDir != "" {
		t.visual = visual.New(visual.Options{OutputDir: cfg.OutputDir, Window: cfg.Visualize}, visual.NewCounter())
	}
	return t, nil
}

// SetSearcher replaces the nearest-neighbour searcher, closing the old one.
func (t *Tracker) SetSearcher(s matching.Searcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.searcher != nil {
		t.searcher.Close()
	}
	t.searcher = s
}

// RunID returns the stored run ID, or "" before the first stored frame or
// without a store.
func (t *Tracker) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// Frames returns the buffered frames, oldest first.
func (t *Tracker) Frames() []*Frame {
	return t.frames.Items()
}

// Process runs the pipeline on img, which the tracker takes ownership of.
// The image is released when its frame leaves the history.
func (t *Tracker) Process(index int, img gocv.Mat) (*FrameResult, error) {
	if img.Empty() {
		img.Close()
		return nil, &feature.ResourceError{Path: fmt.Sprintf("frame %d", index), Err: ErrEmptyFrame}
	}

	frame := &Frame{Index: index, Image: img}
	if evicted, ok := t.frames.Push(frame); ok {
		evicted.Image.Close()
	}

	res := &FrameResult{
		Index:      index,
		Detector:   string(t.cfg.Detector),
		Descriptor: string(t.cfg.Descriptor),
	}

	start := time.Now()
	kps, err := t.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %s detection: %w", index, t.cfg.Detector, err)
	}
	res.DetectMs = millis(time.Since(start))
	res.Keypoints = len(kps)

	if t.cfg.Focus != nil {
		kps = feature.FilterRegion(kps, *t.cfg.Focus)
	}
	kps = t.limit(kps)
	res.FilteredKeypoints = len(kps)
	res.MeanSize, res.SizeStdDev = sizeStats(kps)
	log.Printf("%s detector n=%d t=%.3f ms focus=%d m1=%.3f rms=%.3f",
		t.cfg.Detector, res.Keypoints, res.DetectMs, res.FilteredKeypoints, res.MeanSize, res.SizeStdDev)

	if t.visual != nil {
		if _, err := t.visual.Keypoints(string(t.cfg.Detector), img, kps); err != nil {
			log.Printf("Error saving keypoint visualisation: %v", err)
		}
	}

	start = time.Now()
	kps, desc, err := t.extractor.Compute(img, kps)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %s extraction: %w", index, t.cfg.Descriptor, err)
	}
	res.DescribeMs = millis(time.Since(start))
	res.Descriptors = desc.Len()
	frame.Keypoints = kps
	frame.Descriptors = desc
	log.Printf("%s descriptor n=%d t=%.3f ms", t.cfg.Descriptor, desc.Len(), res.DescribeMs)

	if prev, ok := t.frames.Back(1); ok {
		start = time.Now()
		matches, err := matching.Select(t.searcher, t.match, prev.Descriptors, frame.Descriptors)
		if err != nil {
			return nil, fmt.Errorf("frame %d: match: %w", index, err)
		}
		res.MatchMs = millis(time.Since(start))
		frame.Matches = matches
		res.Matches = matches
		res.Distance = matching.Summarize(matches)
		log.Printf("%s %s matcher n=%d t=%.3f ms", t.match.Matcher, t.match.Selector, len(matches), res.MatchMs)

		if t.visual != nil {
			if _, err := t.visual.Matches(MatchesLabel, prev.Image, prev.Keypoints, img, kps, matches); err != nil {
				log.Printf("Error saving match visualisation: %v", err)
			}
		}
	}

	if err := t.record(res); err != nil {
		return nil, err
	}
	if t.cfg.OnFrame != nil {
		t.cfg.OnFrame(res)
	}
	return res, nil
}

// Run pulls frames from src until it is exhausted, ctx is cancelled or a
// frame fails. Cancellation is checked between frames.
func (t *Tracker) Run(ctx context.Context, src capture.Source) ([]*FrameResult, error) {
	var results []*FrameResult
	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		index, img, err := src.Next()
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return results, fmt.Errorf("load frame: %w", err)
		}

		res, err := t.Process(index, img)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
}

// Close releases buffered frames and vision objects and marks the stored run
// as finished.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	for _, f := range t.frames.Drain() {
		f.Image.Close()
	}

	var errs []error
	if t.runID != "" {
		if err := t.cfg.Store.Runs().Finish(t.runID, t.processed, time.Now().UTC()); err != nil {
			errs = append(errs, fmt.Errorf("finish run: %w", err))
		}
	}
	if t.visual != nil {
		errs = append(errs, t.visual.Close())
	}
	if t.searcher != nil {
		errs = append(errs, t.searcher.Close())
	}
	errs = append(errs, t.extractor.Close(), t.detector.Close())
	return errors.Join(errs...)
}

func (t *Tracker) limit(kps []feature.Keypoint) []feature.Keypoint {
	n := t.cfg.MaxKeypoints
	if n <= 0 || len(kps) <= n {
		return kps
	}
	// Shi-Tomasi corners are already ordered by decreasing quality.
	if t.cfg.Detector == vision.DetectorShiTomasi {
		return kps[:n]
	}
	return feature.RetainBest(kps, n)
}

func (t *Tracker) record(res *FrameResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	if t.cfg.Store == nil {
		return nil
	}

	if t.runID == "" {
		run := &store.Run{
			Detector:       string(t.cfg.Detector),
			Descriptor:     string(t.cfg.Descriptor),
			Matcher:        string(t.match.Matcher),
			Selector:       string(t.match.Selector),
			DescriptorKind: t.match.Kind.String(),
			Source:         t.cfg.Source,
		}
		if err := t.cfg.Store.Runs().Create(run); err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		t.runID = run.ID
	}
	res.RunID = t.runID

	err := t.cfg.Store.Frames().Add(&store.FrameResult{
		RunID:             t.runID,
		FrameIndex:        res.Index,
		Keypoints:         res.Keypoints,
		FilteredKeypoints: res.FilteredKeypoints,
		Descriptors:       res.Descriptors,
		Matches:           len(res.Matches),
		MeanDistance:      res.Distance.Mean,
		MeanSize:          res.MeanSize,
		DetectMs:          res.DetectMs,
		DescribeMs:        res.DescribeMs,
		MatchMs:           res.MatchMs,
	})
	if err != nil {
		return fmt.Errorf("store frame %d: %w", res.Index, err)
	}
	return nil
}

func sizeStats(kps []feature.Keypoint) (mean, std float64) {
	if len(kps) == 0 {
		return 0, 0
	}
	sizes := make([]float64, len(kps))
	for i, k := range kps {
		sizes[i] = k.Size
	}
	if len(sizes) == 1 {
		return sizes[0], 0
	}
	return stat.MeanStdDev(sizes, nil)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
