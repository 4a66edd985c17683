// Package tracker runs the per-frame keypoint pipeline: load, buffer, detect,
// focus, describe and match against the previous frame.
package tracker

import (
	"strconv"

	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/internal/matching"
	"github.com/ayusman/camtrack/internal/store"
	"github.com/ayusman/camtrack/internal/vision"
)

// DefaultBufferSize is the number of frames held in memory at once.
const DefaultBufferSize = 2

// Config holds the strategy selection and collaborators of a Tracker.
type Config struct {
	Detector   vision.DetectorType
	Descriptor vision.ExtractorType
	Matcher    matching.MatcherType
	Selector   matching.SelectorType
	Norm       matching.Norm
	CrossCheck bool
	Ratio      float64

	// BufferSize bounds the frame history; values below 1 use DefaultBufferSize.
	BufferSize int
	// Focus keeps only keypoints inside the rectangle; nil keeps all.
	Focus *feature.Rect
	// MaxKeypoints limits the keypoints per frame; 0 means no limit.
	MaxKeypoints int

	Visualize bool
	OutputDir string

	// Source describes the frame source in stored runs.
	Source string
	// Store, when set, receives one run and one row per processed frame.
	Store *store.Store
	// OnFrame, when set, is called with every frame result.
	OnFrame func(*FrameResult)
}

// DefaultConfig returns the Shi-Tomasi/BRISK/brute-force/KNN pipeline
// focused on the vehicle directly ahead.
func DefaultConfig() Config {
	focus := feature.VehicleRect
	return Config{
		Detector:   vision.DetectorShiTomasi,
		Descriptor: vision.ExtractorBRISK,
		Matcher:    matching.MatcherBF,
		Selector:   matching.SelectorKNN,
		Ratio:      matching.DefaultRatio,
		BufferSize: DefaultBufferSize,
		Focus:      &focus,
	}
}

// MatchConfig returns the matcher configuration implied by c.
func (c Config) MatchConfig() matching.Config {
	ratio := c.Ratio
	if ratio == 0 {
		ratio = matching.DefaultRatio
	}
	return matching.Config{
		Matcher:    c.Matcher,
		Selector:   c.Selector,
		Kind:       c.Descriptor.Kind(),
		Norm:       c.Norm,
		CrossCheck: c.CrossCheck,
		Ratio:      ratio,
	}
}

// Validate checks every strategy name and their combination without
// allocating any OpenCV objects.
func (c Config) Validate() error {
	if _, err := vision.ParseDetectorType(string(c.Detector)); err != nil {
		return err
	}
	if _, err := vision.ParseExtractorType(string(c.Descriptor)); err != nil {
		return err
	}
	if err := vision.CheckCompatible(c.Detector, c.Descriptor); err != nil {
		return err
	}
	if c.MaxKeypoints < 0 {
		return &feature.ConfigError{Setting: "max keypoints", Value: strconv.Itoa(c.MaxKeypoints), Reason: "must not be negative"}
	}
	return c.MatchConfig().Validate()
}
