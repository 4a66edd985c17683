// Package config loads run settings from a YAML file on top of built-in
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/camtrack/internal/capture"
	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/internal/matching"
	"github.com/ayusman/camtrack/internal/tracker"
	"github.com/ayusman/camtrack/internal/vision"
)

// Images locates a numbered image sequence.
type Images struct {
	Dir       string `yaml:"dir"`
	Prefix    string `yaml:"prefix"`
	Extension string `yaml:"extension"`
	Start     int    `yaml:"start"`
	End       int    `yaml:"end"`
	FillWidth int    `yaml:"fill_width"`
}

// Bench configures the detector/descriptor sweep.
type Bench struct {
	Workers   int    `yaml:"workers"`
	OutputDir string `yaml:"output_dir"`
}

// Config is the complete run configuration.
type Config struct {
	Images         Images  `yaml:"images"`
	Video          string  `yaml:"video,omitempty"`
	// VideoMinChange drops video frames whose changed-pixel percentage
	// against the last kept frame is at or below it. Image sequences are
	// never filtered.
	VideoMinChange float64 `yaml:"video_min_change,omitempty"`
	BufferSize     int     `yaml:"buffer_size"`
	Detector       string  `yaml:"detector"`
	Descriptor     string  `yaml:"descriptor"`
	Matcher        string  `yaml:"matcher"`
	Selector       string  `yaml:"selector"`
	Norm           string  `yaml:"norm,omitempty"`
	CrossCheck     bool    `yaml:"cross_check"`
	Ratio          float64 `yaml:"ratio"`
	MaxKeypoints   int     `yaml:"max_keypoints"`
	Visualize      bool    `yaml:"visualize"`
	OutputDir      string  `yaml:"output_dir"`
	DBPath         string  `yaml:"db_path"`
	Serve          string  `yaml:"serve,omitempty"`
	Bench          Bench   `yaml:"bench"`
}

// Default returns the settings for the first ten KITTI frames with
// Shi-Tomasi corners, BRISK descriptors and brute-force KNN matching.
func Default() Config {
	return Config{
		Images: Images{
			Dir:       "images/KITTI/2011_09_26/image_00/data",
			Prefix:    "000000",
			Extension: ".png",
			Start:     0,
			End:       9,
			FillWidth: 4,
		},
		BufferSize: tracker.DefaultBufferSize,
		Detector:   string(vision.DetectorShiTomasi),
		Descriptor: string(vision.ExtractorBRISK),
		Matcher:    string(matching.MatcherBF),
		Selector:   string(matching.SelectorKNN),
		Ratio:      matching.DefaultRatio,
		Bench: Bench{
			Workers:   4,
			OutputDir: "bench",
		},
	}
}

// Load reads path and merges it over Default. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Write saves cfg as YAML.
func Write(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings that do not depend on OpenCV.
func (c Config) Validate() error {
	if c.BufferSize < 1 {
		return &feature.ConfigError{Setting: "buffer_size", Value: fmt.Sprint(c.BufferSize), Reason: "must be at least 1"}
	}
	if c.Video == "" {
		if c.Images.End < c.Images.Start {
			return &feature.ConfigError{
				Setting: "images.end",
				Value:   fmt.Sprint(c.Images.End),
				Reason:  fmt.Sprintf("before images.start %d", c.Images.Start),
			}
		}
		if c.Images.FillWidth < 0 {
			return &feature.ConfigError{Setting: "images.fill_width", Value: fmt.Sprint(c.Images.FillWidth)}
		}
	}
	if c.VideoMinChange < 0 || c.VideoMinChange > 100 {
		return &feature.ConfigError{Setting: "video_min_change", Value: fmt.Sprint(c.VideoMinChange), Reason: "must be a percentage between 0 and 100"}
	}
	if c.Bench.Workers < 1 {
		return &feature.ConfigError{Setting: "bench.workers", Value: fmt.Sprint(c.Bench.Workers), Reason: "must be at least 1"}
	}
	tc, err := c.Tracker()
	if err != nil {
		return err
	}
	return tc.Validate()
}

// Tracker converts the strategy names into a tracker configuration. The
// focus rectangle is always the vehicle ahead; it is not configurable.
func (c Config) Tracker() (tracker.Config, error) {
	tc := tracker.DefaultConfig()

	det, err := vision.ParseDetectorType(c.Detector)
	if err != nil {
		return tc, err
	}
	desc, err := vision.ParseExtractorType(c.Descriptor)
	if err != nil {
		return tc, err
	}
	mat, err := matching.ParseMatcherType(c.Matcher)
	if err != nil {
		return tc, err
	}
	sel, err := matching.ParseSelectorType(c.Selector)
	if err != nil {
		return tc, err
	}
	norm, err := matching.ParseNorm(c.Norm)
	if err != nil {
		return tc, err
	}

	tc.Detector = det
	tc.Descriptor = desc
	tc.Matcher = mat
	tc.Selector = sel
	tc.Norm = norm
	tc.CrossCheck = c.CrossCheck
	tc.Ratio = c.Ratio
	tc.BufferSize = c.BufferSize
	tc.MaxKeypoints = c.MaxKeypoints
	tc.Visualize = c.Visualize
	tc.OutputDir = c.OutputDir
	tc.Source = c.SourceName()
	return tc, nil
}

// Sequence returns the image sequence to read.
func (c Config) Sequence() capture.Sequence {
	return capture.Sequence{
		Dir:       c.Images.Dir,
		Prefix:    c.Images.Prefix,
		Extension: c.Images.Extension,
		Start:     c.Images.Start,
		End:       c.Images.End,
		FillWidth: c.Images.FillWidth,
	}
}

// SourceName describes the configured frame source.
func (c Config) SourceName() string {
	if c.Video != "" {
		return "video:" + c.Video
	}
	return c.Images.Dir
}

// OpenSource opens the video when one is configured and the image sequence
// otherwise.
func (c Config) OpenSource() (capture.Source, error) {
	if c.Video != "" {
		return capture.OpenVideo(c.Video, c.VideoOptions())
	}
	return capture.NewSequenceSource(c.Sequence()), nil
}

// VideoOptions returns the capture options for the configured video.
func (c Config) VideoOptions() capture.VideoOptions {
	return capture.VideoOptions{MinChange: c.VideoMinChange}
}
