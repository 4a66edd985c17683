package vision

import (
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
)

// DetectorType names a keypoint detection strategy.
type DetectorType string

const (
	DetectorShiTomasi DetectorType = "SHITOMASI"
	DetectorHarris    DetectorType = "HARRIS"
	DetectorFAST      DetectorType = "FAST"
	DetectorBRISK     DetectorType = "BRISK"
	DetectorORB       DetectorType = "ORB"
	DetectorAKAZE     DetectorType = "AKAZE"
	DetectorSIFT      DetectorType = "SIFT"
	DetectorKAZE      DetectorType = "KAZE"
)

// DetectorTypes lists every supported detector in sweep order.
var DetectorTypes = []DetectorType{
	DetectorShiTomasi,
	DetectorHarris,
	DetectorFAST,
	DetectorBRISK,
	DetectorORB,
	DetectorAKAZE,
	DetectorSIFT,
	DetectorKAZE,
}

// FAST settings used by the FAST detector.
const (
	FASTThreshold = 100
	FASTNonMax    = true
)

// ParseDetectorType maps a configuration name to a DetectorType.
func ParseDetectorType(s string) (DetectorType, error) {
	name := DetectorType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range DetectorTypes {
		if t == name {
			return t, nil
		}
	}
	return "", &feature.ConfigError{Setting: "detector", Value: s}
}

// Detector finds keypoints in a grayscale image.
type Detector interface {
	Detect(img gocv.Mat) ([]feature.Keypoint, error)
	Name() string
	Close() error
}

// NewDetector builds the detector for t with its default parameters.
func NewDetector(t DetectorType) (Detector, error) {
	switch t {
	case DetectorShiTomasi:
		return NewShiTomasi(DefaultShiTomasiParams()), nil
	case DetectorHarris:
		return NewHarris(DefaultHarrisParams()), nil
	case DetectorFAST:
		fd := gocv.NewFastFeatureDetectorWithParams(FASTThreshold, FASTNonMax, gocv.FastFeatureDetectorType916)
		return &libraryDetector{name: string(t), impl: &fd}, nil
	case DetectorBRISK:
		b := gocv.NewBRISK()
		return &libraryDetector{name: string(t), impl: &b}, nil
	case DetectorORB:
		o := gocv.NewORB()
		return &libraryDetector{name: string(t), impl: &o}, nil
	case DetectorAKAZE:
		a := gocv.NewAKAZE()
		return &libraryDetector{name: string(t), impl: &a}, nil
	case DetectorSIFT:
		s := gocv.NewSIFT()
		return &libraryDetector{name: string(t), impl: &s}, nil
	case DetectorKAZE:
		k := gocv.NewKAZE()
		return &libraryDetector{name: string(t), impl: &k}, nil
	default:
		return nil, &feature.ConfigError{Setting: "detector", Value: string(t)}
	}
}

type keypointFinder interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// libraryDetector runs one of the OpenCV Feature2D detectors as-is.
type libraryDetector struct {
	name string
	impl keypointFinder
}

func (d *libraryDetector) Detect(img gocv.Mat) ([]feature.Keypoint, error) {
	if img.Empty() {
		return nil, nil
	}
	return fromKeyPoints(d.impl.Detect(img)), nil
}

func (d *libraryDetector) Name() string { return d.name }

func (d *libraryDetector) Close() error { return d.impl.Close() }
