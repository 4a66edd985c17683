package vision

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
)

// ExtractorType names a descriptor extraction strategy.
type ExtractorType string

const (
	ExtractorBRISK ExtractorType = "BRISK"
	ExtractorBRIEF ExtractorType = "BRIEF"
	ExtractorORB   ExtractorType = "ORB"
	ExtractorFREAK ExtractorType = "FREAK"
	ExtractorAKAZE ExtractorType = "AKAZE"
	ExtractorSIFT  ExtractorType = "SIFT"
	ExtractorKAZE  ExtractorType = "KAZE"
)

// ExtractorTypes lists every known extractor in sweep order.
var ExtractorTypes = []ExtractorType{
	ExtractorBRISK,
	ExtractorBRIEF,
	ExtractorORB,
	ExtractorFREAK,
	ExtractorAKAZE,
	ExtractorSIFT,
	ExtractorKAZE,
}

// ParseExtractorType maps a configuration name to an ExtractorType.
func ParseExtractorType(s string) (ExtractorType, error) {
	name := ExtractorType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range ExtractorTypes {
		if t == name {
			return t, nil
		}
	}
	return "", &feature.ConfigError{Setting: "descriptor", Value: s}
}

// Kind reports the descriptor layout produced by t.
func (t ExtractorType) Kind() feature.DescriptorKind {
	switch t {
	case ExtractorSIFT, ExtractorKAZE:
		return feature.KindFloating
	default:
		return feature.KindBinary
	}
}

// CheckCompatible rejects detector/descriptor pairs OpenCV cannot compute.
func CheckCompatible(det DetectorType, desc ExtractorType) error {
	switch {
	case desc == ExtractorAKAZE && det != DetectorAKAZE:
		return &feature.ConfigError{
			Setting: "descriptor",
			Value:   string(desc),
			Reason:  fmt.Sprintf("AKAZE descriptors need AKAZE keypoints, got %s", det),
		}
	case desc == ExtractorORB && det == DetectorSIFT:
		return &feature.ConfigError{
			Setting: "descriptor",
			Value:   string(desc),
			Reason:  "ORB descriptors cannot be computed on SIFT keypoints",
		}
	}
	return nil
}

// Extractor computes one descriptor row per keypoint. The returned keypoints
// replace the input: keypoints whose support region leaves the image are
// dropped by the library.
type Extractor interface {
	Compute(img gocv.Mat, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error)
	Kind() feature.DescriptorKind
	Name() string
	Close() error
}

// NewExtractor builds the extractor for t with its default parameters.
func NewExtractor(t ExtractorType) (Extractor, error) {
	var impl descriptorComputer
	switch t {
	case ExtractorBRISK:
		b := gocv.NewBRISK()
		impl = &b
	case ExtractorORB:
		o := gocv.NewORB()
		impl = &o
	case ExtractorAKAZE:
		a := gocv.NewAKAZE()
		impl = &a
	case ExtractorSIFT:
		s := gocv.NewSIFT()
		impl = &s
	case ExtractorKAZE:
		k := gocv.NewKAZE()
		impl = &k
	case ExtractorBRIEF, ExtractorFREAK:
		return nil, &feature.ConfigError{
			Setting: "descriptor",
			Value:   string(t),
			Reason:  "requires the OpenCV contrib module, which is not linked",
		}
	default:
		return nil, &feature.ConfigError{Setting: "descriptor", Value: string(t)}
	}
	return &libraryExtractor{typ: t, impl: impl}, nil
}

type descriptorComputer interface {
	Compute(src gocv.Mat, mask gocv.Mat, kps []gocv.KeyPoint) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

type libraryExtractor struct {
	typ  ExtractorType
	impl descriptorComputer
}

func (e *libraryExtractor) Compute(img gocv.Mat, kps []feature.Keypoint) ([]feature.Keypoint, feature.Descriptors, error) {
	empty := feature.Descriptors{Kind: e.typ.Kind()}
	if img.Empty() || len(kps) == 0 {
		return nil, empty, nil
	}

	mask := gocv.NewMat()
	defer mask.Close()

	out, desc := e.impl.Compute(img, mask, toKeyPoints(kps))
	defer desc.Close()

	d, err := descriptorsFromMat(desc)
	if err != nil {
		return nil, empty, fmt.Errorf("%s: %w", e.typ, err)
	}
	if d.Empty() {
		return nil, empty, nil
	}
	if d.Kind != e.typ.Kind() {
		return nil, empty, fmt.Errorf("%s: got %s descriptors, want %s", e.typ, d.Kind, e.typ.Kind())
	}
	if d.Rows != len(out) {
		return nil, empty, fmt.Errorf("%s: %d descriptor rows for %d keypoints", e.typ, d.Rows, len(out))
	}
	return fromKeyPoints(out), d, nil
}

func (e *libraryExtractor) Kind() feature.DescriptorKind { return e.typ.Kind() }

func (e *libraryExtractor) Name() string { return string(e.typ) }

func (e *libraryExtractor) Close() error { return e.impl.Close() }
