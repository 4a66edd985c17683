package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
)

func fromKeyPoints(kps []gocv.KeyPoint) []feature.Keypoint {
	out := make([]feature.Keypoint, len(kps))
	for i, k := range kps {
		out[i] = feature.Keypoint{
			X:        k.X,
			Y:        k.Y,
			Size:     k.Size,
			Angle:    k.Angle,
			Response: k.Response,
			Octave:   k.Octave,
			ClassID:  k.ClassID,
		}
	}
	return out
}

func toKeyPoints(kps []feature.Keypoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, k := range kps {
		out[i] = gocv.KeyPoint{
			X:        k.X,
			Y:        k.Y,
			Size:     k.Size,
			Angle:    k.Angle,
			Response: k.Response,
			Octave:   k.Octave,
			ClassID:  k.ClassID,
		}
	}
	return out
}

// ToKeyPoints converts keypoints for the gocv drawing functions.
func ToKeyPoints(kps []feature.Keypoint) []gocv.KeyPoint {
	return toKeyPoints(kps)
}

// ToDMatches converts matches for gocv.DrawMatches.
func ToDMatches(matches []feature.Match) []gocv.DMatch {
	out := make([]gocv.DMatch, len(matches))
	for i, m := range matches {
		out[i] = gocv.DMatch{QueryIdx: m.Source, TrainIdx: m.Reference, Distance: m.Distance}
	}
	return out
}

func fromDMatches(ms []gocv.DMatch) []feature.Match {
	out := make([]feature.Match, len(ms))
	for i, m := range ms {
		out[i] = feature.Match{Source: m.QueryIdx, Reference: m.TrainIdx, Distance: m.Distance}
	}
	return out
}

// descriptorsFromMat copies a descriptor Mat into Go memory. The Mat type
// decides the kind: CV_8U rows are binary, CV_32F rows are floating.
func descriptorsFromMat(m gocv.Mat) (feature.Descriptors, error) {
	if m.Empty() {
		return feature.Descriptors{}, nil
	}
	rows, cols := m.Rows(), m.Cols()

	switch m.Type() {
	case gocv.MatTypeCV8U:
		return feature.NewBinaryDescriptors(rows, cols, m.ToBytes()), nil
	case gocv.MatTypeCV32F:
		data, err := m.DataPtrFloat32()
		if err != nil {
			return feature.Descriptors{}, fmt.Errorf("read descriptors: %w", err)
		}
		values := make([]float32, len(data))
		copy(values, data)
		return feature.NewFloatingDescriptors(rows, cols, values), nil
	default:
		return feature.Descriptors{}, fmt.Errorf("unsupported descriptor mat type %v", m.Type())
	}
}

// matFromDescriptors builds a Mat owning a copy of d. The caller closes it.
func matFromDescriptors(d feature.Descriptors) (gocv.Mat, error) {
	switch d.Kind {
	case feature.KindBinary:
		m := gocv.NewMatWithSize(d.Rows, d.Cols, gocv.MatTypeCV8U)
		data, err := m.DataPtrUint8()
		if err != nil {
			m.Close()
			return gocv.Mat{}, fmt.Errorf("allocate descriptors: %w", err)
		}
		copy(data, d.Bits)
		return m, nil
	case feature.KindFloating:
		m := gocv.NewMatWithSize(d.Rows, d.Cols, gocv.MatTypeCV32F)
		data, err := m.DataPtrFloat32()
		if err != nil {
			m.Close()
			return gocv.Mat{}, fmt.Errorf("allocate descriptors: %w", err)
		}
		copy(data, d.Values)
		return m, nil
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported descriptor kind %s", d.Kind)
	}
}
