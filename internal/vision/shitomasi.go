package vision

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
)

// ShiTomasiParams configures the minimum-eigenvalue corner detector.
// Zero MaxCorners and MinDistance are derived from the image and block size.
// gocv.GoodFeaturesToTrack takes no block size, so the eigenvalue window is
// always OpenCV's default of 3; BlockSize only derives MinDistance and sets
// the keypoint Size.
type ShiTomasiParams struct {
	BlockSize   int
	MaxOverlap  float64
	Quality     float64
	MaxCorners  int
	MinDistance float64
}

// DefaultShiTomasiParams returns block size 4, no overlap and quality 0.01.
func DefaultShiTomasiParams() ShiTomasiParams {
	return ShiTomasiParams{BlockSize: 4, Quality: 0.01}
}

// ShiTomasi detects corners with cv::goodFeaturesToTrack. Corners come back
// ordered by decreasing quality and carry no response value.
type ShiTomasi struct {
	params ShiTomasiParams
}

// NewShiTomasi creates a Shi-Tomasi detector.
func NewShiTomasi(p ShiTomasiParams) *ShiTomasi {
	return &ShiTomasi{params: p}
}

func (d *ShiTomasi) Detect(img gocv.Mat) ([]feature.Keypoint, error) {
	if img.Empty() {
		return nil, nil
	}

	minDist := d.params.MinDistance
	if minDist <= 0 {
		minDist = (1 - d.params.MaxOverlap) * float64(d.params.BlockSize)
	}
	maxCorners := d.params.MaxCorners
	if maxCorners <= 0 {
		maxCorners = int(float64(img.Rows()*img.Cols()) / math.Max(1, minDist))
	}

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(img, &corners, maxCorners, d.params.Quality, minDist)

	kps := make([]feature.Keypoint, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		pt := corners.GetVecfAt(i, 0)
		kps = append(kps, feature.Keypoint{
			X:    float64(pt[0]),
			Y:    float64(pt[1]),
			Size: float64(d.params.BlockSize),
		})
	}
	return kps, nil
}

func (d *ShiTomasi) Name() string { return string(DetectorShiTomasi) }

func (d *ShiTomasi) Close() error { return nil }
