package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Still-frame detection constants
const (
	// StillBlurSize is the Gaussian kernel used before differencing.
	StillBlurSize = 21
	// StillDiffThreshold is the per-pixel intensity change counted as motion.
	StillDiffThreshold = 25
)

// StillFilter recognises frames that barely differ from the last kept frame.
// A camera standing still produces no new geometry, so such frames are
// dropped before keypoint processing.
type StillFilter struct {
	minChange float64
	prev      gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewStillFilter creates a filter. minChange is the percentage of pixels that
// must change for a frame to be kept; 1.0 means 1%.
func NewStillFilter(minChange float64) *StillFilter {
	return &StillFilter{
		minChange: minChange,
		prev:      gocv.NewMat(),
	}
}

// Keep reports whether frame differs enough from the last kept frame, along
// with the changed-pixel percentage. The first frame is always kept.
func (f *StillFilter) Keep(frame gocv.Mat) (bool, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if frame.Empty() {
		return false, 0
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(frame, &blurred, image.Point{X: StillBlurSize, Y: StillBlurSize}, 0, 0, gocv.BorderDefault)

	if !f.hasPrev {
		blurred.CopyTo(&f.prev)
		f.hasPrev = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, f.prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, StillDiffThreshold, 255, gocv.ThresholdBinary)

	change := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	if change <= f.minChange {
		return false, change
	}

	blurred.CopyTo(&f.prev)
	return true, change
}

// Close releases the stored baseline frame.
func (f *StillFilter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hasPrev = false
	return f.prev.Close()
}
