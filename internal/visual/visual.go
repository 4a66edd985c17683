// Package visual draws detected keypoints and frame-to-frame matches, shows
// them in a window when asked to, and saves numbered snapshots.
package visual

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/internal/vision"
)

// Counter numbers snapshots per label, starting at 0. One Counter belongs to
// one run.
type Counter struct {
	mu   sync.Mutex
	next map[string]int
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{next: make(map[string]int)}
}

// Next returns the next number for label.
func (c *Counter) Next(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.next[label]
	c.next[label] = n + 1
	return n
}

// Options configures a Visualizer.
type Options struct {
	// OutputDir receives <LABEL>_<n>.jpg snapshots; empty disables saving.
	OutputDir string
	// Window shows every drawing in a HighGUI window and waits for a key.
	Window bool
}

// Visualizer renders tracker output.
type Visualizer struct {
	opts    Options
	counter *Counter
	window  *gocv.Window
}

var (
	keypointColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	matchColor    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	singleColor   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// New creates a Visualizer. counter must not be nil.
func New(opts Options, counter *Counter) *Visualizer {
	v := &Visualizer{opts: opts, counter: counter}
	if opts.Window {
		v.window = gocv.NewWindow("camtrack")
	}
	return v
}

// Keypoints draws kps over img as rich keypoints (size and orientation) and
// returns the path of the saved snapshot, if any.
func (v *Visualizer) Keypoints(label string, img gocv.Mat, kps []feature.Keypoint) (string, error) {
	canvas := gocv.NewMat()
	defer canvas.Close()
	gocv.DrawKeyPoints(img, vision.ToKeyPoints(kps), &canvas, keypointColor, gocv.DrawRichKeyPoints)

	return v.emit(label, canvas)
}

// Matches draws the older frame (src) and the newer frame (ref) side by side
// with lines between matched keypoints.
func (v *Visualizer) Matches(label string, src gocv.Mat, srcKps []feature.Keypoint,
	ref gocv.Mat, refKps []feature.Keypoint, matches []feature.Match) (string, error) {
	canvas := gocv.NewMat()
	defer canvas.Close()

	mask := make([]byte, len(matches))
	for i := range mask {
		mask[i] = 1
	}
	gocv.DrawMatches(src, vision.ToKeyPoints(srcKps), ref, vision.ToKeyPoints(refKps),
		vision.ToDMatches(matches), &canvas, matchColor, singleColor, mask, gocv.DrawDefault)

	return v.emit(label, canvas)
}

func (v *Visualizer) emit(label string, canvas gocv.Mat) (string, error) {
	if v.window != nil {
		v.window.SetWindowTitle(label)
		v.window.IMShow(canvas)
		v.window.WaitKey(0)
	}

	if v.opts.OutputDir == "" {
		return "", nil
	}
	path := filepath.Join(v.opts.OutputDir, SnapshotName(label, v.counter.Next(label)))
	if err := vision.WriteImage(path, canvas); err != nil {
		return "", fmt.Errorf("save %s snapshot: %w", label, err)
	}
	return path, nil
}

// SnapshotName returns <label>_<n>.jpg.
func SnapshotName(label string, n int) string {
	return fmt.Sprintf("%s_%d.jpg", label, n)
}

// Close destroys the window, if one was opened.
func (v *Visualizer) Close() error {
	if v.window == nil {
		return nil
	}
	return v.window.Close()
}
