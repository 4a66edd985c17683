package capture

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/vision"
)

// ErrVideoNotOpen is returned when reading from a video source that failed
// to open or was closed.
var ErrVideoNotOpen = errors.New("video source is not open")

// frameReader is the part of gocv.VideoCapture a VideoSource reads from.
type frameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// VideoSource reads frames from a camera device or a video file and converts
// them to grayscale. Frame indices count the frames returned, from 0.
type VideoSource struct {
	device  string
	capture frameReader
	still   *StillFilter
	mu      sync.Mutex
	index   int
	maxRead int
}

// VideoOptions tunes a VideoSource.
type VideoOptions struct {
	// MaxFrames stops the source after that many frames; 0 means no limit.
	MaxFrames int
	// MinChange drops frames whose changed-pixel percentage against the last
	// kept frame is at or below it; 0 keeps every frame.
	MinChange float64
}

// OpenVideo opens device, which is either a numeric camera id or a file path.
func OpenVideo(device string, opts VideoOptions) (*VideoSource, error) {
	var target interface{} = device
	if id, err := strconv.Atoi(device); err == nil {
		target = id
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %s: %w", device, ErrVideoNotOpen)
	}

	return newVideoSource(device, vc, opts), nil
}

func newVideoSource(device string, r frameReader, opts VideoOptions) *VideoSource {
	v := &VideoSource{device: device, capture: r, maxRead: opts.MaxFrames}
	if opts.MinChange > 0 {
		v.still = NewStillFilter(opts.MinChange)
	}
	return v
}

// Next returns the next kept frame. The end of a file yields io.EOF.
func (v *VideoSource) Next() (int, gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return 0, gocv.Mat{}, ErrVideoNotOpen
	}
	if v.maxRead > 0 && v.index >= v.maxRead {
		return 0, gocv.Mat{}, io.EOF
	}

	frame := gocv.NewMat()
	defer frame.Close()
	for {
		if ok := v.capture.Read(&frame); !ok || frame.Empty() {
			return 0, gocv.Mat{}, io.EOF
		}

		gray := vision.ToGray(frame)
		if v.still != nil {
			if keep, _ := v.still.Keep(gray); !keep {
				gray.Close()
				continue
			}
		}

		index := v.index
		v.index++
		return index, gray, nil
	}
}

// Close releases the capture device.
func (v *VideoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil
	}
	err := v.capture.Close()
	v.capture = nil
	if v.still != nil {
		v.still.Close()
	}
	return err
}
