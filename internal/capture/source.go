// Package capture provides the frame sources the tracker reads from: numbered
// image sequences, video files or cameras through GoCV, and a mock for tests.
package capture

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrSourceClosed is returned when reading from a source after Close.
var ErrSourceClosed = errors.New("source is closed")

// Source yields grayscale frames in order. Next returns io.EOF once the input
// is exhausted. The caller owns and closes every returned Mat.
type Source interface {
	Next() (index int, img gocv.Mat, err error)
	Close() error
}
