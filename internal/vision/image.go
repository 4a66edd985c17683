// Package vision adapts OpenCV (through gocv) to the keypoint tracker:
// detector and extractor selection, descriptor matching and image I/O.
package vision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
)

// ReadGray loads an image as single-channel grayscale. An unreadable or
// missing file yields a *feature.ResourceError together with the empty Mat,
// which the caller still closes.
func ReadGray(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		return mat, &feature.ResourceError{Path: path, Err: errors.New("empty image")}
	}
	return mat, nil
}

// WriteImage saves img, creating the parent directory when needed.
func WriteImage(path string, img gocv.Mat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("write image %s", path)
	}
	return nil
}

// ToGray returns a single-channel copy of src.
func ToGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return dst
}
