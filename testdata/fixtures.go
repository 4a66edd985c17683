// Package testdata generates deterministic grayscale frames for tests, so no
// binary images need to be checked in.
package testdata

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// BlockSize is the edge length of the constant-intensity tiles in a pattern.
const BlockSize = 6

// Pattern returns a w×h row-major 8-bit image made of random-intensity tiles.
// The same seed always produces the same pattern.
func Pattern(w, h int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))

	tilesX := (w + BlockSize - 1) / BlockSize
	tilesY := (h + BlockSize - 1) / BlockSize
	tiles := make([]byte, tilesX*tilesY)
	for i := range tiles {
		tiles[i] = byte(rng.Intn(256))
	}

	px := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px[y*w+x] = tiles[(y/BlockSize)*tilesX+x/BlockSize]
		}
	}
	return px
}

// Crop copies the w×h window at column x0 out of a pattern of width srcW.
func Crop(src []byte, srcW, x0, w, h int) []byte {
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(out[y*w:(y+1)*w], src[y*srcW+x0:y*srcW+x0+w])
	}
	return out
}

// Mat wraps a w×h gray buffer into a CV_8U Mat. The caller closes it.
func Mat(px []byte, w, h int) (gocv.Mat, error) {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	data, err := m.DataPtrUint8()
	if err != nil {
		m.Close()
		return gocv.Mat{}, fmt.Errorf("allocate frame: %w", err)
	}
	copy(data, px)
	return m, nil
}

// ShiftedFrames returns n w×h frames of one textured scene, each shifted
// shift pixels to the left of the one before it. A point at x in frame i is
// found at x-shift in frame i+1.
func ShiftedFrames(w, h, shift, n int, seed int64) ([]*gocv.Mat, error) {
	srcW := w + shift*(n-1)
	scene := Pattern(srcW, h, seed)

	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m, err := Mat(Crop(scene, srcW, i*shift, w, h), w, h)
		if err != nil {
			Close(frames)
			return nil, err
		}
		frames = append(frames, &m)
	}
	return frames, nil
}

// WriteSequence saves frames as dir/prefix + zero-padded index + ext,
// numbering from start.
func WriteSequence(dir, prefix, ext string, fill, start int, frames []*gocv.Mat) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(frames))
	for i, f := range frames {
		p := filepath.Join(dir, fmt.Sprintf("%s%0*d%s", prefix, fill, start+i, ext))
		if ok := gocv.IMWrite(p, *f); !ok {
			return nil, fmt.Errorf("write frame %s", p)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Close releases every frame.
func Close(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
