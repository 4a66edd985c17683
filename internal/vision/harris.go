package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
)

// HarrisParams configures the Harris corner detector.
type HarrisParams struct {
	BlockSize  int
	Aperture   int
	K          float64
	Threshold  float64 // minimum normalised response, 0..255
	MaxOverlap float64
}

// DefaultHarrisParams returns block size 2, aperture 3, k 0.04 and a
// response threshold of 100.
func DefaultHarrisParams() HarrisParams {
	return HarrisParams{BlockSize: 2, Aperture: 3, K: 0.04, Threshold: 100}
}

// Harris computes the corner response R = det(M) - k*trace(M)^2 over a
// BlockSize window of Sobel gradients and keeps local maxima above the
// threshold through overlap suppression.
type Harris struct {
	params HarrisParams
}

// NewHarris creates a Harris detector.
func NewHarris(p HarrisParams) *Harris {
	return &Harris{params: p}
}

func (d *Harris) Detect(img gocv.Mat) ([]feature.Keypoint, error) {
	if img.Empty() {
		return nil, nil
	}

	resp := d.Response(img)
	defer resp.Close()

	rows, cols := resp.Rows(), resp.Cols()
	data := resp.ToBytes()
	size := float64(2 * d.params.Aperture)

	var kps []feature.Keypoint
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r := float64(data[y*cols+x])
			if r < d.params.Threshold {
				continue
			}
			kps = feature.InsertSuppressed(kps, feature.Keypoint{
				X:        float64(x),
				Y:        float64(y),
				Size:     size,
				Response: r,
			}, d.params.MaxOverlap)
		}
	}
	return kps, nil
}

// Response returns the Harris response map normalised to 0..255 as CV_8U.
// The caller closes the returned Mat.
func (d *Harris) Response(img gocv.Mat) gocv.Mat {
	src := gocv.NewMat()
	defer src.Close()
	img.ConvertTo(&src, gocv.MatTypeCV32F)

	dx := gocv.NewMat()
	defer dx.Close()
	dy := gocv.NewMat()
	defer dy.Close()
	gocv.Sobel(src, &dx, gocv.MatTypeCV32F, 1, 0, d.params.Aperture, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &dy, gocv.MatTypeCV32F, 0, 1, d.params.Aperture, 1, 0, gocv.BorderDefault)

	// Structure tensor entries summed over the block window.
	window := image.Pt(d.params.BlockSize, d.params.BlockSize)
	blockSum := func(a, b gocv.Mat) gocv.Mat {
		prod := gocv.NewMat()
		defer prod.Close()
		gocv.Multiply(a, b, &prod)
		out := gocv.NewMat()
		gocv.BoxFilter(prod, &out, -1, window)
		return out
	}
	sxx := blockSum(dx, dx)
	defer sxx.Close()
	syy := blockSum(dy, dy)
	defer syy.Close()
	sxy := blockSum(dx, dy)
	defer sxy.Close()

	det := gocv.NewMat()
	defer det.Close()
	xxyy := gocv.NewMat()
	defer xxyy.Close()
	xy2 := gocv.NewMat()
	defer xy2.Close()
	gocv.Multiply(sxx, syy, &xxyy)
	gocv.Multiply(sxy, sxy, &xy2)
	gocv.Subtract(xxyy, xy2, &det)

	trace := gocv.NewMat()
	defer trace.Close()
	trace2 := gocv.NewMat()
	defer trace2.Close()
	gocv.Add(sxx, syy, &trace)
	gocv.Multiply(trace, trace, &trace2)

	r := gocv.NewMat()
	defer r.Close()
	gocv.AddWeighted(det, 1, trace2, -d.params.K, 0, &r)

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(r, &norm, 0, 255, gocv.NormMinMax)

	out := gocv.NewMat()
	gocv.ConvertScaleAbs(norm, &out, 1, 0)
	return out
}

func (d *Harris) Name() string { return string(DetectorHarris) }

func (d *Harris) Close() error { return nil }
