package feature

// Rect is an axis-aligned region of interest in pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VehicleRect covers the preceding vehicle in the fixed-mount KITTI camera.
var VehicleRect = Rect{X: 535, Y: 180, Width: 180, Height: 150}

// Contains reports whether (x, y) lies inside r. Both edges are inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// FilterRegion returns the keypoints that fall inside r, in input order.
func FilterRegion(kps []Keypoint, r Rect) []Keypoint {
	out := make([]Keypoint, 0, len(kps))
	for _, kp := range kps {
		if r.Contains(kp.X, kp.Y) {
			out = append(out, kp)
		}
	}
	return out
}
