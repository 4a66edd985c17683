package feature

import (
	"math"
	"sort"
)

// Overlap returns the intersection-over-union of the circular support regions
// of two keypoints (diameter = Size). Zero-size keypoints never overlap.
func Overlap(a, b Keypoint) float64 {
	ra, rb := a.Size*0.5, b.Size*0.5
	if ra <= 0 || rb <= 0 {
		return 0
	}
	ra2, rb2 := ra*ra, rb*rb
	c := math.Hypot(a.X-b.X, a.Y-b.Y)

	// One circle inside the other.
	if math.Min(ra, rb)+c <= math.Max(ra, rb) {
		return math.Min(ra2, rb2) / math.Max(ra2, rb2)
	}
	if c >= ra+rb {
		return 0
	}

	c2 := c * c
	alpha := math.Acos((c2 + ra2 - rb2) / (2 * ra * c))
	beta := math.Acos((c2 + rb2 - ra2) / (2 * rb * c))
	inter := ra2*(alpha-0.5*math.Sin(2*alpha)) + rb2*(beta-0.5*math.Sin(2*beta))
	union := (ra2+rb2)*math.Pi - inter
	return inter / union
}

// InsertSuppressed adds cand to kps with overlap-based non-maximum suppression.
// If cand overlaps an accepted keypoint by more than maxOverlap it replaces
// that keypoint when its response is strictly higher and is dropped otherwise.
func InsertSuppressed(kps []Keypoint, cand Keypoint, maxOverlap float64) []Keypoint {
	for i := range kps {
		if Overlap(cand, kps[i]) > maxOverlap {
			if cand.Response > kps[i].Response {
				kps[i] = cand
			}
			return kps
		}
	}
	return append(kps, cand)
}

// SuppressOverlap feeds candidates through InsertSuppressed in order.
func SuppressOverlap(cands []Keypoint, maxOverlap float64) []Keypoint {
	var kps []Keypoint
	for _, c := range cands {
		kps = InsertSuppressed(kps, c, maxOverlap)
	}
	return kps
}

// RetainBest keeps the n keypoints with the highest response. Survivors keep
// their original relative order. n <= 0 or n >= len(kps) returns kps as is.
func RetainBest(kps []Keypoint, n int) []Keypoint {
	if n <= 0 || n >= len(kps) {
		return kps
	}

	idx := make([]int, len(kps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return kps[idx[i]].Response > kps[idx[j]].Response
	})
	idx = idx[:n]
	sort.Ints(idx)

	out := make([]Keypoint, n)
	for i, k := range idx {
		out[i] = kps[k]
	}
	return out
}
