package matching

import (
	"fmt"
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/camtrack/internal/feature"
)

// Linear is an exhaustive searcher implemented without OpenCV. It computes
// the same distances as the brute-force matcher and is used where a native
// matcher is unavailable or undesirable, such as in unit tests.
type Linear struct {
	norm       Norm
	crossCheck bool
}

// NewLinear creates a linear searcher for the given metric. NormAuto picks
// the metric from the query descriptors on every call.
func NewLinear(norm Norm, crossCheck bool) *Linear {
	return &Linear{norm: norm, crossCheck: crossCheck}
}

// Match returns the nearest train row for every query row. With cross-check
// enabled a pair survives only when the query row is also the nearest
// neighbour of its train row.
func (l *Linear) Match(query, train feature.Descriptors) ([]feature.Match, error) {
	dist, err := l.distances(query, train)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, nil
	}

	best := func(row []float64) int {
		b := 0
		for j := 1; j < len(row); j++ {
			if row[j] < row[b] {
				b = j
			}
		}
		return b
	}

	out := make([]feature.Match, 0, query.Rows)
	for i, row := range dist {
		j := best(row)
		if l.crossCheck {
			col := make([]float64, query.Rows)
			for q := range col {
				col[q] = dist[q][j]
			}
			if best(col) != i {
				continue
			}
		}
		out = append(out, feature.Match{Source: i, Reference: j, Distance: row[j]})
	}
	return out, nil
}

// KnnMatch returns up to k nearest train rows for every query row, closest
// first. Ties keep the lower train index first.
func (l *Linear) KnnMatch(query, train feature.Descriptors, k int) ([][]feature.Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("knn: k must be positive, got %d", k)
	}
	dist, err := l.distances(query, train)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, nil
	}

	out := make([][]feature.Match, len(dist))
	for i, row := range dist {
		idx := make([]int, len(row))
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool { return row[idx[a]] < row[idx[b]] })
		if len(idx) > k {
			idx = idx[:k]
		}
		list := make([]feature.Match, len(idx))
		for n, j := range idx {
			list[n] = feature.Match{Source: i, Reference: j, Distance: row[j]}
		}
		out[i] = list
	}
	return out, nil
}

// Close implements Searcher; Linear holds no native resources.
func (l *Linear) Close() error {
	return nil
}

func (l *Linear) distances(query, train feature.Descriptors) ([][]float64, error) {
	if query.Empty() || train.Empty() {
		return nil, nil
	}
	if query.Kind != train.Kind {
		return nil, fmt.Errorf("descriptor kinds differ: %s vs %s", query.Kind, train.Kind)
	}
	if query.Cols != train.Cols {
		return nil, fmt.Errorf("descriptor widths differ: %d vs %d", query.Cols, train.Cols)
	}

	norm := l.norm
	if norm == NormAuto {
		norm = Config{Kind: query.Kind}.ResolvedNorm()
	}

	dist := make([][]float64, query.Rows)
	switch norm {
	case NormHamming:
		if query.Kind != feature.KindBinary {
			return nil, fmt.Errorf("hamming distance needs binary descriptors, got %s", query.Kind)
		}
		for i := range dist {
			q := query.BinaryRow(i)
			row := make([]float64, train.Rows)
			for j := range row {
				row[j] = float64(hamming(q, train.BinaryRow(j)))
			}
			dist[i] = row
		}
	case NormL2:
		if query.Kind != feature.KindFloating {
			return nil, fmt.Errorf("L2 distance needs floating descriptors, got %s", query.Kind)
		}
		tv := make([][]float64, train.Rows)
		for j := range tv {
			tv[j] = widen(train.FloatRow(j))
		}
		for i := range dist {
			q := widen(query.FloatRow(i))
			row := make([]float64, train.Rows)
			for j := range row {
				row[j] = floats.Distance(q, tv[j], 2)
			}
			dist[i] = row
		}
	default:
		return nil, fmt.Errorf("unsupported norm %q", norm)
	}
	return dist, nil
}

func hamming(a, b []byte) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
