package matching

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/camtrack/internal/feature"
)

// binaryTable builds a one-byte-per-row binary table.
func binaryTable(rows ...byte) feature.Descriptors {
	return feature.NewBinaryDescriptors(len(rows), 1, rows)
}

func floatTable(cols int, rows ...[]float32) feature.Descriptors {
	var values []float32
	for _, r := range rows {
		values = append(values, r...)
	}
	return feature.NewFloatingDescriptors(len(rows), cols, values)
}

func TestRatioFilter(t *testing.T) {
	knn := [][]feature.Match{
		{{Source: 0, Reference: 3, Distance: 10}, {Source: 0, Reference: 1, Distance: 20}},
		{{Source: 1, Reference: 0, Distance: 9}, {Source: 1, Reference: 2, Distance: 10}},
		{{Source: 2, Reference: 4, Distance: 1}},
		{},
		{{Source: 4, Reference: 2, Distance: 8}, {Source: 4, Reference: 5, Distance: 10}},
	}

	got := RatioFilter(knn, 0.8)

	want := []feature.Match{{Source: 0, Reference: 3, Distance: 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RatioFilter mismatch (-want +got):\n%s", diff)
	}
}

func TestRatioFilter_StrictInequality(t *testing.T) {
	knn := [][]feature.Match{
		{{Distance: 8}, {Distance: 10}},
	}
	assert.Empty(t, RatioFilter(knn, 0.8))
	assert.Len(t, RatioFilter(knn, 0.81), 1)
}

func TestRatioFilter_MonotonicInRatio(t *testing.T) {
	var knn [][]feature.Match
	for i := 0; i < 40; i++ {
		knn = append(knn, []feature.Match{
			{Source: i, Reference: i, Distance: float64(i % 13)},
			{Source: i, Reference: i + 1, Distance: float64(i%7) + 6},
		})
	}

	prev := 0
	for _, r := range []float64{0.1, 0.3, 0.5, 0.7, 0.8, 0.9, 1.0} {
		n := len(RatioFilter(knn, r))
		assert.GreaterOrEqual(t, n, prev, "ratio %.1f", r)
		prev = n
	}
}

func randomBinaryTable(rng *rand.Rand, rows, cols int) feature.Descriptors {
	bits := make([]byte, rows*cols)
	rng.Read(bits)
	return feature.NewBinaryDescriptors(rows, cols, bits)
}

func TestSelect_KNNSubsetInRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ratios := []float64{0.2, 0.5, 0.7, 0.8, 0.9, 1.0}
	s := NewLinear(NormAuto, false)

	for trial := 0; trial < 200; trial++ {
		src := randomBinaryTable(rng, 1+rng.Intn(12), 4)
		ref := randomBinaryTable(rng, 1+rng.Intn(12), 4)

		var prev []feature.Match
		for i, r := range ratios {
			cfg := DefaultConfig(feature.KindBinary)
			cfg.Ratio = r
			got, err := Select(s, cfg, src, ref)
			require.NoError(t, err)

			accepted := make(map[feature.Match]bool, len(got))
			for _, m := range got {
				accepted[m] = true
			}
			if i > 0 {
				for _, m := range prev {
					assert.True(t, accepted[m], "trial %d: %+v kept at ratio %.1f but not at %.1f", trial, m, ratios[i-1], r)
				}
			}
			prev = got
		}
	}
}

func TestSelect_NNOneMatchPerSource(t *testing.T) {
	src := binaryTable(0x00, 0x0F, 0xF0, 0xFF, 0x3C)
	ref := binaryTable(0x01, 0xFF, 0x0E)

	cfg := DefaultConfig(feature.KindBinary)
	cfg.Selector = SelectorNN

	got, err := Select(NewLinear(NormAuto, false), cfg, src, ref)
	require.NoError(t, err)
	require.Len(t, got, src.Len())

	for i, m := range got {
		assert.Equal(t, i, m.Source)
		assert.GreaterOrEqual(t, m.Reference, 0)
		assert.Less(t, m.Reference, ref.Len())
	}
	assert.Equal(t, feature.Match{Source: 3, Reference: 1, Distance: 0}, got[3])
}

func TestSelect_EmptyInputsYieldNoMatches(t *testing.T) {
	s := NewLinear(NormAuto, false)
	empty := feature.Descriptors{Kind: feature.KindBinary}
	full := binaryTable(0x01, 0x02)

	for _, sel := range []SelectorType{SelectorNN, SelectorKNN} {
		cfg := DefaultConfig(feature.KindBinary)
		cfg.Selector = sel

		got, err := Select(s, cfg, full, empty)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = Select(s, cfg, empty, full)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSelect_KNNSingleReferenceYieldsNothing(t *testing.T) {
	src := binaryTable(0x01, 0x02, 0x03)
	ref := binaryTable(0x01)

	got, err := Select(NewLinear(NormAuto, false), DefaultConfig(feature.KindBinary), src, ref)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_KNNKeepsDistinctiveMatches(t *testing.T) {
	src := floatTable(2, []float32{0, 0}, []float32{5, 5})
	ref := floatTable(2, []float32{0.1, 0}, []float32{10, 10}, []float32{4.9, 5}, []float32{5.1, 5})

	got, err := Select(NewLinear(NormAuto, false), DefaultConfig(feature.KindFloating), src, ref)
	require.NoError(t, err)

	// Row 1 has two equally close candidates and fails the ratio test.
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Source)
	assert.Equal(t, 0, got[0].Reference)
	assert.InDelta(t, 0.1, got[0].Distance, 1e-6)
}

func TestSelect_KindMismatch(t *testing.T) {
	_, err := Select(NewLinear(NormAuto, false), DefaultConfig(feature.KindBinary),
		binaryTable(0x01), floatTable(1, []float32{1}))
	assert.Error(t, err)
}
