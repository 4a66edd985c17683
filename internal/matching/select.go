package matching

import (
	"fmt"

	"github.com/ayusman/camtrack/internal/feature"
)

// Searcher answers nearest-neighbour queries from query rows into train rows.
// Returned matches use the query index as Source and the train index as
// Reference. KnnMatch lists are sorted by ascending distance.
type Searcher interface {
	Match(query, train feature.Descriptors) ([]feature.Match, error)
	KnnMatch(query, train feature.Descriptors, k int) ([][]feature.Match, error)
	Close() error
}

// Select matches the older frame's descriptors (src) against the newer
// frame's (ref) following cfg.Selector. The result follows src order; an
// empty result is not an error.
func Select(s Searcher, cfg Config, src, ref feature.Descriptors) ([]feature.Match, error) {
	if src.Empty() || ref.Empty() {
		return nil, nil
	}
	if src.Kind != ref.Kind {
		return nil, fmt.Errorf("descriptor kinds differ: %s vs %s", src.Kind, ref.Kind)
	}

	switch cfg.Selector {
	case SelectorNN:
		return s.Match(src, ref)
	case SelectorKNN:
		knn, err := s.KnnMatch(src, ref, 2)
		if err != nil {
			return nil, err
		}
		return RatioFilter(knn, cfg.Ratio), nil
	default:
		return nil, &feature.ConfigError{Setting: "selector", Value: string(cfg.Selector)}
	}
}

// RatioFilter keeps the nearest neighbour of every list whose best distance is
// below ratio times the second-best one. Lists with fewer than two candidates
// are dropped.
func RatioFilter(knn [][]feature.Match, ratio float64) []feature.Match {
	var good []feature.Match
	for _, m := range knn {
		if len(m) >= 2 && m[0].Distance < ratio*m[1].Distance {
			good = append(good, m[0])
		}
	}
	return good
}
