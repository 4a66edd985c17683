package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/internal/matching"
)

// NewSearcher validates cfg and builds the OpenCV matcher it describes.
func NewSearcher(cfg matching.Config) (matching.Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Matcher {
	case matching.MatcherBF:
		norm := gocv.NormHamming
		if cfg.ResolvedNorm() == matching.NormL2 {
			norm = gocv.NormL2
		}
		bf := gocv.NewBFMatcherWithParams(norm, cfg.CrossCheck)
		return &bfSearcher{m: &bf}, nil
	case matching.MatcherFLANN:
		fl := gocv.NewFlannBasedMatcher()
		return &flannSearcher{m: &fl}, nil
	default:
		return nil, &feature.ConfigError{Setting: "matcher", Value: string(cfg.Matcher)}
	}
}

type bfSearcher struct {
	m *gocv.BFMatcher
}

func (s *bfSearcher) Match(query, train feature.Descriptors) ([]feature.Match, error) {
	q, t, err := descriptorMats(query, train)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	defer t.Close()

	return fromDMatches(s.m.Match(q, t)), nil
}

func (s *bfSearcher) KnnMatch(query, train feature.Descriptors, k int) ([][]feature.Match, error) {
	q, t, err := descriptorMats(query, train)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	defer t.Close()

	return fromKnn(s.m.KnnMatch(q, t, k)), nil
}

func (s *bfSearcher) Close() error { return s.m.Close() }

// flannSearcher answers NN queries as k=1 KNN queries since the FLANN matcher
// only exposes KnnMatch.
type flannSearcher struct {
	m *gocv.FlannBasedMatcher
}

func (s *flannSearcher) Match(query, train feature.Descriptors) ([]feature.Match, error) {
	knn, err := s.KnnMatch(query, train, 1)
	if err != nil {
		return nil, err
	}
	out := make([]feature.Match, 0, len(knn))
	for _, list := range knn {
		if len(list) > 0 {
			out = append(out, list[0])
		}
	}
	return out, nil
}

func (s *flannSearcher) KnnMatch(query, train feature.Descriptors, k int) ([][]feature.Match, error) {
	if query.Kind != feature.KindFloating || train.Kind != feature.KindFloating {
		return nil, fmt.Errorf("flann: floating descriptors required, got %s and %s", query.Kind, train.Kind)
	}
	q, t, err := descriptorMats(query, train)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	defer t.Close()

	return fromKnn(s.m.KnnMatch(q, t, k)), nil
}

func (s *flannSearcher) Close() error { return s.m.Close() }

func descriptorMats(query, train feature.Descriptors) (gocv.Mat, gocv.Mat, error) {
	q, err := matFromDescriptors(query)
	if err != nil {
		return gocv.Mat{}, gocv.Mat{}, err
	}
	t, err := matFromDescriptors(train)
	if err != nil {
		q.Close()
		return gocv.Mat{}, gocv.Mat{}, err
	}
	return q, t, nil
}

func fromKnn(knn [][]gocv.DMatch) [][]feature.Match {
	out := make([][]feature.Match, len(knn))
	for i, list := range knn {
		out[i] = fromDMatches(list)
	}
	return out
}
