// Package matching configures descriptor matching between two frames and
// turns raw nearest-neighbour results into the final match list.
package matching

import (
	"fmt"
	"strings"

	"github.com/ayusman/camtrack/internal/feature"
)

// MatcherType selects the nearest-neighbour search family.
type MatcherType string

const (
	// MatcherBF is exhaustive brute-force search.
	MatcherBF MatcherType = "MAT_BF"
	// MatcherFLANN is approximate search over a FLANN index.
	MatcherFLANN MatcherType = "MAT_FLANN"
)

// SelectorType selects how matches are picked from the search results.
type SelectorType string

const (
	// SelectorNN keeps the single nearest reference for every source descriptor.
	SelectorNN SelectorType = "SEL_NN"
	// SelectorKNN queries the two nearest references and applies the ratio test.
	SelectorKNN SelectorType = "SEL_KNN"
)

// Norm is the distance metric used by a searcher.
type Norm string

const (
	// NormAuto derives the metric from the descriptor kind.
	NormAuto    Norm = ""
	NormHamming Norm = "NORM_HAMMING"
	NormL2      Norm = "NORM_L2"
)

// DefaultRatio is the nearest/second-nearest distance ratio for SEL_KNN.
const DefaultRatio = 0.8

// Config describes one matcher/selector combination.
type Config struct {
	Matcher    MatcherType
	Selector   SelectorType
	Kind       feature.DescriptorKind
	Norm       Norm
	CrossCheck bool
	Ratio      float64
}

// DefaultConfig returns brute-force KNN matching with the ratio test for the
// given descriptor kind.
func DefaultConfig(kind feature.DescriptorKind) Config {
	return Config{
		Matcher:  MatcherBF,
		Selector: SelectorKNN,
		Kind:     kind,
		Norm:     NormAuto,
		Ratio:    DefaultRatio,
	}
}

// ParseMatcherType maps a configuration name to a MatcherType.
func ParseMatcherType(s string) (MatcherType, error) {
	switch m := MatcherType(strings.ToUpper(strings.TrimSpace(s))); m {
	case MatcherBF, MatcherFLANN:
		return m, nil
	}
	return "", &feature.ConfigError{Setting: "matcher", Value: s, Reason: "want MAT_BF or MAT_FLANN"}
}

// ParseSelectorType maps a configuration name to a SelectorType.
func ParseSelectorType(s string) (SelectorType, error) {
	switch sel := SelectorType(strings.ToUpper(strings.TrimSpace(s))); sel {
	case SelectorNN, SelectorKNN:
		return sel, nil
	}
	return "", &feature.ConfigError{Setting: "selector", Value: s, Reason: "want SEL_NN or SEL_KNN"}
}

// ParseNorm maps a configuration name to a Norm. The empty string and "AUTO"
// both mean NormAuto.
func ParseNorm(s string) (Norm, error) {
	switch n := strings.ToUpper(strings.TrimSpace(s)); n {
	case "", "AUTO", "NORM_AUTO":
		return NormAuto, nil
	case string(NormHamming), string(NormL2):
		return Norm(n), nil
	}
	return "", &feature.ConfigError{Setting: "norm", Value: s, Reason: "want NORM_HAMMING or NORM_L2"}
}

// ResolvedNorm returns the metric the searcher must use.
func (c Config) ResolvedNorm() Norm {
	if c.Norm != NormAuto {
		return c.Norm
	}
	if c.Kind == feature.KindFloating {
		return NormL2
	}
	return NormHamming
}

// Validate rejects unknown settings and combinations whose distance metric
// does not fit the descriptor kind.
func (c Config) Validate() error {
	if _, err := ParseMatcherType(string(c.Matcher)); err != nil {
		return err
	}
	if _, err := ParseSelectorType(string(c.Selector)); err != nil {
		return err
	}
	if c.Kind != feature.KindBinary && c.Kind != feature.KindFloating {
		return &feature.ConfigError{Setting: "descriptor kind", Value: c.Kind.String()}
	}

	switch c.Norm {
	case NormAuto:
	case NormHamming:
		if c.Kind == feature.KindFloating {
			return &feature.ConfigError{
				Setting: "norm",
				Value:   string(c.Norm),
				Reason:  "floating descriptors need NORM_L2",
			}
		}
	case NormL2:
		if c.Kind == feature.KindBinary {
			return &feature.ConfigError{
				Setting: "norm",
				Value:   string(c.Norm),
				Reason:  "binary descriptors need NORM_HAMMING",
			}
		}
	default:
		return &feature.ConfigError{Setting: "norm", Value: string(c.Norm)}
	}

	if c.Matcher == MatcherFLANN && c.Kind == feature.KindBinary {
		return &feature.ConfigError{
			Setting: "matcher",
			Value:   string(c.Matcher),
			Reason:  "the FLANN index is L2-only; use MAT_BF for binary descriptors",
		}
	}

	if c.CrossCheck && (c.Selector == SelectorKNN || c.Matcher == MatcherFLANN) {
		return &feature.ConfigError{
			Setting: "cross-check",
			Value:   "true",
			Reason:  fmt.Sprintf("only supported with %s and %s", MatcherBF, SelectorNN),
		}
	}

	if c.Selector == SelectorKNN && (c.Ratio <= 0 || c.Ratio > 1) {
		return &feature.ConfigError{
			Setting: "ratio",
			Value:   fmt.Sprintf("%g", c.Ratio),
			Reason:  "must be in (0, 1]",
		}
	}

	return nil
}
