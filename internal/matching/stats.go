package matching

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/camtrack/internal/feature"
)

// Summary describes the distance distribution of a match list.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes distance statistics. An empty list yields a zero Summary.
func Summarize(matches []feature.Match) Summary {
	if len(matches) == 0 {
		return Summary{}
	}
	d := make([]float64, len(matches))
	s := Summary{Count: len(matches), Min: matches[0].Distance, Max: matches[0].Distance}
	for i, m := range matches {
		d[i] = m.Distance
		if m.Distance < s.Min {
			s.Min = m.Distance
		}
		if m.Distance > s.Max {
			s.Max = m.Distance
		}
	}
	s.Mean, s.StdDev = stat.MeanStdDev(d, nil)
	if len(d) == 1 {
		s.StdDev = 0
	}
	return s
}
