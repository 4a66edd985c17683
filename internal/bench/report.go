package bench

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Report file names written by WriteCSV.
const (
	DetectorsFile = "detectors.csv"
	MatchersFile  = "matchers.csv"
	TimingFile    = "timing.csv"
)

// DetectorSummary averages the successful combinations of one detector.
type DetectorSummary struct {
	Detector      string
	Combinations  int
	MeanKeypoints float64
	MeanFiltered  float64
	MeanSize      float64
	SizeRMS       float64
	DetectMs      float64
}

// Detectors summarises results per detector in first-seen order. Detectors
// without a successful combination are omitted.
func Detectors(results []Result) []DetectorSummary {
	var order []string
	groups := map[string][]Result{}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		name := string(r.Detector)
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], r)
	}

	out := make([]DetectorSummary, 0, len(order))
	for _, name := range order {
		g := groups[name]
		mean := func(f func(Result) float64) float64 {
			v := make([]float64, len(g))
			for i, r := range g {
				v[i] = f(r)
			}
			return stat.Mean(v, nil)
		}
		out = append(out, DetectorSummary{
			Detector:      name,
			Combinations:  len(g),
			MeanKeypoints: mean(func(r Result) float64 { return r.MeanKeypoints }),
			MeanFiltered:  mean(func(r Result) float64 { return r.MeanFiltered }),
			MeanSize:      mean(func(r Result) float64 { return r.MeanSize }),
			SizeRMS:       mean(func(r Result) float64 { return r.SizeRMS }),
			DetectMs:      mean(func(r Result) float64 { return r.DetectMs }),
		})
	}
	return out
}

// Fastest returns the successful results ordered by TotalMs, fastest first.
func Fastest(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.OK() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalMs() < out[j].TotalMs() })
	return out
}

// WriteCSV writes the detector, matcher and timing tables into dir.
func WriteCSV(dir string, results []Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	detectors := [][]string{{"detector", "combinations", "keypoints", "filtered", "mean_size", "size_rms", "detect_ms"}}
	for _, d := range Detectors(results) {
		detectors = append(detectors, []string{
			d.Detector,
			strconv.Itoa(d.Combinations),
			ftoa(d.MeanKeypoints),
			ftoa(d.MeanFiltered),
			ftoa(d.MeanSize),
			ftoa(d.SizeRMS),
			ftoa(d.DetectMs),
		})
	}

	matchers := [][]string{{"detector", "descriptor", "frames", "descriptors", "matches", "match_ms", "error"}}
	for _, r := range results {
		row := []string{string(r.Detector), string(r.Descriptor), strconv.Itoa(r.Frames)}
		if r.OK() {
			row = append(row, ftoa(r.MeanDescriptor), ftoa(r.MeanMatches), ftoa(r.MatchMs), "")
		} else {
			row = append(row, "", "", "", r.Err.Error())
		}
		matchers = append(matchers, row)
	}

	timing := [][]string{{"detector", "descriptor", "detect_ms", "describe_ms", "total_ms"}}
	for _, r := range Fastest(results) {
		timing = append(timing, []string{
			string(r.Detector),
			string(r.Descriptor),
			ftoa(r.DetectMs),
			ftoa(r.DescribeMs),
			ftoa(r.TotalMs()),
		})
	}

	for name, rows := range map[string][][]string{
		DetectorsFile: detectors,
		MatchersFile:  matchers,
		TimingFile:    timing,
	} {
		if err := writeRows(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}
	return nil
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
