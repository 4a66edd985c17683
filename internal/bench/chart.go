package bench

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Chart file names written by WriteCharts.
const (
	KeypointsChart = "keypoints.png"
	TimingChart    = "timing.png"
)

var (
	keypointColor = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	timingColor   = color.RGBA{R: 219, G: 68, B: 55, A: 255}
)

// WriteCharts saves a bar chart of in-region keypoints per detector and one
// of total time per combination into dir. It returns the number of charts
// written; nothing is written without successful results.
func WriteCharts(dir string, results []Result) (int, error) {
	detectors := Detectors(results)
	if len(detectors) == 0 {
		return 0, nil
	}

	kpValues := make(plotter.Values, len(detectors))
	kpLabels := make([]string, len(detectors))
	for i, d := range detectors {
		kpValues[i] = d.MeanFiltered
		kpLabels[i] = d.Detector
	}
	if err := saveBars(filepath.Join(dir, KeypointsChart), "Keypoints in focus region", "Keypoints", kpLabels, kpValues, keypointColor); err != nil {
		return 0, err
	}

	fastest := Fastest(results)
	tValues := make(plotter.Values, len(fastest))
	tLabels := make([]string, len(fastest))
	for i, r := range fastest {
		tValues[i] = r.TotalMs()
		tLabels[i] = r.String()
	}
	if err := saveBars(filepath.Join(dir, TimingChart), "Detection + description time", "Time (ms)", tLabels, tValues, timingColor); err != nil {
		return 1, err
	}
	return 2, nil
}

func saveBars(path, title, ylabel string, labels []string, values plotter.Values, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	bars.Color = c
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.8

	width := vg.Length(len(labels))*0.4*vg.Inch + 2*vg.Inch
	if err := p.Save(width, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
