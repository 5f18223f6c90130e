package export

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/fsutil"
)

// WriteQualityPlot renders the per-frame quality scores over the session
// as a PNG line chart.
func WriteQualityPlot(fs fsutil.FileSystem, path string, frames []*capture.CapturedFrame) error {
	p := plot.New()
	p.Title.Text = "Frame Quality"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 100

	series := []struct {
		name  string
		color color.RGBA
		value func(f *capture.CapturedFrame) float64
	}{
		{"overall", color.RGBA{R: 31, G: 119, B: 180, A: 255}, func(f *capture.CapturedFrame) float64 { return f.Quality.OverallScore }},
		{"blur", color.RGBA{R: 255, G: 127, B: 14, A: 255}, func(f *capture.CapturedFrame) float64 { return f.Quality.BlurScore }},
		{"lighting", color.RGBA{R: 44, G: 160, B: 44, A: 255}, func(f *capture.CapturedFrame) float64 { return f.Quality.LightingScore }},
		{"focus", color.RGBA{R: 214, G: 39, B: 40, A: 255}, func(f *capture.CapturedFrame) float64 { return f.Quality.FocusScore }},
	}

	for _, s := range series {
		pts := make(plotter.XYs, 0, len(frames))
		for i, f := range frames {
			pts = append(pts, plotter.XY{X: float64(i + 1), Y: s.value(f)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("line %s: %w", s.name, err)
		}
		line.Width = vg.Points(1)
		line.Color = s.color
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	return fs.WriteFile(path, buf.Bytes(), 0o644)
}
