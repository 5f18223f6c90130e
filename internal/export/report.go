package export

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/db"
	"github.com/openarmap/capture/internal/fsutil"
)

// WriteQualityReport renders an interactive HTML line chart of the
// per-frame quality scores.
func WriteQualityReport(fs fsutil.FileSystem, path string, session *db.ScanSession, frames []*capture.CapturedFrame) error {
	title := session.Name
	if title == "" {
		title = session.SessionID
	}

	xAxis := make([]string, 0, len(frames))
	overall := make([]opts.LineData, 0, len(frames))
	blur := make([]opts.LineData, 0, len(frames))
	lighting := make([]opts.LineData, 0, len(frames))
	focus := make([]opts.LineData, 0, len(frames))
	for i, f := range frames {
		xAxis = append(xAxis, fmt.Sprintf("%d", i+1))
		overall = append(overall, opts.LineData{Value: f.Quality.OverallScore})
		blur = append(blur, opts.LineData{Value: f.Quality.BlurScore})
		lighting = append(lighting, opts.LineData{Value: f.Quality.LightingScore})
		focus = append(focus, opts.LineData{Value: f.Quality.FocusScore})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scan Quality", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Scan Quality: " + title,
			Subtitle: fmt.Sprintf("session=%s frames=%d", session.SessionID, len(frames)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "Score"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis).
		AddSeries("overall", overall).
		AddSeries("blur", blur).
		AddSeries("lighting", lighting).
		AddSeries("focus", focus)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return fs.WriteFile(path, buf.Bytes(), 0o644)
}
