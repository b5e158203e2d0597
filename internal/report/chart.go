package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

var (
	regularColor   = drawing.Color{R: 49, G: 130, B: 189, A: 255}
	emergencyColor = drawing.Color{R: 222, G: 45, B: 38, A: 255}
)

// RenderTrendChart draws regular and emergency permit counts per day as a
// PNG at path. At least two days of data are required to draw a line.
func RenderTrendChart(counts []domain.DayCount, path string) error {
	if len(counts) < 2 {
		return fmt.Errorf("need at least 2 days of counts, got %d", len(counts))
	}

	dates := make([]time.Time, len(counts))
	regular := make([]float64, len(counts))
	emergency := make([]float64, len(counts))
	for i, dc := range counts {
		dates[i] = dc.Date
		regular[i] = float64(dc.Regular)
		emergency[i] = float64(dc.Emergency)
	}

	graph := chart.Chart{
		Title:  "Dig Permits by Day",
		Width:  900,
		Height: 450,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Regular",
				XValues: dates,
				YValues: regular,
				Style: chart.Style{
					StrokeColor: regularColor,
					StrokeWidth: 2.5,
				},
			},
			chart.TimeSeries{
				Name:    "Emergency",
				XValues: dates,
				YValues: emergency,
				Style: chart.Style{
					StrokeColor: emergencyColor,
					StrokeWidth: 2.5,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
