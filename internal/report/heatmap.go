package report

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// Heatmap geometry. The city bounding box maps onto a square image binned
// into cells; each record with valid coordinates lands in one cell.
const (
	heatmapSize = 900
	gridCells   = 90

	minLat = 41.62
	maxLat = 42.05
	minLon = -87.95
	maxLon = -87.5
)

// RenderHeatmap draws the dig sites as a density map PNG at path: regular
// digs in blue, emergency digs in red, emergencies drawn on top. Records
// without valid coordinates are skipped.
func RenderHeatmap(records []domain.PermitRecord, path string) error {
	var regular, emergency [gridCells][gridCells]int
	plotted := 0
	for _, rec := range records {
		if !rec.HasValidCoordinates() {
			continue
		}
		cx, cy, ok := cellOf(rec.Latitude, rec.Longitude)
		if !ok {
			continue
		}
		if rec.IsEmergency {
			emergency[cy][cx]++
		} else {
			regular[cy][cx]++
		}
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no mappable dig sites")
	}

	maxCount := 1
	for y := 0; y < gridCells; y++ {
		for x := 0; x < gridCells; x++ {
			if n := regular[y][x] + emergency[y][x]; n > maxCount {
				maxCount = n
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, heatmapSize, heatmapSize))
	background := color.RGBA{R: 24, G: 26, B: 32, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = background.R
		img.Pix[i+1] = background.G
		img.Pix[i+2] = background.B
		img.Pix[i+3] = background.A
	}

	cellPx := heatmapSize / gridCells
	for y := 0; y < gridCells; y++ {
		for x := 0; x < gridCells; x++ {
			reg, emg := regular[y][x], emergency[y][x]
			if reg+emg == 0 {
				continue
			}
			// Emergency digs take visual priority over regular ones in the
			// same cell.
			var cell color.RGBA
			if emg > 0 {
				cell = shade(emergencyColorRGBA, emg, maxCount)
			} else {
				cell = shade(regularColorRGBA, reg, maxCount)
			}
			fillCell(img, x, y, cellPx, cell)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create heatmap file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode heatmap: %w", err)
	}
	return nil
}

var (
	regularColorRGBA   = color.RGBA{R: 49, G: 130, B: 189, A: 255}
	emergencyColorRGBA = color.RGBA{R: 222, G: 45, B: 38, A: 255}
)

// cellOf maps coordinates to a grid cell. North is up: higher latitudes map
// to lower y values.
func cellOf(lat, lon float64) (x, y int, ok bool) {
	if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
		return 0, 0, false
	}
	x = int((lon - minLon) / (maxLon - minLon) * gridCells)
	y = int((maxLat - lat) / (maxLat - minLat) * gridCells)
	if x >= gridCells {
		x = gridCells - 1
	}
	if y >= gridCells {
		y = gridCells - 1
	}
	return x, y, true
}

// shade scales the base color's intensity by the cell's share of the busiest
// cell, with a floor so single digs stay visible.
func shade(base color.RGBA, count, maxCount int) color.RGBA {
	intensity := 0.35 + 0.65*float64(count)/float64(maxCount)
	if intensity > 1 {
		intensity = 1
	}
	return color.RGBA{
		R: uint8(float64(base.R) * intensity),
		G: uint8(float64(base.G) * intensity),
		B: uint8(float64(base.B) * intensity),
		A: 255,
	}
}

func fillCell(img *image.RGBA, cx, cy, cellPx int, c color.RGBA) {
	for y := cy * cellPx; y < (cy+1)*cellPx; y++ {
		for x := cx * cellPx; x < (cx+1)*cellPx; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
