package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

func TestRenderTrendChart(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var counts []domain.DayCount
	for i := 0; i < 14; i++ {
		counts = append(counts, domain.DayCount{
			Date:      day.AddDate(0, 0, i),
			Total:     10 + i,
			Emergency: i % 4,
			Regular:   10 + i - i%4,
		})
	}

	path := filepath.Join(t.TempDir(), "charts", "trend.png")
	require.NoError(t, RenderTrendChart(counts, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 900, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())
}

func TestRenderTrendChart_NotEnoughData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trend.png")

	err := RenderTrendChart([]domain.DayCount{{Date: time.Now(), Total: 1}}, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderHeatmap(t *testing.T) {
	records := []domain.PermitRecord{
		{Latitude: 41.88, Longitude: -87.63, IsEmergency: false},
		{Latitude: 41.881, Longitude: -87.631, IsEmergency: false},
		{Latitude: 41.95, Longitude: -87.65, IsEmergency: true},
		{Latitude: 0, Longitude: 0},          // no coordinates, skipped
		{Latitude: 45.0, Longitude: -93.0},   // out of bounds, skipped
		{Latitude: 41.88, Longitude: -87.63}, // stacks on the first cell
	}

	path := filepath.Join(t.TempDir(), "maps", "heatmap.png")
	require.NoError(t, RenderHeatmap(records, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, heatmapSize, img.Bounds().Dx())
	assert.Equal(t, heatmapSize, img.Bounds().Dy())
}

func TestRenderHeatmap_NoMappableSites(t *testing.T) {
	records := []domain.PermitRecord{
		{Latitude: 0, Longitude: 0},
	}

	err := RenderHeatmap(records, filepath.Join(t.TempDir(), "heatmap.png"))
	require.Error(t, err)
}

func TestCellOf(t *testing.T) {
	// The Loop lands inside the grid.
	x, y, ok := cellOf(41.88, -87.63)
	require.True(t, ok)
	assert.GreaterOrEqual(t, x, 0)
	assert.Less(t, x, gridCells)
	assert.GreaterOrEqual(t, y, 0)
	assert.Less(t, y, gridCells)

	// North of the box.
	_, _, ok = cellOf(42.5, -87.63)
	assert.False(t, ok)

	// Exact corner clamps into the last cell.
	x, y, ok = cellOf(minLat, maxLon)
	require.True(t, ok)
	assert.Equal(t, gridCells-1, x)
	assert.Equal(t, gridCells-1, y)
}
