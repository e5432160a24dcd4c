package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/storage"
)

func testUsage() map[string]*storage.UsageStats {
	return map[string]*storage.UsageStats{
		CategoryAsset:     {Count: 3, Commands: map[string]int{"/asset": 3}},
		CategoryPortfolio: {Count: 1, Commands: map[string]int{"/portfolio": 1}},
	}
}

func TestFormatUsage(t *testing.T) {
	out := FormatUsage(testUsage(), 7)
	assert.Contains(t, out, "Total commands: 4")
	assert.Contains(t, out, "📈 Asset Analysis (3 commands, 75.0%)")
	assert.Contains(t, out, "  • /portfolio: 1")

	assert.Equal(t, "No usage data available for the specified period.", FormatUsage(nil, 7))
}

func TestRenderUsageCharts(t *testing.T) {
	img, err := RenderUsagePie(testUsage(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	series := map[string][]storage.TimeSeriesPoint{
		CategoryAsset:     {{Timestamp: base, Count: 2}, {Timestamp: base + 3600, Count: 1}},
		CategoryPortfolio: {{Timestamp: base + 3600, Count: 1}},
	}
	img, err = RenderUsageSeries(series, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	_, err = RenderUsagePie(nil, 7)
	assert.Error(t, err)
}
