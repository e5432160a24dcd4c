package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/analytics"
)

func hour(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
}

func TestCleanDropsInvalidAndSorts(t *testing.T) {
	ts := []time.Time{hour(2), hour(0), hour(1), hour(1), hour(3), hour(4)}
	cl := []float64{102, 100, 101, 999, -5, math.NaN()}

	ps, err := Clean("BTCUSDT", ts, cl, DefaultCleanOptions())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{hour(0), hour(1), hour(2)}, ps.Timestamps)
	assert.Equal(t, []float64{100, 101, 102}, ps.Values)
}

func TestCleanIQRRemovesSpike(t *testing.T) {
	var ts []time.Time
	var cl []float64
	for i := 0; i < 30; i++ {
		ts = append(ts, hour(i))
		cl = append(cl, 100+float64(i%5))
	}
	cl[17] = 1000

	ps, err := Clean("BTCUSDT", ts, cl, CleanOptions{IQR: true, K: 1.5, MinPoints: 20})
	require.NoError(t, err)
	assert.Equal(t, 29, ps.Len())
	assert.NotContains(t, ps.Values, 1000.0)

	short, err := Clean("BTCUSDT", ts[:10], append([]float64{1000}, cl[1:10]...), CleanOptions{IQR: true, K: 1.5, MinPoints: 20})
	require.NoError(t, err)
	assert.Equal(t, 10, short.Len())
}

func TestSyntheticDeterministic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	a := Synthetic{}.FetchPriceSeries(context.Background(), "BTCUSDT", start, end, "1d")
	b := Synthetic{}.FetchPriceSeries(context.Background(), "BTCUSDT", start, end, "1d")
	c := Synthetic{}.FetchPriceSeries(context.Background(), "ETHUSDT", start, end, "1d")

	require.Equal(t, 10, a.Len())
	assert.Equal(t, a.Values, b.Values)
	assert.NotEqual(t, a.Values, c.Values)
	assert.Equal(t, start, a.Timestamps[0])

	assert.Equal(t, 0, Synthetic{}.FetchPriceSeries(context.Background(), "BTCUSDT", start, end, "bogus").Len())
}

type stubSource map[string]analytics.PriceSeries

func (s stubSource) FetchPriceSeries(_ context.Context, symbol string, _, _ time.Time, _ string) analytics.PriceSeries {
	if ps, ok := s[symbol]; ok {
		return ps
	}
	return analytics.PriceSeries{Symbol: symbol}
}

func TestFetchAllReportsMissing(t *testing.T) {
	btc, err := analytics.NewPriceSeries("BTCUSDT", []time.Time{hour(0), hour(1)}, []float64{1, 2})
	require.NoError(t, err)
	src := stubSource{"BTCUSDT": btc}

	series, missing := FetchAll(context.Background(), src, []string{"BTCUSDT", "DOGEUSDT"}, hour(0), hour(2), "1h")
	require.Len(t, series, 1)
	assert.Equal(t, "BTCUSDT", series[0].Symbol)
	assert.Equal(t, []string{"DOGEUSDT"}, missing)
}

func TestIQRFences(t *testing.T) {
	lo, hi, ok := iqrFences([]float64{5, 1, 4, 2, 3}, 1.5)
	require.True(t, ok)
	assert.InDelta(t, -1.0, lo, 1e-12)
	assert.InDelta(t, 7.0, hi, 1e-12)

	_, _, ok = iqrFences([]float64{3, 3, 3, 3}, 1.5)
	assert.False(t, ok)
	_, _, ok = iqrFences(nil, 1.5)
	assert.False(t, ok)
}
