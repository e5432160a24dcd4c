package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func mustPrices(t *testing.T, symbol string, offset int, values ...float64) PriceSeries {
	t.Helper()
	ts := make([]time.Time, len(values))
	for i := range values {
		ts[i] = day(offset + i)
	}
	ps, err := NewPriceSeries(symbol, ts, values)
	require.NoError(t, err)
	return ps
}

func series(values ...float64) Series {
	s := Series{Timestamps: make([]time.Time, len(values)), Values: values}
	for i := range values {
		s.Timestamps[i] = day(i)
	}
	return s
}

func TestNewPriceSeriesRejectsBadInput(t *testing.T) {
	_, err := NewPriceSeries("BTCUSDT", []time.Time{day(0), day(1)}, []float64{100, -1})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, err = NewPriceSeries("BTCUSDT", []time.Time{day(1), day(0)}, []float64{100, 101})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, err = NewPriceSeries("BTCUSDT", []time.Time{day(0)}, []float64{100, 101})
	assert.ErrorIs(t, err, ErrInvalidSeries)
}

func TestComputeReturns(t *testing.T) {
	p := mustPrices(t, "BTCUSDT", 0, 100, 110, 99)
	r, err := ComputeReturns(p.Series)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	assert.InDelta(t, 0.1, r.Values[0], 1e-12)
	assert.InDelta(t, -0.1, r.Values[1], 1e-12)
	assert.Equal(t, day(1), r.Timestamps[0])
	assert.Equal(t, day(2), r.Timestamps[1])

	_, err = ComputeReturns(mustPrices(t, "BTCUSDT", 0, 100).Series)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCumulativeValueRoundTrip(t *testing.T) {
	p := mustPrices(t, "ETHUSDT", 0, 100, 105, 98, 120, 119.5, 87.25)
	r, err := ComputeReturns(p.Series)
	require.NoError(t, err)

	v := CumulativeValue(r, p.Values[0])
	require.Equal(t, len(p.Values)-1, v.Len())
	for i := range v.Values {
		assert.InDelta(t, p.Values[i+1], v.Values[i], 1e-9)
	}
}

func TestCumulativeValueTotalLoss(t *testing.T) {
	v := CumulativeValue(series(0.1, -1, 0.5), 1)
	assert.InDelta(t, 1.1, v.Values[0], 1e-12)
	assert.Equal(t, 0.0, v.Values[1])
	assert.Equal(t, 0.0, v.Values[2])
}

func TestMaxDrawdown(t *testing.T) {
	mdd, err := MaxDrawdown(series(100, 120, 90, 130, 117))
	require.NoError(t, err)
	assert.InDelta(t, -0.25, mdd, 1e-12)

	mdd, err = MaxDrawdown(series(1, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, mdd)

	_, err = MaxDrawdown(Series{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnnualizedVolatility(t *testing.T) {
	vol := AnnualizedVolatility(series(0.01, -0.01, 0.02, 0), 252)
	require.True(t, vol.Defined)
	assert.InDelta(t, math.Sqrt(5e-4/3)*math.Sqrt(252), vol.Value, 1e-12)

	assert.False(t, AnnualizedVolatility(series(0.01), 252).Defined)
}

func TestSharpeRatio(t *testing.T) {
	returns := series(0.01, -0.01, 0.02, 0)
	sharpe := SharpeRatio(returns, 0, 252)
	require.True(t, sharpe.Defined)
	vol := math.Sqrt(5e-4/3) * math.Sqrt(252)
	assert.InDelta(t, 0.005*252/vol, sharpe.Value, 1e-9)

	withRF := SharpeRatio(returns, 0.0252, 252)
	require.True(t, withRF.Defined)
	assert.InDelta(t, (0.005-0.0001)*252/vol, withRF.Value, 1e-9)
}

func TestSharpeRatioUndefinedOnZeroVolatility(t *testing.T) {
	assert.False(t, SharpeRatio(series(0, 0, 0, 0), 0, 252).Defined)
	assert.False(t, SharpeRatio(series(0.01, 0.01, 0.01), 0, 252).Defined)
	assert.False(t, SharpeRatio(series(0.01, 0.01, 0.01), 0.05, 8760).Defined)
}

func TestSummarizeCountsFirstPeriod(t *testing.T) {
	opts := Options{InitialCapital: 100, PeriodsPerYear: 252}
	rec, value, err := Summarize(series(0.1, -0.1), day(-1), opts)
	require.NoError(t, err)
	require.Equal(t, 3, value.Len())
	assert.Equal(t, 100.0, value.Values[0])
	assert.Equal(t, day(-1), value.Timestamps[0])
	assert.InDelta(t, -1.0, rec.TotalReturn, 1e-9)
	assert.InDelta(t, -10.0, rec.MaxDrawdown, 1e-9)
	assert.Equal(t, 2, rec.Observations)
}

func TestOptionsValidate(t *testing.T) {
	var cfgErr *ConfigError
	err := Options{InitialCapital: 0, PeriodsPerYear: 252}.Validate()
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "initial_capital", cfgErr.Field)

	err = Options{InitialCapital: 1}.Validate()
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "periods_per_year", cfgErr.Field)

	assert.NoError(t, Options{InitialCapital: 1, PeriodsPerYear: 365}.Validate())
}

func TestPeriodsPerYear(t *testing.T) {
	cases := []struct {
		interval string
		days     float64
		want     float64
	}{
		{"1d", 252, 252},
		{"1h", 252, 6048},
		{"1h", 365, 8760},
		{"4h", 365, 2190},
		{"1w", 364, 52},
	}
	for _, c := range cases {
		d, err := ParseInterval(c.interval)
		require.NoError(t, err)
		got, err := PeriodsPerYear(d, c.days)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got, 1e-9, c.interval)
	}

	_, err := ParseInterval("7x")
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = PeriodsPerYear(time.Hour, 0)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestMetricEncoding(t *testing.T) {
	b, err := json.Marshal(Record{SharpeRatio: Undefined(), AnnualizedVolatility: Defined(12.5)})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"sharpe_ratio":null`)
	assert.Contains(t, string(b), `"annualized_volatility":12.5`)

	var m Metric
	require.NoError(t, json.Unmarshal([]byte("null"), &m))
	assert.False(t, m.Defined)

	cell, err := Undefined().MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "", cell)
	assert.Equal(t, "n/a", Undefined().String())
	assert.False(t, Defined(math.NaN()).Defined)
}

func TestAnalyzeAssetFlatPrices(t *testing.T) {
	a, err := AnalyzeAsset(mustPrices(t, "BTCUSDT", 0, 50, 50, 50, 50, 50), Options{InitialCapital: 1, PeriodsPerYear: 365})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0, 0}, a.Returns.Values)
	assert.Equal(t, 0.0, a.Record.TotalReturn)
	assert.Equal(t, Defined(0), a.Record.AnnualizedVolatility)
	assert.False(t, a.Record.SharpeRatio.Defined)
	assert.Equal(t, 0.0, a.Record.MaxDrawdown)
	assert.Equal(t, 4, a.Record.Observations)
}
