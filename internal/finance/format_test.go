package finance

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"quantDashboard/internal/analytics"
)

func TestFormatRecordUndefinedMetrics(t *testing.T) {
	rec := analytics.Record{
		TotalReturn:          0,
		AnnualizedVolatility: analytics.Defined(0),
		MaxDrawdown:          0,
		SharpeRatio:          analytics.Undefined(),
		Observations:         5,
	}
	out := FormatRecord("FLAT", rec)
	assert.True(t, strings.HasPrefix(out, "FLAT\n"))
	assert.Contains(t, out, "Total return: 0.00%")
	assert.Contains(t, out, "Annualized volatility: 0.00%")
	assert.Contains(t, out, "Sharpe ratio: n/a")
	assert.Contains(t, out, "Observations: 5")
	assert.NotContains(t, out, "Correlation")
}

func TestFormatCorrelation(t *testing.T) {
	c := analytics.CorrelationMatrix{
		Symbols: []string{"BTCUSDT", "USDCUSDT"},
		Values: [][]analytics.Metric{
			{analytics.Defined(1), analytics.Undefined()},
			{analytics.Undefined(), analytics.Defined(1)},
		},
	}
	out := FormatCorrelation(c)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "1.00")
	assert.Contains(t, lines[1], "n/a")

	rec := analytics.Record{Correlation: &c}
	assert.Contains(t, FormatRecord("", rec), "Correlation")
}

func TestErrorKindAndDescribe(t *testing.T) {
	cfgErr := &analytics.ConfigError{Field: "short_window", Reason: "must be less than long_window"}
	tests := []struct {
		err  error
		kind string
		text string
	}{
		{nil, KindOK, ""},
		{fmt.Errorf("%w: missing symbol", ErrUsage), KindBadRequest, "Invalid request: missing symbol"},
		{fmt.Errorf("wrapped: %w", cfgErr), KindConfiguration, "Configuration error: short_window must be less than long_window"},
		{fmt.Errorf("%w for BTCUSDT", ErrNoData), KindInsufficientData, "Not enough data: insufficient data: no data retrieved for BTCUSDT"},
		{errors.New("boom"), KindInternal, "Analysis failed: boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, ErrorKind(tt.err))
		assert.Equal(t, tt.text, Describe(tt.err))
	}
}

func TestFormatPortfolioShowsWarnings(t *testing.T) {
	v := &PortfolioView{
		Interval: "1d",
		Window:   "30d",
		Portfolio: &analytics.PortfolioAnalysis{
			Symbols: []string{"BTCUSDT"},
			Weights: map[string]float64{"BTCUSDT": 1},
			Warnings: []analytics.Warning{{
				Code:    analytics.WarnSingleAsset,
				Message: "only one asset, correlation is trivial",
			}},
		},
	}
	out := FormatPortfolio(v)
	assert.Contains(t, out, "BTCUSDT: 100.0%")
	assert.Contains(t, out, "⚠️ only one asset")
	assert.Equal(t, []string{"only one asset, correlation is trivial"}, WarningMessages(v.Portfolio.Warnings))
}

func TestFormatAssetStrategyUnavailable(t *testing.T) {
	v := &AssetView{
		Interval:      "1h",
		Window:        "7d",
		Asset:         &analytics.AssetAnalysis{Symbol: "BTCUSDT"},
		StrategyError: "insufficient data",
	}
	out := FormatAsset(v)
	assert.Contains(t, out, "BTCUSDT • 1H • 7D • Buy & Hold")
	assert.Contains(t, out, "Strategy unavailable: insufficient data")
}
