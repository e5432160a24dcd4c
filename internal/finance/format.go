package finance

import (
	"errors"
	"fmt"
	"strings"

	"quantDashboard/internal/analytics"
)

// Error kinds shared by the bot and the HTTP API.
const (
	KindOK               = "ok"
	KindInsufficientData = "insufficient_data"
	KindConfiguration    = "configuration"
	KindBadRequest       = "bad_request"
	KindInternal         = "internal"
)

// ErrorKind classifies err for metrics and API responses.
func ErrorKind(err error) string {
	var cfgErr *analytics.ConfigError
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrUsage):
		return KindBadRequest
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.Is(err, analytics.ErrInsufficientData):
		return KindInsufficientData
	default:
		return KindInternal
	}
}

// Describe turns an analysis error into a message for chat users.
func Describe(err error) string {
	switch ErrorKind(err) {
	case KindOK:
		return ""
	case KindBadRequest:
		return "Invalid request: " + strings.TrimPrefix(err.Error(), ErrUsage.Error()+": ")
	case KindConfiguration:
		var cfgErr *analytics.ConfigError
		errors.As(err, &cfgErr)
		return fmt.Sprintf("Configuration error: %s %s", cfgErr.Field, cfgErr.Reason)
	case KindInsufficientData:
		return "Not enough data: " + err.Error()
	default:
		return "Analysis failed: " + err.Error()
	}
}

// FormatRecord renders a metrics record as chat text. Undefined metrics read
// "n/a".
func FormatRecord(title string, rec analytics.Record) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	fmt.Fprintf(&b, "Total return: %.2f%%\n", rec.TotalReturn)
	fmt.Fprintf(&b, "Annualized volatility: %s\n", rec.AnnualizedVolatility.Percent())
	fmt.Fprintf(&b, "Max drawdown: %.2f%%\n", rec.MaxDrawdown)
	fmt.Fprintf(&b, "Sharpe ratio: %s\n", rec.SharpeRatio.String())
	fmt.Fprintf(&b, "Observations: %d", rec.Observations)
	if rec.Correlation != nil && len(rec.Correlation.Symbols) > 1 {
		b.WriteString("\n\nCorrelation\n")
		b.WriteString(FormatCorrelation(*rec.Correlation))
	}
	return b.String()
}

// FormatCorrelation renders the matrix as a fixed-width grid with two
// decimals.
func FormatCorrelation(c analytics.CorrelationMatrix) string {
	width := 6
	for _, s := range c.Symbols {
		if len(s) > width {
			width = len(s)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", width, "")
	for _, s := range c.Symbols {
		fmt.Fprintf(&b, " %*s", width, s)
	}
	for i, s := range c.Symbols {
		fmt.Fprintf(&b, "\n%-*s", width, s)
		for j := range c.Symbols {
			fmt.Fprintf(&b, " %*s", width, c.Values[i][j].Format("%.2f"))
		}
	}
	return b.String()
}

// FormatWarnings renders warnings one per line with a marker.
func FormatWarnings(ws []analytics.Warning) string {
	if len(ws) == 0 {
		return ""
	}
	lines := make([]string, len(ws))
	for i, w := range ws {
		lines[i] = "⚠️ " + w.Message
	}
	return strings.Join(lines, "\n")
}

// WarningMessages returns the plain messages of ws.
func WarningMessages(ws []analytics.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Message
	}
	return out
}

// AssetTitle is the header used for single-asset output.
func AssetTitle(v *AssetView) string {
	return strings.Join([]string{v.Asset.Symbol, strings.ToUpper(v.Interval), strings.ToUpper(v.Window)}, " • ")
}

// FormatAsset renders the buy & hold record and, when present, the strategy
// record or the reason it is missing.
func FormatAsset(v *AssetView) string {
	var b strings.Builder
	b.WriteString(FormatRecord("📈 "+AssetTitle(v)+" • Buy & Hold", v.Asset.Record))
	if v.Strategy != nil {
		b.WriteString("\n\n")
		b.WriteString(FormatRecord("🤖 "+v.Strategy.Strategy, v.Strategy.Record))
	}
	if v.StrategyError != "" {
		b.WriteString("\n\n⚠️ Strategy unavailable: " + v.StrategyError)
	}
	return b.String()
}

// FormatPortfolio renders weights, warnings and the portfolio record.
func FormatPortfolio(v *PortfolioView) string {
	p := v.Portfolio
	var b strings.Builder
	fmt.Fprintf(&b, "💼 Portfolio • %s • %s\n", strings.ToUpper(v.Interval), strings.ToUpper(v.Window))
	for _, s := range p.Symbols {
		fmt.Fprintf(&b, "  • %s: %.1f%%\n", s, p.Weights[s]*100)
	}
	if w := FormatWarnings(p.Warnings); w != "" {
		b.WriteString(w + "\n")
	}
	b.WriteString("\n")
	b.WriteString(FormatRecord("", p.Record))
	return b.String()
}
