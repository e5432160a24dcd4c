package analytics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Warning codes attached to a portfolio analysis.
const (
	WarnWeightsFallback = "weights_fallback"
	WarnSingleAsset     = "single_asset"
	WarnSampleShrunk    = "sample_shrunk"
)

// Warning is a non-fatal observation about an analysis.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PortfolioAnalysis is a static-weight portfolio over aligned assets.
type PortfolioAnalysis struct {
	Symbols      []string           `json:"symbols"`
	Weights      map[string]float64 `json:"weights"`
	AssetReturns map[string]Series  `json:"asset_returns"`
	Returns      Series             `json:"returns"`
	Value        Series             `json:"value"`
	// Normalized rebases every asset price to 100 at the first common timestamp.
	Normalized map[string]Series `json:"normalized"`
	Record     Record            `json:"metrics"`
	Warnings   []Warning         `json:"warnings,omitempty"`
}

// HasWarning reports whether a warning with code was raised.
func (p *PortfolioAnalysis) HasWarning(code string) bool {
	for _, w := range p.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// ResolveWeights returns weights to use for symbols. No weights means equal
// weights. A vector of the wrong cardinality, or with non-finite entries,
// falls back to equal weights with a warning. Explicit weights are used as
// given and are not renormalized.
func ResolveWeights(symbols []string, weights []float64) ([]float64, []Warning) {
	n := len(symbols)
	if len(weights) == 0 {
		return EqualWeights(n), nil
	}
	if len(weights) != n {
		return EqualWeights(n), []Warning{{
			Code:    WarnWeightsFallback,
			Message: fmt.Sprintf("got %d weights for %d assets, using equal weights", len(weights), n),
		}}
	}
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return EqualWeights(n), []Warning{{
				Code:    WarnWeightsFallback,
				Message: "weights must be finite numbers, using equal weights",
			}}
		}
	}
	out := make([]float64, n)
	copy(out, weights)
	return out, nil
}

// Aggregate combines aligned asset returns into portfolio returns
// r_p[t] = Σ w_i·r_i[t] and summarizes them. The weights are static: they are
// applied to period returns at every step, which is a portfolio rebalanced
// to target weights each period.
func Aggregate(table Table, weights []float64, opts Options) (*PortfolioAnalysis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := len(table.Symbols)
	if n == 0 {
		return nil, fmt.Errorf("%w: no assets", ErrInsufficientData)
	}
	if len(table.Prices) != n {
		return nil, fmt.Errorf("%w: %d price columns for %d symbols", ErrInvalidSeries, len(table.Prices), n)
	}
	for i, col := range table.Prices {
		if len(col) != len(table.Timestamps) {
			return nil, fmt.Errorf("%w: %s has %d prices for %d timestamps", ErrInvalidSeries, table.Symbols[i], len(col), len(table.Timestamps))
		}
	}
	if len(table.Timestamps) < 2 {
		return nil, ErrEmptyInput
	}

	w, warnings := ResolveWeights(table.Symbols, weights)
	if n == 1 {
		warnings = append(warnings, Warning{
			Code:    WarnSingleAsset,
			Message: "only one asset, correlation is trivial",
		})
	}
	if table.Dropped > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnSampleShrunk,
			Message: fmt.Sprintf("%d timestamps not shared by every asset were dropped", table.Dropped),
		})
	}

	out := &PortfolioAnalysis{
		Symbols:      append([]string(nil), table.Symbols...),
		Weights:      make(map[string]float64, n),
		AssetReturns: make(map[string]Series, n),
		Normalized:   Normalize(table, 100),
		Warnings:     warnings,
	}
	columns := make([][]float64, n)
	for i, sym := range table.Symbols {
		r, err := ComputeReturns(table.Column(i).Series)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}
		out.Weights[sym] = w[i]
		out.AssetReturns[sym] = r
		columns[i] = r.Values
	}

	m := len(table.Timestamps) - 1
	port := Series{Timestamps: make([]time.Time, m), Values: make([]float64, m)}
	copy(port.Timestamps, table.Timestamps[1:])
	for t := 0; t < m; t++ {
		sum := 0.0
		for i := range columns {
			sum += w[i] * columns[i][t]
		}
		port.Values[t] = sum
	}

	rec, value, err := Summarize(port, table.Timestamps[0], opts)
	if err != nil {
		return nil, err
	}
	corr := Correlation(table.Symbols, columns)
	rec.Correlation = &corr
	out.Returns = port
	out.Value = value
	out.Record = rec
	return out, nil
}

// Correlation is the pairwise Pearson correlation of return columns over the
// full window. The diagonal is 1; a pair with a zero-variance column is
// undefined.
func Correlation(symbols []string, columns [][]float64) CorrelationMatrix {
	n := len(symbols)
	values := make([][]Metric, n)
	for i := range values {
		values[i] = make([]Metric, n)
		values[i][i] = Defined(1)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m := Undefined()
			if len(columns[i]) >= 2 && len(columns[i]) == len(columns[j]) && !flat(columns[i]) && !flat(columns[j]) {
				m = Defined(stat.Correlation(columns[i], columns[j], nil))
				if m.Defined {
					m.Value = math.Max(-1, math.Min(1, m.Value))
				}
			}
			values[i][j] = m
			values[j][i] = m
		}
	}
	return CorrelationMatrix{Symbols: append([]string(nil), symbols...), Values: values}
}

// flat reports a column whose standard deviation is numerically zero.
func flat(values []float64) bool {
	return stat.Variance(values, nil) <= zeroVolatility*zeroVolatility
}

// Normalize rebases every price column to base at the first timestamp.
func Normalize(table Table, base float64) map[string]Series {
	out := make(map[string]Series, len(table.Symbols))
	for i, sym := range table.Symbols {
		col := table.Prices[i]
		s := Series{Timestamps: make([]time.Time, len(col)), Values: make([]float64, len(col))}
		copy(s.Timestamps, table.Timestamps)
		for j, p := range col {
			s.Values[j] = p / col[0] * base
		}
		out[sym] = s
	}
	return out
}
