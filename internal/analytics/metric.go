package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Metric is a scalar that may be undefined, e.g. the Sharpe ratio of a
// zero-volatility series. Undefined is distinct from zero and from a failure.
type Metric struct {
	Value   float64
	Defined bool
}

// Defined wraps v; NaN and infinities become Undefined.
func Defined(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Metric{Value: v, Defined: true}
}

// Undefined returns the undefined metric.
func Undefined() Metric { return Metric{} }

// Scale multiplies a defined metric by f.
func (m Metric) Scale(f float64) Metric {
	if !m.Defined {
		return m
	}
	return Defined(m.Value * f)
}

// Format renders the metric with a printf verb, or "n/a" when undefined.
func (m Metric) Format(verb string) string {
	if !m.Defined {
		return "n/a"
	}
	return fmt.Sprintf(verb, m.Value)
}

func (m Metric) String() string { return m.Format("%.2f") }

// Percent renders a percentage metric as "12.34%".
func (m Metric) Percent() string { return m.Format("%.2f%%") }

// MarshalJSON encodes undefined metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null.
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// MarshalCSV encodes undefined metrics as an empty cell.
func (m Metric) MarshalCSV() (string, error) {
	if !m.Defined {
		return "", nil
	}
	return strconv.FormatFloat(m.Value, 'f', 6, 64), nil
}

// Record is the fixed-shape metrics summary of one return series.
// TotalReturn, AnnualizedVolatility and MaxDrawdown are percentages.
type Record struct {
	TotalReturn          float64            `json:"total_return"`
	AnnualizedVolatility Metric             `json:"annualized_volatility"`
	MaxDrawdown          float64            `json:"max_drawdown"`
	SharpeRatio          Metric             `json:"sharpe_ratio"`
	Observations         int                `json:"observations"`
	Correlation          *CorrelationMatrix `json:"correlation,omitempty"`
}

// CorrelationMatrix is symmetric with a unit diagonal. Pairs involving a
// zero-variance asset are undefined.
type CorrelationMatrix struct {
	Symbols []string   `json:"symbols"`
	Values  [][]Metric `json:"values"`
}

// At returns the correlation between two symbols.
func (c CorrelationMatrix) At(a, b string) (Metric, bool) {
	i, j := -1, -1
	for k, s := range c.Symbols {
		if s == a {
			i = k
		}
		if s == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return Undefined(), false
	}
	return c.Values[i][j], true
}
