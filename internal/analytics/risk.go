package analytics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// zeroVolatility is the annualized volatility below which a series is
// treated as constant. Rounding in the mean of a constant series leaves
// residues many orders of magnitude below it.
const zeroVolatility = 1e-12

// Options are the explicit analysis parameters of one request.
type Options struct {
	InitialCapital float64 `json:"initial_capital"`
	// RiskFreeRate is annual and fractional (0.03 for 3%).
	RiskFreeRate float64 `json:"risk_free_rate"`
	// PeriodsPerYear annualizes per-period statistics; derive it from the
	// sampling interval with PeriodsPerYear.
	PeriodsPerYear float64 `json:"periods_per_year"`
}

// Validate reports the first parameter that blocks computation.
func (o Options) Validate() error {
	if math.IsNaN(o.InitialCapital) || math.IsInf(o.InitialCapital, 0) || o.InitialCapital <= 0 {
		return configErrorf("initial_capital", "must be a positive number, got %v", o.InitialCapital)
	}
	if math.IsNaN(o.RiskFreeRate) || math.IsInf(o.RiskFreeRate, 0) {
		return configErrorf("risk_free_rate", "must be finite, got %v", o.RiskFreeRate)
	}
	if math.IsNaN(o.PeriodsPerYear) || math.IsInf(o.PeriodsPerYear, 0) || o.PeriodsPerYear <= 0 {
		return configErrorf("periods_per_year", "must be positive, got %v", o.PeriodsPerYear)
	}
	return nil
}

// Drawdowns returns (value - running max) / running max at every point.
func Drawdowns(values Series) Series {
	out := Series{
		Timestamps: make([]time.Time, values.Len()),
		Values:     make([]float64, values.Len()),
	}
	peak := math.Inf(-1)
	for i, v := range values.Values {
		if v > peak {
			peak = v
		}
		out.Timestamps[i] = values.Timestamps[i]
		if peak > 0 && v < peak {
			out.Values[i] = (v - peak) / peak
		}
	}
	return out
}

// MaxDrawdown returns the deepest drawdown of a value series as a non-positive
// fraction. It is exactly 0 for a non-decreasing series.
func MaxDrawdown(values Series) (float64, error) {
	if values.Len() == 0 {
		return 0, ErrInsufficientData
	}
	worst := 0.0
	for _, d := range Drawdowns(values).Values {
		if d < worst {
			worst = d
		}
	}
	return worst, nil
}

// TotalReturn is values[last]/values[first] - 1.
func TotalReturn(values Series) (float64, error) {
	if values.Len() == 0 {
		return 0, ErrInsufficientData
	}
	first := values.Values[0]
	if first <= 0 {
		return 0, fmt.Errorf("%w: starting value %v is not positive", ErrInvalidSeries, first)
	}
	return values.Values[values.Len()-1]/first - 1, nil
}

// AnnualizedVolatility is the sample standard deviation of returns scaled by
// sqrt(periodsPerYear). It is undefined with fewer than two observations.
func AnnualizedVolatility(returns Series, periodsPerYear float64) Metric {
	return volatility(returns.Values, periodsPerYear)
}

func volatility(values []float64, periodsPerYear float64) Metric {
	if len(values) < 2 || periodsPerYear <= 0 {
		return Undefined()
	}
	variance := stat.Variance(values, nil)
	if variance < 0 {
		variance = 0
	}
	return Defined(math.Sqrt(variance) * math.Sqrt(periodsPerYear))
}

// SharpeRatio is the annualized mean excess return over its annualized
// volatility. riskFreeRate is annual. The ratio is undefined when the excess
// returns have zero volatility.
func SharpeRatio(returns Series, riskFreeRate, periodsPerYear float64) Metric {
	if returns.Len() < 2 || periodsPerYear <= 0 {
		return Undefined()
	}
	perPeriod := riskFreeRate / periodsPerYear
	excess := make([]float64, returns.Len())
	for i, r := range returns.Values {
		excess[i] = r - perPeriod
	}
	vol := volatility(excess, periodsPerYear)
	if !vol.Defined || vol.Value <= zeroVolatility {
		return Undefined()
	}
	return Defined(stat.Mean(excess, nil) * periodsPerYear / vol.Value)
}

// Summarize compounds returns from opts.InitialCapital and computes the
// metrics record. The value series it returns is anchored at t0 with the
// initial capital.
func Summarize(returns Series, t0 time.Time, opts Options) (Record, Series, error) {
	if err := opts.Validate(); err != nil {
		return Record{}, Series{}, err
	}
	if returns.Len() == 0 {
		return Record{}, Series{}, ErrInsufficientData
	}
	value := Anchor(CumulativeValue(returns, opts.InitialCapital), t0, opts.InitialCapital)
	total, err := TotalReturn(value)
	if err != nil {
		return Record{}, Series{}, err
	}
	mdd, err := MaxDrawdown(value)
	if err != nil {
		return Record{}, Series{}, err
	}
	rec := Record{
		TotalReturn:          total * 100,
		AnnualizedVolatility: AnnualizedVolatility(returns, opts.PeriodsPerYear).Scale(100),
		MaxDrawdown:          mdd * 100,
		SharpeRatio:          SharpeRatio(returns, opts.RiskFreeRate, opts.PeriodsPerYear),
		Observations:         returns.Len(),
	}
	return rec, value, nil
}
