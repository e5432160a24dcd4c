package analytics

import "time"

// ComputeReturns converts prices into period-over-period fractional returns.
// The first observation has no prior price and is dropped, so the result is
// one entry shorter than the input.
func ComputeReturns(prices Series) (Series, error) {
	n := prices.Len()
	if n < 2 {
		return Series{}, ErrEmptyInput
	}
	out := Series{
		Timestamps: make([]time.Time, n-1),
		Values:     make([]float64, n-1),
	}
	for i := 1; i < n; i++ {
		out.Timestamps[i-1] = prices.Timestamps[i]
		out.Values[i-1] = prices.Values[i]/prices.Values[i-1] - 1
	}
	return out, nil
}

// CumulativeValue compounds returns from initialCapital:
// value[i] = initialCapital × Π(1+returns[0..i]).
//
// A return of exactly -100% zeroes the value and every later value stays at
// zero. That is the expected outcome of a total loss.
func CumulativeValue(returns Series, initialCapital float64) Series {
	out := Series{
		Timestamps: make([]time.Time, returns.Len()),
		Values:     make([]float64, returns.Len()),
	}
	v := initialCapital
	for i, r := range returns.Values {
		v *= 1 + r
		out.Timestamps[i] = returns.Timestamps[i]
		out.Values[i] = v
	}
	return out
}

// Anchor prepends the initial capital at t0, the timestamp immediately
// preceding the first return, so the first period counts in total return and
// drawdown.
func Anchor(values Series, t0 time.Time, initialCapital float64) Series {
	out := Series{
		Timestamps: make([]time.Time, 0, values.Len()+1),
		Values:     make([]float64, 0, values.Len()+1),
	}
	out.Timestamps = append(out.Timestamps, t0)
	out.Values = append(out.Values, initialCapital)
	out.Timestamps = append(out.Timestamps, values.Timestamps...)
	out.Values = append(out.Values, values.Values...)
	return out
}
