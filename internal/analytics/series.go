// Package analytics computes returns, cumulative value, risk metrics,
// strategy simulations and portfolio aggregates from price series.
//
// Every function in this package is a pure transform over its inputs: no
// logging, no I/O, no shared state. Failures are reported as tagged errors
// (ErrInsufficientData, *ConfigError) and undefined metrics as Metric values.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is a time-indexed sequence of values with strictly increasing
// timestamps. It carries return series, value series and signals alike.
type Series struct {
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// First returns the initial observation.
func (s Series) First() (time.Time, float64, bool) {
	if s.Len() == 0 {
		return time.Time{}, 0, false
	}
	return s.Timestamps[0], s.Values[0], true
}

// Window returns the observations with from <= t < to, sharing storage with s.
func (s Series) Window(from, to time.Time) Series {
	lo := sort.Search(len(s.Timestamps), func(i int) bool { return !s.Timestamps[i].Before(from) })
	hi := sort.Search(len(s.Timestamps), func(i int) bool { return !s.Timestamps[i].Before(to) })
	if hi < lo {
		hi = lo
	}
	return Series{Timestamps: s.Timestamps[lo:hi], Values: s.Values[lo:hi]}
}

// Last returns the final observation.
func (s Series) Last() (time.Time, float64, bool) {
	if s.Len() == 0 {
		return time.Time{}, 0, false
	}
	return s.Timestamps[s.Len()-1], s.Values[s.Len()-1], true
}

// Clone returns a deep copy so callers can never alias an input slice.
func (s Series) Clone() Series {
	out := Series{
		Timestamps: make([]time.Time, len(s.Timestamps)),
		Values:     make([]float64, len(s.Values)),
	}
	copy(out.Timestamps, s.Timestamps)
	copy(out.Values, s.Values)
	return out
}

// PriceSeries is the price history of a single symbol.
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Series
}

// NewPriceSeries validates and copies a raw price history: timestamps strictly
// increasing, prices positive and finite.
func NewPriceSeries(symbol string, timestamps []time.Time, prices []float64) (PriceSeries, error) {
	if len(timestamps) != len(prices) {
		return PriceSeries{}, fmt.Errorf("%w: %s has %d timestamps for %d prices", ErrInvalidSeries, symbol, len(timestamps), len(prices))
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return PriceSeries{}, fmt.Errorf("%w: %s price %v at index %d is not a positive finite number", ErrInvalidSeries, symbol, p, i)
		}
		if i > 0 && !timestamps[i].After(timestamps[i-1]) {
			return PriceSeries{}, fmt.Errorf("%w: %s timestamp at index %d is not after its predecessor", ErrInvalidSeries, symbol, i)
		}
	}
	s := Series{Timestamps: timestamps, Values: prices}
	return PriceSeries{Symbol: symbol, Series: s.Clone()}, nil
}

// Table is a multi-asset price table aligned on common timestamps.
// Prices[i] is the price column of Symbols[i].
type Table struct {
	Symbols    []string    `json:"symbols"`
	Timestamps []time.Time `json:"timestamps"`
	Prices     [][]float64 `json:"prices"`
	// Dropped counts timestamps present for some but not all assets.
	Dropped int `json:"dropped"`
}

// Column returns the price series of the i-th asset.
func (t Table) Column(i int) PriceSeries {
	return PriceSeries{
		Symbol: t.Symbols[i],
		Series: Series{Timestamps: t.Timestamps, Values: t.Prices[i]},
	}
}
