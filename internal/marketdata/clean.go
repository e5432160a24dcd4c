package marketdata

import (
	"math"
	"sort"
	"time"

	"quantDashboard/internal/analytics"
)

// CleanOptions controls the optional outlier filter applied after the
// structural checks.
type CleanOptions struct {
	IQR       bool
	K         float64
	MinPoints int
}

func DefaultCleanOptions() CleanOptions {
	return CleanOptions{K: 1.5, MinPoints: 20}
}

// Clean turns raw (timestamp, close) pairs into a valid price series: it
// drops non-positive or non-finite prices, sorts by time, keeps the first of
// duplicate timestamps and optionally removes IQR outliers.
func Clean(symbol string, ts []time.Time, cl []float64, opts CleanOptions) (analytics.PriceSeries, error) {
	ts, cl = truncate(ts, cl)
	ts, cl = keep(ts, cl, validPrice)
	ts, cl = sortUnique(ts, cl)
	if opts.IQR && len(cl) >= opts.MinPoints {
		if lo, hi, ok := iqrFences(cl, opts.K); ok {
			fts, fcl := keep(ts, cl, func(v float64) bool { return v >= lo && v <= hi })
			// A filter that would discard most of the sample is not trusted.
			if len(fcl) >= opts.MinPoints/2 {
				ts, cl = fts, fcl
			}
		}
	}
	return analytics.NewPriceSeries(symbol, ts, cl)
}

func truncate(ts []time.Time, cl []float64) ([]time.Time, []float64) {
	n := len(ts)
	if len(cl) < n {
		n = len(cl)
	}
	return ts[:n], cl[:n]
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// keep returns the points whose price satisfies ok, in order.
func keep(ts []time.Time, cl []float64, ok func(float64) bool) ([]time.Time, []float64) {
	outTs := make([]time.Time, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i, v := range cl {
		if ok(v) {
			outTs = append(outTs, ts[i])
			outCl = append(outCl, v)
		}
	}
	return outTs, outCl
}

func sortUnique(ts []time.Time, cl []float64) ([]time.Time, []float64) {
	idx := make([]int, len(ts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ts[idx[a]].Before(ts[idx[b]]) })
	outTs := make([]time.Time, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for _, i := range idx {
		if n := len(outTs); n > 0 && outTs[n-1].Equal(ts[i]) {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, cl[i])
	}
	return outTs, outCl
}

// iqrFences returns [Q1 - k*IQR, Q3 + k*IQR] with quartiles interpolated
// linearly between closest ranks. ok is false when the quartiles coincide.
func iqrFences(values []float64, k float64) (lo, hi float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	quantile := func(p float64) float64 {
		pos := p * float64(len(sorted)-1)
		i := int(pos)
		if i+1 >= len(sorted) {
			return sorted[i]
		}
		return sorted[i] + (sorted[i+1]-sorted[i])*(pos-float64(i))
	}
	q1, q3 := quantile(0.25), quantile(0.75)
	if q3 <= q1 {
		return 0, 0, false
	}
	spread := k * (q3 - q1)
	return q1 - spread, q3 + spread, true
}
