package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Align inner-joins price series on timestamps: only instants present for
// every asset are kept, no value is filled forward or interpolated. Symbols
// keep their input order.
func Align(series ...PriceSeries) (Table, error) {
	if len(series) == 0 {
		return Table{}, fmt.Errorf("%w: no series to align", ErrInsufficientData)
	}

	seen := make(map[string]bool, len(series))
	symbols := make([]string, len(series))
	counts := make(map[int64]int)
	stamps := make(map[int64]time.Time)
	byAsset := make([]map[int64]float64, len(series))
	for i, s := range series {
		if seen[s.Symbol] {
			return Table{}, configErrorf("symbols", "duplicate symbol %s", s.Symbol)
		}
		seen[s.Symbol] = true
		symbols[i] = s.Symbol
		byAsset[i] = make(map[int64]float64, s.Len())
		for j, ts := range s.Timestamps {
			k := ts.UnixNano()
			if _, dup := byAsset[i][k]; dup {
				continue
			}
			byAsset[i][k] = s.Values[j]
			counts[k]++
			if _, ok := stamps[k]; !ok {
				stamps[k] = ts
			}
		}
	}

	common := make([]int64, 0, len(counts))
	for k, c := range counts {
		if c == len(series) {
			common = append(common, k)
		}
	}
	if len(common) == 0 {
		return Table{}, fmt.Errorf("%w: no timestamp shared by %s", ErrInsufficientData, strings.Join(symbols, ", "))
	}
	sort.Slice(common, func(a, b int) bool { return common[a] < common[b] })

	t := Table{
		Symbols:    symbols,
		Timestamps: make([]time.Time, len(common)),
		Prices:     make([][]float64, len(series)),
		Dropped:    len(counts) - len(common),
	}
	for j, k := range common {
		t.Timestamps[j] = stamps[k]
	}
	for i := range series {
		col := make([]float64, len(common))
		for j, k := range common {
			col[j] = byAsset[i][k]
		}
		t.Prices[i] = col
	}
	return t, nil
}
