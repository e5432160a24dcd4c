package analytics

import (
	"time"
)

// DefaultDaysPerYear suits markets that trade every calendar day. Equity
// markets use 252.
const DefaultDaysPerYear = 365

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseInterval maps a sampling interval code ("1h", "1d", ...) to its duration.
func ParseInterval(code string) (time.Duration, error) {
	d, ok := intervals[code]
	if !ok {
		return 0, configErrorf("interval", "unsupported interval %q", code)
	}
	return d, nil
}

// PeriodsPerYear derives the annualization factor from the sampling interval:
// daysPerYear trading days of 24h each, divided into interval-long periods.
// Daily data with 252 days gives 252; hourly data with 252 days gives 6048.
func PeriodsPerYear(interval time.Duration, daysPerYear float64) (float64, error) {
	if interval <= 0 {
		return 0, configErrorf("interval", "must be positive, got %s", interval)
	}
	if daysPerYear <= 0 || daysPerYear > 366 {
		return 0, configErrorf("days_per_year", "must be in (0, 366], got %v", daysPerYear)
	}
	return daysPerYear * float64(24*time.Hour) / float64(interval), nil
}
