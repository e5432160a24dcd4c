package finance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// MaxWindow bounds how far back a single request may look.
const MaxWindow = 5 * 365 * day

// ParseWindow turns a lookback like "12h", "30d", "4w", "6m" or "1y" into a
// duration. Months are 30 days and years 365 days. Empty input yields def.
func ParseWindow(window string, def time.Duration) (time.Duration, error) {
	window = strings.ToLower(strings.TrimSpace(window))
	if window == "" {
		return def, nil
	}
	if len(window) < 2 {
		return 0, fmt.Errorf("invalid window %q", window)
	}
	unit := window[len(window)-1]
	n, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid window %q", window)
	}

	var d time.Duration
	switch unit {
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * day
	case 'w':
		d = time.Duration(n) * 7 * day
	case 'm':
		d = time.Duration(n) * 30 * day
	case 'y':
		d = time.Duration(n) * 365 * day
	default:
		return 0, fmt.Errorf("invalid window %q: unit must be one of h, d, w, m, y", window)
	}
	if d > MaxWindow {
		return 0, fmt.Errorf("window %q exceeds the 5y limit", window)
	}
	return d, nil
}

// FormatWindow renders d back in the largest whole unit.
func FormatWindow(d time.Duration) string {
	switch {
	case d >= 365*day && d%(365*day) == 0:
		return strconv.Itoa(int(d/(365*day))) + "y"
	case d >= 7*day && d%(7*day) == 0:
		return strconv.Itoa(int(d/(7*day))) + "w"
	case d >= day && d%day == 0:
		return strconv.Itoa(int(d/day)) + "d"
	default:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	}
}

// Range returns the half-open interval [end-window, end). A zero end means
// now, truncated to the interval step so repeated requests hit the same
// candles.
func Range(end time.Time, window, step time.Duration) (time.Time, time.Time, error) {
	if end.IsZero() {
		end = time.Now().UTC().Truncate(step)
	}
	start := end.Add(-window)
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s must be before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start.UTC(), end.UTC(), nil
}
