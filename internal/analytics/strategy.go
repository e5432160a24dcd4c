package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy turns a price history into raw position signals.
type Strategy interface {
	Name() string
	// Signal returns one position per price observation, 1 for fully invested
	// and 0 for out of the market. Signal[t] may only read prices[0..t].
	Signal(prices PriceSeries) (Series, error)
}

// warmer is implemented by strategies whose first signals carry no information.
type warmer interface {
	Warmup() int
}

// BuyAndHold is always invested.
type BuyAndHold struct{}

func (BuyAndHold) Name() string { return "Buy & Hold" }

func (BuyAndHold) Signal(prices PriceSeries) (Series, error) {
	out := Series{
		Timestamps: make([]time.Time, prices.Len()),
		Values:     make([]float64, prices.Len()),
	}
	copy(out.Timestamps, prices.Timestamps)
	for i := range out.Values {
		out.Values[i] = 1
	}
	return out, nil
}

// MovingAverageCrossover is invested while the short simple moving average is
// strictly above the long one.
type MovingAverageCrossover struct {
	Short int
	Long  int
}

// NewMovingAverageCrossover validates the window lengths.
func NewMovingAverageCrossover(short, long int) (*MovingAverageCrossover, error) {
	m := &MovingAverageCrossover{Short: short, Long: long}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MovingAverageCrossover) validate() error {
	if m.Short <= 0 {
		return configErrorf("short_window", "must be a positive integer, got %d", m.Short)
	}
	if m.Long <= 0 {
		return configErrorf("long_window", "must be a positive integer, got %d", m.Long)
	}
	if m.Short >= m.Long {
		return configErrorf("short_window", "must be less than long_window (%d >= %d)", m.Short, m.Long)
	}
	return nil
}

func (m *MovingAverageCrossover) Name() string {
	return fmt.Sprintf("MA %d/%d", m.Short, m.Long)
}

// Warmup is the number of leading observations without a long average.
func (m *MovingAverageCrossover) Warmup() int { return m.Long - 1 }

// Signal emits 0 during warm-up, while either average is still undefined.
func (m *MovingAverageCrossover) Signal(prices PriceSeries) (Series, error) {
	if err := m.validate(); err != nil {
		return Series{}, err
	}
	short := SMA(prices.Values, m.Short)
	long := SMA(prices.Values, m.Long)
	out := Series{
		Timestamps: make([]time.Time, prices.Len()),
		Values:     make([]float64, prices.Len()),
	}
	copy(out.Timestamps, prices.Timestamps)
	for t := range out.Values {
		if math.IsNaN(short[t]) || math.IsNaN(long[t]) {
			continue
		}
		if short[t] > long[t] {
			out.Values[t] = 1
		}
	}
	return out, nil
}

// SMA returns the trailing simple moving average over window observations.
// The first window-1 entries are NaN. Each window is summed afresh so that
// equal averages of a flat market compare equal.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for t := range values {
		if window <= 0 || t+1 < window {
			out[t] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range values[t+1-window : t+1] {
			sum += v
		}
		out[t] = sum / float64(window)
	}
	return out
}

// NewStrategy builds a strategy from its configured name.
func NewStrategy(name string, short, long int) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "buyhold", "buy_and_hold", "hold":
		return BuyAndHold{}, nil
	case "ma", "sma", "ma_crossover":
		m, err := NewMovingAverageCrossover(short, long)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, configErrorf("strategy", "unknown strategy %q", name)
	}
}
