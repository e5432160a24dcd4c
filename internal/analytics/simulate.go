package analytics

import (
	"fmt"
	"time"
)

// Simulation is the result of running a strategy over a price history.
// Executed and Returns share the timestamps of the asset return series.
type Simulation struct {
	Strategy string `json:"strategy"`
	Raw      Series `json:"raw_signal"`
	// Executed[t-1] is the position held over period t, decided at t-1.
	Executed Series `json:"executed_signal"`
	Returns  Series `json:"returns"`
}

// Simulate applies a strategy with a one-period execution lag: the position
// held over period t is the raw signal at t-1, so a decision never earns the
// return of the bar it was computed on.
func Simulate(prices PriceSeries, s Strategy) (Simulation, error) {
	assetReturns, err := ComputeReturns(prices.Series)
	if err != nil {
		return Simulation{}, err
	}
	n := prices.Len()
	if w, ok := s.(warmer); ok && n <= w.Warmup()+1 {
		return Simulation{}, fmt.Errorf("%w: %s needs more than %d observations, got %d",
			ErrInsufficientData, s.Name(), w.Warmup()+1, n)
	}
	raw, err := s.Signal(prices)
	if err != nil {
		return Simulation{}, err
	}
	if raw.Len() != n {
		return Simulation{}, fmt.Errorf("%w: %s produced %d signals for %d prices", ErrInvalidSeries, s.Name(), raw.Len(), n)
	}

	sim := Simulation{
		Strategy: s.Name(),
		Raw:      raw,
		Executed: Series{Timestamps: make([]time.Time, n-1), Values: make([]float64, n-1)},
		Returns:  Series{Timestamps: make([]time.Time, n-1), Values: make([]float64, n-1)},
	}
	for t := 1; t < n; t++ {
		pos := raw.Values[t-1]
		ts := assetReturns.Timestamps[t-1]
		sim.Executed.Timestamps[t-1] = ts
		sim.Executed.Values[t-1] = pos
		sim.Returns.Timestamps[t-1] = ts
		if pos != 0 {
			sim.Returns.Values[t-1] = pos * assetReturns.Values[t-1]
		}
	}
	return sim, nil
}
