package analytics

import "fmt"

// AssetAnalysis is the Buy & Hold view of a single asset.
type AssetAnalysis struct {
	Symbol  string `json:"symbol"`
	Prices  Series `json:"prices"`
	Returns Series `json:"returns"`
	// Value starts with the initial capital at the first price timestamp.
	Value  Series `json:"value"`
	Record Record `json:"metrics"`
}

// StrategyResult is a simulated strategy with its value curve and metrics.
type StrategyResult struct {
	Simulation
	Value  Series `json:"value"`
	Record Record `json:"metrics"`
}

// AnalyzeAsset computes Buy & Hold returns, value and metrics.
func AnalyzeAsset(prices PriceSeries, opts Options) (*AssetAnalysis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	returns, err := ComputeReturns(prices.Series)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prices.Symbol, err)
	}
	rec, value, err := Summarize(returns, prices.Timestamps[0], opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prices.Symbol, err)
	}
	return &AssetAnalysis{
		Symbol:  prices.Symbol,
		Prices:  prices.Series.Clone(),
		Returns: returns,
		Value:   value,
		Record:  rec,
	}, nil
}

// RunStrategy simulates s over prices and summarizes its returns with the
// same options as the Buy & Hold analysis.
func RunStrategy(prices PriceSeries, s Strategy, opts Options) (*StrategyResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	sim, err := Simulate(prices, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prices.Symbol, err)
	}
	rec, value, err := Summarize(sim.Returns, prices.Timestamps[0], opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prices.Symbol, err)
	}
	return &StrategyResult{Simulation: sim, Value: value, Record: rec}, nil
}
