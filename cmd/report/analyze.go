package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"quantDashboard/internal/finance"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL...",
	Short: "Print the analysis of one asset or a portfolio as JSON",
	Long: `One symbol runs the single-asset analysis, optionally with a
moving-average crossover strategy. Several symbols run the portfolio
analysis with optional weights.

Examples:
  report analyze BTCUSDT --window 90d
  report analyze BTCUSDT --strategy ma --short 20 --long 50
  report analyze BTCUSDT ETHUSDT SOLUSDT --weights 0.5,0.3,0.2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeWindow   string
	analyzeStrategy string
	analyzeShort    int
	analyzeLong     int
	analyzeWeights  string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeWindow, "window", "", "Lookback such as 7d or 6m (default: config)")
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "", "Strategy to simulate (ma)")
	analyzeCmd.Flags().IntVar(&analyzeShort, "short", 0, "Short moving-average window")
	analyzeCmd.Flags().IntVar(&analyzeLong, "long", 0, "Long moving-average window")
	analyzeCmd.Flags().StringVar(&analyzeWeights, "weights", "", "Comma separated portfolio weights")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, src, err := setup()
	if err != nil {
		return err
	}
	dash := finance.NewDashboard(src, nil, cfg, log)

	var out any
	if len(args) == 1 {
		req, err := finance.ParseAssetArgs(args)
		if err != nil {
			return err
		}
		req.Window = analyzeWindow
		req.Strategy = analyzeStrategy
		req.Short, req.Long = analyzeShort, analyzeLong
		if out, err = dash.Asset(cmd.Context(), req); err != nil {
			return err
		}
	} else {
		req, err := finance.ParsePortfolioArgs(args)
		if err != nil {
			return err
		}
		if req.Weights, err = finance.ParseWeightsParam(analyzeWeights); err != nil {
			return err
		}
		req.Window = analyzeWindow
		if out, err = dash.Portfolio(cmd.Context(), req); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
