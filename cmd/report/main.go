package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quantDashboard/internal/config"
	"quantDashboard/internal/marketdata"
	"quantDashboard/internal/metrics"
	"quantDashboard/internal/report"
	"quantDashboard/internal/storage"
	"quantDashboard/internal/util"
)

var rootCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the daily CSV performance report",
	Long: `Fetch one UTC day of prices for the configured universe and write
report_YYYY-MM-DD.csv with one row per asset and an equal-weight
portfolio row. Re-running a date overwrites its file.

Examples:
  report
  report --date 2024-05-01 --symbols BTCUSDT,ETHUSDT
  report --offline --out /tmp/reports`,
	SilenceUsage: true,
	RunE:         runReport,
}

var (
	configPath  string
	reportDate  string
	symbols     string
	interval    string
	outDir      string
	offline     bool
	record      bool
	metricsAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&symbols, "symbols", "", "Comma separated symbols (default: configured universe)")
	rootCmd.PersistentFlags().StringVar(&interval, "interval", "", "Bar interval (default: config)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use deterministic synthetic prices instead of Binance")

	rootCmd.Flags().StringVar(&reportDate, "date", "", "UTC date YYYY-MM-DD (default: yesterday)")
	rootCmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: config)")
	rootCmd.Flags().BoolVar(&record, "record", false, "Record the run in the sqlite database")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while running")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads the config with flag overrides applied.
func setup() (*config.Config, zerolog.Logger, marketdata.Source, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := util.NewLogger(cfg.LogLevel)
	if symbols != "" {
		cfg.Market.Symbols = config.SplitSymbols(symbols)
	}
	if interval != "" {
		cfg.Market.Interval = interval
		cfg.Report.Interval = interval
	}
	var src marketdata.Source = marketdata.NewBinanceFromConfig(cfg.Market, log)
	if offline {
		src = marketdata.Synthetic{}
	}
	return cfg, log, src, nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, log, src, err := setup()
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Report.Dir = outDir
	}

	date := time.Now().UTC().AddDate(0, 0, -1)
	if reportDate != "" {
		if date, err = time.Parse("2006-01-02", reportDate); err != nil {
			return fmt.Errorf("invalid --date %q: %w", reportDate, err)
		}
	}

	if metricsAddr != "" {
		srv := metrics.Serve(metricsAddr)
		defer srv.Close()
	}

	var runs report.RunStore
	if record {
		_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
		db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
		if err != nil {
			return err
		}
		defer db.Close()
		if err := storage.InitSchema(db); err != nil {
			return err
		}
		runs = storage.NewStore(db)
	}

	res, err := report.NewRunner(src, runs, cfg, log).Run(cmd.Context(), date)
	if err != nil {
		log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("report failed")
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Path)
	return nil
}
