package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quantDashboard/internal/analytics"
	"quantDashboard/internal/config"
	"quantDashboard/internal/marketdata"
	"quantDashboard/internal/metrics"
	"quantDashboard/internal/storage"
)

// ErrNoData means nothing could be fetched for the report day; no file is
// written.
var ErrNoData = fmt.Errorf("%w: no data retrieved, report not generated", analytics.ErrInsufficientData)

// RunStore records finished report runs.
type RunStore interface {
	SaveReportRun(ctx context.Context, run storage.ReportRun) error
}

// Result describes a written report.
type Result struct {
	ID      string   `json:"id"`
	Path    string   `json:"path"`
	Rows    []Row    `json:"rows"`
	Missing []string `json:"missing,omitempty"`
}

// Runner builds the daily report for a universe of symbols.
type Runner struct {
	Symbols  []string
	Interval string
	Dir      string

	src   marketdata.Source
	store RunStore
	cfg   *config.Config
	log   zerolog.Logger
}

// NewRunner takes its universe and output directory from cfg. store may be
// nil.
func NewRunner(src marketdata.Source, store RunStore, cfg *config.Config, log zerolog.Logger) *Runner {
	return &Runner{
		Symbols:  cfg.Market.Symbols,
		Interval: cfg.Report.Interval,
		Dir:      cfg.Report.Dir,
		src:      src,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// Run reports on the UTC day containing date, [00:00, 24:00). Every symbol
// gets a row, and an equal-weight portfolio row is added when at least two
// symbols have data.
func (r *Runner) Run(ctx context.Context, date time.Time) (*Result, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	day := start.Format("2006-01-02")
	log := r.log.With().Str("date", day).Str("interval", r.Interval).Logger()

	opts, err := r.cfg.AnalyticsOptions(r.Interval)
	if err != nil {
		return nil, err
	}

	series, missing := marketdata.FetchAll(ctx, r.src, r.Symbols, start, end, r.Interval)
	var (
		rows []Row
		used []analytics.PriceSeries
	)
	for _, ps := range series {
		a, err := analytics.AnalyzeAsset(ps, opts)
		if err != nil {
			log.Warn().Err(err).Str("symbol", ps.Symbol).Msg("skipping asset")
			missing = append(missing, ps.Symbol)
			continue
		}
		rows = append(rows, assetRow(day, a))
		used = append(used, ps)
	}
	if len(rows) == 0 {
		log.Warn().Strs("symbols", r.Symbols).Msg("no data retrieved, report not generated")
		return nil, ErrNoData
	}
	if len(used) >= 2 {
		row, err := portfolioRow(day, used, opts)
		if err != nil {
			log.Warn().Err(err).Msg("skipping portfolio row")
		} else {
			rows = append(rows, row)
		}
	}

	path, err := WriteCSV(r.Dir, start, rows)
	if err != nil {
		return nil, err
	}
	metrics.ReportRows.Add(float64(len(rows)))
	res := &Result{ID: uuid.NewString(), Path: path, Rows: rows, Missing: missing}
	log.Info().Str("path", path).Int("rows", len(rows)).Strs("missing", missing).Msg("daily report generated")

	if r.store != nil {
		symbols := make([]string, len(used))
		for i, ps := range used {
			symbols[i] = ps.Symbol
		}
		run := storage.ReportRun{
			ID:         res.ID,
			ReportDate: day,
			Assets:     strings.Join(symbols, ","),
			Path:       path,
			Rows:       len(rows),
			CreatedAt:  time.Now().Unix(),
		}
		if err := r.store.SaveReportRun(ctx, run); err != nil {
			log.Error().Err(err).Msg("failed to record report run")
		}
	}
	return res, nil
}

func assetRow(day string, a *analytics.AssetAnalysis) Row {
	_, open, _ := a.Prices.First()
	_, closing, _ := a.Prices.Last()
	return Row{
		Date:                 day,
		Assets:               a.Symbol,
		OpenPrice:            analytics.Defined(open),
		ClosePrice:           analytics.Defined(closing),
		PeriodReturn:         (closing/open - 1) * 100,
		TotalReturn:          a.Record.TotalReturn,
		AnnualizedVolatility: a.Record.AnnualizedVolatility,
		MaxDrawdown:          a.Record.MaxDrawdown,
		SharpeRatio:          a.Record.SharpeRatio,
		Observations:         a.Record.Observations,
	}
}

func portfolioRow(day string, series []analytics.PriceSeries, opts analytics.Options) (Row, error) {
	table, err := analytics.Align(series...)
	if err != nil {
		return Row{}, err
	}
	p, err := analytics.Aggregate(table, nil, opts)
	if err != nil {
		return Row{}, err
	}
	_, first, _ := p.Value.First()
	_, last, _ := p.Value.Last()
	return Row{
		Date:                 day,
		Assets:               "portfolio:" + strings.Join(p.Symbols, "+"),
		OpenPrice:            analytics.Undefined(),
		ClosePrice:           analytics.Undefined(),
		PeriodReturn:         (last/first - 1) * 100,
		TotalReturn:          p.Record.TotalReturn,
		AnnualizedVolatility: p.Record.AnnualizedVolatility,
		MaxDrawdown:          p.Record.MaxDrawdown,
		SharpeRatio:          p.Record.SharpeRatio,
		Observations:         p.Record.Observations,
	}, nil
}
