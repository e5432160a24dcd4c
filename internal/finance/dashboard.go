// Package finance runs analyses on behalf of the interactive surfaces: it
// parses requests, fetches prices, calls the analytics core and renders
// results as text and charts.
package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quantDashboard/internal/analytics"
	"quantDashboard/internal/cache"
	"quantDashboard/internal/config"
	"quantDashboard/internal/marketdata"
	"quantDashboard/internal/metrics"
)

// WarnMissingData is raised when a requested symbol returned no prices and
// was left out of the portfolio.
const WarnMissingData = "missing_data"

// ErrNoData reports that the source returned nothing for a request.
var ErrNoData = fmt.Errorf("%w: no data retrieved", analytics.ErrInsufficientData)

// AssetRequest selects one symbol. Empty fields take configured defaults.
type AssetRequest struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval,omitempty"`
	Window   string    `json:"window,omitempty"`
	End      time.Time `json:"end,omitempty"`
	// Strategy is empty for buy & hold only, or a name known to
	// analytics.NewStrategy.
	Strategy string `json:"strategy,omitempty"`
	Short    int    `json:"short,omitempty"`
	Long     int    `json:"long,omitempty"`
}

// PortfolioRequest selects several symbols with optional weights.
type PortfolioRequest struct {
	Symbols  []string  `json:"symbols"`
	Weights  []float64 `json:"weights,omitempty"`
	Interval string    `json:"interval,omitempty"`
	Window   string    `json:"window,omitempty"`
	End      time.Time `json:"end,omitempty"`
}

// AssetView is the single-asset dashboard payload.
type AssetView struct {
	Interval string                    `json:"interval"`
	Window   string                    `json:"window"`
	Start    time.Time                 `json:"start"`
	End      time.Time                 `json:"end"`
	Asset    *analytics.AssetAnalysis  `json:"asset"`
	Drawdown analytics.Series          `json:"drawdown"`
	Strategy *analytics.StrategyResult `json:"strategy,omitempty"`
	// StrategyError explains why a requested strategy has no result while the
	// buy & hold view is still available.
	StrategyError string `json:"strategy_error,omitempty"`
}

// PortfolioView is the multi-asset dashboard payload.
type PortfolioView struct {
	Interval  string                       `json:"interval"`
	Window    string                       `json:"window"`
	Start     time.Time                    `json:"start"`
	End       time.Time                    `json:"end"`
	Missing   []string                     `json:"missing,omitempty"`
	Portfolio *analytics.PortfolioAnalysis `json:"portfolio"`
}

// Dashboard wires a price source and the analytics core.
type Dashboard struct {
	src   marketdata.Source
	cache cache.Cache
	cfg   *config.Config
	log   zerolog.Logger
}

// NewDashboard builds a dashboard. A nil cache disables caching.
func NewDashboard(src marketdata.Source, c cache.Cache, cfg *config.Config, log zerolog.Logger) *Dashboard {
	return &Dashboard{src: src, cache: c, cfg: cfg, log: log}
}

// Config returns the configuration the dashboard runs with.
func (d *Dashboard) Config() *config.Config { return d.cfg }

type resolved struct {
	interval string
	window   string
	start    time.Time
	end      time.Time
	opts     analytics.Options
}

func (d *Dashboard) resolve(interval, window string, end time.Time) (resolved, error) {
	r := resolved{interval: interval, window: window}
	if r.interval == "" {
		r.interval = d.cfg.Market.Interval
	}
	if r.window == "" {
		r.window = d.cfg.Market.Window
	}
	step, err := analytics.ParseInterval(r.interval)
	if err != nil {
		return r, err
	}
	lookback, err := ParseWindow(r.window, 30*day)
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if r.start, r.end, err = Range(end, lookback, step); err != nil {
		return r, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	r.opts, err = d.cfg.AnalyticsOptions(r.interval)
	return r, err
}

// Asset runs the buy & hold analysis of one symbol and, when requested, a
// strategy simulation over the same prices. A strategy that cannot warm up
// within the window is reported in StrategyError without failing the view.
func (d *Dashboard) Asset(ctx context.Context, req AssetRequest) (*AssetView, error) {
	view, err := d.asset(ctx, req)
	kind := "asset"
	if req.Strategy != "" {
		kind = "strategy"
	}
	metrics.Analyses.WithLabelValues(kind, ErrorKind(err)).Inc()
	return view, err
}

func (d *Dashboard) asset(ctx context.Context, req AssetRequest) (*AssetView, error) {
	r, err := d.resolve(req.Interval, req.Window, req.End)
	if err != nil {
		return nil, err
	}

	var strategy analytics.Strategy
	if req.Strategy != "" {
		short, long := req.Short, req.Long
		if short == 0 && long == 0 {
			short, long = d.cfg.Analytics.ShortWindow, d.cfg.Analytics.LongWindow
		}
		if strategy, err = analytics.NewStrategy(req.Strategy, short, long); err != nil {
			return nil, err
		}
	}

	key := cacheKey("asset", req.Symbol, r.interval, r.start, r.end, req.Strategy, req.Short, req.Long)
	var view AssetView
	if d.cached(ctx, key, &view) {
		return &view, nil
	}

	prices := d.src.FetchPriceSeries(ctx, req.Symbol, r.start, r.end, r.interval)
	if prices.Len() == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, req.Symbol)
	}
	asset, err := analytics.AnalyzeAsset(prices, r.opts)
	if err != nil {
		return nil, err
	}
	view = AssetView{
		Interval: r.interval,
		Window:   r.window,
		Start:    r.start,
		End:      r.end,
		Asset:    asset,
		Drawdown: analytics.Drawdowns(asset.Value),
	}
	if strategy != nil {
		res, err := analytics.RunStrategy(prices, strategy, r.opts)
		switch {
		case errors.Is(err, analytics.ErrInsufficientData):
			view.StrategyError = err.Error()
		case err != nil:
			return nil, err
		default:
			view.Strategy = res
		}
	}
	d.log.Info().Str("symbol", req.Symbol).Str("interval", r.interval).Int("points", prices.Len()).Msg("asset analyzed")
	d.store(ctx, key, view)
	return &view, nil
}

// Portfolio aligns the requested assets on common timestamps and aggregates
// them. Symbols without data are dropped with a warning, together with their
// weights when a full weight vector was given.
func (d *Dashboard) Portfolio(ctx context.Context, req PortfolioRequest) (*PortfolioView, error) {
	view, err := d.portfolio(ctx, req)
	metrics.Analyses.WithLabelValues("portfolio", ErrorKind(err)).Inc()
	return view, err
}

func (d *Dashboard) portfolio(ctx context.Context, req PortfolioRequest) (*PortfolioView, error) {
	r, err := d.resolve(req.Interval, req.Window, req.End)
	if err != nil {
		return nil, err
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = d.cfg.Market.Symbols
	}

	key := cacheKey("portfolio", strings.Join(symbols, ","), r.interval, r.start, r.end, fmt.Sprint(req.Weights), 0, 0)
	var view PortfolioView
	if d.cached(ctx, key, &view) {
		return &view, nil
	}

	series, missing := marketdata.FetchAll(ctx, d.src, symbols, r.start, r.end, r.interval)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, strings.Join(symbols, ", "))
	}
	weights := req.Weights
	if len(missing) > 0 && len(weights) == len(symbols) {
		weights = dropMissing(symbols, weights, missing)
	}

	table, err := analytics.Align(series...)
	if err != nil {
		return nil, err
	}
	p, err := analytics.Aggregate(table, weights, r.opts)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		p.Warnings = append([]analytics.Warning{{
			Code:    WarnMissingData,
			Message: "no data for " + strings.Join(missing, ", ") + ", excluded",
		}}, p.Warnings...)
	}
	view = PortfolioView{
		Interval:  r.interval,
		Window:    r.window,
		Start:     r.start,
		End:       r.end,
		Missing:   missing,
		Portfolio: p,
	}
	d.log.Info().Strs("symbols", p.Symbols).Str("interval", r.interval).Int("rows", len(table.Timestamps)).
		Int("warnings", len(p.Warnings)).Msg("portfolio analyzed")
	d.store(ctx, key, view)
	return &view, nil
}

func dropMissing(symbols []string, weights []float64, missing []string) []float64 {
	gone := make(map[string]struct{}, len(missing))
	for _, m := range missing {
		gone[m] = struct{}{}
	}
	out := make([]float64, 0, len(weights))
	for i, s := range symbols {
		if _, ok := gone[s]; !ok {
			out = append(out, weights[i])
		}
	}
	return out
}

func cacheKey(kind, subject, interval string, start, end time.Time, extra string, a, b int) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s|%d|%d", kind, subject, interval, start.Unix(), end.Unix(), extra, a, b)
}

func (d *Dashboard) cached(ctx context.Context, key string, dst any) bool {
	if d.cache == nil {
		return false
	}
	b, ok := d.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		return false
	}
	return true
}

func (d *Dashboard) store(ctx context.Context, key string, v any) {
	if d.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cannot cache analysis")
		return
	}
	d.cache.Set(ctx, key, b)
}

// Chart returns the cached image under key, rendering and caching it on a miss.
func (d *Dashboard) Chart(ctx context.Context, key string, render func() ([]byte, error)) ([]byte, error) {
	key = "chart|" + key
	if d.cache != nil {
		if img, ok := d.cache.Get(ctx, key); ok {
			return img, nil
		}
	}
	img, err := render()
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache.Set(ctx, key, img)
	}
	return img, nil
}
