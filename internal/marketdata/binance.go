package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"quantDashboard/internal/analytics"
	"quantDashboard/internal/config"
	"quantDashboard/internal/metrics"
)

const (
	klinesPath = "/api/v3/klines"
	maxKlines  = 1000
)

// DefaultHosts are tried in order on every attempt.
var DefaultHosts = []string{"api.binance.com", "api1.binance.com", "api2.binance.com"}

// Kline is one candlestick.
type Kline struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// KlineRequest selects candles whose open time lies in [Start, End).
type KlineRequest struct {
	Symbol   string
	Interval string
	Start    time.Time
	End      time.Time
}

// StatusError is a non-200 answer from the exchange.
type StatusError struct {
	Host string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("binance %s returned %d: %s", e.Host, e.Code, e.Body)
}

// permanent reports client errors that another host or attempt cannot fix.
func (e *StatusError) permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests && e.Code != 418
}

// Binance fetches klines from the public REST API.
type Binance struct {
	bases    []string
	client   *http.Client
	limiter  *rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
	backoffs []time.Duration
	clean    CleanOptions
	log      zerolog.Logger
}

type Option func(*Binance)

// WithBaseURL replaces the host fallback list with a single endpoint.
func WithBaseURL(base string) Option {
	return func(b *Binance) { b.bases = []string{base} }
}

// WithBaseURLs replaces the host fallback list.
func WithBaseURLs(bases ...string) Option {
	return func(b *Binance) { b.bases = bases }
}

func WithHTTPClient(c *http.Client) Option {
	return func(b *Binance) { b.client = c }
}

// WithRateLimit caps outgoing requests per second across all hosts.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *Binance) { b.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithBackoffs(d ...time.Duration) Option {
	return func(b *Binance) { b.backoffs = d }
}

func WithCleaning(opts CleanOptions) Option {
	return func(b *Binance) { b.clean = opts }
}

// NewBinance builds a client for the public Binance hosts.
func NewBinance(log zerolog.Logger, opts ...Option) *Binance {
	b := &Binance{
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
		clean:    DefaultCleanOptions(),
		log:      log,
	}
	for _, h := range DefaultHosts {
		b.bases = append(b.bases, "https://"+h)
	}
	for _, o := range opts {
		o(b)
	}
	b.breakers = make(map[string]*gobreaker.CircuitBreaker, len(b.bases))
	for _, base := range b.bases {
		b.breakers[base] = gobreaker.NewCircuitBreaker(breakerSettings(base, b.log))
	}
	return b
}

func breakerSettings(name string, log zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.ConsecutiveFailures >= 3 {
				return true
			}
			return c.Requests >= 20 && float64(c.TotalFailures)/float64(c.Requests) > 0.05
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.permanent()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("binance circuit state changed")
		},
	}
}

// FetchPriceSeries returns close prices for symbol, or an empty series when
// anything goes wrong. Failures are logged, never returned.
func (b *Binance) FetchPriceSeries(ctx context.Context, symbol string, start, end time.Time, interval string) analytics.PriceSeries {
	empty := analytics.PriceSeries{Symbol: symbol}
	klines, err := b.Klines(ctx, KlineRequest{Symbol: symbol, Interval: interval, Start: start, End: end})
	if err != nil {
		b.log.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).Msg("kline fetch failed")
		metrics.FetchEmpty.WithLabelValues(symbol).Inc()
		return empty
	}
	ts := make([]time.Time, len(klines))
	cl := make([]float64, len(klines))
	for i, k := range klines {
		ts[i] = k.OpenTime
		cl[i] = k.Close
	}
	ps, err := Clean(symbol, ts, cl, b.clean)
	if err != nil || ps.Len() == 0 {
		b.log.Warn().Err(err).Str("symbol", symbol).Int("klines", len(klines)).Msg("no usable prices")
		metrics.FetchEmpty.WithLabelValues(symbol).Inc()
		return empty
	}
	b.log.Debug().Str("symbol", symbol).Str("interval", interval).Int("points", ps.Len()).Msg("fetched price series")
	return ps
}

// Klines pages through the requested range, maxKlines candles per call.
func (b *Binance) Klines(ctx context.Context, req KlineRequest) ([]Kline, error) {
	if req.Symbol == "" {
		return nil, errors.New("binance: empty symbol")
	}
	if _, err := analytics.ParseInterval(req.Interval); err != nil {
		return nil, err
	}
	if !req.Start.Before(req.End) {
		return nil, fmt.Errorf("binance: start %s is not before end %s", req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339))
	}

	var out []Kline
	cursor := req.Start
	for {
		q := url.Values{}
		q.Set("symbol", req.Symbol)
		q.Set("interval", req.Interval)
		q.Set("startTime", strconv.FormatInt(cursor.UnixMilli(), 10))
		q.Set("endTime", strconv.FormatInt(req.End.UnixMilli()-1, 10))
		q.Set("limit", strconv.Itoa(maxKlines))

		body, err := b.get(ctx, klinesPath+"?"+q.Encode())
		if err != nil {
			return nil, err
		}
		page, err := parseKlines(body)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < maxKlines {
			return out, nil
		}
		next := page[len(page)-1].OpenTime.Add(time.Millisecond)
		if !next.Before(req.End) {
			return out, nil
		}
		cursor = next
	}
}

// get tries every host, then backs off and tries again.
func (b *Binance) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < len(b.backoffs)+1; attempt++ {
		for _, base := range b.bases {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			res, err := b.breakers[base].Execute(func() (interface{}, error) {
				return b.do(ctx, base, base+pathAndQuery)
			})
			if err == nil {
				metrics.FetchRequests.WithLabelValues(base, "ok").Inc()
				return res.([]byte), nil
			}
			metrics.FetchRequests.WithLabelValues(base, "error").Inc()
			b.log.Debug().Err(err).Str("host", base).Int("attempt", attempt).Msg("binance request failed")
			lastErr = err
			var se *StatusError
			if errors.As(err, &se) && se.permanent() {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		if attempt < len(b.backoffs) {
			select {
			case <-time.After(b.backoffs[attempt]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (b *Binance) do(ctx context.Context, base, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read binance response: %w", readErr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Host: base, Code: resp.StatusCode, Body: preview(body)}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("binance returned non-json body: %s", preview(body))
	}
	return body, nil
}

// parseKlines decodes the array-of-arrays payload. Numeric fields arrive as
// strings; gjson converts them.
func parseKlines(body []byte) ([]Kline, error) {
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		if msg := res.Get("msg"); msg.Exists() {
			return nil, fmt.Errorf("binance error %d: %s", res.Get("code").Int(), msg.String())
		}
		return nil, fmt.Errorf("unexpected kline payload: %s", preview(body))
	}
	rows := res.Array()
	out := make([]Kline, 0, len(rows))
	for _, row := range rows {
		f := row.Array()
		if len(f) < 7 {
			continue
		}
		out = append(out, Kline{
			OpenTime:  time.UnixMilli(f[0].Int()).UTC(),
			Open:      f[1].Float(),
			High:      f[2].Float(),
			Low:       f[3].Float(),
			Close:     f[4].Float(),
			Volume:    f[5].Float(),
			CloseTime: time.UnixMilli(f[6].Int()).UTC(),
		})
	}
	return out, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// NewBinanceFromConfig applies the market section of the service config.
func NewBinanceFromConfig(m config.Market, log zerolog.Logger) *Binance {
	opts := []Option{}
	if m.RateLimit > 0 {
		burst := m.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, WithRateLimit(m.RateLimit, burst))
	}
	if m.TimeoutSecs > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: time.Duration(m.TimeoutSecs) * time.Second}))
	}
	if m.BaseURL != "" {
		opts = append(opts, WithBaseURL(m.BaseURL))
	}
	clean := DefaultCleanOptions()
	clean.IQR = m.CleanIQR
	opts = append(opts, WithCleaning(clean))
	return NewBinance(log, opts...)
}
