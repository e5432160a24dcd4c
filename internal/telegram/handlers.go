package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"quantDashboard/internal/analytics"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/metrics"
	"quantDashboard/internal/storage"
)

// /command@botname args...
var reCommand = regexp.MustCompile(`^/([a-z_]+)(?:@[\w_]+)?(?:\s+(.*))?$`)

// Sender is the part of the Bot API the handlers talk to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Store records command usage and serves the history commands.
type Store interface {
	RecordUsage(ctx context.Context, chatID int64, command, category string, ts time.Time) error
	UsageStats(ctx context.Context, since time.Time) (map[string]*storage.UsageStats, error)
	UsageSeries(ctx context.Context, since time.Time, bucket time.Duration) (map[string][]storage.TimeSeriesPoint, error)
	RecentReportRuns(ctx context.Context, limit int) ([]storage.ReportRun, error)
}

// Commentator writes a plain-language reading of a metrics record.
type Commentator interface {
	Comment(ctx context.Context, title string, rec analytics.Record, warnings []string) (string, error)
}

type Handlers struct {
	api     Sender
	dash    *finance.Dashboard
	store   Store
	insight Commentator
	log     zerolog.Logger
	timeout time.Duration
}

// NewHandlers wires the command handlers. store and insight may be nil.
func NewHandlers(api Sender, dash *finance.Dashboard, store Store, insight Commentator, log zerolog.Logger) *Handlers {
	return &Handlers{
		api:     api,
		dash:    dash,
		store:   store,
		insight: insight,
		log:     log,
		timeout: 60 * time.Second,
	}
}

// ServeHTTP accepts Telegram webhook updates and handles messages in the
// background so Telegram gets its answer immediately.
func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil {
		h.log.Debug().Int("update_id", update.UpdateID).Msg("non-message update received")
		w.WriteHeader(http.StatusOK)
		return
	}
	h.log.Debug().Int64("chat_id", update.Message.Chat.ID).Str("text", update.Message.Text).Msg("webhook message")
	go h.HandleMessage(update.Message)
	w.WriteHeader(http.StatusOK)
}

// HandleMessage dispatches one chat message. Anything that is not a known
// command is ignored.
func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	g := reCommand.FindStringSubmatch(strings.TrimSpace(m.Text))
	if g == nil {
		return
	}
	cmd, args := g[1], strings.Fields(g[2])
	chatID := m.Chat.ID

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var handle func(context.Context, int64, []string)
	category := finance.CategoryAdmin
	switch cmd {
	case "asset":
		handle, category = h.handleAsset, finance.CategoryAsset
	case "ma":
		handle, category = h.handleStrategy, finance.CategoryStrategy
	case "portfolio":
		handle, category = h.handlePortfolio, finance.CategoryPortfolio
	case "insight":
		handle, category = h.handleInsight, finance.CategoryInsight
	case "history":
		handle = h.handleHistory
	case "usage":
		handle = h.handleUsage
	case "help", "start":
		handle = h.handleHelp
	default:
		return
	}

	metrics.CommandsTotal.WithLabelValues(cmd).Inc()
	if h.store != nil {
		if err := h.store.RecordUsage(ctx, chatID, "/"+cmd, category, time.Now()); err != nil {
			h.log.Warn().Err(err).Str("command", cmd).Msg("failed to record usage")
		}
	}
	h.log.Info().Int64("chat_id", chatID).Str("command", cmd).Strs("args", args).Msg("command received")
	handle(ctx, chatID, args)
}

func (h *Handlers) handleAsset(ctx context.Context, chatID int64, args []string) {
	req, err := finance.ParseAssetArgs(args)
	if err != nil {
		h.reply(chatID, finance.Describe(err)+"\nUsage: /asset SYMBOL [interval] [window]")
		return
	}
	view, err := h.dash.Asset(ctx, req)
	if err != nil {
		h.reply(chatID, finance.Describe(err))
		return
	}
	key := chartKey("value", view.Asset.Symbol, view.Interval, view.Start, view.End)
	h.sendChart(ctx, chatID, view.Asset.Symbol+"_value.png", key, finance.AssetTitle(view), func() ([]byte, error) {
		return finance.RenderValueChart(view)
	})
	h.reply(chatID, finance.FormatAsset(view))
}

func (h *Handlers) handleStrategy(ctx context.Context, chatID int64, args []string) {
	req, err := finance.ParseStrategyArgs(args)
	if err != nil {
		h.reply(chatID, finance.Describe(err)+"\nUsage: /ma SYMBOL SHORT LONG [interval] [window]")
		return
	}
	view, err := h.dash.Asset(ctx, req)
	if err != nil {
		h.reply(chatID, finance.Describe(err))
		return
	}
	if view.Strategy != nil {
		key := chartKey("strategy:"+view.Strategy.Strategy, view.Asset.Symbol, view.Interval, view.Start, view.End)
		h.sendChart(ctx, chatID, view.Asset.Symbol+"_ma.png", key, finance.AssetTitle(view)+" • "+view.Strategy.Strategy, func() ([]byte, error) {
			return finance.RenderStrategyChart(view)
		})
	}
	h.reply(chatID, finance.FormatAsset(view))
}

func (h *Handlers) handlePortfolio(ctx context.Context, chatID int64, args []string) {
	req, err := finance.ParsePortfolioArgs(args)
	if err != nil {
		h.reply(chatID, finance.Describe(err)+"\nUsage: /portfolio S1 S2 ... [w1,w2,...] [interval] [window]")
		return
	}
	view, err := h.dash.Portfolio(ctx, req)
	if err != nil {
		h.reply(chatID, finance.Describe(err))
		return
	}
	p := view.Portfolio
	subject := strings.Join(p.Symbols, ",") + "|" + fmt.Sprint(p.Weights)
	name := strings.Join(p.Symbols, "_")
	h.sendChart(ctx, chatID, name+"_indexed.png", chartKey("normalized", subject, view.Interval, view.Start, view.End),
		"Indexed: "+strings.Join(p.Symbols, ", "), func() ([]byte, error) {
			return finance.RenderNormalizedChart(view)
		})
	if c := p.Record.Correlation; c != nil && len(c.Symbols) > 1 {
		h.sendChart(ctx, chatID, name+"_correlation.png", chartKey("correlation", subject, view.Interval, view.Start, view.End),
			"Correlation of returns", func() ([]byte, error) {
				return finance.RenderCorrelationTable(*c)
			})
	}
	h.reply(chatID, finance.FormatPortfolio(view))
}

func (h *Handlers) handleInsight(ctx context.Context, chatID int64, args []string) {
	if h.insight == nil {
		h.reply(chatID, "AI insights are disabled: no OpenAI API key configured.")
		return
	}
	req, err := finance.ParseAssetArgs(args)
	if err != nil {
		h.reply(chatID, finance.Describe(err)+"\nUsage: /insight SYMBOL [interval] [window]")
		return
	}
	view, err := h.dash.Asset(ctx, req)
	if err != nil {
		h.reply(chatID, finance.Describe(err))
		return
	}
	out, err := h.insight.Comment(ctx, finance.AssetTitle(view), view.Asset.Record, nil)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("insight failed")
		h.reply(chatID, "Insight failed: "+err.Error())
		return
	}
	msg := tgbotapi.NewMessage(chatID, out)
	msg.ParseMode = "Markdown"
	h.send(msg)
}

func (h *Handlers) handleHistory(ctx context.Context, chatID int64, args []string) {
	if h.store == nil {
		h.reply(chatID, "History is not available.")
		return
	}
	n := boundedInt(args, 5, 1, 20)
	runs, err := h.store.RecentReportRuns(ctx, n)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "No reports generated yet.")
		return
	}
	var b strings.Builder
	b.WriteString("🗂 Recent reports\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "  • %s • %s • %d rows\n", r.ReportDate, r.Assets, r.Rows)
	}
	h.reply(chatID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handlers) handleUsage(ctx context.Context, chatID int64, args []string) {
	if h.store == nil {
		h.reply(chatID, "Usage statistics are not available.")
		return
	}
	days := boundedInt(args, 7, 1, 90)
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	stats, err := h.store.UsageStats(ctx, since)
	if err != nil {
		h.reply(chatID, "Usage failed: "+err.Error())
		return
	}
	if len(stats) > 0 {
		if img, err := finance.RenderUsagePie(stats, days); err == nil {
			h.sendPhoto(chatID, "usage.png", img, fmt.Sprintf("Usage • %dd", days))
		} else {
			h.log.Warn().Err(err).Msg("usage chart failed")
		}
	}
	h.reply(chatID, finance.FormatUsage(stats, days))
}

func (h *Handlers) handleHelp(_ context.Context, chatID int64, _ []string) {
	cfg := h.dash.Config()
	help := "Commands\n\n" +
		"- /asset SYMBOL [interval] [window] - Buy & hold value, drawdown and metrics\n" +
		"- /ma SYMBOL SHORT LONG [interval] [window] - Moving-average crossover vs buy & hold\n" +
		"- /portfolio S1 S2 ... [w1,w2,...] [interval] [window] - Static-weight portfolio, indexed prices and correlation\n" +
		"- /insight SYMBOL [interval] [window] - AI commentary on the metrics\n" +
		"- /history [n] - Latest daily reports\n" +
		"- /usage [days] - Command usage\n" +
		"\nIntervals: 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w. Windows: 12h, 30d, 4w, 6m, 1y (max 5y).\n" +
		"A lone interval code is read as the interval; pass both to set the window, e.g. 1h 1d.\n" +
		fmt.Sprintf("Defaults: %s, %s window, symbols %s. Times are UTC.",
			cfg.Market.Interval, cfg.Market.Window, strings.Join(cfg.Market.Symbols, " "))
	h.reply(chatID, help)
}

func boundedInt(args []string, def, lo, hi int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func chartKey(kind, subject, interval string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", kind, subject, interval, start.Unix(), end.Unix())
}

// sendChart renders through the dashboard chart cache. A chart failure is
// logged and skipped; the text answer still goes out.
func (h *Handlers) sendChart(ctx context.Context, chatID int64, name, key, caption string, render func() ([]byte, error)) {
	img, err := h.dash.Chart(ctx, key, render)
	if err != nil {
		h.log.Warn().Err(err).Str("chart", key).Msg("chart failed")
		return
	}
	h.sendPhoto(chatID, name, img, caption)
}

func (h *Handlers) sendPhoto(chatID int64, name string, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = caption
	h.send(photo)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn().Err(err).Msg("telegram send failed")
	}
}
