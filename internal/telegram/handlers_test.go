package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/analytics"
	"quantDashboard/internal/cache"
	"quantDashboard/internal/config"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/marketdata"
	"quantDashboard/internal/storage"
)

type fakeSender struct {
	mu     sync.Mutex
	texts  []string
	photos []tgbotapi.PhotoConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		f.texts = append(f.texts, v.Text)
	case tgbotapi.PhotoConfig:
		f.photos = append(f.photos, v)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type usageRecord struct {
	command, category string
}

type fakeStore struct {
	mu    sync.Mutex
	usage []usageRecord
	runs  []storage.ReportRun
}

func (f *fakeStore) RecordUsage(_ context.Context, _ int64, command, category string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = append(f.usage, usageRecord{command, category})
	return nil
}

func (f *fakeStore) UsageStats(context.Context, time.Time) (map[string]*storage.UsageStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]*storage.UsageStats{}
	for _, u := range f.usage {
		st, ok := out[u.category]
		if !ok {
			st = &storage.UsageStats{Commands: map[string]int{}}
			out[u.category] = st
		}
		st.Count++
		st.Commands[u.command]++
	}
	return out, nil
}

func (f *fakeStore) UsageSeries(context.Context, time.Time, time.Duration) (map[string][]storage.TimeSeriesPoint, error) {
	return nil, nil
}

func (f *fakeStore) RecentReportRuns(_ context.Context, limit int) ([]storage.ReportRun, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fakeCommentator struct{ err error }

func (f fakeCommentator) Comment(_ context.Context, title string, _ analytics.Record, _ []string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "commentary for " + title, nil
}

func newTestHandlers(insight Commentator) (*Handlers, *fakeSender, *fakeStore) {
	dash := finance.NewDashboard(marketdata.Synthetic{}, cache.NewMemory(time.Minute), config.Default(), zerolog.Nop())
	sender := &fakeSender{}
	store := &fakeStore{}
	return NewHandlers(sender, dash, store, insight, zerolog.Nop()), sender, store
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}}
}

func TestHandleAsset(t *testing.T) {
	h, sender, store := newTestHandlers(nil)

	h.HandleMessage(message("/asset btcusdt 1h 3d"))

	require.Len(t, sender.photos, 1)
	assert.Equal(t, "BTCUSDT • 1H • 3D", sender.photos[0].Caption)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "Total return:")
	assert.Contains(t, sender.texts[0], "Sharpe ratio:")
	assert.Equal(t, []usageRecord{{"/asset", finance.CategoryAsset}}, store.usage)
}

func TestHandleAssetUsageError(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)

	h.HandleMessage(message("/asset"))

	assert.Empty(t, sender.photos)
	assert.Contains(t, sender.lastText(), "Usage: /asset SYMBOL")
}

func TestHandleStrategy(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)

	h.HandleMessage(message("/ma@quantbot ETHUSDT 5 20 1h 7d"))

	require.Len(t, sender.photos, 1)
	assert.Contains(t, sender.lastText(), "MA 5/20")
}

func TestHandleStrategyConfigError(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)

	h.HandleMessage(message("/ma ETHUSDT 50 20"))

	assert.Empty(t, sender.photos)
	assert.Contains(t, sender.lastText(), "Configuration error")
}

func TestHandlePortfolioShowsFallbackWarning(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)

	h.HandleMessage(message("/portfolio BTCUSDT ETHUSDT 0.2,0.3,0.5 1d 30d"))

	assert.Len(t, sender.photos, 2)
	out := sender.lastText()
	assert.Contains(t, out, "got 3 weights for 2 assets")
	assert.Contains(t, out, "BTCUSDT: 50.0%")
	assert.Contains(t, out, "Correlation")
}

func TestHandlePortfolioSingleAsset(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)

	h.HandleMessage(message("/portfolio BTCUSDT 1d 30d"))

	assert.Len(t, sender.photos, 1)
	assert.Contains(t, sender.lastText(), "only one asset")
}

func TestHandleInsight(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)
	h.HandleMessage(message("/insight BTCUSDT"))
	assert.Contains(t, sender.lastText(), "disabled")

	h, sender, _ = newTestHandlers(fakeCommentator{})
	h.HandleMessage(message("/insight BTCUSDT 1d 30d"))
	assert.Equal(t, "commentary for BTCUSDT • 1D • 30D", sender.lastText())

	h, sender, _ = newTestHandlers(fakeCommentator{err: errors.New("quota")})
	h.HandleMessage(message("/insight BTCUSDT 1d 30d"))
	assert.Equal(t, "Insight failed: quota", sender.lastText())
}

func TestHandleHistory(t *testing.T) {
	h, sender, store := newTestHandlers(nil)
	h.HandleMessage(message("/history"))
	assert.Equal(t, "No reports generated yet.", sender.lastText())

	store.runs = []storage.ReportRun{{ReportDate: "2024-05-01", Assets: "BTCUSDT,ETHUSDT", Rows: 3}}
	h.HandleMessage(message("/history 3"))
	assert.Contains(t, sender.lastText(), "2024-05-01 • BTCUSDT,ETHUSDT • 3 rows")
}

func TestHandleUsage(t *testing.T) {
	h, sender, _ := newTestHandlers(nil)
	h.HandleMessage(message("/help"))
	h.HandleMessage(message("/usage 7"))

	assert.Len(t, sender.photos, 1)
	assert.Contains(t, sender.lastText(), "Total commands: 2")
}

func TestHelpAndUnknown(t *testing.T) {
	h, sender, store := newTestHandlers(nil)

	h.HandleMessage(message("hello there"))
	h.HandleMessage(message("/unknown"))
	assert.Empty(t, sender.texts)
	assert.Empty(t, store.usage)

	h.HandleMessage(message("/start"))
	assert.Contains(t, sender.lastText(), "/portfolio S1 S2")
	assert.True(t, strings.Contains(sender.lastText(), "BTCUSDT ETHUSDT"))
}

func TestBoundedInt(t *testing.T) {
	assert.Equal(t, 5, boundedInt(nil, 5, 1, 20))
	assert.Equal(t, 20, boundedInt([]string{"99"}, 5, 1, 20))
	assert.Equal(t, 1, boundedInt([]string{"-3"}, 5, 1, 20))
	assert.Equal(t, 5, boundedInt([]string{"x"}, 5, 1, 20))
}

func TestWebhookRejectsBadUpdate(t *testing.T) {
	h, _, _ := newTestHandlers(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
