package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/analytics"
	"quantDashboard/internal/finance"
)

type fakeAnalyzer struct {
	asset     finance.AssetRequest
	portfolio finance.PortfolioRequest
	err       error
}

func (f *fakeAnalyzer) Asset(_ context.Context, req finance.AssetRequest) (*finance.AssetView, error) {
	f.asset = req
	if f.err != nil {
		return nil, f.err
	}
	return &finance.AssetView{Interval: "1h", Window: "7d", Asset: &analytics.AssetAnalysis{Symbol: req.Symbol}}, nil
}

func (f *fakeAnalyzer) Portfolio(_ context.Context, req finance.PortfolioRequest) (*finance.PortfolioView, error) {
	f.portfolio = req
	if f.err != nil {
		return nil, f.err
	}
	return &finance.PortfolioView{Interval: "1h", Window: "7d", Portfolio: &analytics.PortfolioAnalysis{Symbols: req.Symbols}}, nil
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	r := NewRouter(&fakeAnalyzer{}, nil, zerolog.Nop())

	rec := do(t, r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWebhookRoute(t *testing.T) {
	hit := false
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { hit = true })

	r := NewRouter(&fakeAnalyzer{}, hook, zerolog.Nop())
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/telegram/webhook").Code)
	assert.True(t, hit)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodGet, "/telegram/webhook").Code)

	r = NewRouter(&fakeAnalyzer{}, nil, zerolog.Nop())
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/telegram/webhook").Code)
}

func TestAssetEndpoint(t *testing.T) {
	a := &fakeAnalyzer{}
	r := NewRouter(a, nil, zerolog.Nop())

	rec := do(t, r, http.MethodGet, "/api/asset/btcusdt?interval=4h&window=14d&strategy=ma&short=5&long=20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, finance.AssetRequest{Symbol: "BTCUSDT", Interval: "4h", Window: "14d", Strategy: "ma", Short: 5, Long: 20}, a.asset)

	var view finance.AssetView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "BTCUSDT", view.Asset.Symbol)
}

func TestAssetEndpointBadInput(t *testing.T) {
	r := NewRouter(&fakeAnalyzer{}, nil, zerolog.Nop())

	rec := do(t, r, http.MethodGet, "/api/asset/b$d")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, finance.KindBadRequest, decodeError(t, rec).Kind)

	rec = do(t, r, http.MethodGet, "/api/asset/BTCUSDT?short=five")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, finance.KindBadRequest, decodeError(t, rec).Kind)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{&analytics.ConfigError{Field: "short", Reason: "must be below long"}, http.StatusBadRequest, finance.KindConfiguration},
		{finance.ErrNoData, http.StatusUnprocessableEntity, finance.KindInsufficientData},
		{assert.AnError, http.StatusInternalServerError, finance.KindInternal},
	}
	for _, c := range cases {
		r := NewRouter(&fakeAnalyzer{err: c.err}, nil, zerolog.Nop())
		rec := do(t, r, http.MethodGet, "/api/asset/BTCUSDT")
		assert.Equal(t, c.status, rec.Code, c.kind)
		body := decodeError(t, rec)
		assert.Equal(t, c.kind, body.Kind)
		assert.Equal(t, c.err.Error(), body.Error)
	}
}

func TestPortfolioEndpoint(t *testing.T) {
	a := &fakeAnalyzer{}
	r := NewRouter(a, nil, zerolog.Nop())

	rec := do(t, r, http.MethodGet, "/api/portfolio?symbols=btcusdt,ETHUSDT,btcusdt&weights=0.6,0.4&window=30d")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, a.portfolio.Symbols)
	assert.Equal(t, []float64{0.6, 0.4}, a.portfolio.Weights)
	assert.Equal(t, "30d", a.portfolio.Window)

	rec = do(t, r, http.MethodGet, "/api/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.portfolio.Symbols)
	assert.Nil(t, a.portfolio.Weights)
}

func TestPortfolioEndpointBadWeights(t *testing.T) {
	r := NewRouter(&fakeAnalyzer{}, nil, zerolog.Nop())

	rec := do(t, r, http.MethodGet, "/api/portfolio?symbols=BTCUSDT,ETHUSDT&weights=0.5,abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, finance.KindBadRequest, decodeError(t, rec).Kind)

	rec = do(t, r, http.MethodGet, "/api/portfolio?symbols=BTCUSDT,ETHUSDT&weights=2,2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
