// Package server exposes the dashboard over HTTP: the Telegram webhook, a
// JSON API, health and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"quantDashboard/internal/finance"
	"quantDashboard/internal/metrics"
)

// Analyzer runs dashboard analyses.
type Analyzer interface {
	Asset(ctx context.Context, req finance.AssetRequest) (*finance.AssetView, error)
	Portfolio(ctx context.Context, req finance.PortfolioRequest) (*finance.PortfolioView, error)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type api struct {
	a   Analyzer
	log zerolog.Logger
}

// NewRouter registers every route. webhook may be nil when the bot is not
// configured.
func NewRouter(a Analyzer, webhook http.Handler, log zerolog.Logger) *mux.Router {
	h := &api{a: a, log: log}
	r := mux.NewRouter()
	r.Use(h.logRequests)
	if webhook != nil {
		r.Handle("/telegram/webhook", webhook).Methods(http.MethodPost)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	sub := r.PathPrefix("/api").Subrouter()
	sub.HandleFunc("/asset/{symbol}", h.asset).Methods(http.MethodGet)
	sub.HandleFunc("/portfolio", h.portfolio).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (h *api) asset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := finance.ParseAssetArgs([]string{mux.Vars(r)["symbol"]})
	if err != nil {
		h.writeError(w, err)
		return
	}
	req.Interval = q.Get("interval")
	req.Window = q.Get("window")
	req.Strategy = q.Get("strategy")
	if req.Short, err = intParam(q.Get("short")); err == nil {
		req.Long, err = intParam(q.Get("long"))
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.a.Asset(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *api) portfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req finance.PortfolioRequest
	if s := strings.TrimSpace(q.Get("symbols")); s != "" {
		parsed, err := finance.ParsePortfolioArgs(strings.Split(s, ","))
		if err != nil {
			h.writeError(w, err)
			return
		}
		req.Symbols = parsed.Symbols
	}
	weights, err := finance.ParseWeightsParam(q.Get("weights"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	req.Weights = weights
	req.Interval = q.Get("interval")
	req.Window = q.Get("window")

	view, err := h.a.Portfolio(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, finance.Usagef("%q is not an integer", s)
	}
	return n, nil
}

func statusFor(kind string) int {
	switch kind {
	case finance.KindBadRequest, finance.KindConfiguration:
		return http.StatusBadRequest
	case finance.KindInsufficientData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *api) writeError(w http.ResponseWriter, err error) {
	kind := finance.ErrorKind(err)
	status := statusFor(kind)
	if status >= 500 {
		h.log.Error().Err(err).Msg("api request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).
			Dur("took", time.Since(start)).Msg("http request")
	})
}
