package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketdata_requests_total", Help: "Kline requests by host and outcome"},
		[]string{"host", "outcome"},
	)
	FetchEmpty = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketdata_empty_series_total", Help: "Fetches that produced no usable prices"},
		[]string{"symbol"},
	)
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "analyses_total", Help: "Analyses run by kind and result"},
		[]string{"kind", "result"},
	)
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_commands_total", Help: "Telegram commands handled"},
		[]string{"command"},
	)
	ReportRows = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "report_rows_total", Help: "CSV report rows written"},
	)
)

func init() {
	prometheus.MustRegister(FetchRequests, FetchEmpty, Analyses, CommandsTotal, ReportRows)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Serve runs a standalone metrics endpoint for processes without a router.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
