package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus collectors for the backtest service.
// One Registry per process; the API server exposes it on /metrics.
type Registry struct {
	BacktestsTotal   *prometheus.CounterVec
	BacktestDuration *prometheus.HistogramVec
	StepsTotal       prometheus.Counter
	TradesTotal      *prometheus.CounterVec

	ProviderCalls  prometheus.Counter
	ProviderErrors *prometheus.CounterVec

	reg *prometheus.Registry
}

func NewRegistry() *Registry {
	r := &Registry{
		BacktestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_backtests_total",
				Help: "Completed backtest runs by strategy and outcome",
			},
			[]string{"strategy", "status"},
		),
		BacktestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cortex_backtest_duration_seconds",
				Help:    "Wall time of one backtest run",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"strategy"},
		),
		StepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cortex_steps_total",
				Help: "Simulation steps executed across all runs",
			},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_trades_total",
				Help: "Fills executed by side",
			},
			[]string{"side"},
		),
		ProviderCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cortex_provider_calls_total",
				Help: "Requests sent to the analyzer provider",
			},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_provider_errors_total",
				Help: "Failed analyzer requests by kind",
			},
			[]string{"kind"},
		),
		reg: prometheus.NewRegistry(),
	}

	r.reg.MustRegister(
		r.BacktestsTotal,
		r.BacktestDuration,
		r.StepsTotal,
		r.TradesTotal,
		r.ProviderCalls,
		r.ProviderErrors,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Default is the process-wide registry. Libraries increment through it;
// binaries that want isolation construct their own.
var Default = NewRegistry()
