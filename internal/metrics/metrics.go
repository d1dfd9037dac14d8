// Registers:
//
//	#contextgate_okx_requests_total
//	#contextgate_okx_request_duration_seconds
//	#contextgate_evaluations_total
//	#contextgate_evaluation_errors_total
//	#contextgate_journal_writes_total
//	#contextgate_trade_events_total
//	#contextgate_open_trades
//	#go_* and process_* system metrics
//
// Exposed through Handler, which the dashboard mounts on /metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	okxRequests     *prometheus.CounterVec
	okxDuration     *prometheus.HistogramVec
	evaluations     *prometheus.CounterVec
	evaluationError *prometheus.CounterVec
	journalWrites   *prometheus.CounterVec
	tradeEvents     *prometheus.CounterVec
	openTrades      *prometheus.GaugeVec
)

// Init builds the collectors. It is safe to call more than once and is
// invoked lazily by every recording helper.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		okxRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextgate_okx_requests_total",
				Help: "OKX REST requests by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		)
		okxDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contextgate_okx_request_duration_seconds",
				Help:    "OKX REST request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)
		evaluations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextgate_evaluations_total",
				Help: "Context classifications by verdict and behavior",
			},
			[]string{"verdict", "behavior"},
		)
		evaluationError = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextgate_evaluation_errors_total",
				Help: "Failed context evaluations by reason",
			},
			[]string{"reason"},
		)
		journalWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextgate_journal_writes_total",
				Help: "Journal rewrites by store and outcome",
			},
			[]string{"store", "outcome"},
		)
		tradeEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contextgate_trade_events_total",
				Help: "Trade lifecycle events",
			},
			[]string{"event"},
		)
		openTrades = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contextgate_open_trades",
				Help: "Open trades by time state",
			},
			[]string{"time_state"},
		)

		registry.MustRegister(okxRequests, okxDuration, evaluations, evaluationError, journalWrites, tradeEvents, openTrades)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry to tests and exporters.
func Gatherer() prometheus.Gatherer {
	Init()
	return registry
}

func ObserveRequest(endpoint, status string, d time.Duration) {
	Init()
	okxRequests.WithLabelValues(endpoint, status).Inc()
	okxDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func IncEvaluation(verdict, behavior string) {
	Init()
	evaluations.WithLabelValues(verdict, behavior).Inc()
}

func IncEvaluationError(reason string) {
	Init()
	evaluationError.WithLabelValues(reason).Inc()
}

func IncJournalWrite(store string, err error) {
	Init()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	journalWrites.WithLabelValues(store, outcome).Inc()
}

func IncTradeEvent(event string) {
	Init()
	tradeEvents.WithLabelValues(event).Inc()
}

// SetOpenTrades replaces the open-trade gauge with the given per-state counts.
func SetOpenTrades(byState map[string]int) {
	Init()
	openTrades.Reset()
	for state, n := range byState {
		openTrades.WithLabelValues(state).Set(float64(n))
	}
}
