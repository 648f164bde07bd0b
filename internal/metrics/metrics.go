package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Registry holds every agent metric. It is separate from the default
// registry so pushes carry only agent series.
var Registry = prometheus.NewRegistry()

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "agent_decisions_total", Help: "Trade decisions recorded"},
		[]string{"action"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "agent_orders_total", Help: "Orders submitted to the brokerage"},
		[]string{"side", "result"},
	)
	ObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "agent_observations_total", Help: "Collected observations"},
		[]string{"source", "result"},
	)
	CycleDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "agent_cycle_duration_seconds", Help: "Wall time of the last decision cycle"},
	)
)

func init() {
	Registry.MustRegister(DecisionsTotal, OrdersTotal, ObservationsTotal, CycleDuration)
}

// Prometheus records cycle measurements into Registry.
type Prometheus struct{}

func (Prometheus) Decision(action model.Action) {
	DecisionsTotal.WithLabelValues(string(action)).Inc()
}

func (Prometheus) Order(side model.Side, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	OrdersTotal.WithLabelValues(string(side), result).Inc()
}

func (Prometheus) Cycle(elapsed time.Duration) {
	CycleDuration.Set(elapsed.Seconds())
}

// Observation counts one collected observation by source and result
// (stored, duplicate or error).
func (Prometheus) Observation(source model.Source, result string) {
	ObservationsTotal.WithLabelValues(string(source), result).Inc()
}

// Push sends the registry to a Pushgateway under job.
func Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(Registry).Push()
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
