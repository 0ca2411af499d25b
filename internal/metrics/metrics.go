// Package metrics defines the prometheus collectors of the engine. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RPCRequests       *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	SubmissionLatency *prometheus.HistogramVec
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	BookSpread        *prometheus.GaugeVec
	APIRequests       *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlusd_ledger_requests_total",
				Help: "Ledger node requests by command and status.",
			},
			[]string{"command", "status"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlusd_submissions_total",
				Help: "Transaction submissions by chain and result code.",
			},
			[]string{"chain", "result"},
		),
		SubmissionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rlusd_submission_latency_seconds",
				Help:    "Time from submit to final outcome.",
				Buckets: []float64{1, 2, 4, 8, 15, 30, 60, 120},
			},
			[]string{"chain"},
		),
		EventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlusd_events_delivered_total",
				Help: "Subscription events delivered to sinks.",
			},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlusd_events_dropped_total",
				Help: "Raw events not delivered, by reason.",
			},
			[]string{"reason"},
		),
		BookSpread: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rlusd_book_spread",
				Help: "Last observed absolute spread in XRP per RLUSD.",
			},
			[]string{"network"},
		),
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlusd_api_requests_total",
				Help: "JSON-RPC API requests by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
	}

	registry.MustRegister(
		m.RPCRequests,
		m.Submissions,
		m.SubmissionLatency,
		m.EventsDelivered,
		m.EventsDropped,
		m.BookSpread,
		m.APIRequests,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(command string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RPCRequests.WithLabelValues(command, status).Inc()
}

func (m *Metrics) ObserveSubmission(chain, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(chain, result).Inc()
	m.SubmissionLatency.WithLabelValues(chain).Observe(duration.Seconds())
}

func (m *Metrics) EventDelivered(kind string) {
	if m == nil {
		return
	}
	m.EventsDelivered.WithLabelValues(kind).Inc()
}

func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetBookSpread(network string, spread float64) {
	if m == nil {
		return
	}
	m.BookSpread.WithLabelValues(network).Set(spread)
}

func (m *Metrics) ObserveAPI(method, outcome string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, outcome).Inc()
}
