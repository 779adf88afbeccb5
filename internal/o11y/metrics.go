package o11y

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	rideTransitions *prometheus.CounterVec
	rideRejections  *prometheus.CounterVec
	ledgerCalls     *prometheus.CounterVec
	ledgerDuration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rideTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ride_transitions_total",
				Help: "Ride requests entering each status",
			},
			[]string{"status"},
		),
		rideRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ride_operation_errors_total",
				Help: "Lifecycle operations refused, by operation and reason",
			},
			[]string{"operation", "reason"},
		),
		ledgerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_calls_total",
				Help: "Ledger invocations and queries by function and outcome",
			},
			[]string{"function", "outcome"},
		),
		ledgerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_call_duration_seconds",
				Help:    "Ledger call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"function"},
		),
	}
	reg.MustRegister(m.rideTransitions, m.rideRejections, m.ledgerCalls, m.ledgerDuration)
	return m
}

func (m *Metrics) RideTransition(status string) {
	if m == nil {
		return
	}
	m.rideTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RideRefused(operation, reason string) {
	if m == nil {
		return
	}
	m.rideRejections.WithLabelValues(operation, reason).Inc()
}

func (m *Metrics) LedgerCall(function string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ledgerCalls.WithLabelValues(function, outcome).Inc()
	m.ledgerDuration.WithLabelValues(function).Observe(took.Seconds())
}
