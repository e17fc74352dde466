package ui

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what employees do with their bills. A nil *Metrics records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	billsListed  prometheus.Counter
	billsCreated prometheus.Counter
	storeErrors  *prometheus.CounterVec
	rejectedFile prometheus.Counter
}

// NewMetrics registers the counters on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billed",
			Subsystem: "ui",
			Name:      "requests_total",
			Help:      "HTTP requests served by the employee interface.",
		}, []string{"method", "code"}),
		billsListed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "billed",
			Subsystem: "bills",
			Name:      "listed_total",
			Help:      "Bills rendered in employee lists.",
		}),
		billsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "billed",
			Subsystem: "bills",
			Name:      "created_total",
			Help:      "Bills submitted successfully.",
		}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billed",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Failed calls to the bills store.",
		}, []string{"op"}),
		rejectedFile: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "billed",
			Subsystem: "bills",
			Name:      "rejected_receipts_total",
			Help:      "Receipts refused because of their extension.",
		}),
	}
}

func (m *Metrics) request(method, code string) {
	if m != nil {
		m.requests.WithLabelValues(method, code).Inc()
	}
}

func (m *Metrics) listed(n int) {
	if m != nil {
		m.billsListed.Add(float64(n))
	}
}

func (m *Metrics) created() {
	if m != nil {
		m.billsCreated.Inc()
	}
}

func (m *Metrics) storeError(op string) {
	if m != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) rejected() {
	if m != nil {
		m.rejectedFile.Inc()
	}
}
