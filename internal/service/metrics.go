package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fileflow/internal/model"
)

var tracer = otel.Tracer("fileflow/internal/service")

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Metrics holds the ledger counters. A nil *Metrics records nothing.
type Metrics struct {
	shares          *prometheus.CounterVec
	quotaRejections prometheus.Counter
	underflowClamps prometheus.Counter
}

// NewMetrics creates the ledger counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		shares: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileflow_shares_total",
				Help: "Shares created or advanced, by resulting status.",
			},
			[]string{"status"},
		),
		quotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileflow_quota_rejections_total",
			Help: "Quota reservations rejected because the account would exceed its quota.",
		}),
		underflowClamps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileflow_quota_underflow_clamps_total",
			Help: "Quota releases that would have driven storage_used below zero.",
		}),
	}
	for _, c := range []prometheus.Collector{m.shares, m.quotaRejections, m.underflowClamps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) shareStatus(st model.Status) {
	if m == nil {
		return
	}
	m.shares.WithLabelValues(string(st)).Inc()
}

func (m *Metrics) quotaRejected() {
	if m == nil {
		return
	}
	m.quotaRejections.Inc()
}

func (m *Metrics) underflowClamped() {
	if m == nil {
		return
	}
	m.underflowClamps.Inc()
}
