package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CapabilityOCR          = "ocr"
	CapabilityFlightStatus = "flight_status"
	CapabilityClassify     = "document_classification"
	CapabilityCaseAnalysis = "case_analysis"
	CapabilityBlobStore    = "blob_store"
)

const (
	OutcomeSuccess  = "success"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// CapabilityMetrics tracks calls to external collaborators.
type CapabilityMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	capabilityMetrics     *CapabilityMetrics
	capabilityMetricsOnce sync.Once
)

// Capability returns the process-wide collector registered on the default registry.
func Capability() *CapabilityMetrics {
	capabilityMetricsOnce.Do(func() {
		capabilityMetrics = NewCapabilityMetrics(prometheus.DefaultRegisterer)
	})
	return capabilityMetrics
}

func NewCapabilityMetrics(registerer prometheus.Registerer) *CapabilityMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &CapabilityMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sanad_capability_calls_total",
			Help: "External capability calls by capability and outcome.",
		}, []string{"capability", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sanad_capability_call_duration_seconds",
			Help:    "External capability call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"capability"}),
	}
	registerer.MustRegister(m.calls, m.duration)
	return m
}

// Observe records one call of capability that took duration and ended with err.
func (m *CapabilityMetrics) Observe(capability string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(capability, ClassifyOutcome(err)).Inc()
	m.duration.WithLabelValues(capability).Observe(duration.Seconds())
}

func ClassifyOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
