package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("category", "flight"),
		attribute.String("claim_id", "456"),
		attribute.String("mode", "analyze"),
	)
	assert.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("claim_id"), attr.Key)
	}
}

func TestClassifyOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, ClassifyOutcome(nil))
	assert.Equal(t, OutcomeTimeout, ClassifyOutcome(fmt.Errorf("ocr: %w", context.DeadlineExceeded)))
	assert.Equal(t, OutcomeCanceled, ClassifyOutcome(context.Canceled))
	assert.Equal(t, OutcomeError, ClassifyOutcome(errors.New("boom")))
}

func TestCapabilityMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewCapabilityMetrics(registry)

	m.Observe(CapabilityOCR, 200*time.Millisecond, nil)
	m.Observe(CapabilityOCR, time.Second, context.DeadlineExceeded)
	m.Observe(CapabilityOCR, time.Second, context.DeadlineExceeded)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.calls.WithLabelValues(CapabilityOCR, OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.calls.WithLabelValues(CapabilityOCR, OutcomeTimeout)))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := NewHTTPMetrics(registry)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/claims/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/claims/9", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/claims/:id", "200")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordClaimCreated(context.Background(), "flight")
	NewNoop().RecordTransition(context.Background(), "new", "in_review")
}
