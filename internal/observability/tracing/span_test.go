package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("claim_id", "1"),
		attribute.String("phone", "0500000000"),
		attribute.String("customer_name", "x"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("claim_id"), attrs[0].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	long := errors.New(strings.Repeat("a", 400))
	assert.Len(t, SafeError(long).Error(), 256)
}
