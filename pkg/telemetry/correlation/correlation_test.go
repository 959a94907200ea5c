package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abc")
	ctx, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "abc", cid)
	assert.Equal(t, "abc", ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationIDGenerates(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	assert.Len(t, cid, 26)
	assert.Equal(t, cid, Metadata(ctx)[KeyCorrelationID])
}

func TestContextWithRemoteSpan(t *testing.T) {
	ctx := ContextWithRemoteSpan(context.Background(), "4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")
	md := Metadata(ctx)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", md[KeyTraceID])
	assert.Equal(t, "00f067aa0ba902b7", md[KeySpanID])

	unchanged := ContextWithRemoteSpan(context.Background(), "zz", "yy")
	assert.Empty(t, Metadata(unchanged))
}
