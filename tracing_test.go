package followgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTraverse_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	g := newFakeGraph().
		user("0", "root").user("1", "alice").user("2", "bob").
		follows("0", "1", "2")
	te := newTestEngine(t, g, func(c *Config) { c.Tracer = tp.Tracer("test") })

	_, err := te.Traverse(context.Background(), "0", 0)
	require.NoError(t, err)

	counts := map[string]int{}
	var traverseID string
	for _, s := range rec.Ended() {
		counts[s.Name()]++
		if s.Name() == "followgraph.Traverse" {
			traverseID = s.SpanContext().TraceID().String()
		}
	}
	assert.Equal(t, 1, counts["followgraph.Traverse"])
	assert.Equal(t, 2, counts["followgraph.Visit"])
	assert.Equal(t, 2, counts["followgraph.Resolve"])

	for _, s := range rec.Ended() {
		assert.Equal(t, traverseID, s.SpanContext().TraceID().String(), "span %s in a different trace", s.Name())
	}
}
