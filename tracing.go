package followgraph

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/anatolykoptev/go-followgraph"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
