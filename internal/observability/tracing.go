package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for service spans.
const TracerName = "github.com/couchcryptid/flood-risk-service"

// Tracer returns the service tracer from the global provider. Without an
// installed SDK provider the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
