// Package tracing provides OpenTelemetry tracing integration.
//
// It provides Middleware, which starts one server span per HTTP request and
// returns the trace id in the X-Trace-Id response header, and GetTracer for
// starting spans elsewhere. The package does not set up a tracer provider,
// propagator or exporter; it uses whatever is registered with otel.
//
// Example usage:
//
//	import "newsgraph/internal/observability/tracing"
//
//	handler := tracing.Middleware(mux)
//
//	func processRequest(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "process-request")
//	    defer span.End()
//	    // ... process request ...
//	}
package tracing
