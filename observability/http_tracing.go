package observability

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// HTTPTracingTransport wraps http.RoundTripper with OpenTelemetry client spans.
type HTTPTracingTransport struct {
	base       http.RoundTripper
	tracerName string
}

// NewHTTPTracingTransport creates a new HTTP transport with tracing
func NewHTTPTracingTransport(base http.RoundTripper, tracerName string) *HTTPTracingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &HTTPTracingTransport{base: base, tracerName: tracerName}
}

// RoundTrip implements http.RoundTripper
func (t *HTTPTracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := Tracer(t.tracerName).Start(req.Context(), req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethod(req.Method),
			semconv.HTTPURL(req.URL.Redacted()),
			semconv.NetPeerName(req.URL.Hostname()),
		),
	)
	defer span.End()

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(semconv.HTTPStatusCode(resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return resp, nil
}
