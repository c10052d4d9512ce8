package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ekristen/go-otelkit/instrumentation"
)

// ITelemetry is the interface for the telemetry system.
type ITelemetry interface {
	// Config returns the resolved configuration snapshot.
	Config() *SDKConfig

	// Tracer returns the tracer scoped to the dotted service name.
	Tracer() trace.Tracer
	// Meter returns the session meter.
	Meter() metric.Meter
	// SetMeter replaces the session meter.
	SetMeter(m metric.Meter)
	// Logger returns the session logger.
	Logger() Logger

	// Instrumentations returns the active instrumentations.
	Instrumentations() []instrumentation.Instrumentation

	// LoggerProvider returns the OTel logger provider.
	LoggerProvider() *sdklog.LoggerProvider
	// MeterProvider returns the OTel meter provider.
	MeterProvider() *sdkmetric.MeterProvider
	// TracerProvider returns the OTel tracer provider.
	TracerProvider() *sdktrace.TracerProvider
	// PrometheusHandler returns the Prometheus handler, nil if disabled.
	PrometheusHandler() http.Handler

	// StartSpan starts a new span with the given name.
	// The returned context contains the span information which will be automatically extracted
	// by the logger's OTel integration.
	StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
	// StartSpanWithLogger starts a span and returns a logger bound to it.
	StartSpanWithLogger(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, Logger)

	// InstrumentFastifyMetrics registers the request metrics hook on app.
	InstrumentFastifyMetrics(app HookRegistrar) error

	// Shutdown flushes and shuts down all telemetry providers once.
	Shutdown(ctx context.Context) error
}

var _ ITelemetry = (*Session)(nil)
