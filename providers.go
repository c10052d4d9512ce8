package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ExporterKind tells network exporters from console exporters.
type ExporterKind string

const (
	ExporterOTLP    ExporterKind = "otlp"
	ExporterConsole ExporterKind = "console"
)

// ExporterConfig describes one exporter of a session.
type ExporterConfig[E any] struct {
	Kind ExporterKind
	// Endpoint is the collector endpoint for ExporterOTLP, empty otherwise.
	Endpoint string
	Exporter E
}

// isURL reports whether endpoint carries a scheme. Such endpoints are passed
// to the exporters as URLs, anything else as host:port.
func isURL(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}

// newTraceExporter creates the console exporter in debug mode, the OTLP gRPC
// exporter otherwise.
func newTraceExporter(ctx context.Context, cfg *Config) (ExporterConfig[sdktrace.SpanExporter], error) {
	if cfg.Debug {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.DebugOutput), stdouttrace.WithPrettyPrint())
		if err != nil {
			return ExporterConfig[sdktrace.SpanExporter]{}, fmt.Errorf("failed to create console trace exporter: %w", err)
		}
		return ExporterConfig[sdktrace.SpanExporter]{Kind: ExporterConsole, Exporter: exporter}, nil
	}

	var opts []otlptracegrpc.Option
	if isURL(cfg.CollectorEndpoint) {
		opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.CollectorEndpoint))
	} else {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return ExporterConfig[sdktrace.SpanExporter]{}, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return ExporterConfig[sdktrace.SpanExporter]{Kind: ExporterOTLP, Endpoint: cfg.CollectorEndpoint, Exporter: exporter}, nil
}

// newMetricExporter creates the console exporter in debug mode, the OTLP gRPC
// exporter otherwise.
func newMetricExporter(ctx context.Context, cfg *Config) (ExporterConfig[sdkmetric.Exporter], error) {
	if cfg.Debug {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.DebugOutput), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return ExporterConfig[sdkmetric.Exporter]{}, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		return ExporterConfig[sdkmetric.Exporter]{Kind: ExporterConsole, Exporter: exporter}, nil
	}

	var opts []otlpmetricgrpc.Option
	if isURL(cfg.CollectorEndpoint) {
		opts = append(opts, otlpmetricgrpc.WithEndpointURL(cfg.CollectorEndpoint))
	} else {
		opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return ExporterConfig[sdkmetric.Exporter]{}, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return ExporterConfig[sdkmetric.Exporter]{Kind: ExporterOTLP, Endpoint: cfg.CollectorEndpoint, Exporter: exporter}, nil
}

// newLogExporter creates the console exporter in debug mode, the OTLP gRPC
// exporter otherwise.
func newLogExporter(ctx context.Context, cfg *Config) (ExporterConfig[sdklog.Exporter], error) {
	if cfg.Debug {
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(cfg.DebugOutput), stdoutlog.WithPrettyPrint())
		if err != nil {
			return ExporterConfig[sdklog.Exporter]{}, fmt.Errorf("failed to create console log exporter: %w", err)
		}
		return ExporterConfig[sdklog.Exporter]{Kind: ExporterConsole, Exporter: exporter}, nil
	}

	var opts []otlploggrpc.Option
	if isURL(cfg.CollectorEndpoint) {
		opts = append(opts, otlploggrpc.WithEndpointURL(cfg.CollectorEndpoint))
	} else {
		opts = append(opts, otlploggrpc.WithEndpoint(cfg.CollectorEndpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return ExporterConfig[sdklog.Exporter]{}, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return ExporterConfig[sdklog.Exporter]{Kind: ExporterOTLP, Endpoint: cfg.CollectorEndpoint, Exporter: exporter}, nil
}

// newTracerProvider creates a tracer provider batching spans to exporter.
func newTracerProvider(exporter sdktrace.SpanExporter, res *resource.Resource) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
}

// newMeterProvider creates a meter provider collecting through every reader.
func newMeterProvider(res *resource.Resource, readers ...sdkmetric.Reader) *sdkmetric.MeterProvider {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	return sdkmetric.NewMeterProvider(opts...)
}

// newLoggerProvider creates a logger provider batching records to exporter.
func newLoggerProvider(exporter sdklog.Exporter, res *resource.Resource) *sdklog.LoggerProvider {
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
}

// newPrometheusReader creates a pull reader registered on a dedicated
// registry and the handler serving it.
func newPrometheusReader() (sdkmetric.Reader, http.Handler, error) {
	reg := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}

	return exporter, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// newResource creates the declared resource: the service name and, when
// set, the service version. Nothing else.
func newResource(serviceName, serviceVersion string) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if serviceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(serviceVersion))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// detectResource extends declared with attributes detected from the
// environment, the host and the SDK. Declared attributes win.
func detectResource(ctx context.Context, declared *resource.Resource) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithFromEnv(),
		resource.WithAttributes(declared.Attributes()...),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, fmt.Errorf("failed to detect resource: %w", err)
	}
	return res, nil
}
