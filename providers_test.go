package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestIsURL(t *testing.T) {
	assert.False(t, isURL("localhost:4317"))
	assert.False(t, isURL("collector.observability.svc:4317"))
	assert.True(t, isURL("http://localhost:4317"))
	assert.True(t, isURL("https://otel.example.com"))
}

func TestNewResource(t *testing.T) {
	res := newResource("test-service", "1.0.0")

	assert.Equal(t, semconv.SchemaURL, res.SchemaURL())
	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "test-service", name.AsString())
	version, ok := res.Set().Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", version.AsString())
	assert.Equal(t, 2, res.Len())
}

func TestDetectResource(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment=test,service.name=overridden")

	res, err := detectResource(context.Background(), newResource("test-service", ""))
	require.NoError(t, err)

	env, ok := res.Set().Value("deployment.environment")
	require.True(t, ok)
	assert.Equal(t, "test", env.AsString())

	// Declared attributes win over detected ones.
	name, _ := res.Set().Value(semconv.ServiceNameKey)
	assert.Equal(t, "test-service", name.AsString())

	_, ok = res.Set().Value(semconv.HostNameKey)
	assert.True(t, ok)
}

func TestNewTraceExporter(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	debug, err := newTraceExporter(ctx, &Config{Debug: true, DebugOutput: &buf})
	require.NoError(t, err)
	assert.Equal(t, ExporterConsole, debug.Kind)
	assert.Empty(t, debug.Endpoint)
	require.NoError(t, debug.Exporter.Shutdown(ctx))

	otlp, err := newTraceExporter(ctx, &Config{CollectorEndpoint: "localhost:4317", Insecure: true})
	require.NoError(t, err)
	assert.Equal(t, ExporterOTLP, otlp.Kind)
	assert.Equal(t, "localhost:4317", otlp.Endpoint)
	assert.IsType(t, &otlptrace.Exporter{}, otlp.Exporter)
	require.NoError(t, otlp.Exporter.Shutdown(ctx))
}

func TestNewMetricAndLogExporters(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []*Config{
		{Debug: true, DebugOutput: &bytes.Buffer{}},
		{CollectorEndpoint: "http://localhost:4317"},
	} {
		metricExp, err := newMetricExporter(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, cfg.CollectorEndpoint, metricExp.Endpoint)
		require.NoError(t, metricExp.Exporter.Shutdown(ctx))

		logExp, err := newLogExporter(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, cfg.CollectorEndpoint, logExp.Endpoint)
		require.NoError(t, logExp.Exporter.Shutdown(ctx))
	}
}

func TestNewPrometheusReader(t *testing.T) {
	reader, handler, err := newPrometheusReader()
	require.NoError(t, err)
	require.NotNil(t, reader)

	mp := newMeterProvider(newResource("test-service", ""), reader)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	hist, err := mp.Meter("test").Float64Histogram("queue_latency")
	require.NoError(t, err)
	hist.Record(context.Background(), 12.5)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queue_latency")
}
