// Package telemetry wires OpenTelemetry tracing, metrics and structured
// logging for a service process from a single Config.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ekristen/go-otelkit/instrumentation"
	"github.com/ekristen/go-otelkit/logger"
)

// SDKConfig is the resolved configuration of a session. It is read-only.
type SDKConfig struct {
	ServiceName         string
	ServiceVersion      string
	AutoDetectResources bool

	// Resource holds exactly the declared service attributes.
	Resource *resource.Resource

	TraceExporter  ExporterConfig[sdktrace.SpanExporter]
	MetricExporter ExporterConfig[sdkmetric.Exporter]
	// MetricReader is the periodic reader wrapping MetricExporter.
	MetricReader sdkmetric.Reader
	LogExporter  ExporterConfig[sdklog.Exporter]

	Instrumentations []instrumentation.Instrumentation

	// LogTransports lists the logger destinations in the order they run.
	LogTransports []logger.Transport
	LogLevel      logger.Level
}

// Session owns the providers, instrumentations and logger built from one
// Config.
type Session struct {
	cfg    *Config
	sdkCfg *SDKConfig

	lp *sdklog.LoggerProvider
	mp *sdkmetric.MeterProvider
	tp *sdktrace.TracerProvider

	tracer trace.Tracer
	logger logger.Logger

	meterMu sync.RWMutex
	meter   metric.Meter

	logCloser io.Closer

	promServer  *http.Server
	promHandler http.Handler

	coordinator *ShutdownCoordinator
}

// New creates a Session from cfg. Construction either fully succeeds or
// releases everything it started.
func New(ctx context.Context, cfg *Config) (*Session, error) {
	resolved, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	s := &Session{cfg: resolved}
	if err := s.start(ctx); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolved.ShutdownTimeout)
		defer cancel()
		_ = s.shutdownProviders(cleanupCtx)
		return nil, err
	}

	s.coordinator = NewShutdownCoordinator(s.shutdownProviders)
	s.coordinator.NotifySignals(resolved.ShutdownTimeout)

	s.logger.Debug().
		Str("service", resolved.ServiceName).
		Bool("debug", resolved.Debug).
		Int("instrumentations", len(s.sdkCfg.Instrumentations)).
		Msg("telemetry session started")

	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	cfg := s.cfg

	declared := newResource(cfg.ServiceName, cfg.AppAttributes.ServiceVersion)
	res := declared
	if cfg.autoDetectResources() {
		detected, err := detectResource(ctx, declared)
		if err != nil {
			return err
		}
		res = detected
	}

	traceExp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return err
	}
	metricExp, err := newMetricExporter(ctx, cfg)
	if err != nil {
		_ = traceExp.Exporter.Shutdown(ctx)
		return err
	}
	logExp, err := newLogExporter(ctx, cfg)
	if err != nil {
		_ = traceExp.Exporter.Shutdown(ctx)
		_ = metricExp.Exporter.Shutdown(ctx)
		return err
	}

	reader := sdkmetric.NewPeriodicReader(metricExp.Exporter, sdkmetric.WithInterval(cfg.Metrics.ExportInterval))
	readers := []sdkmetric.Reader{reader}
	if cfg.Metrics.Prometheus.Enabled {
		promReader, handler, err := newPrometheusReader()
		if err != nil {
			_ = traceExp.Exporter.Shutdown(ctx)
			_ = reader.Shutdown(ctx)
			_ = logExp.Exporter.Shutdown(ctx)
			return fmt.Errorf("failed to create Prometheus reader: %w", err)
		}
		readers = append(readers, promReader)
		s.promHandler = handler
	}

	s.tp = newTracerProvider(traceExp.Exporter, res)
	s.mp = newMeterProvider(res, readers...)
	s.lp = newLoggerProvider(logExp.Exporter, res)

	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	s.tracer = s.tp.Tracer(scopeName(cfg.ServiceName))
	s.meter = s.mp.Meter(scopeName(cfg.ServiceName))

	insts, err := selectInstrumentations(cfg, instrumentation.Providers{
		ServiceName:    cfg.ServiceName,
		TracerProvider: s.tp,
		MeterProvider:  s.mp,
		Propagator:     propagator,
	})
	if err != nil {
		return err
	}

	log, transports, closer, err := newLogger(cfg, s.lp)
	if err != nil {
		return err
	}
	s.logger = log
	s.logCloser = closer

	level, _ := logger.ParseLevel(cfg.Logging.Level)
	s.sdkCfg = &SDKConfig{
		ServiceName:         cfg.ServiceName,
		ServiceVersion:      cfg.AppAttributes.ServiceVersion,
		AutoDetectResources: cfg.autoDetectResources(),
		Resource:            declared,
		TraceExporter:       traceExp,
		MetricExporter:      metricExp,
		MetricReader:        reader,
		LogExporter:         logExp,
		Instrumentations:    insts,
		LogTransports:       transports,
		LogLevel:            level,
	}

	otel.SetTracerProvider(s.tp)
	otel.SetMeterProvider(s.mp)
	otel.SetTextMapPropagator(propagator)

	if cfg.Metrics.Prometheus.Enabled && cfg.Metrics.Prometheus.Addr != "" {
		s.startPrometheusServer(cfg.Metrics.Prometheus)
	}

	return nil
}

func (s *Session) startPrometheusServer(cfg PrometheusConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, s.promHandler)

	s.promServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		if err := s.promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("prometheus server failed")
		}
	}()
}

// scopeName turns a service name into its dotted instrumentation scope.
func scopeName(serviceName string) string {
	return strings.ReplaceAll(serviceName, "-", ".")
}

// Config returns the resolved configuration snapshot.
func (s *Session) Config() *SDKConfig {
	return s.sdkCfg
}

// Tracer returns the tracer scoped to the dotted service name.
func (s *Session) Tracer() trace.Tracer {
	return s.tracer
}

// Meter returns the meter bound at construction, or the one set by SetMeter.
func (s *Session) Meter() metric.Meter {
	s.meterMu.RLock()
	defer s.meterMu.RUnlock()
	return s.meter
}

// SetMeter replaces the session meter. Instruments created afterwards, for
// example by InstrumentFastifyMetrics, use m.
func (s *Session) SetMeter(m metric.Meter) {
	s.meterMu.Lock()
	defer s.meterMu.Unlock()
	s.meter = m
}

// Logger returns the session logger.
func (s *Session) Logger() logger.Logger {
	return s.logger
}

// Instrumentations returns the active instrumentations.
func (s *Session) Instrumentations() []instrumentation.Instrumentation {
	return s.sdkCfg.Instrumentations
}

// LoggerProvider returns the OTel logger provider.
func (s *Session) LoggerProvider() *sdklog.LoggerProvider {
	return s.lp
}

// MeterProvider returns the OTel meter provider.
func (s *Session) MeterProvider() *sdkmetric.MeterProvider {
	return s.mp
}

// TracerProvider returns the OTel tracer provider.
func (s *Session) TracerProvider() *sdktrace.TracerProvider {
	return s.tp
}

// PrometheusHandler returns the handler serving the Prometheus reader.
// Returns nil if Prometheus metrics are not enabled.
// Use this to integrate Prometheus metrics into your own HTTP server.
func (s *Session) PrometheusHandler() http.Handler {
	return s.promHandler
}

// StartSpan starts a new span with the given name. The span must be ended by calling End.
func (s *Session) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, opts...)
}

// StartSpanWithLogger starts a new span with the given name and returns the context, span, and logger with the span context.
func (s *Session) StartSpanWithLogger(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, logger.Logger) {
	ctx, span := s.tracer.Start(ctx, name, opts...)
	return ctx, span, s.logger.WithContext(ctx)
}

// Shutdown flushes and shuts down the providers once. Later calls, including
// the one made on a termination signal, return the first result.
func (s *Session) Shutdown(ctx context.Context) error {
	return s.coordinator.Shutdown(ctx)
}

// shutdownProviders flushes and closes everything the session started.
func (s *Session) shutdownProviders(ctx context.Context) error {
	var errs []error

	if s.promServer != nil {
		if err := s.promServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown Prometheus server: %w", err))
		}
	}

	if s.lp != nil {
		if err := s.lp.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush logs: %w", err))
		}
		if err := s.lp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown logs: %w", err))
		}
	}

	if s.mp != nil {
		if err := s.mp.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush metrics: %w", err))
		}
		if err := s.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics: %w", err))
		}
	}

	if s.tp != nil {
		if err := s.tp.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
		if err := s.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown traces: %w", err))
		}
	}

	if s.logCloser != nil {
		if err := s.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log transports: %w", err))
		}
	}

	return errors.Join(errs...)
}
