package telemetry

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/ekristen/go-otelkit/instrumentation"
	"github.com/ekristen/go-otelkit/logger"
)

// Logger is an alias for logger.Logger so callers only import this package.
type Logger = logger.Logger

// Defaults applied by Config.resolve.
const (
	DefaultLogLevel        = "error"
	DefaultLogBackend      = BackendZerolog
	DefaultShutdownTimeout = 5 * time.Second
	DefaultExportInterval  = 60 * time.Second
)

// Logger backends.
const (
	BackendZerolog = "zerolog"
	BackendZap     = "zap"
	BackendLogrus  = "logrus"
)

// Config holds configuration for a telemetry session.
type Config struct {
	// ServiceName is the name of the service. Required.
	ServiceName string `koanf:"service_name"`
	// CollectorEndpoint is the OTLP gRPC collector address, passed verbatim to
	// the exporters. Required unless Debug is set.
	CollectorEndpoint string `koanf:"collector_endpoint"`
	// Insecure disables transport security towards the collector.
	Insecure bool `koanf:"insecure"`

	// Debug exports traces, metrics and logs to the console instead of the
	// collector.
	Debug bool `koanf:"debug"`
	// DebugOutput receives console exports. Defaults to os.Stdout.
	DebugOutput io.Writer `koanf:"-"`

	// AutoDetectResources adds environment, host and SDK attributes to the
	// resource the providers report. Defaults to true.
	AutoDetectResources *bool `koanf:"auto_detect_resources"`

	// Instrumentations enables opt-in instrumentations by kind.
	Instrumentations map[instrumentation.Kind]InstrumentationConfig `koanf:"instrumentations"`

	Logging       LoggingConfig `koanf:"logging"`
	AppAttributes AppAttributes `koanf:"app_attributes"`
	Metrics       MetricsConfig `koanf:"metrics"`

	// ShutdownTimeout bounds the shutdown triggered by a termination signal.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// InstrumentationConfig toggles one opt-in instrumentation.
type InstrumentationConfig struct {
	Enabled bool           `koanf:"enabled"`
	Config  map[string]any `koanf:"config"`
}

// LoggingConfig configures the session logger.
type LoggingConfig struct {
	// Level is the minimum level. Defaults to "error".
	Level string `koanf:"level"`
	// Backend selects the logging engine: zerolog, zap or logrus.
	Backend string `koanf:"backend"`
	// CustomAttributes are merged into every record.
	CustomAttributes map[string]any `koanf:"custom_attributes"`
	// CustomAttributesFunc is invoked for every record and its result merged
	// before CustomAttributes.
	CustomAttributesFunc func() map[string]any `koanf:"-"`
	// Transports are extra destinations. They always run before the OTel
	// transport.
	Transports []logger.Transport `koanf:"transports"`
	// Caller adds the caller location to every record.
	Caller bool `koanf:"caller"`
}

// AppAttributes describe the application beyond its name.
type AppAttributes struct {
	ServiceVersion string `koanf:"service_version"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// ExportInterval is the period of the metric reader. Defaults to 60s.
	ExportInterval time.Duration    `koanf:"export_interval"`
	Prometheus     PrometheusConfig `koanf:"prometheus"`
}

// PrometheusConfig adds a Prometheus pull reader next to the periodic one.
type PrometheusConfig struct {
	Enabled bool `koanf:"enabled"`
	// Addr starts a built-in metrics server when set, e.g. ":9090".
	Addr string `koanf:"addr"`
	// Path of the built-in server. Defaults to /metrics.
	Path string `koanf:"path"`
}

// resolve returns a copy of c with environment fallbacks and defaults
// applied, or an ErrInvalidConfiguration.
func (c *Config) resolve() (*Config, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: Service name is required", ErrInvalidConfiguration)
	}

	cfg := *c
	cfg.Instrumentations = maps.Clone(c.Instrumentations)
	cfg.Logging.Transports = slices.Clone(c.Logging.Transports)

	cfg.applyEnvVars()

	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("%w: Service name is required", ErrInvalidConfiguration)
	}
	if cfg.CollectorEndpoint == "" && !cfg.Debug {
		return nil, fmt.Errorf("%w: Collector endpoint is required", ErrInvalidConfiguration)
	}

	if cfg.AutoDetectResources == nil {
		enabled := true
		cfg.AutoDetectResources = &enabled
	}
	if cfg.DebugOutput == nil {
		cfg.DebugOutput = os.Stdout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Backend == "" {
		cfg.Logging.Backend = DefaultLogBackend
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Metrics.ExportInterval <= 0 {
		cfg.Metrics.ExportInterval = DefaultExportInterval
	}
	if cfg.Metrics.Prometheus.Path == "" {
		cfg.Metrics.Prometheus.Path = "/metrics"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks the settings that would otherwise only fail once exporters
// and providers exist.
func (c *Config) validate() error {
	optIn := instrumentation.OptIn()
	for kind := range c.Instrumentations {
		if !slices.Contains(optIn, kind) {
			return fmt.Errorf("%w: %q", ErrUnknownInstrumentationKind, kind)
		}
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	switch c.Logging.Backend {
	case BackendZerolog, BackendZap, BackendLogrus:
	default:
		return fmt.Errorf("%w: unknown logging backend %q", ErrInvalidConfiguration, c.Logging.Backend)
	}

	return nil
}

// applyEnvVars fills fields the caller left empty from the standard
// OpenTelemetry environment variables:
// - OTEL_SERVICE_NAME: service name
// - OTEL_SERVICE_VERSION: service version
// - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint
func (c *Config) applyEnvVars() {
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" && c.ServiceName == "" {
		c.ServiceName = v
	}
	// OTEL_SERVICE_VERSION is not a standard OTel variable but is commonly set
	// alongside OTEL_RESOURCE_ATTRIBUTES.
	if v := os.Getenv("OTEL_SERVICE_VERSION"); v != "" && c.AppAttributes.ServiceVersion == "" {
		c.AppAttributes.ServiceVersion = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" && c.CollectorEndpoint == "" {
		c.CollectorEndpoint = v
	}
}

func (c *Config) autoDetectResources() bool {
	return c.AutoDetectResources == nil || *c.AutoDetectResources
}
