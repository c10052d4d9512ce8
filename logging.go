package telemetry

import (
	"fmt"
	"io"
	"slices"

	"go.opentelemetry.io/otel/log"

	"github.com/ekristen/go-otelkit/logger"
	logruslogger "github.com/ekristen/go-otelkit/logger/logrus"
	zaplogger "github.com/ekristen/go-otelkit/logger/zap"
	zerologger "github.com/ekristen/go-otelkit/logger/zerolog"
)

// newLogger builds the session logger. It returns the logger, the transports
// it writes to in order, and a closer for files the transports opened.
func newLogger(cfg *Config, lp log.LoggerProvider) (logger.Logger, []logger.Transport, io.Closer, error) {
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	transports := logTransports(cfg.Logging.Transports, cfg.ServiceName, level)

	sinks, closer, err := logger.OpenSinks(transports, level, lp)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open log transports: %w", err)
	}

	enrichment := logger.NewPipeline(cfg.Logging.CustomAttributesFunc, cfg.Logging.CustomAttributes)

	var l logger.Logger
	switch cfg.Logging.Backend {
	case BackendZerolog:
		l = zerologger.New(zerologger.Options{
			Level:        level,
			Sinks:        sinks,
			Enrichment:   enrichment,
			EnableCaller: cfg.Logging.Caller,
		})
	case BackendZap:
		l = zaplogger.New(zaplogger.Options{
			Level:        level,
			Sinks:        sinks,
			Enrichment:   enrichment,
			EnableCaller: cfg.Logging.Caller,
		})
	case BackendLogrus:
		l = logruslogger.New(logruslogger.Options{
			Level:        level,
			Sinks:        sinks,
			Enrichment:   enrichment,
			EnableCaller: cfg.Logging.Caller,
		})
	default:
		_ = closer.Close()
		return nil, nil, nil, fmt.Errorf("%w: unknown logging backend %q", ErrInvalidConfiguration, cfg.Logging.Backend)
	}

	return l, transports, closer, nil
}

// logTransports appends the OTel transport to the caller's transports. The
// caller's transports always run first.
func logTransports(user []logger.Transport, serviceName string, level logger.Level) []logger.Transport {
	transports := slices.Clone(user)
	return append(transports, logger.OTelTransport(serviceName, level))
}
