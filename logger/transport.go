package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/log"
)

// Built-in transport targets.
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
	TargetFile   = "file"
	TargetPretty = "pretty"
	TargetOTel   = "otel"
)

// Transport describes one destination for log records. Records reach every
// transport as JSON lines; a transport only receives records at or above its
// own level.
type Transport struct {
	// Target selects a built-in destination. Ignored when Writer is set.
	Target string `koanf:"target"`
	// Level is the minimum level for this transport. Empty means the logger level.
	Level string `koanf:"level"`
	// Options configures the target, e.g. "destination" for file targets.
	Options map[string]interface{} `koanf:"options"`
	// Writer is an arbitrary destination supplied in code.
	Writer io.Writer `koanf:"-"`
}

// OTelTransport returns the transport that exports records through the OTel
// log pipeline under serviceName.
func OTelTransport(serviceName string, level Level) Transport {
	return Transport{
		Target: TargetOTel,
		Level:  level.String(),
		Options: map[string]interface{}{
			"loggerName": serviceName,
			"resourceAttributes": map[string]interface{}{
				"service.name": serviceName,
			},
			"processor": "batch",
			"protocol":  "grpc",
		},
	}
}

// Sink is a transport resolved to a writer and a level.
type Sink struct {
	Writer io.Writer
	Level  Level
}

// OpenSinks resolves transports into sinks. Transports without a level use
// fallback. lp serves TargetOTel transports. The returned closer releases any
// files that were opened.
func OpenSinks(transports []Transport, fallback Level, lp log.LoggerProvider) ([]Sink, io.Closer, error) {
	closers := multiCloser{}
	sinks := make([]Sink, 0, len(transports))

	for i, t := range transports {
		level := fallback
		if t.Level != "" {
			lvl, err := ParseLevel(t.Level)
			if err != nil {
				_ = closers.Close()
				return nil, nil, fmt.Errorf("transport %d: %w", i, err)
			}
			level = lvl
		}

		w, c, err := openWriter(t, lp)
		if err != nil {
			_ = closers.Close()
			return nil, nil, fmt.Errorf("transport %d (%s): %w", i, t.Target, err)
		}
		if c != nil {
			closers = append(closers, c)
		}

		sinks = append(sinks, Sink{Writer: w, Level: level})
	}

	return sinks, closers, nil
}

func openWriter(t Transport, lp log.LoggerProvider) (io.Writer, io.Closer, error) {
	if t.Writer != nil {
		return t.Writer, nil, nil
	}

	switch t.Target {
	case TargetStdout, "":
		return os.Stdout, nil, nil
	case TargetStderr:
		return os.Stderr, nil, nil
	case TargetPretty:
		colorize, _ := t.Options["colorize"].(bool)
		return NewConsoleWriter(colorize), nil, nil
	case TargetFile:
		dest, _ := t.Options["destination"].(string)
		if dest == "" {
			return nil, nil, errors.New("file transport requires a destination option")
		}
		if mkdir, _ := t.Options["mkdir"].(bool); mkdir {
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, f, nil
	case TargetOTel:
		if lp == nil {
			return nil, nil, errors.New("otel transport requires a logger provider")
		}
		name, _ := t.Options["loggerName"].(string)
		return NewOTelWriter(lp.Logger(name)), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown transport target %q", t.Target)
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
