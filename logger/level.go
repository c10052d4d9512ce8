package logger

import (
	"fmt"
	"strings"
)

// Level represents a log level.
type Level int8

const (
	// TraceLevel is for trace messages (more verbose than debug).
	TraceLevel Level = iota - 2
	// DebugLevel is for debug messages.
	DebugLevel
	// InfoLevel is for info messages.
	InfoLevel
	// WarnLevel is for warning messages.
	WarnLevel
	// ErrorLevel is for error messages.
	ErrorLevel
	// FatalLevel is for fatal messages.
	FatalLevel
	// PanicLevel is for panic messages.
	PanicLevel
	// Disabled disables logging.
	Disabled
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = ErrorLevel

// String returns the lower-case name of the level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	case PanicLevel:
		return "panic"
	case Disabled:
		return "silent"
	default:
		return fmt.Sprintf("Level(%d)", int8(l))
	}
}

// ParseLevel converts a level name into a Level. An empty string yields
// DefaultLevel.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultLevel, nil
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "panic":
		return PanicLevel, nil
	case "silent", "disabled", "off":
		return Disabled, nil
	}
	return DefaultLevel, fmt.Errorf("unknown log level %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
