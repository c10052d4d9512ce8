package logger

import (
	"context"
	"io"
)

// Logger is the logging surface handed out by a telemetry session. The
// zerolog, zap and logrus backends implement it with the same record shape:
// one JSON line per record, written to every sink whose level admits it, and
// enriched once by the configured Pipeline. A field set through With or on
// the event keeps its value when the pipeline produces the same key.
type Logger interface {
	With() Context

	Trace() Event
	Debug() Event
	Info() Event
	Warn() Event
	Error() Event
	// Fatal exits the process after the record is written.
	Fatal() Event
	// Panic panics after the record is written.
	Panic() Event

	Level() Level
	// SetLevel changes the threshold of this logger. Sink levels still apply.
	SetLevel(level Level)

	// Output returns a logger writing to w only, at the current level.
	Output(w io.Writer) Logger

	// WithContext binds ctx to the returned logger. Trace ids of the span in
	// ctx are added to every record it emits.
	WithContext(ctx context.Context) Logger
}

// Context accumulates fields shared by every record of a derived logger.
type Context interface {
	Logger() Logger

	Str(key, val string) Context
	Int(key string, val int) Context
	Bool(key string, val bool) Context
	Err(error) Context
	// Ctx binds ctx to the derived logger, like Logger.WithContext.
	Ctx(context.Context) Context
}

// Event is a single record under construction. Nothing is written until one
// of Msg, Msgf or Send is called, and an event must not be reused after that.
type Event interface {
	Msg(msg string)
	Msgf(format string, v ...interface{})
	// Send writes the record with an empty message.
	Send()

	Str(key, val string) Event
	Int(key string, val int) Event
	Int64(key string, val int64) Event
	Uint64(key string, val uint64) Event
	Float64(key string, val float64) Event
	Bool(key string, val bool) Event
	Any(key string, val interface{}) Event
	Err(error) Event
	// Ctx sets the context used to enrich this record only.
	Ctx(context.Context) Event
}
