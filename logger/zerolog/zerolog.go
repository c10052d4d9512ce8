package zerolog

import (
	"context"
	"io"
	"slices"

	"github.com/rs/zerolog"

	"github.com/ekristen/go-otelkit/logger"
)

// Logger wraps zerolog.Logger and implements the logger.Logger interface.
// It provides full access to zerolog's API.
type Logger struct {
	zerolog.Logger
	// keys of the fields added through With.
	keys []string
}

// Options configures the zerolog logger.
type Options struct {
	// Level is the minimum level of the logger.
	Level logger.Level
	// Sinks receive every record at or above their own level.
	Sinks []logger.Sink
	// Enrichment runs once per emitted record.
	Enrichment logger.Pipeline
	// EnableCaller adds the caller field.
	EnableCaller bool
}

// New creates a new zerolog logger writing JSON lines to every sink.
func New(opts Options) *Logger {
	zlog := zerolog.New(sinkWriter(opts.Sinks)).Level(toZerologLevel(opts.Level))

	zlog = zlog.With().Timestamp().Logger()
	if opts.EnableCaller {
		// Skip 3 frames: runtime.Caller -> zerolog internals -> our Event wrapper -> actual caller
		zlog = zlog.With().CallerWithSkipFrameCount(3).Logger()
	}

	return Wrap(zlog, opts.Enrichment)
}

// Wrap wraps an existing zerolog.Logger, attaching the enrichment pipeline as
// a hook.
func Wrap(zlog zerolog.Logger, enrichment logger.Pipeline) *Logger {
	if len(enrichment) > 0 {
		zlog = zlog.Hook(EnrichHook{Pipeline: enrichment})
	}
	return &Logger{Logger: zlog}
}

func sinkWriter(sinks []logger.Sink) io.Writer {
	if len(sinks) == 0 {
		return io.Discard
	}

	writers := make([]io.Writer, 0, len(sinks))
	for _, s := range sinks {
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: s.Writer},
			Level:  toZerologLevel(s.Level),
		})
	}

	return zerolog.MultiLevelWriter(writers...)
}

// fieldKeysKey carries the keys an event already set into the hook, through
// the event's context.
type fieldKeysKey struct{}

// EnrichHook is a zerolog hook adding the fields of a pipeline to each event.
type EnrichHook struct {
	Pipeline logger.Pipeline
}

// Run implements the zerolog.Hook interface.
func (h EnrichHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}
	fields := h.Pipeline.Fields(ctx)
	if set, ok := ctx.Value(fieldKeysKey{}).([]string); ok {
		fields.Omit(set...)
	}
	for _, k := range fields.Keys() {
		switch v := fields[k].(type) {
		case string:
			e.Str(k, v)
		default:
			e.Interface(k, v)
		}
	}
}

// With returns a context that can be used to add fields to the logger.
func (l *Logger) With() logger.Context {
	return &Context{
		ctx:  l.Logger.With(),
		keys: slices.Clone(l.keys),
	}
}

// Trace returns an event for trace level logging.
func (l *Logger) Trace() logger.Event {
	return l.newEvent(l.Logger.Trace())
}

// Debug returns an event for debug level logging.
func (l *Logger) Debug() logger.Event {
	return l.newEvent(l.Logger.Debug())
}

// Info returns an event for info level logging.
func (l *Logger) Info() logger.Event {
	return l.newEvent(l.Logger.Info())
}

// Warn returns an event for warn level logging.
func (l *Logger) Warn() logger.Event {
	return l.newEvent(l.Logger.Warn())
}

// Error returns an event for error level logging.
func (l *Logger) Error() logger.Event {
	return l.newEvent(l.Logger.Error())
}

// Fatal returns an event for fatal level logging.
func (l *Logger) Fatal() logger.Event {
	return l.newEvent(l.Logger.Fatal())
}

// Panic returns an event for panic level logging.
func (l *Logger) Panic() logger.Event {
	return l.newEvent(l.Logger.Panic())
}

func (l *Logger) newEvent(e *zerolog.Event) *Event {
	return &Event{event: e, keys: slices.Clone(l.keys)}
}

// Level returns the current log level.
func (l *Logger) Level() logger.Level {
	return toLoggerLevel(l.Logger.GetLevel())
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level logger.Level) {
	l.Logger = l.Logger.Level(toZerologLevel(level))
}

// Output returns a new logger with the given output writer.
// Hooks, and therefore enrichment, are kept.
func (l *Logger) Output(w io.Writer) logger.Logger {
	return &Logger{Logger: l.Logger.Output(w), keys: l.keys}
}

// WithContext returns a logger with the given context.
func (l *Logger) WithContext(ctx context.Context) logger.Logger {
	return &Logger{Logger: l.Logger.With().Ctx(ctx).Logger(), keys: l.keys}
}

// Context wraps zerolog.Context.
type Context struct {
	ctx  zerolog.Context
	keys []string
}

// Logger returns the logger with the added context.
func (c *Context) Logger() logger.Logger {
	return &Logger{Logger: c.ctx.Logger(), keys: c.keys}
}

// Str adds a string field.
func (c *Context) Str(key, val string) logger.Context {
	c.ctx = c.ctx.Str(key, val)
	c.keys = append(c.keys, key)
	return c
}

// Int adds an int field.
func (c *Context) Int(key string, val int) logger.Context {
	c.ctx = c.ctx.Int(key, val)
	c.keys = append(c.keys, key)
	return c
}

// Bool adds a bool field.
func (c *Context) Bool(key string, val bool) logger.Context {
	c.ctx = c.ctx.Bool(key, val)
	c.keys = append(c.keys, key)
	return c
}

// Err adds an error field.
func (c *Context) Err(err error) logger.Context {
	c.ctx = c.ctx.Err(err)
	c.keys = append(c.keys, zerolog.ErrorFieldName)
	return c
}

// Ctx adds context for distributed tracing.
func (c *Context) Ctx(ctx context.Context) logger.Context {
	c.ctx = c.ctx.Ctx(ctx)
	return c
}

// Event wraps zerolog.Event.
type Event struct {
	event *zerolog.Event
	keys  []string
}

// Msg sends the event with the given message.
func (e *Event) Msg(msg string) {
	e.markKeys()
	e.event.Msg(msg)
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.markKeys()
	e.event.Msgf(format, v...)
}

// Send sends the event without a message.
func (e *Event) Send() {
	e.markKeys()
	e.event.Send()
}

// markKeys hands the keys set so far to EnrichHook, which runs while the
// event is sent.
func (e *Event) markKeys() {
	if e.event == nil || len(e.keys) == 0 {
		return
	}
	ctx := e.event.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}
	e.event = e.event.Ctx(context.WithValue(ctx, fieldKeysKey{}, e.keys))
}

// Str adds a string field to the event.
func (e *Event) Str(key, val string) logger.Event {
	e.event = e.event.Str(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Int adds an int field to the event.
func (e *Event) Int(key string, val int) logger.Event {
	e.event = e.event.Int(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Int64 adds an int64 field to the event.
func (e *Event) Int64(key string, val int64) logger.Event {
	e.event = e.event.Int64(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Uint64 adds a uint64 field to the event.
func (e *Event) Uint64(key string, val uint64) logger.Event {
	e.event = e.event.Uint64(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Float64 adds a float64 field to the event.
func (e *Event) Float64(key string, val float64) logger.Event {
	e.event = e.event.Float64(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Bool adds a bool field to the event.
func (e *Event) Bool(key string, val bool) logger.Event {
	e.event = e.event.Bool(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Any adds a field of arbitrary type to the event.
func (e *Event) Any(key string, val interface{}) logger.Event {
	e.event = e.event.Interface(key, val)
	e.keys = append(e.keys, key)
	return e
}

// Err adds an error field to the event.
func (e *Event) Err(err error) logger.Event {
	e.event = e.event.Err(err)
	e.keys = append(e.keys, zerolog.ErrorFieldName)
	return e
}

// Ctx adds context for distributed tracing.
func (e *Event) Ctx(ctx context.Context) logger.Event {
	e.event = e.event.Ctx(ctx)
	return e
}

// toZerologLevel converts logger.Level to zerolog.Level.
func toZerologLevel(level logger.Level) zerolog.Level {
	switch level {
	case logger.TraceLevel:
		return zerolog.TraceLevel
	case logger.DebugLevel:
		return zerolog.DebugLevel
	case logger.InfoLevel:
		return zerolog.InfoLevel
	case logger.WarnLevel:
		return zerolog.WarnLevel
	case logger.ErrorLevel:
		return zerolog.ErrorLevel
	case logger.FatalLevel:
		return zerolog.FatalLevel
	case logger.PanicLevel:
		return zerolog.PanicLevel
	case logger.Disabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// toLoggerLevel converts zerolog.Level to logger.Level.
func toLoggerLevel(level zerolog.Level) logger.Level {
	switch level {
	case zerolog.TraceLevel:
		return logger.TraceLevel
	case zerolog.DebugLevel:
		return logger.DebugLevel
	case zerolog.InfoLevel:
		return logger.InfoLevel
	case zerolog.WarnLevel:
		return logger.WarnLevel
	case zerolog.ErrorLevel:
		return logger.ErrorLevel
	case zerolog.FatalLevel:
		return logger.FatalLevel
	case zerolog.PanicLevel:
		return logger.PanicLevel
	case zerolog.Disabled:
		return logger.Disabled
	default:
		return logger.InfoLevel
	}
}
