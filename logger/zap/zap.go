package zap

import (
	"context"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekristen/go-otelkit/logger"
)

// traceLevel stands in for the trace level zap does not have.
const traceLevel = zapcore.DebugLevel - 1

// Logger wraps zap.Logger and implements the logger.Logger interface.
// It provides full access to zap's API.
type Logger struct {
	*zap.Logger
	level    zap.AtomicLevel
	pipeline logger.Pipeline
	ctx      context.Context
	opts     Options
	// keys of the fields added through With.
	keys []string
}

// Options configures the zap logger.
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

// EncoderConfig returns the JSON encoder configuration shared by all sinks.
// Keys match the other backends so transports see the same record shape.
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = logger.TimeFieldName
	cfg.MessageKey = logger.MessageFieldName
	cfg.LevelKey = logger.LevelFieldName
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = encodeLevel
	return cfg
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l < zapcore.DebugLevel {
		enc.AppendString(logger.TraceLevel.String())
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// New creates a new zap logger writing JSON lines to every sink.
func New(opts Options) *Logger {
	level := zap.NewAtomicLevelAt(toZapLevel(opts.Level))

	cores := make([]zapcore.Core, 0, len(opts.Sinks))
	for _, s := range opts.Sinks {
		cores = append(cores, newSinkCore(s.Writer, toZapLevel(s.Level), level))
	}

	l := &Logger{
		Logger:   zap.New(zapcore.NewTee(cores...), zapOptions(opts.EnableCaller)...),
		level:    level,
		pipeline: opts.Enrichment,
		opts:     opts,
	}
	return l
}

func newSinkCore(w io.Writer, min zapcore.Level, level zap.AtomicLevel) zapcore.Core {
	enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= min && level.Enabled(l)
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), zapcore.AddSync(w), enabler)
}

func zapOptions(enableCaller bool) []zap.Option {
	zapOpts := []zap.Option{}
	if enableCaller {
		// AddCallerSkip(2) skips: write -> Msg/Msgf -> actual caller
		zapOpts = append(zapOpts, zap.AddCaller(), zap.AddCallerSkip(2))
	}
	return append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))
}

// Wrap wraps an existing zap.Logger instance, enriching every record with the
// pipeline. The wrapped logger's own cores and level are kept; SetLevel can
// only raise the threshold.
func Wrap(zapLogger *zap.Logger, enrichment logger.Pipeline) *Logger {
	return &Logger{
		Logger:   zapLogger,
		level:    zap.NewAtomicLevelAt(zapLogger.Level()),
		pipeline: enrichment,
	}
}

func (l *Logger) derive(zl *zap.Logger, ctx context.Context) *Logger {
	return &Logger{
		Logger:   zl,
		level:    l.level,
		pipeline: l.pipeline,
		ctx:      ctx,
		opts:     l.opts,
		keys:     l.keys,
	}
}

// With returns a context that can be used to add fields to the logger.
func (l *Logger) With() logger.Context {
	return &Context{
		logger: l,
		ctx:    l.ctx,
		fields: []zap.Field{},
	}
}

// Trace returns an event for trace level logging.
// Note: Zap doesn't have a native trace level, so we use DebugLevel - 1
func (l *Logger) Trace() logger.Event {
	return l.newEvent(traceLevel)
}

// Debug returns an event for debug level logging.
func (l *Logger) Debug() logger.Event {
	return l.newEvent(zapcore.DebugLevel)
}

// Info returns an event for info level logging.
func (l *Logger) Info() logger.Event {
	return l.newEvent(zapcore.InfoLevel)
}

// Warn returns an event for warn level logging.
func (l *Logger) Warn() logger.Event {
	return l.newEvent(zapcore.WarnLevel)
}

// Error returns an event for error level logging.
func (l *Logger) Error() logger.Event {
	return l.newEvent(zapcore.ErrorLevel)
}

// Fatal returns an event for fatal level logging.
func (l *Logger) Fatal() logger.Event {
	return l.newEvent(zapcore.FatalLevel)
}

// Panic returns an event for panic level logging.
func (l *Logger) Panic() logger.Event {
	return l.newEvent(zapcore.PanicLevel)
}

func (l *Logger) newEvent(level zapcore.Level) *Event {
	return &Event{logger: l, level: level, ctx: l.ctx}
}

// Level returns the current log level.
func (l *Logger) Level() logger.Level {
	return toLoggerLevel(l.level.Level())
}

// SetLevel sets the log level of this logger and every logger derived from it.
func (l *Logger) SetLevel(level logger.Level) {
	l.level.SetLevel(toZapLevel(level))
}

// Output returns a new logger with the given output writer.
// The level and enrichment are kept; fields added through With are not.
func (l *Logger) Output(w io.Writer) logger.Logger {
	core := newSinkCore(w, traceLevel, l.level)
	out := l.derive(zap.New(core, zapOptions(l.opts.EnableCaller)...), l.ctx)
	out.keys = nil
	return out
}

// WithContext returns a logger with the given context.
func (l *Logger) WithContext(ctx context.Context) logger.Logger {
	return l.derive(l.Logger, ctx)
}

// Context wraps fields for building context.
type Context struct {
	logger *Logger
	ctx    context.Context
	fields []zap.Field
}

// Logger returns the logger with the added context.
func (c *Context) Logger() logger.Logger {
	derived := c.logger.derive(c.logger.Logger.With(c.fields...), c.ctx)
	derived.keys = append(slices.Clone(c.logger.keys), fieldKeys(c.fields)...)
	return derived
}

// Str adds a string field.
func (c *Context) Str(key, val string) logger.Context {
	c.fields = append(c.fields, zap.String(key, val))
	return c
}

// Int adds an int field.
func (c *Context) Int(key string, val int) logger.Context {
	c.fields = append(c.fields, zap.Int(key, val))
	return c
}

// Bool adds a bool field.
func (c *Context) Bool(key string, val bool) logger.Context {
	c.fields = append(c.fields, zap.Bool(key, val))
	return c
}

// Err adds an error field.
func (c *Context) Err(err error) logger.Context {
	c.fields = append(c.fields, zap.Error(err))
	return c
}

// Ctx adds context for distributed tracing.
func (c *Context) Ctx(ctx context.Context) logger.Context {
	c.ctx = ctx
	return c
}

// Event wraps zap fields for logging events.
type Event struct {
	logger *Logger
	level  zapcore.Level
	ctx    context.Context
	fields []zap.Field
}

// Msg sends the event with the given message.
func (e *Event) Msg(msg string) {
	e.write(msg)
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.write(fmt.Sprintf(format, v...))
}

// Send sends the event without a message.
func (e *Event) Send() {
	e.write("")
}

func (e *Event) write(msg string) {
	if !e.logger.level.Enabled(e.level) {
		return
	}
	ce := e.logger.Logger.Check(e.level, msg)
	if ce == nil {
		return
	}

	fields := e.fields
	if len(e.logger.pipeline) > 0 {
		enriched := e.logger.pipeline.Fields(e.ctx).Omit(e.logger.keys...).Omit(fieldKeys(e.fields)...)
		for _, k := range enriched.Keys() {
			fields = append(fields, zap.Any(k, enriched[k]))
		}
	}
	ce.Write(fields...)
}

func fieldKeys(fields []zap.Field) []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Str adds a string field to the event.
func (e *Event) Str(key, val string) logger.Event {
	e.fields = append(e.fields, zap.String(key, val))
	return e
}

// Int adds an int field to the event.
func (e *Event) Int(key string, val int) logger.Event {
	e.fields = append(e.fields, zap.Int(key, val))
	return e
}

// Int64 adds an int64 field to the event.
func (e *Event) Int64(key string, val int64) logger.Event {
	e.fields = append(e.fields, zap.Int64(key, val))
	return e
}

// Uint64 adds a uint64 field to the event.
func (e *Event) Uint64(key string, val uint64) logger.Event {
	e.fields = append(e.fields, zap.Uint64(key, val))
	return e
}

// Float64 adds a float64 field to the event.
func (e *Event) Float64(key string, val float64) logger.Event {
	e.fields = append(e.fields, zap.Float64(key, val))
	return e
}

// Bool adds a bool field to the event.
func (e *Event) Bool(key string, val bool) logger.Event {
	e.fields = append(e.fields, zap.Bool(key, val))
	return e
}

// Any adds a field of arbitrary type to the event.
func (e *Event) Any(key string, val interface{}) logger.Event {
	e.fields = append(e.fields, zap.Any(key, val))
	return e
}

// Err adds an error field to the event.
func (e *Event) Err(err error) logger.Event {
	e.fields = append(e.fields, zap.Error(err))
	return e
}

// Ctx adds context for distributed tracing.
func (e *Event) Ctx(ctx context.Context) logger.Event {
	e.ctx = ctx
	return e
}

// toZapLevel converts logger.Level to zapcore.Level.
func toZapLevel(level logger.Level) zapcore.Level {
	switch level {
	case logger.TraceLevel:
		return traceLevel
	case logger.DebugLevel:
		return zapcore.DebugLevel
	case logger.InfoLevel:
		return zapcore.InfoLevel
	case logger.WarnLevel:
		return zapcore.WarnLevel
	case logger.ErrorLevel:
		return zapcore.ErrorLevel
	case logger.FatalLevel:
		return zapcore.FatalLevel
	case logger.PanicLevel:
		return zapcore.PanicLevel
	case logger.Disabled:
		return zapcore.InvalidLevel
	default:
		return zapcore.InfoLevel
	}
}

// toLoggerLevel converts zapcore.Level to logger.Level.
func toLoggerLevel(level zapcore.Level) logger.Level {
	switch {
	case level < zapcore.DebugLevel:
		// Treat anything below Debug as Trace
		return logger.TraceLevel
	case level == zapcore.DebugLevel:
		return logger.DebugLevel
	case level == zapcore.InfoLevel:
		return logger.InfoLevel
	case level == zapcore.WarnLevel:
		return logger.WarnLevel
	case level == zapcore.ErrorLevel:
		return logger.ErrorLevel
	case level == zapcore.DPanicLevel, level == zapcore.PanicLevel:
		return logger.PanicLevel
	case level == zapcore.FatalLevel:
		return logger.FatalLevel
	default:
		return logger.Disabled
	}
}
