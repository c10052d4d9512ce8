package logrus

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ekristen/go-otelkit/logger"
)

// CallerKey is the field holding "file:line" of the logging call site.
const CallerKey = "caller"

// Logger wraps logrus.Logger and implements the logger.Logger interface.
// It provides full access to logrus's API.
type Logger struct {
	*logrus.Logger
	entry  *logrus.Entry
	enrich *EnrichHook
	off    *atomic.Bool
}

// Options configures the logrus logger.
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

// NewFormatter returns the JSON formatter shared by all sinks. Keys match the
// other backends so transports see the same record shape.
func NewFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  logger.TimeFieldName,
			logrus.FieldKeyLevel: logger.LevelFieldName,
			logrus.FieldKeyMsg:   logger.MessageFieldName,
		},
	}
}

// New creates a new logrus logger writing JSON lines to every sink.
// Records are written by per-sink hooks; the logger's own output is discarded.
func New(opts Options) *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetFormatter(NewFormatter())

	enrich := &EnrichHook{Pipeline: opts.Enrichment, Caller: opts.EnableCaller}
	log.AddHook(enrich)
	for _, s := range opts.Sinks {
		log.AddHook(NewSinkHook(s.Writer, s.Level, log.Formatter))
	}

	l := &Logger{
		Logger: log,
		entry:  logrus.NewEntry(log),
		enrich: enrich,
		off:    &atomic.Bool{},
	}
	l.SetLevel(opts.Level)
	return l
}

// Wrap wraps an existing logrus.Logger instance, enriching every record with
// the pipeline. The wrapped logger keeps its own output and formatter.
func Wrap(log *logrus.Logger, enrichment logger.Pipeline) *Logger {
	enrich := &EnrichHook{Pipeline: enrichment}
	log.AddHook(enrich)

	return &Logger{
		Logger: log,
		entry:  logrus.NewEntry(log),
		enrich: enrich,
		off:    &atomic.Bool{},
	}
}

func (l *Logger) derive(entry *logrus.Entry) *Logger {
	return &Logger{
		Logger: l.Logger,
		entry:  entry,
		enrich: l.enrich,
		off:    l.off,
	}
}

// EnrichHook adds the fields of a pipeline, and optionally the caller, to
// every entry before it is formatted. Fields already on the entry are kept.
type EnrichHook struct {
	Pipeline logger.Pipeline
	Caller   bool
}

// Levels implements logrus.Hook.
func (h *EnrichHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *EnrichHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.Pipeline.Fields(entry.Context) {
		if _, set := entry.Data[k]; !set {
			entry.Data[k] = v
		}
	}
	if h.Caller {
		if c := logger.ExternalCaller(); c != "" {
			entry.Data[CallerKey] = c
		}
	}
	return nil
}

// SinkHook formats entries and writes them to a single sink.
type SinkHook struct {
	writer    io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

// NewSinkHook creates a hook writing every entry at or above level to w.
func NewSinkHook(w io.Writer, level logger.Level, formatter logrus.Formatter) *SinkHook {
	h := &SinkHook{writer: w, formatter: formatter}
	if level == logger.Disabled {
		return h
	}
	max := toLogrusLevel(level)
	for _, lvl := range logrus.AllLevels {
		if lvl <= max {
			h.levels = append(h.levels, lvl)
		}
	}
	return h
}

// Levels implements logrus.Hook.
func (h *SinkHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *SinkHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

// With returns a context that can be used to add fields to the logger.
func (l *Logger) With() logger.Context {
	return &Context{
		logger: l,
		entry:  l.entry,
	}
}

// Trace returns an event for trace level logging.
func (l *Logger) Trace() logger.Event {
	return l.newEvent(logrus.TraceLevel)
}

// Debug returns an event for debug level logging.
func (l *Logger) Debug() logger.Event {
	return l.newEvent(logrus.DebugLevel)
}

// Info returns an event for info level logging.
func (l *Logger) Info() logger.Event {
	return l.newEvent(logrus.InfoLevel)
}

// Warn returns an event for warn level logging.
func (l *Logger) Warn() logger.Event {
	return l.newEvent(logrus.WarnLevel)
}

// Error returns an event for error level logging.
func (l *Logger) Error() logger.Event {
	return l.newEvent(logrus.ErrorLevel)
}

// Fatal returns an event for fatal level logging.
func (l *Logger) Fatal() logger.Event {
	return l.newEvent(logrus.FatalLevel)
}

// Panic returns an event for panic level logging.
func (l *Logger) Panic() logger.Event {
	return l.newEvent(logrus.PanicLevel)
}

func (l *Logger) newEvent(level logrus.Level) *Event {
	return &Event{entry: l.entry.WithFields(logrus.Fields{}), level: level, off: l.off}
}

// Level returns the current log level.
func (l *Logger) Level() logger.Level {
	if l.off.Load() {
		return logger.Disabled
	}
	return toLoggerLevel(l.Logger.GetLevel())
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level logger.Level) {
	l.off.Store(level == logger.Disabled)
	if level != logger.Disabled {
		l.Logger.SetLevel(toLogrusLevel(level))
	}
}

// Output returns a new logger with the given output writer.
// The level and enrichment are kept; sink hooks are not.
func (l *Logger) Output(w io.Writer) logger.Logger {
	newLog := logrus.New()
	newLog.SetOutput(io.Discard)
	newLog.SetFormatter(l.Logger.Formatter)
	newLog.SetLevel(l.Logger.GetLevel())
	newLog.AddHook(l.enrich)
	newLog.AddHook(NewSinkHook(w, logger.TraceLevel, newLog.Formatter))

	off := &atomic.Bool{}
	off.Store(l.off.Load())

	return &Logger{
		Logger: newLog,
		entry:  logrus.NewEntry(newLog).WithContext(l.entry.Context).WithFields(l.entry.Data),
		enrich: l.enrich,
		off:    off,
	}
}

// WithContext returns a logger with the given context.
func (l *Logger) WithContext(ctx context.Context) logger.Logger {
	return l.derive(l.entry.WithContext(ctx))
}

// Context wraps logrus.Entry for building context.
type Context struct {
	logger *Logger
	entry  *logrus.Entry
}

// Logger returns the logger with the added context.
func (c *Context) Logger() logger.Logger {
	return c.logger.derive(c.entry)
}

// Str adds a string field.
func (c *Context) Str(key, val string) logger.Context {
	c.entry = c.entry.WithField(key, val)
	return c
}

// Int adds an int field.
func (c *Context) Int(key string, val int) logger.Context {
	c.entry = c.entry.WithField(key, val)
	return c
}

// Bool adds a bool field.
func (c *Context) Bool(key string, val bool) logger.Context {
	c.entry = c.entry.WithField(key, val)
	return c
}

// Err adds an error field.
func (c *Context) Err(err error) logger.Context {
	c.entry = c.entry.WithError(err)
	return c
}

// Ctx adds context for distributed tracing.
func (c *Context) Ctx(ctx context.Context) logger.Context {
	c.entry = c.entry.WithContext(ctx)
	return c
}

// Event wraps logrus.Entry for logging events.
type Event struct {
	entry *logrus.Entry
	level logrus.Level
	off   *atomic.Bool
}

// Msg sends the event with the given message.
func (e *Event) Msg(msg string) {
	if !e.off.Load() {
		e.entry.Log(e.level, msg)
	}
	e.exitOnFatal()
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, v ...interface{}) {
	if !e.off.Load() {
		e.entry.Logf(e.level, format, v...)
	}
	e.exitOnFatal()
}

// exitOnFatal matches logrus.Entry.Fatal, which Entry.Log does not: the
// logger's ExitFunc runs with code 1 even when the record was filtered.
func (e *Event) exitOnFatal() {
	if e.level == logrus.FatalLevel {
		e.entry.Logger.Exit(1)
	}
}

// Send sends the event without a message.
func (e *Event) Send() {
	e.Msg("")
}

// Str adds a string field to the event.
func (e *Event) Str(key, val string) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Int adds an int field to the event.
func (e *Event) Int(key string, val int) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Int64 adds an int64 field to the event.
func (e *Event) Int64(key string, val int64) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Uint64 adds a uint64 field to the event.
func (e *Event) Uint64(key string, val uint64) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Float64 adds a float64 field to the event.
func (e *Event) Float64(key string, val float64) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Bool adds a bool field to the event.
func (e *Event) Bool(key string, val bool) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Any adds a field of arbitrary type to the event.
func (e *Event) Any(key string, val interface{}) logger.Event {
	e.entry = e.entry.WithField(key, val)
	return e
}

// Err adds an error field to the event.
func (e *Event) Err(err error) logger.Event {
	e.entry = e.entry.WithError(err)
	return e
}

// Ctx adds context for distributed tracing.
func (e *Event) Ctx(ctx context.Context) logger.Event {
	e.entry = e.entry.WithContext(ctx)
	return e
}

// toLogrusLevel converts logger.Level to logrus.Level.
func toLogrusLevel(level logger.Level) logrus.Level {
	switch level {
	case logger.TraceLevel:
		return logrus.TraceLevel
	case logger.DebugLevel:
		return logrus.DebugLevel
	case logger.InfoLevel:
		return logrus.InfoLevel
	case logger.WarnLevel:
		return logrus.WarnLevel
	case logger.ErrorLevel:
		return logrus.ErrorLevel
	case logger.FatalLevel:
		return logrus.FatalLevel
	case logger.PanicLevel:
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// toLoggerLevel converts logrus.Level to logger.Level.
func toLoggerLevel(level logrus.Level) logger.Level {
	switch level {
	case logrus.TraceLevel:
		return logger.TraceLevel
	case logrus.DebugLevel:
		return logger.DebugLevel
	case logrus.InfoLevel:
		return logger.InfoLevel
	case logrus.WarnLevel:
		return logger.WarnLevel
	case logrus.ErrorLevel:
		return logger.ErrorLevel
	case logrus.FatalLevel:
		return logger.FatalLevel
	case logrus.PanicLevel:
		return logger.PanicLevel
	default:
		return logger.InfoLevel
	}
}
