package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

// Keys of the JSON records produced by every backend.
const (
	LevelFieldName   = "level"
	MessageFieldName = "message"
	TimeFieldName    = "time"
)

// OTelWriter is a transport that decodes JSON log lines and emits them as
// OTel log records.
//
// The trace_id, span_id and trace_flags fields become the record's trace
// context and are not kept as attributes.
type OTelWriter struct {
	logger log.Logger
}

// NewOTelWriter creates a writer emitting to l.
func NewOTelWriter(l log.Logger) *OTelWriter {
	return &OTelWriter{logger: l}
}

// Write implements io.Writer. p may hold several newline separated records.
func (w *OTelWriter) Write(p []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()

	for {
		var fields map[string]interface{}
		if err := dec.Decode(&fields); err == io.EOF {
			break
		} else if err != nil {
			return 0, err
		}
		w.emit(fields)
	}

	return len(p), nil
}

func (w *OTelWriter) emit(fields map[string]interface{}) {
	now := time.Now()

	var record log.Record
	record.SetObservedTimestamp(now)
	record.SetTimestamp(now)

	if v, ok := fields[TimeFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			record.SetTimestamp(ts)
		}
		delete(fields, TimeFieldName)
	}

	if v, ok := fields[LevelFieldName].(string); ok {
		record.SetSeverity(levelToSeverity(v))
		record.SetSeverityText(strings.ToUpper(v))
		delete(fields, LevelFieldName)
	}

	if v, ok := fields[MessageFieldName].(string); ok {
		record.SetBody(log.StringValue(v))
		delete(fields, MessageFieldName)
	}

	ctx := context.Background()
	if sc := spanContextFromFields(fields); sc.IsValid() {
		ctx = trace.ContextWithSpanContext(ctx, sc)
	}
	delete(fields, TraceIDKey)
	delete(fields, SpanIDKey)
	delete(fields, TraceFlagsKey)

	for _, k := range Fields(fields).Keys() {
		if kv, ok := toKeyValue(k, fields[k]); ok {
			record.AddAttributes(kv)
		}
	}

	w.logger.Emit(ctx, record)
}

func spanContextFromFields(fields map[string]interface{}) trace.SpanContext {
	tid, _ := fields[TraceIDKey].(string)
	sid, _ := fields[SpanIDKey].(string)

	traceID, err := trace.TraceIDFromHex(tid)
	if err != nil {
		return trace.SpanContext{}
	}
	spanID, err := trace.SpanIDFromHex(sid)
	if err != nil {
		return trace.SpanContext{}
	}

	var flags trace.TraceFlags
	if f, ok := fields[TraceFlagsKey].(string); ok {
		if n, err := strconv.ParseUint(f, 16, 8); err == nil {
			flags = trace.TraceFlags(n)
		}
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	})
}

func toKeyValue(key string, v interface{}) (log.KeyValue, bool) {
	val, ok := toValue(v)
	if !ok {
		return log.KeyValue{}, false
	}
	return log.KeyValue{Key: key, Value: val}, true
}

func toValue(v interface{}) (log.Value, bool) {
	switch val := v.(type) {
	case nil:
		return log.Value{}, false
	case string:
		return log.StringValue(val), true
	case bool:
		return log.BoolValue(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return log.Int64Value(i), true
		}
		if f, err := val.Float64(); err == nil {
			return log.Float64Value(f), true
		}
		return log.StringValue(val.String()), true
	case []interface{}:
		values := make([]log.Value, 0, len(val))
		for _, item := range val {
			if iv, ok := toValue(item); ok {
				values = append(values, iv)
			}
		}
		return log.SliceValue(values...), true
	case map[string]interface{}:
		kvs := make([]log.KeyValue, 0, len(val))
		for _, k := range Fields(val).Keys() {
			if kv, ok := toKeyValue(k, val[k]); ok {
				kvs = append(kvs, kv)
			}
		}
		return log.MapValue(kvs...), true
	default:
		return log.Value{}, false
	}
}

// levelToSeverity converts a level name to log.Severity.
func levelToSeverity(level string) log.Severity {
	switch strings.ToLower(level) {
	case "trace":
		return log.SeverityTrace
	case "debug":
		return log.SeverityDebug
	case "info":
		return log.SeverityInfo
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	case "fatal":
		return log.SeverityFatal
	case "panic", "dpanic":
		return log.SeverityFatal4
	default:
		return log.SeverityInfo
	}
}
