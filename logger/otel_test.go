package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type recordingProcessor struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r.Clone())
	return nil
}

func (p *recordingProcessor) Shutdown(context.Context) error   { return nil }
func (p *recordingProcessor) ForceFlush(context.Context) error { return nil }

func (p *recordingProcessor) Records() []sdklog.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sdklog.Record(nil), p.records...)
}

func attributes(r sdklog.Record) map[string]log.Value {
	attrs := map[string]log.Value{}
	r.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	return attrs
}

func newRecordingWriter() (*OTelWriter, *recordingProcessor) {
	proc := &recordingProcessor{}
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(proc))
	return NewOTelWriter(lp.Logger("test-service")), proc
}

func TestOTelWriter_Write(t *testing.T) {
	w, proc := newRecordingWriter()

	line := `{"level":"warn","time":"2024-05-01T10:00:00.123456789Z","message":"disk almost full",` +
		`"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736","span_id":"00f067aa0ba902b7","trace_flags":"01",` +
		`"traceId":"4bf92f3577b34da6a3ce929d0e0e4736","spanId":"00f067aa0ba902b7",` +
		`"free":12,"ratio":0.5,"ok":false,"tags":["a","b"],"disk":{"name":"sda"}}` + "\n"

	n, err := w.Write([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	records := proc.Records()
	require.Len(t, records, 1)
	r := records[0]

	assert.Equal(t, log.SeverityWarn, r.Severity())
	assert.Equal(t, "WARN", r.SeverityText())
	assert.Equal(t, "disk almost full", r.Body().AsString())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC), r.Timestamp().UTC())

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", r.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", r.SpanID().String())
	assert.True(t, r.TraceFlags().IsSampled())

	attrs := attributes(r)
	assert.NotContains(t, attrs, TraceIDKey)
	assert.NotContains(t, attrs, SpanIDKey)
	assert.NotContains(t, attrs, TraceFlagsKey)
	assert.NotContains(t, attrs, MessageFieldName)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", attrs[TraceIDAliasKey].AsString(), "alias keys survive the transport")
	assert.Equal(t, "00f067aa0ba902b7", attrs[SpanIDAliasKey].AsString())
	assert.Equal(t, int64(12), attrs["free"].AsInt64())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
	assert.False(t, attrs["ok"].AsBool())
	assert.Len(t, attrs["tags"].AsSlice(), 2)
	assert.Len(t, attrs["disk"].AsMap(), 1)
}

func TestOTelWriter_MultipleRecords(t *testing.T) {
	w, proc := newRecordingWriter()

	_, err := w.Write([]byte("{\"level\":\"info\",\"message\":\"one\"}\n{\"level\":\"error\",\"message\":\"two\"}\n"))
	require.NoError(t, err)

	records := proc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0].Body().AsString())
	assert.Equal(t, log.SeverityError, records[1].Severity())
	assert.False(t, records[0].TraceID().IsValid())
}

func TestOTelWriter_InvalidJSON(t *testing.T) {
	w, proc := newRecordingWriter()

	_, err := w.Write([]byte("not json"))
	assert.Error(t, err)
	assert.Empty(t, proc.Records())
}

func TestLevelToSeverity(t *testing.T) {
	tests := map[string]log.Severity{
		"trace":   log.SeverityTrace,
		"debug":   log.SeverityDebug,
		"info":    log.SeverityInfo,
		"warning": log.SeverityWarn,
		"ERROR":   log.SeverityError,
		"fatal":   log.SeverityFatal,
		"dpanic":  log.SeverityFatal4,
		"custom":  log.SeverityInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, levelToSeverity(in), in)
	}
}
