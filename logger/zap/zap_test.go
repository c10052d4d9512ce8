package zap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekristen/go-otelkit/logger"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestLevels(t *testing.T) {
	for _, level := range []logger.Level{
		logger.TraceLevel, logger.DebugLevel, logger.InfoLevel, logger.WarnLevel,
		logger.ErrorLevel, logger.FatalLevel, logger.PanicLevel, logger.Disabled,
	} {
		assert.Equal(t, level, toLoggerLevel(toZapLevel(level)), level.String())
	}
	assert.Equal(t, logger.PanicLevel, toLoggerLevel(zapcore.DPanicLevel))

	l := New(Options{Level: logger.InfoLevel})
	assert.Equal(t, logger.InfoLevel, l.Level())

	l.SetLevel(logger.DebugLevel)
	assert.Equal(t, logger.DebugLevel, l.Level())
}

func TestNew_TraceLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: logger.TraceLevel, Sinks: []logger.Sink{{Writer: &buf, Level: logger.TraceLevel}}})

	l.Trace().Msg("fine grained")

	records := lines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "trace", records[0][logger.LevelFieldName])
}

func TestNew_SinkLevels(t *testing.T) {
	var all, errs bytes.Buffer
	l := New(Options{
		Level: logger.DebugLevel,
		Sinks: []logger.Sink{
			{Writer: &all, Level: logger.DebugLevel},
			{Writer: &errs, Level: logger.ErrorLevel},
		},
	})

	l.Trace().Msg("below threshold")
	l.Debug().Msg("debug")
	l.Info().Int64("bytes", 512).Msgf("sent %d", 1)
	l.Error().Err(errors.New("boom")).Msg("error")

	records := lines(t, &all)
	require.Len(t, records, 3)
	assert.Equal(t, "sent 1", records[1][logger.MessageFieldName])
	assert.Equal(t, float64(512), records[1]["bytes"])

	records = lines(t, &errs)
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0]["error"])
}

func TestEnrichment(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	calls := 0
	l := New(Options{
		Level: logger.InfoLevel,
		Sinks: []logger.Sink{{Writer: &buf, Level: logger.InfoLevel}},
		Enrichment: logger.NewPipeline(func() map[string]interface{} {
			calls++
			return map[string]interface{}{"request": "r1"}
		}, nil),
	})

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	l.WithContext(ctx).Info().Msg("with span")
	l.Debug().Msg("filtered")

	records := lines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, span.SpanContext().SpanID().String(), records[0][logger.SpanIDKey])
	assert.Equal(t, "r1", records[0]["request"])
	assert.Equal(t, 1, calls, "filtered records are not enriched")
}

func TestWithAndOutput(t *testing.T) {
	var buf, other bytes.Buffer
	l := New(Options{
		Level: logger.InfoLevel,
		Sinks: []logger.Sink{{Writer: &buf, Level: logger.InfoLevel}},
	})

	child := l.With().Str("component", "billing").Int("shard", 3).Logger()
	child.Warn().Bool("retry", false).Msg("child")

	out := l.Output(&other)
	out.Debug().Msg("filtered")
	out.Info().Msg("redirected")

	records := lines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "billing", records[0]["component"])
	assert.Equal(t, float64(3), records[0]["shard"])
	assert.Equal(t, false, records[0]["retry"])

	records = lines(t, &other)
	require.Len(t, records, 1)
	assert.Equal(t, "redirected", records[0][logger.MessageFieldName])
}

func TestSetLevel_SharedWithDerived(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: logger.InfoLevel, Sinks: []logger.Sink{{Writer: &buf, Level: logger.TraceLevel}}})
	child := l.With().Str("component", "billing").Logger()

	l.SetLevel(logger.Disabled)
	child.Error().Msg("dropped")
	assert.Empty(t, buf.String())
	assert.Equal(t, logger.Disabled, child.Level())

	l.SetLevel(logger.DebugLevel)
	child.Debug().Msg("kept")
	assert.Len(t, lines(t, &buf), 1)
}

func TestWrap(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), zapcore.AddSync(&buf), zapcore.InfoLevel)

	l := Wrap(zap.New(core), logger.NewPipeline(nil, map[string]interface{}{"team": "payments"}))
	l.Info().Msg("wrapped")

	records := lines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "payments", records[0]["team"])
	assert.Equal(t, logger.InfoLevel, l.Level())
}

func TestEnrichment_CallSiteFieldsWin(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{
		Level: logger.InfoLevel,
		Sinks: []logger.Sink{{Writer: &buf, Level: logger.InfoLevel}},
		Enrichment: logger.NewPipeline(nil, map[string]interface{}{
			"team":   "payments",
			"region": "eu-west-1",
			"tier":   "gold",
		}),
	})

	child := l.With().Str("region", "us-east-1").Logger()
	child.Info().Str("team", "search").Msg("override")

	raw := buf.String()
	records := lines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "search", records[0]["team"])
	assert.Equal(t, "us-east-1", records[0]["region"])
	assert.Equal(t, "gold", records[0]["tier"])
	assert.Equal(t, 1, strings.Count(raw, `"team"`))
	assert.Equal(t, 1, strings.Count(raw, `"region"`))
}
