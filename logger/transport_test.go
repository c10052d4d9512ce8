package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestOTelTransport(t *testing.T) {
	tr := OTelTransport("test-service", InfoLevel)

	assert.Equal(t, TargetOTel, tr.Target)
	assert.Equal(t, "info", tr.Level)
	assert.Equal(t, "test-service", tr.Options["loggerName"])
	assert.Equal(t, map[string]interface{}{"service.name": "test-service"}, tr.Options["resourceAttributes"])
	assert.Equal(t, "batch", tr.Options["processor"])
	assert.Equal(t, "grpc", tr.Options["protocol"])
}

func TestOpenSinks(t *testing.T) {
	var buf bytes.Buffer
	dest := filepath.Join(t.TempDir(), "logs", "app.log")

	lp := sdklog.NewLoggerProvider()
	sinks, closer, err := OpenSinks([]Transport{
		{Writer: &buf},
		{Target: TargetStderr, Level: "warn"},
		{Target: TargetFile, Options: map[string]interface{}{"destination": dest, "mkdir": true}},
		OTelTransport("svc", DebugLevel),
	}, ErrorLevel, lp)
	require.NoError(t, err)
	defer closer.Close()

	require.Len(t, sinks, 4)
	assert.Same(t, &buf, sinks[0].Writer)
	assert.Equal(t, ErrorLevel, sinks[0].Level, "transport without level uses the fallback")
	assert.Equal(t, os.Stderr, sinks[1].Writer)
	assert.Equal(t, WarnLevel, sinks[1].Level)
	assert.IsType(t, &os.File{}, sinks[2].Writer)
	assert.IsType(t, &OTelWriter{}, sinks[3].Writer)
	assert.Equal(t, DebugLevel, sinks[3].Level)

	_, err = sinks[2].Writer.Write([]byte("{}\n"))
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestOpenSinks_Errors(t *testing.T) {
	tests := []struct {
		name      string
		transport Transport
	}{
		{name: "unknown target", transport: Transport{Target: "syslog"}},
		{name: "bad level", transport: Transport{Target: TargetStdout, Level: "loud"}},
		{name: "file without destination", transport: Transport{Target: TargetFile}},
		{name: "otel without provider", transport: OTelTransport("svc", InfoLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := OpenSinks([]Transport{tt.transport}, InfoLevel, nil)
			assert.Error(t, err)
		})
	}
}
