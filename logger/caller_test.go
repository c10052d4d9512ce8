package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInternalFrame(t *testing.T) {
	tests := map[string]bool{
		"github.com/ekristen/go-otelkit/logger/logrus.(*Event).Msg": true,
		"github.com/sirupsen/logrus.(*Entry).Log":                   true,
		"go.uber.org/zap.(*Logger).Check":                           true,
		"github.com/rs/zerolog.(*Event).Msg":                        true,
		"runtime.goexit":                                            true,
		"main.main":                                                 false,
		"github.com/ekristen/go-otelkit.(*Session).Shutdown":        false,
	}

	for fn, want := range tests {
		assert.Equal(t, want, isInternalFrame(fn), fn)
	}
}

func TestExternalCaller(t *testing.T) {
	// Every frame of this test belongs to the logger package, so the first
	// external frame is the test runner.
	assert.Contains(t, ExternalCaller(), "testing.go:")
}
