package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetInstance(t *testing.T) {
	t.Helper()
	Reset()
	t.Cleanup(func() {
		instanceMu.Lock()
		s := instance
		instanceMu.Unlock()
		if s != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			_ = s.Shutdown(ctx)
		}
		Reset()
	})
}

func TestInstance_NotInstantiated(t *testing.T) {
	resetInstance(t)

	s, err := Instance(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotInstantiated)
	assert.EqualError(t, err, "Telemetry not instantiated")
	assert.Nil(t, s)
}

func TestInstance_FirstConfigWins(t *testing.T) {
	resetInstance(t)
	clearOTelEnv(t)

	first, err := Instance(context.Background(), debugConfig())
	require.NoError(t, err)
	require.NotNil(t, first)

	other := debugConfig()
	other.ServiceName = "other-service"
	second, err := Instance(context.Background(), other)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "test-service", second.Config().ServiceName)

	third, err := Instance(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, first, third)
}

func TestInstance_FailedConstructionStaysUninitialized(t *testing.T) {
	resetInstance(t)
	clearOTelEnv(t)

	_, err := Instance(context.Background(), &Config{ServiceName: "test-service"})
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = Instance(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotInstantiated)
}

func TestReset(t *testing.T) {
	resetInstance(t)
	clearOTelEnv(t)

	first, err := Instance(context.Background(), debugConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	Reset()

	second, err := Instance(context.Background(), debugConfig())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
