package telemetry

import (
	"context"
	"sync"
)

var (
	instanceMu sync.Mutex
	instance   *Session
)

// Instance returns the process-wide Session. The first call with a non-nil
// cfg creates it; every later call returns that Session and ignores cfg.
// Calling it before any Session exists without a cfg fails with
// ErrNotInstantiated.
func Instance(ctx context.Context, cfg *Config) (*Session, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance, nil
	}
	if cfg == nil {
		return nil, ErrNotInstantiated
	}

	s, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	instance = s
	return instance, nil
}

// Reset forgets the process-wide Session so tests can start over. It does
// not shut the Session down.
func Reset() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}
