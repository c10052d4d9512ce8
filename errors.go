package telemetry

import (
	"errors"

	"github.com/ekristen/go-otelkit/instrumentation"
)

var (
	// ErrInvalidConfiguration is returned when a Config fails validation.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnknownInstrumentationKind is returned when an opt-in instrumentation
	// key has no registered factory.
	ErrUnknownInstrumentationKind = instrumentation.ErrUnknownKind
	// ErrNotInstantiated is returned by Instance before any session exists.
	ErrNotInstantiated = errors.New("Telemetry not instantiated") //nolint:staticcheck // message is part of the public contract
	// ErrShutdownFailure wraps failures to flush or close the providers.
	ErrShutdownFailure = errors.New("shutdown failure")
)
