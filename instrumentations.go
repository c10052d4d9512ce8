package telemetry

import (
	"fmt"
	"slices"

	"github.com/ekristen/go-otelkit/instrumentation"
)

// selectInstrumentations builds the always-on instrumentations followed by
// every enabled opt-in one, in the stable kind order.
func selectInstrumentations(cfg *Config, p instrumentation.Providers) ([]instrumentation.Instrumentation, error) {
	optIn := instrumentation.OptIn()
	for kind := range cfg.Instrumentations {
		if !slices.Contains(optIn, kind) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInstrumentationKind, kind)
		}
	}

	defaults := instrumentation.Defaults()
	insts := make([]instrumentation.Instrumentation, 0, len(defaults)+len(cfg.Instrumentations))

	for _, kind := range defaults {
		inst, err := instrumentation.New(kind, p, nil)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}

	for _, kind := range optIn {
		ic, ok := cfg.Instrumentations[kind]
		if !ok || !ic.Enabled {
			continue
		}
		inst, err := instrumentation.New(kind, p, ic.Config)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}

	return insts, nil
}
