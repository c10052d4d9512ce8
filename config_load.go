package telemetry

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "TELEMETRY_"

// envSections are the nested Config sections addressable from the
// environment. TELEMETRY_LOGGING_LEVEL maps to logging.level.
var envSections = []struct{ prefix, key string }{
	{"logging_", "logging."},
	{"app_attributes_", "app_attributes."},
	{"metrics_prometheus_", "metrics.prometheus."},
	{"metrics_", "metrics."},
}

// LoadConfig loads a Config from an optional YAML file, then overrides it
// with TELEMETRY_* environment variables.
//
//	TELEMETRY_SERVICE_NAME -> service_name
//	TELEMETRY_LOGGING_LEVEL -> logging.level
//	TELEMETRY_METRICS_PROMETHEUS_ENABLED -> metrics.prometheus.enabled
//
// Function and writer valued fields can only be set in code. The result is
// not validated until it is passed to New or Instance.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envKey maps an environment variable name to its koanf key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section.prefix); ok {
			return section.key + rest
		}
	}
	return key
}
