// Package config loads the service configuration with koanf.
//
// Sources are layered, later ones win: built-in defaults, config.yaml,
// config.<app.env>.yaml, then environment variables (REST_TIMEOUT maps to
// rest.timeout).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envSections lists the top-level keys environment variables may override.
var envSections = []string{"app.", "log.", "rest.", "server.", "observability.", "custom."}

// listKeys are comma separated when supplied through the environment.
var listKeys = map[string]bool{
	"rest.retry.statuses": true,
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration files
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadOptionalFile(k, "config.yaml"); err != nil {
		return nil, err
	}
	if appEnv := k.String("app.env"); appEnv != "" {
		if err := loadOptionalFile(k, fmt.Sprintf("config.%s.yaml", appEnv)); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}
	return build(k)
}

// loadOptionalFile merges the YAML file at path. A missing file is skipped;
// an unreadable or malformed one is an error.
func loadOptionalFile(k *koanf.Koanf, path string) error {
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromBytes loads defaults, then the YAML document data, then environment variables.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := loadEnv(k); err != nil {
		return nil, err
	}
	return build(k)
}

func build(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	provider := env.Provider(".", env.Opt{
		TransformFunc: envTransform,
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// envTransform maps REST_RETRY_MAX to rest.retry.max. Variables outside the
// known sections are skipped.
func envTransform(key, value string) (string, any) {
	key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
	known := false
	for _, section := range envSections {
		if strings.HasPrefix(key, section) {
			known = true
			break
		}
	}
	if !known {
		return "", nil
	}
	if listKeys[key] {
		parts := strings.Split(value, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		return key, items
	}
	return key, value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "rest-service",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,

		"rest.timeout":            "60s",
		"rest.logpayloads":        true,
		"rest.maxpayloadlogbytes": 1024,
		"rest.traceidheader":      "X-Request-ID",
		"rest.w3ctrace":           false,

		"rest.retry.max":        5,
		"rest.retry.backoff":    "1s",
		"rest.retry.maxbackoff": "120s",
		"rest.retry.statuses":   []int{404},

		"rest.ratelimit.rps":   0,
		"rest.ratelimit.burst": 0,

		"rest.circuitbreaker.enabled":     false,
		"rest.circuitbreaker.maxrequests": 1,
		"rest.circuitbreaker.interval":    "60s",
		"rest.circuitbreaker.timeout":     "30s",
		"rest.circuitbreaker.failures":    5,

		"server.host":            "0.0.0.0",
		"server.port":            8080,
		"server.readtimeout":     "15s",
		"server.writetimeout":    "75s",
		"server.shutdowntimeout": "10s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
