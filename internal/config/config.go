// Package config loads daemon configuration from an optional YAML file and
// LLMLOG_-prefixed environment variables.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "config.yaml"

// EnvPrefix marks environment overrides. Nested keys use "__", e.g.
// LLMLOG_QUEUE__POLL_INTERVAL=500ms.
const EnvPrefix = "LLMLOG_"

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Storage     StorageConfig     `koanf:"storage"`
	Queue       QueueConfig       `koanf:"queue"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"`
	Tokens      TokensConfig      `koanf:"tokens"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Path string `koanf:"path"` // SQLite file or DSN
}

type QueueConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	HighWater    int           `koanf:"high_water"` // 0 disables the depth warning
}

type DiagnosticsConfig struct {
	Path  string `koanf:"path"`  // empty writes to stderr
	Level string `koanf:"level"` // debug, info, warn, error
}

type TokensConfig struct {
	Estimate bool `koanf:"estimate"` // estimate prompt_tokens when usage omits it
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":            8080,
	"storage.path":           "llm_logs.db",
	"queue.poll_interval":    "1s",
	"queue.high_water":       0,
	"diagnostics.path":       "llm_logger_errors.log",
	"diagnostics.level":      "error",
	"tokens.estimate":        true,
	"telemetry.enabled":      false,
	"telemetry.service_name": "llm-interaction-logger",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads DefaultFile (if it exists) and the environment.
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile reads the YAML file at path (if it exists), then applies
// environment overrides and defaults.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Storage.Path = substituteEnvVars(cfg.Storage.Path)
	cfg.Diagnostics.Path = substituteEnvVars(cfg.Diagnostics.Path)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
