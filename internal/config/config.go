// Package config provides ambient configuration for the kvs engine and CLI:
// write-buffer sizing, log level, and the diagnostics manifest's checksum
// mode. It never configures the store directory itself — that is always an
// explicit argument to engine.Open, resolved by the CLI from --dir or the
// process's working directory.
package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds ambient tuning knobs loaded from config.yml.
type Config struct {
	SyncEveryBytes   uint32 `yaml:"SYNC_EVERY_BYTES"`
	LogLevel         string `yaml:"LOG_LEVEL"`
	ManifestChecksum string `yaml:"MANIFEST_CHECKSUM"`
}

// Default returns the built-in configuration used when no config.yml is
// present.
func Default() *Config {
	return &Config{
		SyncEveryBytes:   4096,
		LogLevel:         "info",
		ManifestChecksum: "xxh3",
	}
}

var (
	loaded  *Config
	once    sync.Once
	loadErr error
)

// Load reads config.yml from the current working directory, expanding
// ${VAR} references against the process environment after optionally
// loading a .env file. A missing config.yml is not an error — it yields
// Default(). Load is idempotent: subsequent calls return the first result.
func Load() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("config: no .env file found or error loading it", "error", err)
		}

		data, err := os.ReadFile("config.yml")
		if err != nil {
			if os.IsNotExist(err) {
				loaded = Default()
				return
			}
			loadErr = err
			return
		}

		cfg := Default()
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			loadErr = err
			return
		}
		loaded = cfg
	})
	return loaded, loadErr
}

// SlogLevel maps Config.LogLevel to a slog.Level, defaulting to Info for an
// unrecognized or empty value.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
