// Package config handles loader configuration from an optional TOML file
// with CLI flag overrides applied by the CLI layer.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/kyriji/modloader/internal/artifact"
)

// Config holds all configuration settings for the loader.
type Config struct {
	Modules ModulesConfig `toml:"modules"`
	Logging LoggingConfig `toml:"logging"`
}

// ModulesConfig holds artifact discovery settings.
type ModulesConfig struct {
	// Dir is the directory scanned for artifacts. Created if absent.
	Dir string `toml:"dir"`
	// Extension identifies candidate artifact files.
	Extension string `toml:"extension"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Modules: ModulesConfig{
			Dir:       "modules",
			Extension: artifact.DefaultExtension,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML config file over the defaults. An empty path returns the
// defaults unchanged; a missing or malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// LogLevel parses the configured level. Unknown levels are an error so typos
// surface instead of silently logging at the default level.
func (c *Config) LogLevel() (log.Level, error) {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return level, nil
}
