// Package config loads config.toml from the data directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
)

// Config holds user preferences. Zero values are never used directly; Load
// starts from Default so keys missing from the file keep their defaults.
type Config struct {
	LogLevel         string `toml:"log_level"`
	BackupBeforeSwap bool   `toml:"backup_before_swap"`
	BackupRetention  string `toml:"backup_retention"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		LogLevel:         "warn",
		BackupBeforeSwap: true,
		BackupRetention:  "30d",
	}
}

// Load reads the config at path. A missing file is created with defaults.
func Load(st *storage.Storage, path string) (Config, error) {
	cfg := Default()
	data, err := st.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(st, path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(st *storage.Storage, path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := st.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ParseRetentionInterval(c.BackupRetention); err != nil {
		return fmt.Errorf("backup_retention: %w", err)
	}
	return nil
}

// Level returns the slog level for LogLevel, falling back to warn.
func (c Config) Level() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// Retention returns the parsed backup retention interval.
func (c Config) Retention() (time.Duration, error) {
	return ParseRetentionInterval(c.BackupRetention)
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
