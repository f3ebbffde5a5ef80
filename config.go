package aqua

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the runtime configuration, loaded from aqua.toml when present.
type Config struct {
	// Workers is the scheduler worker-thread count; 0 selects the
	// available hardware parallelism.
	Workers int `toml:"workers"`
	// GCThreshold is the tracked-byte total that triggers a collection;
	// 0 selects DefaultGCThreshold.
	GCThreshold uint64 `toml:"gc_threshold"`
	// Debug enables Trace/Info/Debug logging.
	Debug bool `toml:"debug"`
	// DebugCategories lists the log categories to enable; empty with
	// Debug set enables all of them.
	DebugCategories []string `toml:"debug_categories"`
}

// DefaultConfig returns the configuration used when no aqua.toml exists.
func DefaultConfig() *Config {
	return &Config{
		Workers:     0,
		GCThreshold: DefaultGCThreshold,
		Debug:       false,
	}
}

// LoadConfig reads a TOML configuration file. A missing file is not an
// error; defaults are returned.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// newLoggerFromConfig builds the runtime logger described by c.
func newLoggerFromConfig(c *Config) *Logger {
	logger := NewLogger(c.Debug)
	if !c.Debug {
		return logger
	}
	if len(c.DebugCategories) == 0 {
		logger.EnableAllCategories()
		return logger
	}
	for _, cat := range c.DebugCategories {
		logger.EnableCategory(LogCategory(cat))
	}
	return logger
}
