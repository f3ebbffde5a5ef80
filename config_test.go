package aqua

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, uint64(DefaultGCThreshold), cfg.GCThreshold)
	assert.False(t, cfg.Debug)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "no-such.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqua.toml")
	content := `
workers = 8
gc_threshold = 4096
debug = true
debug_categories = ["sched", "gc"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, uint64(4096), cfg.GCThreshold)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"sched", "gc"}, cfg.DebugCategories)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqua.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = [not toml"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsNegativeWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqua.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = -2"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestNewLoggerFromConfig(t *testing.T) {
	logger := newLoggerFromConfig(&Config{Debug: true})
	assert.True(t, logger.IsCategoryEnabled(CatSched))
	assert.True(t, logger.IsCategoryEnabled(CatGC))

	logger = newLoggerFromConfig(&Config{Debug: true, DebugCategories: []string{"gc"}})
	assert.True(t, logger.IsCategoryEnabled(CatGC))
	assert.False(t, logger.IsCategoryEnabled(CatSched))

	logger = newLoggerFromConfig(&Config{})
	assert.False(t, logger.IsCategoryEnabled(CatGC))
}
