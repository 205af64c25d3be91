package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	conf := NewDefaultConfig()

	assert.False(t, conf.Debug)
	assert.Equal(t, orchestrator.DefaultRetryPolicy(), conf.DefaultRetry)
	assert.Equal(t, 50, conf.DefaultCheckpoints.Interval)
	assert.True(t, conf.DefaultMonitoring.Enabled)
	assert.NotZero(t, conf.DefaultTimeout.InitialToken)
	assert.NotZero(t, conf.DefaultTimeout.InterToken)
	assert.NotNil(t, conf.Viper)
	assert.NotNil(t, conf.Printers)
	assert.NotNil(t, conf.InReader)
	assert.NotNil(t, conf.OutWriter)
	assert.NotNil(t, conf.ErrWriter)
}

func TestGetConfigFilePath(t *testing.T) {
	conf := NewDefaultConfig()
	path, err := GetConfigFilePath(conf)
	require.NoError(t, err)
	assert.Contains(t, path, ".config/streamkernel")
	assert.Contains(t, path, "config.yml")
}

func TestGetConfigDirPath(t *testing.T) {
	conf := NewDefaultConfig()
	dir, err := GetConfigDirPath(conf)
	require.NoError(t, err)
	assert.Contains(t, dir, ".config/streamkernel")
}

func TestSetupStore_NoConfigFile(t *testing.T) {
	conf := Config{
		ConfigDirPath:  "/nonexistent/path",
		ConfigFilePath: "config.yml",
	}
	v := setupStore(conf)
	assert.NotNil(t, v)
}

func TestSetupStore_OverridesDefaultsFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	yamlBody := "adapter: anthropic-chunk\nretry:\n  attempts: 5\ndebug: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yamlBody), 0o644))

	s := NewStore()
	require.NoError(t, s.LoadYAMLFile(filepath.Join(dir, "config.yml")))

	conf := NewDefaultConfig()
	applyStoreOverrides(&conf, s)

	assert.Equal(t, "anthropic-chunk", conf.DefaultAdapter)
	assert.Equal(t, 5, conf.DefaultRetry.Attempts)
	assert.True(t, conf.Debug)
}
