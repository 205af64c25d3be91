package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/sanix-darker/streamkernel/internal/printers"
)

const (
	ConfigDirName  = ".config/streamkernel"
	ConfigFileName = "config.yml"
	CacheDirName   = ".streamkernel_cache"
)

// Config holds the process-wide defaults a CLI or service entrypoint
// seeds every orchestrator.Options from, plus the handful of ambient
// settings (paths, debug flag, I/O) that aren't part of a single
// session's options at all.
type Config struct {
	Version        string
	Viper          *Store
	ConfigDirPath  string
	ConfigFilePath string
	CacheDirPath   string
	Debug          bool

	DefaultAdapter     string
	DefaultTimeout     orchestrator.TimeoutConfig
	DefaultRetry       orchestrator.RetryPolicy
	DefaultCheckpoints orchestrator.CheckpointConfig
	DefaultMonitoring  orchestrator.MonitoringConfig

	Printers printers.IPrinters

	// io Writers useful for testing
	InReader  *os.File
	OutWriter *os.File
	ErrWriter *os.File
}

// NewDefaultConfig builds a Config seeded with the kernel's baked-in
// defaults (the same RetryPolicy/TimeoutConfig an orchestrator.Options
// left unset would fall back to, made explicit here so a config file or
// flag can override any one of them), then attempts to load and
// overlay a config file from the resolved config directory.
func NewDefaultConfig() Config {
	conf := Config{
		Printers:       printers.NewPrinters(),
		ConfigDirPath:  ConfigDirName,
		ConfigFilePath: ConfigFileName,
		CacheDirPath:   CacheDirName,
		Debug:          false,

		DefaultAdapter:     "",
		DefaultTimeout:     orchestrator.TimeoutConfig{InitialToken: 30 * time.Second, InterToken: 15 * time.Second},
		DefaultRetry:       orchestrator.DefaultRetryPolicy(),
		DefaultCheckpoints: orchestrator.CheckpointConfig{Interval: 50},
		DefaultMonitoring:  orchestrator.MonitoringConfig{Enabled: true, SampleRate: 1.0},

		InReader:  os.Stdin,
		OutWriter: os.Stdout,
		ErrWriter: os.Stderr,
	}

	conf.Viper = setupStore(conf)
	applyStoreOverrides(&conf, conf.Viper)
	return conf
}

func setupStore(conf Config) *Store {
	s := NewStore()

	dir, err := GetConfigDirPath(conf)
	if err != nil {
		return s
	}

	cfgFile := filepath.Join(dir, conf.ConfigFilePath)
	if err := s.LoadYAMLFile(cfgFile); err != nil {
		// Config file not found is OK, we use defaults.
		return s
	}

	applyStoreOverrides(&conf, s)
	return s
}

// applyStoreOverrides copies the keys a loaded config file sets (adapter,
// retry, timeout, debug) onto the matching Config defaults; keys the file
// leaves unset keep their baked-in values.
func applyStoreOverrides(conf *Config, s *Store) {
	if s.IsSet("adapter") {
		conf.DefaultAdapter = s.GetString("adapter")
	}
	if s.IsSet("retry.attempts") {
		conf.DefaultRetry.Attempts = s.GetInt("retry.attempts")
	}
	if s.IsSet("retry.base_delay") {
		conf.DefaultRetry.BaseDelay = s.GetDuration("retry.base_delay")
	}
	if s.IsSet("retry.max_delay") {
		conf.DefaultRetry.MaxDelay = s.GetDuration("retry.max_delay")
	}
	if s.IsSet("timeout.initial_token") {
		conf.DefaultTimeout.InitialToken = s.GetDuration("timeout.initial_token")
	}
	if s.IsSet("timeout.inter_token") {
		conf.DefaultTimeout.InterToken = s.GetDuration("timeout.inter_token")
	}
	if s.IsSet("debug") {
		conf.Debug = s.GetBool("debug")
	}
}

// GetConfigFilePath returns the absolute path to the config file under
// the user's home directory.
func GetConfigFilePath(conf Config) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to read home directory: %w", err)
	}
	return filepath.Join(home, conf.ConfigDirPath, conf.ConfigFilePath), nil
}

// GetCacheDirPath returns the absolute path to the cache directory under
// the user's home directory.
func GetCacheDirPath(conf Config) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to read home directory: %w", err)
	}
	return filepath.Join(home, conf.CacheDirPath), nil
}

// GetConfigDirPath returns the absolute path to the config directory
// under the user's home directory.
func GetConfigDirPath(conf Config) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to read home directory: %w", err)
	}
	return filepath.Join(home, conf.ConfigDirPath), nil
}
