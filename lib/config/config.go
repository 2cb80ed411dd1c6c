// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "EFFECTBRIDGE_CONFIG"

// DefaultWorkerExecutable is the worker binary looked up next to the
// host executable when worker.path is empty.
const DefaultWorkerExecutable = "effectbridge-worker"

// Config is the master configuration for effectbridge.
type Config struct {
	// Worker configures how the worker process is located and started.
	Worker WorkerConfig `yaml:"worker"`

	// Timeouts bounds every blocking operation on the channel pair.
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint of the host CLI.
	Metrics MetricsConfig `yaml:"metrics"`
}

// WorkerConfig configures the worker process.
type WorkerConfig struct {
	// Path is an explicit path to the worker executable. When empty the
	// worker is looked up next to the host executable.
	Path string `yaml:"path"`

	// ExecutableName is the file name used for the adjacent lookup.
	// Default: effectbridge-worker
	ExecutableName string `yaml:"executable_name"`

	// Env lists extra KEY=VALUE entries appended to the worker's
	// inherited environment.
	Env []string `yaml:"env"`
}

// TimeoutsConfig bounds channel operations and the process lifecycle.
type TimeoutsConfig struct {
	// Send bounds each request write and the worker's control payload
	// reads. Default: 1s
	Send time.Duration `yaml:"send"`

	// Receive bounds each response read, the audio tail in both
	// directions, and the worker's audio payload reads. Default: 2s
	Receive time.Duration `yaml:"receive"`

	// Connect is the ceiling on the handshake. Default: 5s
	Connect time.Duration `yaml:"connect"`

	// PollInterval is the delay between handshake open attempts.
	// Default: 100ms
	PollInterval time.Duration `yaml:"poll_interval"`

	// ShutdownGrace is how long teardown waits after the Shutdown
	// message before killing the worker. Default: 100ms
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format is one of auto, text, json. auto picks text when stderr is
	// a terminal and json otherwise. Default: auto
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address served at /metrics, for example
	// "127.0.0.1:9464". Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// Default returns the default configuration. These values are the base
// that a config file is decoded over.
func Default() *Config {
	return &Config{
		Worker: WorkerConfig{
			ExecutableName: DefaultWorkerExecutable,
		},
		Timeouts: TimeoutsConfig{
			Send:          1000 * time.Millisecond,
			Receive:       2000 * time.Millisecond,
			Connect:       5000 * time.Millisecond,
			PollInterval:  100 * time.Millisecond,
			ShutdownGrace: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by EFFECTBRIDGE_CONFIG.
// It fails when the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your effectbridge config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, decoding it
// over [Default] and validating the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads the file named by flagPath, else the file named by
// EFFECTBRIDGE_CONFIG, else returns [Default].
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	return Default(), nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Worker.Path = expandVars(c.Worker.Path, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"timeouts.send", c.Timeouts.Send},
		{"timeouts.receive", c.Timeouts.Receive},
		{"timeouts.connect", c.Timeouts.Connect},
		{"timeouts.poll_interval", c.Timeouts.PollInterval},
		{"timeouts.shutdown_grace", c.Timeouts.ShutdownGrace},
	}
	for _, duration := range durations {
		if duration.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", duration.name, duration.value))
		}
	}
	if c.Timeouts.PollInterval > c.Timeouts.Connect {
		errs = append(errs, fmt.Errorf("timeouts.poll_interval (%v) exceeds timeouts.connect (%v)",
			c.Timeouts.PollInterval, c.Timeouts.Connect))
	}

	if c.Worker.Path == "" && c.Worker.ExecutableName == "" {
		errs = append(errs, errors.New("worker.executable_name is required when worker.path is empty"))
	}
	for _, entry := range c.Worker.Env {
		if !strings.Contains(entry, "=") {
			errs = append(errs, fmt.Errorf("worker.env entry %q is not KEY=VALUE", entry))
		}
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Logging.Format)) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
