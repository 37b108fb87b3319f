// Package config handles ime-tool configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"gopkg.in/yaml.v3"
)

// Config holds ime-tool configuration.
type Config struct {
	// ConfigDir is the directory holding config.yaml
	ConfigDir string `yaml:"-"`

	// StateDir holds the slot files. Editor plugins read these files
	// directly, so the default must not change.
	StateDir string `yaml:"state_dir"`

	// LogFile receives debug traces when debug logging is on
	LogFile string `yaml:"log_file"`

	// FallbackMethod is selected when entering normal mode with nothing saved
	FallbackMethod string `yaml:"fallback_method"`

	// SettleIntervalMS is the wait before each switch verification (milliseconds)
	SettleIntervalMS int `yaml:"settle_interval_ms"`

	// Retries is the number of verification retries after the first check
	Retries *int `yaml:"retries"`

	// ForceMode is one of auto, always, never
	ForceMode string `yaml:"force_mode"`

	// Backend selects the input source registry: auto, carbon, ibus
	Backend string `yaml:"backend"`

	// Keyboard holds keyboard type codes for the layout heuristic
	Keyboard KeyboardTypes `yaml:"keyboard"`
}

// KeyboardTypes lists hardware keyboard type codes.
type KeyboardTypes struct {
	DualMode   []int `yaml:"dual_mode_types"`
	SingleMode []int `yaml:"single_mode_types"`
}

var (
	validForceModes = []string{"auto", "always", "never"}
	validBackends   = []string{"auto", "carbon", "ibus"}
)

// Default returns a Config with default values.
func Default() *Config {
	retries := 3
	stateDir := defaultStateDir()
	return &Config{
		ConfigDir:        defaultConfigDir(),
		StateDir:         stateDir,
		LogFile:          filepath.Join(stateDir, "debug.log"),
		FallbackMethod:   "com.apple.keylayout.ABC",
		SettleIntervalMS: 50,
		Retries:          &retries,
		ForceMode:        "auto",
		Backend:          "auto",
		Keyboard: KeyboardTypes{
			DualMode:   []int{42, 202},
			SingleMode: []int{40, 41},
		},
	}
}

// Load loads configuration from the default config file, falling back to
// defaults when it does not exist.
func Load() (*Config, error) {
	return LoadFile(Default().ConfigFile())
}

// LoadFile loads configuration from path, falling back to defaults when the
// file does not exist.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, use defaults
			return cfg, nil
		}
		return nil, errors.Errorf("read config %s: %w", path, err)
	}

	// Parse YAML into a temporary struct to merge with defaults
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, errors.Errorf("parse config %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// mergeConfig merges file configuration into the default configuration.
// Only non-zero values from file are applied.
func mergeConfig(dst, src *Config) {
	if src.StateDir != "" {
		dst.StateDir = expandPath(src.StateDir)
		// Keep the log next to the slots unless it is set explicitly.
		dst.LogFile = filepath.Join(dst.StateDir, "debug.log")
	}
	if src.LogFile != "" {
		dst.LogFile = expandPath(src.LogFile)
	}
	if src.FallbackMethod != "" {
		dst.FallbackMethod = src.FallbackMethod
	}
	if src.SettleIntervalMS != 0 {
		dst.SettleIntervalMS = src.SettleIntervalMS
	}
	if src.Retries != nil {
		dst.Retries = src.Retries
	}
	if src.ForceMode != "" {
		dst.ForceMode = strings.ToLower(src.ForceMode)
	}
	if src.Backend != "" {
		dst.Backend = strings.ToLower(src.Backend)
	}

	mergeKeyboard(&dst.Keyboard, &src.Keyboard)
}

// mergeKeyboard replaces whole code lists; lists are not merged element-wise.
func mergeKeyboard(dst, src *KeyboardTypes) {
	if src.DualMode != nil {
		dst.DualMode = src.DualMode
	}
	if src.SingleMode != nil {
		dst.SingleMode = src.SingleMode
	}
}

// defaultConfigDir returns the default configuration directory.
func defaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ime-tool")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ime-tool"
	}
	return filepath.Join(home, ".config", "ime-tool")
}

// defaultStateDir returns the slot directory shared with the editor plugin.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "nvim", "ime-auto")
	}
	return filepath.Join(home, ".local", "share", "nvim", "ime-auto")
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// ConfigFile returns the path to the config file.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.ConfigDir, "config.yaml")
}

// SettleInterval returns the verification wait as a duration.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.SettleIntervalMS) * time.Millisecond
}

// RetryCount returns the configured retry budget.
func (c *Config) RetryCount() int {
	if c.Retries == nil {
		return 0
	}
	return *c.Retries
}
