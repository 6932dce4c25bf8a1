// Package config loads and saves the ninerings.yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/robot"
	"github.com/christian-helms/nine-linked-rings/pkg/tracking"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "ninerings.yaml"

// Source kinds.
const (
	SourceManus     = "manus"
	SourceSynthetic = "synthetic"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds the whole application configuration.
type Config struct {
	Retarget  retarget.Config `yaml:"retarget"`
	Source    SourceConfig    `yaml:"source"`
	Recording RecordingConfig `yaml:"recording"`
	Hand      HandConfig      `yaml:"hand"`
	Log       LogConfig       `yaml:"log"`
}

// SourceConfig selects the hand-tracking source.
type SourceConfig struct {
	Kind    string `yaml:"kind"`    // manus, synthetic
	Library string `yaml:"library"` // shared library path for manus
	Side    string `yaml:"side"`    // left, right
	Hz      int    `yaml:"hz"`
}

// RecordingConfig controls demonstration recording.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"`
}

// HandConfig holds the servo hand connection.
type HandConfig struct {
	Port        string            `yaml:"port"`
	Calibration robot.Calibration `yaml:"calibration,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// IsCalibrated returns true if every hand motor has calibration data.
func (h *HandConfig) IsCalibrated() bool {
	return h.Calibration.Complete()
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Retarget: retarget.DefaultConfig(),
		Source: SourceConfig{
			Kind:    SourceManus,
			Library: tracking.DefaultLibrary,
			Side:    tracking.SideRight.String(),
			Hz:      60,
		},
		Recording: RecordingConfig{
			Dir:    demo.DefaultDir,
			Format: string(demo.FormatNative),
		},
		Log: LogConfig{
			Level: "info",
			File:  "ninerings.log",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Retarget.Validate(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case SourceManus, SourceSynthetic:
	default:
		return fmt.Errorf("%w: source kind %q (valid: %s, %s)", ErrInvalid, c.Source.Kind, SourceManus, SourceSynthetic)
	}
	if _, err := c.Side(); err != nil {
		return err
	}
	if c.Source.Hz <= 0 {
		return fmt.Errorf("%w: source hz must be positive, got %d", ErrInvalid, c.Source.Hz)
	}
	if _, err := demo.ParseFormat(c.Recording.Format); err != nil {
		return err
	}
	return nil
}

// Side returns the tracked hand side.
func (c *Config) Side() (tracking.Side, error) {
	side, err := tracking.ParseSide(c.Source.Side)
	if err != nil || side == tracking.SideUnknown {
		return 0, fmt.Errorf("%w: source side %q", ErrInvalid, c.Source.Side)
	}
	return side, nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from path. Missing keys keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
