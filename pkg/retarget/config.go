package retarget

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidConfig is returned by Config.Validate and New.
	ErrInvalidConfig = errors.New("retarget: invalid config")

	// ErrNonNumeric is matched by every *ValueError.
	ErrNonNumeric = errors.New("retarget: non-numeric joint value")

	// ErrUnknownPreset is returned by Preset for names not in Presets.
	ErrUnknownPreset = errors.New("retarget: unknown preset")
)

// Config holds the scaling and filtering parameters of a Retargeter.
type Config struct {
	// Scale factors for palm position and rotation
	PosScale float64 `yaml:"pos_scale" json:"pos_scale"`
	RotScale float64 `yaml:"rot_scale" json:"rot_scale"`

	// Offset from wrist tracking to robot base, added after scaling
	WristOffset [3]float64 `yaml:"wrist_offset" json:"wrist_offset"`

	// Multiplier applied to every finger flex angle
	FingerScale float64 `yaml:"finger_scale" json:"finger_scale"`

	// Smoothing factor for finger joints (0 = none, 1 = frozen)
	Smoothing float64 `yaml:"smoothing" json:"smoothing"`
}

// DefaultConfig returns 1:1 scaling with moderate smoothing.
func DefaultConfig() Config {
	return Config{
		PosScale:    1.0,
		RotScale:    1.0,
		FingerScale: 1.0,
		Smoothing:   0.3,
	}
}

// Validate checks that the scales are positive and Smoothing is in [0, 1].
func (c Config) Validate() error {
	switch {
	case !(c.PosScale > 0):
		return fmt.Errorf("%w: pos_scale must be positive, got %v", ErrInvalidConfig, c.PosScale)
	case !(c.RotScale > 0):
		return fmt.Errorf("%w: rot_scale must be positive, got %v", ErrInvalidConfig, c.RotScale)
	case !(c.FingerScale > 0):
		return fmt.Errorf("%w: finger_scale must be positive, got %v", ErrInvalidConfig, c.FingerScale)
	case !(c.Smoothing >= 0 && c.Smoothing <= 1):
		return fmt.Errorf("%w: smoothing must be in [0, 1], got %v", ErrInvalidConfig, c.Smoothing)
	}
	return nil
}

var presets = map[string]Config{
	// Balanced settings for general teleoperation
	"default": DefaultConfig(),
	// Fast and responsive, may be jittery
	"high_response": {PosScale: 2.0, RotScale: 2.0, FingerScale: 1.2, Smoothing: 0.1},
	// Slow and very stable
	"smooth": {PosScale: 0.5, RotScale: 0.5, FingerScale: 1.0, Smoothing: 0.5},
	// Fine positioning for the ring puzzle
	"precision": {PosScale: 0.7, RotScale: 0.8, FingerScale: 1.0, Smoothing: 0.4},
	// Clean, reproducible demonstrations
	"recording": {PosScale: 1.0, RotScale: 1.0, FingerScale: 1.0, Smoothing: 0.35},
	// Heavily damped for first runs on new hardware
	"safe_testing": {PosScale: 0.3, RotScale: 0.3, FingerScale: 0.5, Smoothing: 0.7},
	"expert":       {PosScale: 1.5, RotScale: 1.5, FingerScale: 1.3, Smoothing: 0.15},
	// Large robot workspace from limited hand motion
	"large_workspace": {PosScale: 3.0, RotScale: 1.5, FingerScale: 1.0, Smoothing: 0.25},
}

// Presets returns the names of the built-in configurations, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the built-in configuration with the given name.
func Preset(name string) (Config, error) {
	cfg, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}
