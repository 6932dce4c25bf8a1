package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/robot"
	"github.com/christian-helms/nine-linked-rings/pkg/tracking"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	side, err := cfg.Side()
	require.NoError(t, err)
	assert.Equal(t, tracking.SideRight, side)
	assert.False(t, cfg.Hand.IsCalibrated())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ninerings.yaml")

	cfg := Default()
	cfg.Source.Kind = SourceSynthetic
	cfg.Source.Side = "left"
	cfg.Recording.Enabled = true
	cfg.Recording.Format = string(demo.FormatNPZ)
	cfg.Retarget.WristOffset = [3]float64{0.1, 0, 0.3}
	cfg.Hand.Port = "/dev/ttyACM0"
	cfg.Hand.Calibration = robot.Calibration{}
	for i, name := range robot.AllMotors() {
		cfg.Hand.Calibration[name] = robot.MotorCalibration{ID: i + 1, RangeMin: 1000, RangeMax: 3000}
	}

	require.NoError(t, cfg.SaveTo(path))
	got, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.True(t, got.Hand.IsCalibrated())
}

func TestLoadConfigFrom_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ninerings.yaml")
	data := "retarget:\n  smoothing: 0.5\nsource:\n  kind: synthetic\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Retarget.Smoothing)
	assert.Equal(t, 1.0, cfg.Retarget.PosScale)
	assert.Equal(t, SourceSynthetic, cfg.Source.Kind)
	assert.Equal(t, 60, cfg.Source.Hz)
	assert.Equal(t, demo.DefaultDir, cfg.Recording.Dir)
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"smoothing", "retarget:\n  smoothing: 2\n", retarget.ErrInvalidConfig},
		{"kind", "source:\n  kind: webcam\n", ErrInvalid},
		{"side", "source:\n  side: both\n", ErrInvalid},
		{"hz", "source:\n  hz: 0\n", ErrInvalid},
		{"format", "recording:\n  format: csv\n", demo.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ninerings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))
			_, err := LoadConfigFrom(path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfigFrom_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ninerings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: [\n"), 0o644))
	_, err := LoadConfigFrom(path)
	assert.Error(t, err)
}

func TestConfigExists(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.False(t, ConfigExists())
	_, err := LoadConfig()
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, Default().Save())
	assert.True(t, ConfigExists())
	_, err = LoadConfig()
	assert.NoError(t, err)
}
