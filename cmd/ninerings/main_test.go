package main

import (
	"testing"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/christian-helms/nine-linked-rings/pkg/config"
)

func TestTeleoperateCommand_Apply(t *testing.T) {
	cfg := config.Default()
	cfg.Retarget.WristOffset = [3]float64{0, 0, 0.2}

	c := &TeleoperateCommand{
		Preset:      "precision",
		Sensitivity: 2,
		Hz:          90,
		Source:      config.SourceSynthetic,
		Record:      true,
		Format:      "npz",
	}
	if err := c.apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.Retarget.PosScale != 1.4 || cfg.Retarget.RotScale != 1.6 {
		t.Errorf("scales = %v, %v; want 1.4, 1.6", cfg.Retarget.PosScale, cfg.Retarget.RotScale)
	}
	if cfg.Retarget.WristOffset[2] != 0.2 {
		t.Errorf("wrist offset lost: %v", cfg.Retarget.WristOffset)
	}
	if cfg.Source.Hz != 90 || cfg.Source.Kind != config.SourceSynthetic {
		t.Errorf("source = %+v", cfg.Source)
	}
	if !cfg.Recording.Enabled || cfg.Recording.Format != "npz" {
		t.Errorf("recording = %+v", cfg.Recording)
	}
}

func TestTeleoperateCommand_ApplyErrors(t *testing.T) {
	if err := (&TeleoperateCommand{Preset: "turbo", Sensitivity: 1}).apply(config.Default()); err == nil {
		t.Error("unknown preset should fail")
	}
	if err := (&TeleoperateCommand{Sensitivity: 0}).apply(config.Default()); err == nil {
		t.Error("zero sensitivity should fail validation")
	}
	if err := (&TeleoperateCommand{Sensitivity: 1, Format: "csv"}).apply(config.Default()); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestIsHand(t *testing.T) {
	servos := make([]feetech.FoundServo, 0, 12)
	for id := 1; id <= 12; id++ {
		servos = append(servos, feetech.FoundServo{ID: id})
	}
	if !isHand(servos) {
		t.Error("IDs 1-12 should be a hand")
	}
	if isHand(servos[:6]) {
		t.Error("six servos are not a hand")
	}
	servos[11].ID = 13
	if isHand(servos) {
		t.Error("ID 13 instead of 12 is not a hand")
	}
}

func TestShapeString(t *testing.T) {
	tests := []struct {
		shape []int
		want  string
	}{
		{[]int{12}, "(12)"},
		{[]int{12, 19}, "(12, 19)"},
	}
	for _, tt := range tests {
		if got := shapeString(tt.shape); got != tt.want {
			t.Errorf("shapeString(%v) = %q, want %q", tt.shape, got, tt.want)
		}
	}
}
