// Package demo records teleoperation demonstrations and persists them for
// replay and training.
//
// A Recorder buffers one episode at a time. Each step stores the
// observation, the commanded action, the robot state and the hand pose
// together with its offset from the start of the recording. Stopping the
// recording writes the episode to disk in one of three formats: a native gob
// blob, a NumPy .npz archive, or indented JSON. Load reads any of them back.
package demo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors returned when saving or loading recordings.
var (
	ErrUnsupportedFormat    = errors.New("demo: unsupported format")
	ErrUnsupportedExtension = errors.New("demo: unsupported file extension")
	ErrRaggedStream         = errors.New("demo: stream rows have different lengths")
	ErrInconsistentRecord   = errors.New("demo: inconsistent record")
)

// Record is one stored demonstration. All per-step slices have NumSteps
// entries, in step order.
type Record struct {
	Observations [][]float64            `json:"observations"`
	Actions      [][]float64            `json:"actions"`
	RobotStates  []map[string][]float64 `json:"robot_states"`
	HandPoses    []map[string][]float64 `json:"hand_poses"`
	// Seconds since Metadata.StartTime
	Timestamps []float64 `json:"timestamps"`
	Metadata   Metadata  `json:"metadata"`
}

// Metadata describes a finished recording.
type Metadata struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	NumSteps        int       `json:"num_steps"`
	SessionID       string    `json:"session_id,omitempty"`
}

// isoLayouts are accepted for metadata times. Files from older tooling carry
// naive local timestamps without a zone.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO 8601 times.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var raw struct {
		StartTime       string  `json:"start_time"`
		EndTime         string  `json:"end_time"`
		DurationSeconds float64 `json:"duration_seconds"`
		NumSteps        int     `json:"num_steps"`
		SessionID       string  `json:"session_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	start, err := parseISO(raw.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := parseISO(raw.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	*m = Metadata{
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: raw.DurationSeconds,
		NumSteps:        raw.NumSteps,
		SessionID:       raw.SessionID,
	}
	return nil
}

func parseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var firstErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Validate checks that every stream has NumSteps entries.
func (r *Record) Validate() error {
	n := r.Metadata.NumSteps
	streams := []struct {
		name string
		len  int
	}{
		{"observations", len(r.Observations)},
		{"actions", len(r.Actions)},
		{"robot_states", len(r.RobotStates)},
		{"hand_poses", len(r.HandPoses)},
		{"timestamps", len(r.Timestamps)},
	}
	for _, s := range streams {
		if s.len != n {
			return fmt.Errorf("%w: %s has %d entries, num_steps is %d", ErrInconsistentRecord, s.name, s.len, n)
		}
	}
	return nil
}

// ActionDim returns the width of the action rows, or 0 for an empty record.
func (r *Record) ActionDim() int {
	if len(r.Actions) == 0 {
		return 0
	}
	return len(r.Actions[0])
}

// Stats is a read-only view of the active recording.
type Stats struct {
	Recording       bool
	DurationSeconds float64
	NumSteps        int
	StartTime       time.Time
}
