package analyze

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
)

// ErrNoActions is returned for a demonstration without any steps.
var ErrNoActions = errors.New("analyze: demonstration has no actions")

// ChannelStats summarizes one action channel.
type ChannelStats struct {
	Name   string
	Index  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// GroupStats holds the channel statistics of one layout group.
type GroupStats struct {
	Group    Group
	Channels []ChannelStats
}

// Report is the summary of one demonstration.
type Report struct {
	Layout   Layout
	Metadata demo.Metadata
	// Steps per second over the whole recording, 0 when the duration is 0
	RateHz float64
	Groups []GroupStats
}

// Channel returns the statistics for a channel index.
func (r *Report) Channel(index int) (ChannelStats, bool) {
	for _, g := range r.Groups {
		for _, c := range g.Channels {
			if c.Index == index {
				return c, true
			}
		}
	}
	return ChannelStats{}, false
}

// Analyze computes the report for rec.
func Analyze(rec *demo.Record) (*Report, error) {
	if len(rec.Actions) == 0 {
		return nil, ErrNoActions
	}
	cols, err := columns(rec.Actions)
	if err != nil {
		return nil, err
	}

	layout := Classify(len(cols))
	report := &Report{
		Layout:   layout,
		Metadata: rec.Metadata,
	}
	if d := rec.Metadata.DurationSeconds; d > 0 {
		report.RateHz = float64(rec.Metadata.NumSteps) / d
	}

	for _, g := range layout.Groups {
		gs := GroupStats{Group: g}
		for i, name := range g.Channels {
			idx := g.Offset + i
			col := cols[idx]
			mean, std := stat.MeanStdDev(col, nil)
			if len(col) < 2 {
				std = 0
			}
			gs.Channels = append(gs.Channels, ChannelStats{
				Name:   name,
				Index:  idx,
				Min:    floats.Min(col),
				Max:    floats.Max(col),
				Mean:   mean,
				StdDev: std,
			})
		}
		report.Groups = append(report.Groups, gs)
	}
	return report, nil
}

// columns transposes the action rows.
func columns(rows [][]float64) ([][]float64, error) {
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-width actions", ErrNoActions)
	}
	cols := make([][]float64, dim)
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: action %d has %d values, want %d", demo.ErrRaggedStream, i, len(row), dim)
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	return cols, nil
}

// Stream is the name and array shape of one recorded stream.
type Stream struct {
	Name  string
	Shape []int
}

// Streams lists the recorded streams and their shapes. Map streams list one
// entry per key.
func Streams(rec *demo.Record) []Stream {
	n := len(rec.Timestamps)
	out := []Stream{
		{Name: "observations", Shape: matrixShape(rec.Observations)},
		{Name: "actions", Shape: matrixShape(rec.Actions)},
	}
	for _, s := range []struct {
		name  string
		steps []map[string][]float64
	}{
		{"robot_states", rec.RobotStates},
		{"hand_poses", rec.HandPoses},
	} {
		width := make(map[string]int)
		for _, m := range s.steps {
			for k, v := range m {
				width[k] = len(v)
			}
		}
		keys := make([]string, 0, len(width))
		for k := range width {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, Stream{Name: s.name + "/" + k, Shape: []int{len(s.steps), width[k]}})
		}
	}
	return append(out, Stream{Name: "timestamps", Shape: []int{n}})
}

func matrixShape(rows [][]float64) []int {
	if len(rows) == 0 {
		return []int{0}
	}
	return []int{len(rows), len(rows[0])}
}
