package analyze

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
)

func makeRecord(dim, steps int, duration float64) *demo.Record {
	rec := &demo.Record{
		Metadata: demo.Metadata{
			StartTime:       time.Unix(0, 0),
			EndTime:         time.Unix(0, 0).Add(time.Duration(duration * float64(time.Second))),
			DurationSeconds: duration,
			NumSteps:        steps,
		},
	}
	for i := 0; i < steps; i++ {
		row := make([]float64, dim)
		for j := range row {
			row[j] = float64(i) * float64(j+1)
		}
		rec.Observations = append(rec.Observations, nil)
		rec.Actions = append(rec.Actions, row)
		rec.RobotStates = append(rec.RobotStates, map[string][]float64{"joint_positions": row})
		rec.HandPoses = append(rec.HandPoses, map[string][]float64{})
		rec.Timestamps = append(rec.Timestamps, float64(i)*duration/float64(steps))
	}
	return rec
}

func TestClassify(t *testing.T) {
	tests := []struct {
		dim    int
		kind   Kind
		groups []string
	}{
		{19, KindHandArm, []string{"arm", "thumb", "index_middle", "ring_pinky"}},
		{7, KindPoseGripper, []string{"position", "rotation", "gripper"}},
		{12, KindGeneric, []string{"actions"}},
	}
	for _, tt := range tests {
		l := Classify(tt.dim)
		assert.Equal(t, tt.kind, l.Kind, "dim %d", tt.dim)

		var names []string
		total := 0
		for _, g := range l.Groups {
			names = append(names, g.Name)
			assert.Equal(t, total, g.Offset, g.Name)
			total += len(g.Channels)
		}
		assert.Equal(t, tt.groups, names)
		assert.Equal(t, tt.dim, total, "channels cover every dimension")
	}
	assert.Equal(t, "hand-arm", KindHandArm.String())
}

func TestAnalyze_HandArm(t *testing.T) {
	rec := makeRecord(19, 10, 2)
	report, err := Analyze(rec)
	require.NoError(t, err)

	assert.Equal(t, KindHandArm, report.Layout.Kind)
	assert.InDelta(t, 5.0, report.RateHz, 1e-12)

	c, ok := report.Channel(8)
	require.True(t, ok)
	assert.Equal(t, "Pitch", c.Name)
	assert.Equal(t, 0.0, c.Min)
	assert.Equal(t, 81.0, c.Max)
	assert.InDelta(t, 40.5, c.Mean, 1e-9)
}

func TestAnalyze_GripperMean(t *testing.T) {
	rec := makeRecord(7, 4, 1)
	report, err := Analyze(rec)
	require.NoError(t, err)

	g := report.Groups[2]
	require.Equal(t, "gripper", g.Group.Name)
	// Column 6 holds i*7 for i in 0..3
	assert.InDelta(t, 10.5, g.Channels[0].Mean, 1e-12)
	assert.Equal(t, 21.0, g.Channels[0].Max)
	assert.Greater(t, g.Channels[0].StdDev, 0.0)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(&demo.Record{})
	assert.ErrorIs(t, err, ErrNoActions)

	rec := makeRecord(7, 3, 1)
	rec.Actions[2] = []float64{1, 2}
	_, err = Analyze(rec)
	assert.ErrorIs(t, err, demo.ErrRaggedStream)
}

func TestAnalyze_ZeroDuration(t *testing.T) {
	report, err := Analyze(makeRecord(3, 1, 0))
	require.NoError(t, err)
	assert.Zero(t, report.RateHz)
	assert.Zero(t, report.Groups[0].Channels[0].StdDev)
}

func TestStreams(t *testing.T) {
	streams := Streams(makeRecord(19, 5, 1))
	assert.Equal(t, []Stream{
		{Name: "observations", Shape: []int{5, 0}},
		{Name: "actions", Shape: []int{5, 19}},
		{Name: "robot_states/joint_positions", Shape: []int{5, 19}},
		{Name: "timestamps", Shape: []int{5}},
	}, streams)
}

func TestPlot(t *testing.T) {
	dir := t.TempDir()
	paths, err := Plot(makeRecord(19, 20, 1), dir, "demo")
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, "demo_thumb.png"), paths[1])
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}
