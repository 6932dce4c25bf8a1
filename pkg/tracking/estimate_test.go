package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"

	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
)

func TestNodePose_KeyAndFlat(t *testing.T) {
	p := NodePose{
		NodeID:      12,
		Side:        SideLeft,
		Position:    [3]float64{1, 2, 3},
		Orientation: [4]float64{0.5, 0.5, 0.5, 0.5},
	}
	assert.Equal(t, "left_12", p.Key())
	assert.Equal(t, []float64{1, 2, 3, 0.5, 0.5, 0.5, 0.5}, p.Flat())

	flat := SnapshotFrom([]NodePose{p}).Flatten()
	assert.Equal(t, map[string][]float64{"left_12": p.Flat()}, flat)
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("right")
	require.NoError(t, err)
	assert.Equal(t, SideRight, s)
	assert.Equal(t, "right", s.String())

	_, err = ParseSide("both")
	assert.Error(t, err)
}

func TestTwistAngle(t *testing.T) {
	x := [3]float64{1, 0, 0}
	for _, a := range []float64{-2.5, -1, 0, 0.3, 1.47, 3} {
		assert.InDelta(t, a, twistAngle(axisAngle(x, a), x), 1e-9, "angle %v", a)
	}

	// Rotation about another axis has no twist about x
	assert.InDelta(t, 0, twistAngle(axisAngle([3]float64{0, 1, 0}, 0.8), x), 1e-12)

	// q and -q are the same rotation
	q := axisAngle(x, 0.7)
	assert.InDelta(t, 0.7, twistAngle(quat.Scale(-1, q), x), 1e-9)
}

func TestFlexEstimator_SyntheticRoundTrip(t *testing.T) {
	src := NewSyntheticSource(timeutil.NewMockClock(time.Unix(0, 0)), SideRight, time.Second, 1.2)
	est := NewFlexEstimator(SideRight, DefaultLayout())

	for _, angle := range []float64{0, 0.25, 0.9, 1.2} {
		h := est.Estimate(src.Pose(angle))

		require.True(t, h.Palm.Present)
		assert.Equal(t, [4]float64{1, 0, 0, 0}, h.Palm.Orientation)

		assert.InDelta(t, angle, h.Thumb.CMCFlex, 1e-9)
		assert.InDelta(t, 0, h.Thumb.CMCSpread, 1e-9)
		assert.InDelta(t, angle, h.Thumb.MCP, 1e-9)
		assert.InDelta(t, angle, h.Thumb.IP, 1e-9)
		for _, f := range []retarget.FingerFlex{h.Index, h.Middle, h.Ring, h.Pinky} {
			assert.True(t, f.Present)
			assert.InDelta(t, angle, f.MCP, 1e-9)
			assert.InDelta(t, angle, f.PIP, 1e-9)
		}
	}
}

func TestFlexEstimator_OtherSideIsEmpty(t *testing.T) {
	src := NewSyntheticSource(nil, SideLeft, time.Second, 1)
	est := NewFlexEstimator(SideRight, DefaultLayout())
	h := est.Estimate(src.Pose(0.5))
	assert.True(t, h.Empty())
}

func TestFlexEstimator_PartialHand(t *testing.T) {
	l := DefaultLayout()
	snap := SnapshotFrom([]NodePose{
		{NodeID: l.Index[0], Side: SideLeft, Orientation: [4]float64{1, 0, 0, 0}},
		{NodeID: l.Index[1], Side: SideLeft, Orientation: fromQuat(axisAngle(l.FlexAxis, 0.6))},
	})
	h := NewFlexEstimator(SideLeft, l).Estimate(snap)

	assert.False(t, h.Palm.Present)
	assert.False(t, h.Thumb.Present)
	assert.True(t, h.Index.Present)
	assert.InDelta(t, 0.6, h.Index.MCP, 1e-9)
	assert.Zero(t, h.Index.PIP)
	assert.False(t, h.Middle.Present)
}

func TestSyntheticSource_Cycle(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	src := NewSyntheticSource(clock, SideRight, 2*time.Second, 1.0)
	est := NewFlexEstimator(SideRight, DefaultLayout())
	ctx := t.Context()

	snap, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 25)
	assert.InDelta(t, 0, est.Estimate(snap).Index.MCP, 1e-9)

	clock.Advance(time.Second)
	snap, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, est.Estimate(snap).Index.MCP, 1e-9)

	assert.InDelta(t, 0.5, src.Curl(500*time.Millisecond), 1e-9)
	assert.InDelta(t, 0, src.Curl(2*time.Second), 1e-9)
	assert.False(t, math.IsNaN(src.Curl(0)))

	require.NoError(t, src.Close())
	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
