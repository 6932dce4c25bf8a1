package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	results  []Status
	poses    []NodePose
	polls    int
	shutdown Status
}

func (b *fakeBridge) Poll(buf []NodePose) (int, Status) {
	st := StatusNoData
	if b.polls < len(b.results) {
		st = b.results[b.polls]
	}
	b.polls++
	if st != StatusOK {
		return 0, st
	}
	return copy(buf, b.poses), StatusOK
}

func (b *fakeBridge) Shutdown() Status {
	return b.shutdown
}

func TestBridgeSource_NoDataNeverErrors(t *testing.T) {
	src := NewBridgeSource(&fakeBridge{}, nil)
	for i := 0; i < 1000; i++ {
		snap, err := src.Poll(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Empty(t, snap)
	}
}

func TestBridgeSource_Poses(t *testing.T) {
	b := &fakeBridge{
		results: []Status{StatusOK, StatusNoData, StatusOK},
		poses: []NodePose{
			{NodeID: 0, Side: SideLeft, Position: [3]float64{1, 2, 3}, Orientation: [4]float64{1, 0, 0, 0}},
			{NodeID: 5, Side: SideRight},
			{NodeID: 7, Side: Side(9)},
		},
	}
	src := NewBridgeSource(b, nil)

	snap, err := src.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"left_0", "right_5", "unknown_7"}, snap.Keys())
	assert.Equal(t, [3]float64{1, 2, 3}, snap["left_0"].Position)

	snap, err = src.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)

	snap, err = src.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap, 3)
}

func TestBridgeSource_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   error
	}{
		{"not initialized", StatusNotInitialized, ErrNotInitialized},
		{"invalid arguments", StatusInvalidArguments, ErrInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewBridgeSource(&fakeBridge{results: []Status{tt.status}}, nil)
			_, err := src.Poll(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsFatal(err))
		})
	}

	src := NewBridgeSource(&fakeBridge{results: []Status{-7}}, nil)
	_, err := src.Poll(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Status(-7), se.Status)
	assert.Equal(t, "poll", se.Op)
	assert.Contains(t, err.Error(), "-7")
	assert.True(t, IsFatal(err))
}

func TestStatus_Err(t *testing.T) {
	assert.NoError(t, StatusOK.Err("poll"))
	assert.NoError(t, StatusNoData.Err("poll"))
	assert.ErrorIs(t, StatusNotInitialized.Err("shutdown"), ErrNotInitialized)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(context.Canceled))
	assert.False(t, IsFatal(errors.New("transient")))
	assert.True(t, IsFatal(ErrClosed))
	assert.True(t, IsFatal(ErrBridgeUnavailable))
}

func TestBridgeSource_Close(t *testing.T) {
	src := NewBridgeSource(&fakeBridge{}, nil)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err := src.Poll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	src = NewBridgeSource(&fakeBridge{shutdown: StatusNotInitialized}, nil)
	assert.ErrorIs(t, src.Close(), ErrNotInitialized)
}

func TestBridgeSource_CanceledContext(t *testing.T) {
	b := &fakeBridge{}
	src := NewBridgeSource(b, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, b.polls)
}

func TestOpenManus_Stub(t *testing.T) {
	b, err := OpenManus("")
	if errors.Is(err, ErrBridgeUnavailable) {
		assert.Nil(t, b)
		return
	}
	if err != nil {
		t.Skipf("glove bridge not loadable: %v", err)
	}
	assert.Equal(t, StatusOK, b.Shutdown())
}

func TestScriptedSource(t *testing.T) {
	boom := errors.New("boom")
	pose := NodePose{NodeID: 3, Side: SideRight}
	src := NewScriptedSource(
		Frame{Snapshot: SnapshotFrom([]NodePose{pose})},
		Frame{Err: boom},
	)
	ctx := context.Background()

	snap, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, pose, snap["right_3"])

	// Callers may mutate what they get back
	delete(snap, "right_3")

	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, boom)

	snap, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
	assert.Equal(t, 3, src.Polls())

	require.NoError(t, src.Close())
	assert.True(t, src.Closed())
	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
