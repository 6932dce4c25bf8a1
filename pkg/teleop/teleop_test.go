package teleop

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
	"github.com/christian-helms/nine-linked-rings/pkg/tracking"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeActuator struct {
	mu       sync.Mutex
	applied  int
	enabled  bool
	disabled bool
	err      error
}

func (a *fakeActuator) Enable(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = true
	return nil
}

func (a *fakeActuator) Disable(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disabled = true
	return nil
}

func (a *fakeActuator) Close() error { return nil }

func (a *fakeActuator) Apply(ctx context.Context, cmd retarget.Command) (Feedback, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return Feedback{}, a.err
	}
	a.applied++
	return EchoActuator{}.Apply(ctx, cmd)
}

func (a *fakeActuator) state() (applied int, enabled, disabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied, a.enabled, a.disabled
}

func handFrames(n int, angle float64) []tracking.Frame {
	gen := tracking.NewSyntheticSource(timeutil.NewMockClock(epoch), tracking.SideRight, time.Second, 1)
	frames := make([]tracking.Frame, n)
	for i := range frames {
		frames[i] = tracking.Frame{Snapshot: gen.Pose(angle)}
	}
	return frames
}

type fixture struct {
	ctrl     *Controller
	source   *tracking.ScriptedSource
	recorder *demo.Recorder
	actuator *fakeActuator
	logs     *observer.ObservedLogs
	dir      string
}

func newFixture(t *testing.T, clock timeutil.Clock, frames ...tracking.Frame) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dir := t.TempDir()

	rec, err := demo.NewRecorder(demo.Options{
		Dir:    dir,
		Format: demo.FormatNative,
		Clock:  timeutil.NewMockClock(epoch),
	})
	require.NoError(t, err)
	rt, err := retarget.New(retarget.DefaultConfig())
	require.NoError(t, err)

	source := tracking.NewScriptedSource(frames...)
	act := &fakeActuator{}
	ctrl, err := NewController(Config{
		Source:     source,
		Estimator:  tracking.NewFlexEstimator(tracking.SideRight, tracking.DefaultLayout()),
		Retargeter: rt,
		Actuator:   act,
		Recorder:   rec,
		Hz:         500,
		Clock:      clock,
		Logger:     logger,
	})
	require.NoError(t, err)
	return &fixture{ctrl: ctrl, source: source, recorder: rec, actuator: act, logs: logs, dir: dir}
}

func TestNewController_Validation(t *testing.T) {
	rt, err := retarget.New(retarget.DefaultConfig())
	require.NoError(t, err)
	est := tracking.NewFlexEstimator(tracking.SideRight, tracking.DefaultLayout())
	src := tracking.NewScriptedSource()

	_, err = NewController(Config{Estimator: est, Retargeter: rt})
	assert.Error(t, err)
	_, err = NewController(Config{Source: src, Retargeter: rt})
	assert.Error(t, err)
	_, err = NewController(Config{Source: src, Estimator: est})
	assert.Error(t, err)

	ctrl, err := NewController(Config{Source: src, Estimator: est, Retargeter: rt})
	require.NoError(t, err)
	assert.Equal(t, 60, ctrl.Hz())
	assert.IsType(t, EchoActuator{}, ctrl.actuator)
}

func TestController_RecordsOnlyWhileEngaged(t *testing.T) {
	f := newFixture(t, nil, handFrames(8, 0.6)...)
	ctx := t.Context()

	for range 3 {
		require.NoError(t, f.ctrl.Step(ctx))
	}
	applied, _, _ := f.actuator.state()
	assert.Zero(t, applied, "idle steps must not actuate")
	assert.False(t, f.recorder.IsRecording())

	f.ctrl.Engage()
	assert.True(t, f.ctrl.Engaged())
	assert.True(t, f.recorder.IsRecording())
	for range 5 {
		require.NoError(t, f.ctrl.Step(ctx))
	}
	applied, _, _ = f.actuator.state()
	assert.Equal(t, 5, applied)

	path, err := f.ctrl.Disengage()
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.False(t, f.recorder.IsRecording())

	rec, err := demo.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Metadata.NumSteps)
	for i, action := range rec.Actions {
		require.Len(t, action, retarget.DOF)
		assert.Equal(t, retarget.NeutralArmPose[:], action[:retarget.ArmDOF])
		assert.Greater(t, action[retarget.ArmDOF+5], 0.0, "index pip flexes")
		assert.Equal(t, action, rec.RobotStates[i][KeyJointPositions])
		assert.Len(t, rec.Observations[i], ObservationDim)
		assert.Len(t, rec.HandPoses[i], 25)
		assert.Len(t, rec.HandPoses[i]["right_0"], 7)
	}
}

func TestController_EmptySnapshotYieldsZeroCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Engage()
	require.NoError(t, f.ctrl.Step(t.Context()))

	s := <-f.ctrl.States()
	assert.Equal(t, retarget.Command{}, s.Command)
	assert.NoError(t, s.Error)
	assert.True(t, s.Engaged)
	assert.True(t, s.Recording)
	assert.Equal(t, 1, s.Steps)
}

func TestController_TransientPollError(t *testing.T) {
	glitch := errors.New("usb glitch")
	f := newFixture(t, nil, tracking.Frame{Err: glitch})

	require.NoError(t, f.ctrl.Step(t.Context()))
	s := <-f.ctrl.States()
	assert.ErrorIs(t, s.Error, glitch)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, f.logs.FilterMessage("Poll error").Len())

	// Next poll has no data and recovers
	require.NoError(t, f.ctrl.Step(t.Context()))
	s = <-f.ctrl.States()
	assert.NoError(t, s.Error)
	assert.Equal(t, 1, s.Errors)
}

func TestController_ActuatorErrorSkipsRecording(t *testing.T) {
	f := newFixture(t, nil, handFrames(2, 0.3)...)
	f.actuator.err = errors.New("bus timeout")
	f.ctrl.Engage()

	require.NoError(t, f.ctrl.Step(t.Context()))
	assert.Equal(t, 0, f.recorder.Stats().NumSteps)
	assert.Equal(t, 1, f.logs.FilterMessage("Actuator error").Len())
}

func TestController_FatalPollError(t *testing.T) {
	f := newFixture(t, nil, tracking.Frame{Err: tracking.Status(-7).Err("poll")})
	err := f.ctrl.Step(t.Context())
	var se *tracking.StatusError
	assert.ErrorAs(t, err, &se)
}

func TestController_Toggle(t *testing.T) {
	f := newFixture(t, nil)

	path, err := f.ctrl.Toggle()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, f.ctrl.Engaged())

	require.NoError(t, f.ctrl.Step(t.Context()))
	path, err = f.ctrl.Toggle()
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.False(t, f.ctrl.Engaged())

	// Disengaging twice is harmless
	path, err = f.ctrl.Disengage()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestController_Reset(t *testing.T) {
	f := newFixture(t, nil, handFrames(3, 0.8)...)
	for range 3 {
		require.NoError(t, f.ctrl.Step(t.Context()))
	}
	assert.NotEqual(t, [retarget.FingerDOF]float64{}, f.ctrl.retargeter.State())

	f.ctrl.Reset()
	assert.Equal(t, [retarget.FingerDOF]float64{}, f.ctrl.retargeter.State())
}

func TestController_AdvancesTickClock(t *testing.T) {
	clock := timeutil.NewTickClock(epoch, 20*time.Millisecond)
	f := newFixture(t, clock, tracking.Frame{Err: errors.New("glitch")})
	for range 4 {
		require.NoError(t, f.ctrl.Step(t.Context()))
	}
	assert.Equal(t, int64(4), clock.Ticks())

	s := <-f.ctrl.States()
	assert.Equal(t, epoch.Add(60*time.Millisecond), s.Timestamp)
}

func TestController_PeriodicStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Engage()
	for range statusEvery {
		require.NoError(t, f.ctrl.Step(t.Context()))
	}

	assert.Equal(t, 1, f.logs.FilterMessageSnippet("Recording: 300 steps").Len())
	assert.Equal(t, 1, f.logs.FilterMessageSnippet("Recording: 600 steps").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("Teleoperating: 19 DOF active").Len())
	assert.Equal(t, statusEvery/debugEvery, f.logs.FilterMessage("command").Len())
}

func TestController_StartSavesOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Engage()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Start(ctx)
	}()

	require.Eventually(t, func() bool { return f.source.Polls() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}

	_, enabled, disabled := f.actuator.state()
	assert.True(t, enabled)
	assert.True(t, disabled)
	assert.False(t, f.ctrl.Engaged())

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "active recording saved on shutdown")
	assert.Equal(t, 1, f.logs.FilterMessage("Teleoperation session ended").Len())
}

func TestController_StartStopsOnFatalError(t *testing.T) {
	frames := append(handFrames(3, 0.4), tracking.Frame{Err: tracking.ErrNotInitialized})
	f := newFixture(t, nil, frames...)
	f.ctrl.Engage()

	err := f.ctrl.Start(t.Context())
	assert.ErrorIs(t, err, tracking.ErrNotInitialized)
	assert.True(t, tracking.IsFatal(err))

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, f.ctrl.Close())
	assert.True(t, f.source.Closed())
}

func TestController_StartTwice(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Start(ctx)
	}()
	require.Eventually(t, func() bool { return f.source.Polls() >= 1 }, 5*time.Second, time.Millisecond)

	assert.Error(t, f.ctrl.Start(ctx))
	cancel()
	<-done
}

type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) Poll(ctx context.Context) (tracking.Snapshot, error) {
	close(s.entered)
	select {
	case <-s.release:
		return tracking.Snapshot{}, nil
	case <-ctx.Done():
		return tracking.Snapshot{}, ctx.Err()
	}
}

func (s *blockingSource) Close() error { return nil }

func TestController_ToggleDuringBlockedPoll(t *testing.T) {
	f := newFixture(t, nil)
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	f.ctrl.source = src

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Step(t.Context())
	}()
	<-src.entered

	toggled := make(chan struct{})
	go func() {
		defer close(toggled)
		_, err := f.ctrl.Toggle()
		assert.NoError(t, err)
		f.ctrl.Reset()
	}()
	select {
	case <-toggled:
	case <-time.After(5 * time.Second):
		t.Fatal("Toggle blocked behind Poll")
	}
	assert.True(t, f.ctrl.Engaged())

	close(src.release)
	require.NoError(t, <-done)
	applied, _, _ := f.actuator.state()
	assert.Equal(t, 1, applied)
}
