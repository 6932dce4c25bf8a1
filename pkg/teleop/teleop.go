// Package teleop runs the hand-to-robot teleoperation control loop.
//
// Every tick the Controller polls the tracking source, estimates finger flex,
// and retargets it to a joint command. While engaged, the command is applied
// to the actuator and the step is recorded.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
	"github.com/christian-helms/nine-linked-rings/pkg/tracking"
)

// Periodic status intervals, in loop steps.
const (
	debugEvery  = 60
	statsEvery  = 300
	statusEvery = 600
)

// State represents the current state of teleoperation.
type State struct {
	Command   retarget.Command
	Engaged   bool
	Recording bool
	Steps     int // recorded steps in the active recording
	Errors    int // step errors since start
	Timestamp time.Time
	Error     error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	source     tracking.Source
	estimator  *tracking.FlexEstimator
	retargeter *retarget.Retargeter
	actuator   Actuator
	recorder   *demo.Recorder
	hz         int
	clock      timeutil.Clock
	logger     *zap.Logger
	errLogger  *zap.Logger

	mu       sync.Mutex
	running  bool
	engaged  bool
	steps    int
	errCount int
	stateCh  chan State
	logCh    chan string
}

// Config holds configuration for the controller.
type Config struct {
	Source     tracking.Source
	Estimator  *tracking.FlexEstimator
	Retargeter *retarget.Retargeter
	Actuator   Actuator       // nil echoes commands
	Recorder   *demo.Recorder // nil disables recording
	Hz         int
	// Clock stamps states. A *timeutil.TickClock is advanced once per step.
	Clock  timeutil.Clock
	Logger *zap.Logger
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Source == nil {
		return nil, errors.New("teleop: nil source")
	}
	if cfg.Estimator == nil {
		return nil, errors.New("teleop: nil estimator")
	}
	if cfg.Retargeter == nil {
		return nil, errors.New("teleop: nil retargeter")
	}
	if cfg.Actuator == nil {
		cfg.Actuator = EchoActuator{}
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// Repeated step errors are logged at most once per second
	errLogger := cfg.Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, time.Second, 1, 0)
	}))

	return &Controller{
		source:     cfg.Source,
		estimator:  cfg.Estimator,
		retargeter: cfg.Retargeter,
		actuator:   cfg.Actuator,
		recorder:   cfg.Recorder,
		hz:         cfg.Hz,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		errLogger:  errLogger,
		stateCh:    make(chan State, 1),
		logCh:      make(chan string, 10),
	}, nil
}

// Close releases the source and the actuator.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	if err := c.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	if err := c.actuator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close actuator: %w", err))
	}
	return errors.Join(errs...)
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Engaged reports whether commands are being applied.
func (c *Controller) Engaged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engaged
}

// log writes msg to the logger and, without blocking, to the log channel.
func (c *Controller) log(msg string, fields ...zap.Field) {
	c.logger.Info(msg, fields...)
	line := fmt.Sprintf("[%s] %s", c.clock.Now().Format("15:04:05"), msg)
	select {
	case c.logCh <- line:
	default:
		// Drop if channel full
	}
}

// Engage starts applying commands and, with a recorder, starts a recording.
func (c *Controller) Engage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engageLocked()
}

func (c *Controller) engageLocked() {
	if c.engaged {
		return
	}
	c.engaged = true
	if c.recorder != nil {
		c.recorder.StartRecording()
		c.log("Teleoperation started, recording")
		return
	}
	c.log("Teleoperation started")
}

// Disengage stops applying commands and saves an active recording. It
// returns the saved path, or "" when nothing was recorded.
func (c *Controller) Disengage() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disengageLocked()
}

func (c *Controller) disengageLocked() (string, error) {
	wasEngaged := c.engaged
	c.engaged = false
	if c.recorder == nil || !c.recorder.IsRecording() {
		if wasEngaged {
			c.log("Teleoperation stopped")
		}
		return "", nil
	}
	path, err := c.recorder.StopRecording()
	if err != nil {
		c.log("Failed to save recording", zap.Error(err))
		return "", fmt.Errorf("save recording: %w", err)
	}
	c.log("Teleoperation stopped, saved "+path, zap.String("path", path))
	return path, nil
}

// Toggle engages when idle and disengages when engaged.
func (c *Controller) Toggle() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engaged {
		return c.disengageLocked()
	}
	c.engageLocked()
	return "", nil
}

// Reset clears the retargeter smoothing state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retargeter.Reset()
	c.log("Retargeter reset")
}

// Start begins the teleoperation control loop. It returns when ctx is done
// or the source fails fatally, after saving any active recording.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.actuator.Enable(ctx); err != nil {
		c.log("Warning: failed to enable actuator", zap.Error(err))
	}

	c.log(fmt.Sprintf("Control loop started at %d Hz", c.hz), zap.Int("hz", c.hz))

	// Control loop
	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			if err := c.Step(ctx); err != nil {
				if ctx.Err() != nil {
					c.shutdown()
					return ctx.Err()
				}
				c.log("Tracking failed, stopping", zap.Error(err))
				c.shutdown()
				return err
			}
		}
	}
}

// Step runs one loop iteration. It returns an error only when the source
// failed fatally; other failures are counted, logged, and reported in State.
// The source is polled without holding the controller lock, so Toggle,
// Reset and State stay responsive while a poll blocks.
func (c *Controller) Step(ctx context.Context) error {
	if t, ok := c.clock.(*timeutil.TickClock); ok {
		defer t.Tick()
	}
	snap, err := c.source.Poll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps++
	if err != nil {
		if tracking.IsFatal(err) || ctx.Err() != nil {
			return fmt.Errorf("poll: %w", err)
		}
		c.stepError("Poll error", err)
		return nil
	}

	hand := c.estimator.Estimate(snap)
	cmd := c.retargeter.Retarget(&hand)

	if c.engaged {
		fb, err := c.actuator.Apply(ctx, cmd)
		switch {
		case err != nil:
			c.stepError("Actuator error", err)
			return nil
		case c.recorder != nil:
			c.recorder.AddStep(fb.Observation, cmd.Slice(), fb.RobotState, snap.Flatten())
		}
	}

	c.periodic(cmd)
	c.sendState(c.stateLocked(cmd, nil))
	return nil
}

func (c *Controller) stepError(msg string, err error) {
	c.errCount++
	c.errLogger.Warn(msg, zap.Error(err), zap.Int("errors", c.errCount))
	if c.errCount == 1 || c.steps%statsEvery == 0 {
		line := fmt.Sprintf("[%s] %s: %v", c.clock.Now().Format("15:04:05"), msg, err)
		select {
		case c.logCh <- line:
		default:
		}
	}
	c.sendState(c.stateLocked(retarget.Command{}, err))
}

func (c *Controller) periodic(cmd retarget.Command) {
	if c.steps%debugEvery == 0 {
		c.logger.Debug("command",
			zap.Float64s("arm", cmd[:retarget.ArmDOF]),
			zap.Float64s("thumb", cmd[retarget.ArmDOF:retarget.ArmDOF+4]),
			zap.Float64s("fingers", cmd[retarget.ArmDOF+4:]))
	}
	if c.recorder != nil && c.steps%statsEvery == 0 {
		if stats := c.recorder.Stats(); stats.Recording {
			c.log(fmt.Sprintf("Recording: %d steps, %.1fs", stats.NumSteps, stats.DurationSeconds),
				zap.Int("steps", stats.NumSteps), zap.Float64("duration", stats.DurationSeconds))
		}
	}
	if c.engaged && c.steps%statusEvery == 0 {
		c.log(fmt.Sprintf("Teleoperating: %d DOF active", retarget.DOF))
	}
}

func (c *Controller) stateLocked(cmd retarget.Command, err error) State {
	s := State{
		Command:   cmd,
		Engaged:   c.engaged,
		Errors:    c.errCount,
		Timestamp: c.clock.Now(),
		Error:     err,
	}
	if c.recorder != nil {
		stats := c.recorder.Stats()
		s.Recording = stats.Recording
		s.Steps = stats.NumSteps
	}
	return s
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false

	if _, err := c.disengageLocked(); err != nil {
		c.logger.Error("final recording not saved", zap.Error(err))
	}

	ctx := context.Background()
	if err := c.actuator.Disable(ctx); err != nil {
		c.log("Warning: failed to disable actuator", zap.Error(err))
	}
	c.log("Teleoperation session ended")
}
