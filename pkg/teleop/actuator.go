package teleop

import (
	"context"
	"fmt"
	"time"

	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
)

// ObservationDim is the length of the observation vector recorded when no
// robot reports one.
const ObservationDim = 50

// Robot state keys written to recordings.
const (
	KeyJointPositions  = "joint_positions"
	KeyJointVelocities = "joint_velocities"
	KeyHandPose        = "hand_pose"
)

// Feedback is what the robot reports after a command was applied.
type Feedback struct {
	Observation []float64
	RobotState  map[string][]float64
}

// Actuator applies joint commands to a robot.
type Actuator interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Apply(ctx context.Context, cmd retarget.Command) (Feedback, error)
	Close() error
}

// EchoActuator drives nothing. It reports the command back as the joint
// positions, for runs without hardware.
type EchoActuator struct{}

// Enable is a no-op.
func (EchoActuator) Enable(context.Context) error { return nil }

// Disable is a no-op.
func (EchoActuator) Disable(context.Context) error { return nil }

// Close is a no-op.
func (EchoActuator) Close() error { return nil }

// Apply returns a zero observation and the command as joint positions.
func (EchoActuator) Apply(_ context.Context, cmd retarget.Command) (Feedback, error) {
	return Feedback{
		Observation: make([]float64, ObservationDim),
		RobotState: map[string][]float64{
			KeyJointPositions:  cmd.Slice(),
			KeyJointVelocities: make([]float64, retarget.DOF),
			KeyHandPose:        make([]float64, 7),
		},
	}, nil
}

// ServoHand is the subset of *robot.Hand the HandActuator needs.
type ServoHand interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	ReadJoints(ctx context.Context) ([retarget.FingerDOF]float64, error)
	WriteJoints(ctx context.Context, joints [retarget.FingerDOF]float64) error
	Close() error
}

// HandActuator drives the finger joints of a servo hand. The arm has no
// hardware here, so arm joints are echoed from the command.
type HandActuator struct {
	hand  ServoHand
	clock timeutil.Clock

	last     [retarget.FingerDOF]float64
	lastTime time.Time
}

// NewHandActuator wraps hand. A nil clock uses the wall clock.
func NewHandActuator(hand ServoHand, clock timeutil.Clock) *HandActuator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &HandActuator{hand: hand, clock: clock}
}

// Enable turns on servo torque.
func (a *HandActuator) Enable(ctx context.Context) error {
	return a.hand.Enable(ctx)
}

// Disable turns off servo torque.
func (a *HandActuator) Disable(ctx context.Context) error {
	return a.hand.Disable(ctx)
}

// Close releases the hand's port.
func (a *HandActuator) Close() error {
	return a.hand.Close()
}

// Apply writes the finger targets and reads back the measured angles.
// Velocities are finite differences against the previous reading.
func (a *HandActuator) Apply(ctx context.Context, cmd retarget.Command) (Feedback, error) {
	if err := a.hand.WriteJoints(ctx, cmd.Fingers()); err != nil {
		return Feedback{}, err
	}
	measured, err := a.hand.ReadJoints(ctx)
	if err != nil {
		return Feedback{}, fmt.Errorf("read back: %w", err)
	}
	now := a.clock.Now()

	positions := make([]float64, retarget.DOF)
	velocities := make([]float64, retarget.DOF)
	copy(positions, cmd[:retarget.ArmDOF])
	copy(positions[retarget.ArmDOF:], measured[:])
	if !a.lastTime.IsZero() {
		if dt := now.Sub(a.lastTime).Seconds(); dt > 0 {
			for i, v := range measured {
				velocities[retarget.ArmDOF+i] = (v - a.last[i]) / dt
			}
		}
	}
	a.last, a.lastTime = measured, now

	// Observation: measured positions followed by the commanded ones
	obs := make([]float64, 0, 2*retarget.DOF)
	obs = append(obs, positions...)
	obs = append(obs, cmd[:]...)

	return Feedback{
		Observation: obs,
		RobotState: map[string][]float64{
			KeyJointPositions:  positions,
			KeyJointVelocities: velocities,
		},
	}, nil
}
