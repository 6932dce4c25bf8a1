// Package retarget maps tracked hand motion onto the 7-DOF arm and 12-DOF
// dexterous hand of the robot.
//
// The output of every call is a Command of 19 joint positions:
//
//	[0:7]   arm joint_1 .. joint_7
//	[7:11]  thumb yaw, pitch, intermediate, distal
//	[11:13] index proximal, intermediate
//	[13:15] middle proximal, intermediate
//	[15:17] ring proximal, intermediate
//	[17:19] pinky proximal, intermediate
//
// JointNames returns the matching labels in the same order.
package retarget

import (
	"fmt"
	"math"
)

const (
	// ArmDOF is the number of arm joints at the start of a Command.
	ArmDOF = 7
	// FingerDOF is the number of hand joints following the arm joints.
	FingerDOF = 12
	// DOF is the total length of a Command.
	DOF = ArmDOF + FingerDOF

	// MaxFingerAngle is the upper clamp for hand joints in radians (~84 degrees).
	MaxFingerAngle = 1.47
)

// Command is one joint-position target for the whole robot.
type Command [DOF]float64

// Arm returns the arm sub-range.
func (c Command) Arm() [ArmDOF]float64 {
	var a [ArmDOF]float64
	copy(a[:], c[:ArmDOF])
	return a
}

// Fingers returns the hand sub-range.
func (c Command) Fingers() [FingerDOF]float64 {
	var f [FingerDOF]float64
	copy(f[:], c[ArmDOF:])
	return f
}

// Slice returns the command as a freshly allocated slice.
func (c Command) Slice() []float64 {
	s := make([]float64, DOF)
	copy(s, c[:])
	return s
}

var jointNames = [DOF]string{
	// Arm joints
	"joint_1",
	"joint_2",
	"joint_3",
	"joint_4",
	"joint_5",
	"joint_6",
	"joint_7",
	// Hand joints
	"thumb_proximal_yaw_joint",
	"thumb_proximal_pitch_joint",
	"thumb_intermediate_joint",
	"thumb_distal_joint",
	"index_proximal_joint",
	"index_intermediate_joint",
	"middle_proximal_joint",
	"middle_intermediate_joint",
	"ring_proximal_joint",
	"ring_intermediate_joint",
	"pinky_proximal_joint",
	"pinky_intermediate_joint",
}

// JointNames returns the names of all controlled joints in Command order.
func JointNames() []string {
	names := make([]string, DOF)
	copy(names, jointNames[:])
	return names
}

// FingerJointNames returns the names of the hand joints in Command order.
func FingerJointNames() []string {
	names := make([]string, FingerDOF)
	copy(names, jointNames[ArmDOF:])
	return names
}

// Option configures a Retargeter.
type Option func(*Retargeter)

// WithArmSolver replaces the neutral-pose arm solver, e.g. with an inverse
// kinematics provider.
func WithArmSolver(s ArmSolver) Option {
	return func(r *Retargeter) {
		r.arm = s
	}
}

// Retargeter converts hand tracking snapshots into Commands.
//
// It owns the smoothing filter state and is not safe for concurrent use.
type Retargeter struct {
	cfg  Config
	arm  ArmSolver
	prev [FingerDOF]float64
}

// New creates a Retargeter. The config is copied and never changes afterwards.
func New(cfg Config, opts ...Option) (*Retargeter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Retargeter{
		cfg: cfg,
		arm: NeutralArm{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if f, ok := r.arm.(ArmSolverFunc); r.arm == nil || ok && f == nil {
		return nil, fmt.Errorf("%w: nil arm solver", ErrInvalidConfig)
	}
	return r, nil
}

// Config returns the retargeter configuration.
func (r *Retargeter) Config() Config {
	return r.cfg
}

// State returns the current smoothing filter state (pre-clamp finger values).
func (r *Retargeter) State() [FingerDOF]float64 {
	return r.prev
}

// Reset zeroes the smoothing filter state.
func (r *Retargeter) Reset() {
	r.prev = [FingerDOF]float64{}
}

// Retarget converts one snapshot into a Command.
//
// An empty snapshot yields an all-zero Command and leaves the filter state
// untouched. Otherwise the finger vector is smoothed with
// s = a*prev + (1-a)*raw, the state is set to s, and the output is s clamped
// to [0, MaxFingerAngle].
func (r *Retargeter) Retarget(h *HandData) Command {
	var cmd Command
	if h == nil || h.Empty() {
		return cmd
	}

	if h.Palm.Present {
		arm := r.arm.Solve(r.scalePalm(h.Palm))
		copy(cmd[:ArmDOF], arm[:])
	}

	raw := r.extractFingers(h)
	r.prev = smooth(r.prev, raw, r.cfg.Smoothing)
	for i, v := range r.prev {
		cmd[ArmDOF+i] = clamp(v, 0, MaxFingerAngle)
	}

	return cmd
}

func (r *Retargeter) extractFingers(h *HandData) [FingerDOF]float64 {
	var f [FingerDOF]float64
	if h.Thumb.Present {
		f[0] = h.Thumb.CMCSpread
		f[1] = h.Thumb.CMCFlex
		f[2] = h.Thumb.MCP
		f[3] = h.Thumb.IP
	}
	for i, finger := range [...]*FingerFlex{&h.Index, &h.Middle, &h.Ring, &h.Pinky} {
		if !finger.Present {
			continue
		}
		f[4+2*i] = finger.MCP
		f[5+2*i] = finger.PIP
	}
	for i, v := range f {
		// Non-finite readings count as missing
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		f[i] = v * r.cfg.FingerScale
	}
	return f
}

// smooth is the exponential moving average of the whole finger vector.
func smooth(prev, raw [FingerDOF]float64, alpha float64) [FingerDOF]float64 {
	var out [FingerDOF]float64
	for i := range out {
		out[i] = alpha*prev[i] + (1-alpha)*raw[i]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
