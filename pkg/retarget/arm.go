package retarget

import "math"

// NeutralArmPose is the arm posture held while no IK solver is configured.
var NeutralArmPose = [ArmDOF]float64{0, 0, 0, 1.57, 0, 0, 0}

// ArmSolver computes the arm joint positions for a target palm pose.
//
// The pose passed to Solve has already been scaled by Config.PosScale and
// Config.RotScale and shifted by Config.WristOffset.
type ArmSolver interface {
	Solve(palm PalmPose) [ArmDOF]float64
}

// NeutralArm keeps the arm in NeutralArmPose regardless of the palm pose.
type NeutralArm struct{}

// Solve returns NeutralArmPose.
func (NeutralArm) Solve(PalmPose) [ArmDOF]float64 {
	return NeutralArmPose
}

// ArmSolverFunc adapts a function to ArmSolver.
type ArmSolverFunc func(palm PalmPose) [ArmDOF]float64

// Solve calls f.
func (f ArmSolverFunc) Solve(palm PalmPose) [ArmDOF]float64 {
	return f(palm)
}

func (r *Retargeter) scalePalm(p PalmPose) PalmPose {
	out := p
	for i := range out.Position {
		out.Position[i] = p.Position[i]*r.cfg.PosScale + r.cfg.WristOffset[i]
	}
	out.Orientation = scaleRotation(p.Orientation, r.cfg.RotScale)
	return out
}

// scaleRotation multiplies the rotation angle of unit quaternion q (w first)
// by s, keeping its axis.
func scaleRotation(q [4]float64, s float64) [4]float64 {
	if s == 1 {
		return q
	}
	w := q[0]
	if w < 0 {
		// Same rotation, shortest arc
		q = [4]float64{-q[0], -q[1], -q[2], -q[3]}
		w = q[0]
	}
	vn := math.Sqrt(q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if vn < 1e-12 {
		return [4]float64{1, 0, 0, 0}
	}
	half := math.Atan2(vn, w) * s
	k := math.Sin(half) / vn
	return [4]float64{math.Cos(half), q[1] * k, q[2] * k, q[3] * k}
}
