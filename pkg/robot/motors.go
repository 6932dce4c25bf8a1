// Package robot drives the servo-actuated dexterous hand.
package robot

import "github.com/christian-helms/nine-linked-rings/pkg/retarget"

// MotorName identifies a finger joint motor of the hand.
type MotorName string

// Motor names, one servo per hand joint, in command order.
const (
	ThumbYaw           MotorName = "thumb_proximal_yaw_joint"
	ThumbPitch         MotorName = "thumb_proximal_pitch_joint"
	ThumbIntermediate  MotorName = "thumb_intermediate_joint"
	ThumbDistal        MotorName = "thumb_distal_joint"
	IndexProximal      MotorName = "index_proximal_joint"
	IndexIntermediate  MotorName = "index_intermediate_joint"
	MiddleProximal     MotorName = "middle_proximal_joint"
	MiddleIntermediate MotorName = "middle_intermediate_joint"
	RingProximal       MotorName = "ring_proximal_joint"
	RingIntermediate   MotorName = "ring_intermediate_joint"
	PinkyProximal      MotorName = "pinky_proximal_joint"
	PinkyIntermediate  MotorName = "pinky_intermediate_joint"
)

// NumMotors is the number of hand servos (servo IDs 1-12).
const NumMotors = retarget.FingerDOF

// AllMotors returns all motor names in order (matching servo IDs 1-12).
func AllMotors() []MotorName {
	return []MotorName{
		ThumbYaw,
		ThumbPitch,
		ThumbIntermediate,
		ThumbDistal,
		IndexProximal,
		IndexIntermediate,
		MiddleProximal,
		MiddleIntermediate,
		RingProximal,
		RingIntermediate,
		PinkyProximal,
		PinkyIntermediate,
	}
}
