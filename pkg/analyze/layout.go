// Package analyze summarizes recorded demonstrations: it recognises the action
// layout, computes per-channel statistics and renders trajectory plots.
package analyze

import (
	"fmt"

	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
)

// Kind is a recognised action layout.
type Kind int

const (
	// KindGeneric is any action width without a known meaning.
	KindGeneric Kind = iota
	// KindHandArm is the 19-joint arm and dexterous hand command.
	KindHandArm
	// KindPoseGripper is an end-effector pose (x, y, z, roll, pitch, yaw) plus gripper.
	KindPoseGripper
)

func (k Kind) String() string {
	switch k {
	case KindHandArm:
		return "hand-arm"
	case KindPoseGripper:
		return "pose-gripper"
	}
	return "generic"
}

// PoseGripperDim is the action width of the pose-gripper layout.
const PoseGripperDim = 7

// Group is a contiguous run of action channels plotted and reported together.
type Group struct {
	Name     string
	Title    string
	Offset   int
	Channels []string
	// Unit of the channel values, for axis labels
	Unit string
}

// Layout describes how to read an action row.
type Layout struct {
	Kind   Kind
	Dim    int
	Groups []Group
}

// Classify picks the layout for an action width.
func Classify(dim int) Layout {
	switch dim {
	case retarget.DOF:
		return Layout{Kind: KindHandArm, Dim: dim, Groups: []Group{
			{
				Name: "arm", Title: "Arm Joints (7 DOF)", Offset: 0, Unit: "rad",
				Channels: []string{"Joint 1", "Joint 2", "Joint 3", "Joint 4", "Joint 5", "Joint 6", "Joint 7"},
			},
			{
				Name: "thumb", Title: "Thumb (4 DOF)", Offset: 7, Unit: "rad",
				Channels: []string{"Yaw", "Pitch", "Intermediate", "Distal"},
			},
			{
				Name: "index_middle", Title: "Index & Middle Fingers", Offset: 11, Unit: "rad",
				Channels: []string{"Index Prox", "Index Inter", "Middle Prox", "Middle Inter"},
			},
			{
				Name: "ring_pinky", Title: "Ring & Pinky Fingers", Offset: 15, Unit: "rad",
				Channels: []string{"Ring Prox", "Ring Inter", "Pinky Prox", "Pinky Inter"},
			},
		}}
	case PoseGripperDim:
		return Layout{Kind: KindPoseGripper, Dim: dim, Groups: []Group{
			{Name: "position", Title: "Position Commands", Offset: 0, Unit: "m", Channels: []string{"X", "Y", "Z"}},
			{Name: "rotation", Title: "Rotation Commands", Offset: 3, Unit: "rad", Channels: []string{"Roll", "Pitch", "Yaw"}},
			{Name: "gripper", Title: "Gripper Commands", Offset: 6, Unit: "0=closed, 1=open", Channels: []string{"Gripper"}},
		}}
	}

	channels := make([]string, dim)
	for i := range channels {
		channels[i] = fmt.Sprintf("Action %d", i)
	}
	return Layout{Kind: KindGeneric, Dim: dim, Groups: []Group{
		{Name: "actions", Title: fmt.Sprintf("Action Trajectories (%d DOF)", dim), Unit: "value", Channels: channels},
	}}
}
