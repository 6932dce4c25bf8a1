// Package tracking reads glove node poses and turns them into hand flex data.
//
// A Source yields one Snapshot per poll. Sources backed by the native glove
// bridge wrap a NativeBridge in a BridgeSource, which maps the bridge status
// codes to Go errors. FlexEstimator converts the node poses of one hand into
// retarget.HandData.
package tracking

import (
	"fmt"
	"sort"
)

// Side identifies the hand a glove is worn on. Values match the bridge.
type Side uint32

const (
	SideUnknown Side = 0
	SideLeft    Side = 1
	SideRight   Side = 2
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	}
	return "unknown"
}

// ParseSide parses "left" or "right".
func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	}
	return SideUnknown, fmt.Errorf("tracking: unknown side %q", s)
}

// NodePose is the pose of one skeleton node. Orientation is w, x, y, z.
type NodePose struct {
	GloveID     uint32
	NodeID      uint32
	Side        Side
	Position    [3]float64
	Orientation [4]float64
}

// Key returns the snapshot key of the node, e.g. "left_5".
func (p NodePose) Key() string {
	return fmt.Sprintf("%s_%d", p.Side, p.NodeID)
}

// Flat returns the pose as [x y z w qx qy qz].
func (p NodePose) Flat() []float64 {
	return []float64{
		p.Position[0], p.Position[1], p.Position[2],
		p.Orientation[0], p.Orientation[1], p.Orientation[2], p.Orientation[3],
	}
}

// Snapshot holds the latest node poses keyed by NodePose.Key. An empty
// snapshot means no data was available.
type Snapshot map[string]NodePose

// SnapshotFrom builds a snapshot from a list of poses. Later duplicates win.
func SnapshotFrom(poses []NodePose) Snapshot {
	s := make(Snapshot, len(poses))
	for _, p := range poses {
		s[p.Key()] = p
	}
	return s
}

// Flatten returns every node as [x y z w qx qy qz], keyed like the snapshot.
func (s Snapshot) Flatten() map[string][]float64 {
	out := make(map[string][]float64, len(s))
	for k, p := range s {
		out[k] = p.Flat()
	}
	return out
}

// Nodes returns the poses of one side keyed by node id.
func (s Snapshot) Nodes(side Side) map[uint32]NodePose {
	out := make(map[uint32]NodePose)
	for _, p := range s {
		if p.Side == side {
			out[p.NodeID] = p
		}
	}
	return out
}

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
