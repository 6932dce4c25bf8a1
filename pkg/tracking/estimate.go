package tracking

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
)

// NodeLayout maps skeleton node ids to hand bones.
type NodeLayout struct {
	Palm uint32
	// Metacarpal, proximal, distal, tip
	Thumb [4]uint32
	// Metacarpal, proximal, intermediate, distal, tip
	Index  [5]uint32
	Middle [5]uint32
	Ring   [5]uint32
	Pinky  [5]uint32

	// Bone-local axes. Flexion bends a finger towards the palm, spread
	// moves it sideways.
	FlexAxis   [3]float64
	SpreadAxis [3]float64
}

// DefaultLayout is the 25-node raw glove skeleton: the hand root, four thumb
// nodes, then five nodes for each remaining finger.
func DefaultLayout() NodeLayout {
	return NodeLayout{
		Palm:       0,
		Thumb:      [4]uint32{1, 2, 3, 4},
		Index:      [5]uint32{5, 6, 7, 8, 9},
		Middle:     [5]uint32{10, 11, 12, 13, 14},
		Ring:       [5]uint32{15, 16, 17, 18, 19},
		Pinky:      [5]uint32{20, 21, 22, 23, 24},
		FlexAxis:   [3]float64{1, 0, 0},
		SpreadAxis: [3]float64{0, 0, 1},
	}
}

// FlexEstimator derives per-joint flex angles from the node poses of one hand.
type FlexEstimator struct {
	side   Side
	layout NodeLayout
}

// NewFlexEstimator returns an estimator for the given hand.
func NewFlexEstimator(side Side, layout NodeLayout) *FlexEstimator {
	return &FlexEstimator{side: side, layout: layout}
}

// Side returns the tracked hand.
func (e *FlexEstimator) Side() Side {
	return e.side
}

// Estimate converts a snapshot into hand data. Regions without any node in the
// snapshot are left absent, so a snapshot without this hand yields empty data.
func (e *FlexEstimator) Estimate(s Snapshot) retarget.HandData {
	var h retarget.HandData
	nodes := s.Nodes(e.side)
	if len(nodes) == 0 {
		return h
	}
	l := e.layout

	palm, hasPalm := nodes[l.Palm]
	if hasPalm {
		h.Palm = retarget.PalmPose{
			Present:     true,
			Position:    palm.Position,
			Orientation: palm.Orientation,
		}
	}

	if anyPresent(nodes, l.Thumb[:]) {
		h.Thumb.Present = true
		if q, ok := relative(nodes, l.Palm, l.Thumb[0]); ok {
			h.Thumb.CMCSpread = twistAngle(q, l.SpreadAxis)
			h.Thumb.CMCFlex = twistAngle(q, l.FlexAxis)
		}
		h.Thumb.MCP = e.flex(nodes, l.Thumb[0], l.Thumb[1])
		h.Thumb.IP = e.flex(nodes, l.Thumb[1], l.Thumb[2])
	}

	fingers := []struct {
		ids [5]uint32
		dst *retarget.FingerFlex
	}{
		{l.Index, &h.Index},
		{l.Middle, &h.Middle},
		{l.Ring, &h.Ring},
		{l.Pinky, &h.Pinky},
	}
	for _, f := range fingers {
		if !anyPresent(nodes, f.ids[:]) {
			continue
		}
		*f.dst = retarget.FingerFlex{
			Present: true,
			MCP:     e.flex(nodes, f.ids[0], f.ids[1]),
			PIP:     e.flex(nodes, f.ids[1], f.ids[2]),
		}
	}

	return h
}

// flex is the rotation of child relative to parent about the flex axis, or 0
// when either node is missing.
func (e *FlexEstimator) flex(nodes map[uint32]NodePose, parent, child uint32) float64 {
	q, ok := relative(nodes, parent, child)
	if !ok {
		return 0
	}
	return twistAngle(q, e.layout.FlexAxis)
}

func anyPresent(nodes map[uint32]NodePose, ids []uint32) bool {
	for _, id := range ids {
		if _, ok := nodes[id]; ok {
			return true
		}
	}
	return false
}

// relative returns conj(parent) * child.
func relative(nodes map[uint32]NodePose, parent, child uint32) (quat.Number, bool) {
	p, ok := nodes[parent]
	if !ok {
		return quat.Number{}, false
	}
	c, ok := nodes[child]
	if !ok {
		return quat.Number{}, false
	}
	return quat.Mul(quat.Conj(toQuat(p.Orientation)), toQuat(c.Orientation)), true
}

func toQuat(o [4]float64) quat.Number {
	q := quat.Number{Real: o[0], Imag: o[1], Jmag: o[2], Kmag: o[3]}
	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	}
	return q
}

func fromQuat(q quat.Number) [4]float64 {
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}

// twistAngle returns the signed rotation angle of q about axis in (-pi, pi],
// using the swing-twist decomposition.
func twistAngle(q quat.Number, axis [3]float64) float64 {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return 0
	}
	p := (q.Imag*axis[0] + q.Jmag*axis[1] + q.Kmag*axis[2]) / n
	w := q.Real
	if w < 0 {
		w, p = -w, -p
	}
	if w == 0 && p == 0 {
		return 0
	}
	return 2 * math.Atan2(p, w)
}

// axisAngle builds the unit quaternion rotating by angle about axis.
func axisAngle(axis [3]float64, angle float64) quat.Number {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	s := math.Sin(angle/2) / n
	return quat.Number{Real: math.Cos(angle / 2), Imag: axis[0] * s, Jmag: axis[1] * s, Kmag: axis[2] * s}
}
