package tracking

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
)

// SyntheticSource animates one gloved hand opening and closing, for runs
// without glove hardware.
type SyntheticSource struct {
	clock  timeutil.Clock
	side   Side
	layout NodeLayout
	period time.Duration
	curl   float64

	mu     sync.Mutex
	start  time.Time
	closed bool
}

// NewSyntheticSource returns a source whose fingers curl from 0 to maxCurl
// radians per joint and back once per period.
func NewSyntheticSource(clock timeutil.Clock, side Side, period time.Duration, maxCurl float64) *SyntheticSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if period <= 0 {
		period = 4 * time.Second
	}
	return &SyntheticSource{
		clock:  clock,
		side:   side,
		layout: DefaultLayout(),
		period: period,
		curl:   maxCurl,
		start:  clock.Now(),
	}
}

// Curl returns the per-joint flex angle at elapsed time d.
func (s *SyntheticSource) Curl(d time.Duration) float64 {
	phase := 2 * math.Pi * float64(d) / float64(s.period)
	return s.curl * 0.5 * (1 - math.Cos(phase))
}

// Poll returns the hand pose for the current clock time.
func (s *SyntheticSource) Poll(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.Pose(s.Curl(s.clock.Now().Sub(s.start))), nil
}

// Pose builds a snapshot with every finger joint flexed by angle.
func (s *SyntheticSource) Pose(angle float64) Snapshot {
	l := s.layout
	snap := make(Snapshot, 25)
	identity := quat.Number{Real: 1}
	add := func(id uint32, pos [3]float64, q quat.Number) {
		p := NodePose{NodeID: id, Side: s.side, Position: pos, Orientation: fromQuat(q)}
		snap[p.Key()] = p
	}

	add(l.Palm, [3]float64{}, identity)

	thumb := axisAngle(l.FlexAxis, angle)
	for i, id := range l.Thumb {
		bend := axisAngle(l.FlexAxis, angle*float64(min(i, 2)))
		add(id, [3]float64{-0.04, 0.02 + 0.025*float64(i), 0}, quat.Mul(thumb, bend))
	}

	for f, ids := range [][5]uint32{l.Index, l.Middle, l.Ring, l.Pinky} {
		x := -0.02 + 0.02*float64(f)
		for i, id := range ids {
			// Metacarpal stays with the palm, each later joint adds one bend
			bend := axisAngle(l.FlexAxis, angle*float64(min(i, 3)))
			add(id, [3]float64{x, 0.03 * float64(i+1), 0}, bend)
		}
	}
	return snap
}

// Close stops the source.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
