package tracking

import (
	"context"
	"sync"
)

// Frame is one scripted poll result.
type Frame struct {
	Snapshot Snapshot
	Err      error
}

// ScriptedSource replays a fixed list of frames, then reports no data. It is
// the deterministic stand-in for glove hardware in tests and replays.
type ScriptedSource struct {
	mu     sync.Mutex
	frames []Frame
	next   int
	polls  int
	closed bool
}

// NewScriptedSource returns a source that yields frames in order.
func NewScriptedSource(frames ...Frame) *ScriptedSource {
	return &ScriptedSource{frames: frames}
}

// Poll returns the next frame, or an empty snapshot once all were replayed.
func (s *ScriptedSource) Poll(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.polls++
	if s.next >= len(s.frames) {
		return Snapshot{}, nil
	}
	f := s.frames[s.next]
	s.next++
	if f.Err != nil {
		return nil, f.Err
	}
	out := make(Snapshot, len(f.Snapshot))
	for k, v := range f.Snapshot {
		out[k] = v
	}
	return out, nil
}

// Polls returns how many times Poll ran against an open source.
func (s *ScriptedSource) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Closed reports whether Close was called.
func (s *ScriptedSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close marks the source closed.
func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
