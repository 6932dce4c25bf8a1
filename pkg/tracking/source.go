package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MaxNodes is the size of the pose buffer handed to the native bridge.
const MaxNodes = 512

// Source produces hand tracking snapshots.
//
// Poll returns an empty snapshot when no data is available. Any error it
// returns is fatal for the session; see IsFatal.
type Source interface {
	Poll(ctx context.Context) (Snapshot, error)
	Close() error
}

// Status is a native bridge return code.
type Status int32

// Bridge return codes.
const (
	StatusOK               Status = 0
	StatusNotInitialized   Status = -1
	StatusNoData           Status = -2
	StatusInvalidArguments Status = -3
)

// Errors reported by sources.
var (
	ErrNotInitialized    = errors.New("tracking: bridge not initialized")
	ErrInvalidArguments  = errors.New("tracking: invalid arguments passed to bridge")
	ErrBridgeUnavailable = errors.New("tracking: native bridge not compiled in (build with -tags manus)")
	ErrClosed            = errors.New("tracking: source closed")
)

// StatusError is a bridge failure with an unrecognised status code.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracking: bridge %s failed (error code: %d)", e.Op, e.Status)
}

// Err maps a status to an error. StatusOK and StatusNoData map to nil.
func (s Status) Err(op string) error {
	switch s {
	case StatusOK, StatusNoData:
		return nil
	case StatusNotInitialized:
		return fmt.Errorf("%s: %w", op, ErrNotInitialized)
	case StatusInvalidArguments:
		return fmt.Errorf("%s: %w", op, ErrInvalidArguments)
	}
	return &StatusError{Op: op, Status: s}
}

// IsFatal reports whether err came from the bridge or a closed source and
// should end the session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	return errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrInvalidArguments) ||
		errors.Is(err, ErrBridgeUnavailable) ||
		errors.Is(err, ErrClosed) ||
		errors.As(err, &se)
}

// NativeBridge is the poll/shutdown pair exported by the glove bridge library.
// Poll fills buf and returns the number of poses written.
type NativeBridge interface {
	Poll(buf []NodePose) (int, Status)
	Shutdown() Status
}

// BridgeSource adapts a NativeBridge to Source.
type BridgeSource struct {
	bridge NativeBridge
	logger *zap.Logger

	mu     sync.Mutex
	buf    []NodePose
	empty  int
	closed bool
}

// NewBridgeSource wraps bridge. A nil logger disables logging.
func NewBridgeSource(bridge NativeBridge, logger *zap.Logger) *BridgeSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeSource{
		bridge: bridge,
		logger: logger,
		buf:    make([]NodePose, MaxNodes),
	}
}

// Poll reads the latest node poses from the bridge.
func (s *BridgeSource) Poll(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	n, status := s.bridge.Poll(s.buf)
	switch status {
	case StatusOK:
	case StatusNoData:
		s.empty++
		if s.empty == 1 {
			s.logger.Debug("no glove data available")
		}
		return Snapshot{}, nil
	default:
		return nil, status.Err("poll")
	}

	if n > len(s.buf) {
		n = len(s.buf)
	}
	if s.empty > 0 {
		s.logger.Debug("glove data resumed", zap.Int("empty_polls", s.empty))
		s.empty = 0
	}
	return SnapshotFrom(s.buf[:n]), nil
}

// Close shuts the bridge down. Further polls fail with ErrClosed.
func (s *BridgeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	st := s.bridge.Shutdown()
	if st == StatusOK {
		return nil
	}
	if err := st.Err("shutdown"); err != nil {
		return err
	}
	// No data is not a valid shutdown result
	return &StatusError{Op: "shutdown", Status: st}
}
