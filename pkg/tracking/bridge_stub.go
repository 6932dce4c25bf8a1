//go:build !manus || !cgo

package tracking

// DefaultLibrary is the shared object loaded by OpenManus when path is empty.
const DefaultLibrary = "libmanus-vive-isaaclab-bridge.so"

// ManusBridge is unavailable in this build.
type ManusBridge struct{}

// OpenManus always fails with ErrBridgeUnavailable in this build.
func OpenManus(path string) (*ManusBridge, error) {
	return nil, ErrBridgeUnavailable
}

// Poll reports StatusNotInitialized.
func (b *ManusBridge) Poll(buf []NodePose) (int, Status) {
	return 0, StatusNotInitialized
}

// Shutdown reports StatusNotInitialized.
func (b *ManusBridge) Shutdown() Status {
	return StatusNotInitialized
}
