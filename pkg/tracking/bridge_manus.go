//go:build manus && cgo

package tracking

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct { float x, y, z; } ManusVec3;
typedef struct { float w, x, y, z; } ManusQuaternion;

typedef struct {
	uint32_t glove_id;
	uint32_t node_id;
	uint32_t side;
	ManusVec3 position;
	ManusQuaternion orientation;
} ManusNodePose;

typedef void *(*bridge_create_fn)(void);
typedef int (*bridge_poll_fn)(ManusNodePose *, uint32_t, uint32_t *);
typedef int (*bridge_shutdown_fn)(void);

static void *bridge_lib;
static bridge_poll_fn bridge_poll_sym;
static bridge_shutdown_fn bridge_shutdown_sym;

// poll and shutdown collide with libc, so resolve them from the library handle.
static int bridge_open(const char *path) {
	bridge_lib = dlopen(path, RTLD_NOW | RTLD_LOCAL);
	if (!bridge_lib) {
		return -10;
	}
	bridge_create_fn create = (bridge_create_fn)dlsym(bridge_lib, "bridge_create");
	bridge_poll_sym = (bridge_poll_fn)dlsym(bridge_lib, "poll");
	bridge_shutdown_sym = (bridge_shutdown_fn)dlsym(bridge_lib, "shutdown");
	if (!create || !bridge_poll_sym || !bridge_shutdown_sym) {
		return -11;
	}
	if (!create()) {
		return -12;
	}
	return 0;
}

static int bridge_poll(ManusNodePose *buf, uint32_t size, uint32_t *count) {
	if (!bridge_poll_sym) {
		return -1;
	}
	return bridge_poll_sym(buf, size, count);
}

static int bridge_shutdown(void) {
	if (!bridge_shutdown_sym) {
		return -1;
	}
	return bridge_shutdown_sym();
}

static const char *bridge_error(void) {
	const char *e = dlerror();
	return e ? e : "";
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// DefaultLibrary is the shared object loaded by OpenManus when path is empty.
const DefaultLibrary = "libmanus-vive-isaaclab-bridge.so"

var openMu sync.Mutex

// ManusBridge is the NativeBridge backed by the Manus glove bridge library.
// The library keeps a single global instance, so only one bridge may be open.
type ManusBridge struct {
	cbuf *C.ManusNodePose
	size int
}

// OpenManus loads the bridge library and connects to the glove SDK.
func OpenManus(path string) (*ManusBridge, error) {
	if path == "" {
		path = DefaultLibrary
	}
	openMu.Lock()
	defer openMu.Unlock()

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	switch rc := C.bridge_open(cpath); rc {
	case 0:
	case -10, -11:
		return nil, fmt.Errorf("tracking: load %s: %s", path, C.GoString(C.bridge_error()))
	default:
		return nil, fmt.Errorf("tracking: create and initialize glove bridge (code %d)", int(rc))
	}

	cbuf := (*C.ManusNodePose)(C.malloc(C.size_t(MaxNodes) * C.size_t(C.sizeof_ManusNodePose)))
	return &ManusBridge{cbuf: cbuf, size: MaxNodes}, nil
}

// Poll copies up to len(buf) node poses out of the bridge.
func (b *ManusBridge) Poll(buf []NodePose) (int, Status) {
	size := len(buf)
	if size > b.size {
		size = b.size
	}
	var count C.uint32_t
	rc := Status(C.bridge_poll(b.cbuf, C.uint32_t(size), &count))
	if rc != StatusOK {
		return 0, rc
	}

	n := int(count)
	if n > size {
		n = size
	}
	nodes := unsafe.Slice(b.cbuf, b.size)
	for i := 0; i < n; i++ {
		p := nodes[i]
		buf[i] = NodePose{
			GloveID: uint32(p.glove_id),
			NodeID:  uint32(p.node_id),
			Side:    Side(p.side),
			Position: [3]float64{
				float64(p.position.x), float64(p.position.y), float64(p.position.z),
			},
			Orientation: [4]float64{
				float64(p.orientation.w), float64(p.orientation.x),
				float64(p.orientation.y), float64(p.orientation.z),
			},
		}
	}
	return n, StatusOK
}

// Shutdown disconnects from the glove SDK and frees the pose buffer.
func (b *ManusBridge) Shutdown() Status {
	rc := Status(C.bridge_shutdown())
	if b.cbuf != nil {
		C.free(unsafe.Pointer(b.cbuf))
		b.cbuf = nil
	}
	return rc
}
