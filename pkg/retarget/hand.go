package retarget

import (
	"encoding/json"
	"fmt"
	"math"
)

// Region names accepted by ParseHandData.
const (
	RegionPalm   = "palm"
	RegionThumb  = "thumb"
	RegionIndex  = "index"
	RegionMiddle = "middle"
	RegionRing   = "ring"
	RegionPinky  = "pinky"
)

// PalmPose is the tracked palm pose. Orientation is a unit quaternion, w first.
type PalmPose struct {
	Present     bool
	Position    [3]float64
	Orientation [4]float64
}

// ThumbFlex holds the thumb flex readings in radians.
type ThumbFlex struct {
	Present   bool
	CMCSpread float64 // -> proximal yaw
	CMCFlex   float64 // -> proximal pitch
	MCP       float64 // -> intermediate
	IP        float64 // -> distal
}

// FingerFlex holds the flex readings of index, middle, ring or pinky.
type FingerFlex struct {
	Present bool
	MCP     float64 // -> proximal
	PIP     float64 // -> intermediate
}

// HandData is one tracking snapshot of the active hand. A region that was not
// reported keeps its zero value and contributes zero joint angles.
type HandData struct {
	Palm   PalmPose
	Thumb  ThumbFlex
	Index  FingerFlex
	Middle FingerFlex
	Ring   FingerFlex
	Pinky  FingerFlex
}

// Empty reports whether no region was reported at all.
func (h *HandData) Empty() bool {
	return !h.Palm.Present && !h.Thumb.Present &&
		!h.Index.Present && !h.Middle.Present && !h.Ring.Present && !h.Pinky.Present
}

// ValueError reports a joint reading that is not a finite number.
type ValueError struct {
	Region string
	Joint  string
	Value  any
}

func (e *ValueError) Error() string {
	if e.Joint == "" {
		return fmt.Sprintf("retarget: non-numeric value %T(%v) for region %s", e.Value, e.Value, e.Region)
	}
	return fmt.Sprintf("retarget: non-numeric value %T(%v) for %s.%s", e.Value, e.Value, e.Region, e.Joint)
}

// Unwrap lets errors.Is match ErrNonNumeric.
func (e *ValueError) Unwrap() error {
	return ErrNonNumeric
}

// ParseHandData converts a dynamically shaped snapshot, such as decoded JSON,
// into HandData. Each finger region is either a map of named flex readings
// ("cmc_spread", "cmc_flex", "mcp", "ip" for the thumb; "mcp", "pip" for the
// others) or a bare number applied to every joint of that region. The palm is
// either {"position": [x y z], "orientation": [w x y z]} or a flat list of
// seven numbers. Unknown regions and joints are ignored; nil readings count
// as missing.
func ParseHandData(raw map[string]any) (HandData, error) {
	var h HandData

	if v, ok := raw[RegionPalm]; ok && v != nil {
		palm, err := parsePalm(v)
		if err != nil {
			return HandData{}, err
		}
		h.Palm = palm
	}

	if v, ok := raw[RegionThumb]; ok {
		var vals [4]float64
		if err := parseRegion(RegionThumb, v, []string{"cmc_spread", "cmc_flex", "mcp", "ip"}, vals[:]); err != nil {
			return HandData{}, err
		}
		h.Thumb = ThumbFlex{Present: true, CMCSpread: vals[0], CMCFlex: vals[1], MCP: vals[2], IP: vals[3]}
	}

	fingers := []struct {
		region string
		dst    *FingerFlex
	}{
		{RegionIndex, &h.Index},
		{RegionMiddle, &h.Middle},
		{RegionRing, &h.Ring},
		{RegionPinky, &h.Pinky},
	}
	for _, f := range fingers {
		v, ok := raw[f.region]
		if !ok {
			continue
		}
		var vals [2]float64
		if err := parseRegion(f.region, v, []string{"mcp", "pip"}, vals[:]); err != nil {
			return HandData{}, err
		}
		*f.dst = FingerFlex{Present: true, MCP: vals[0], PIP: vals[1]}
	}

	return h, nil
}

func parseRegion(region string, v any, joints []string, dst []float64) error {
	if v == nil {
		return nil
	}
	var lookup func(joint string) (any, bool)
	switch m := v.(type) {
	case map[string]any:
		lookup = func(joint string) (any, bool) { jv, ok := m[joint]; return jv, ok }
	case map[string]float64:
		lookup = func(joint string) (any, bool) { jv, ok := m[joint]; return jv, ok }
	case map[string]float32:
		lookup = func(joint string) (any, bool) { jv, ok := m[joint]; return jv, ok }
	default:
		// Bare scalar: some glove SDK versions report one value per finger
		f, err := toFloat(v)
		if err != nil {
			return &ValueError{Region: region, Value: v}
		}
		for i := range dst {
			dst[i] = f
		}
		return nil
	}
	for i, joint := range joints {
		jv, ok := lookup(joint)
		if !ok || jv == nil {
			continue
		}
		f, err := toFloat(jv)
		if err != nil {
			return &ValueError{Region: region, Joint: joint, Value: jv}
		}
		dst[i] = f
	}
	return nil
}

func parsePalm(v any) (PalmPose, error) {
	palm := PalmPose{Present: true, Orientation: [4]float64{1, 0, 0, 0}}
	switch p := v.(type) {
	case map[string][]float64:
		if pos, ok := p["position"]; ok {
			if err := toFloats(RegionPalm, "position", pos, palm.Position[:]); err != nil {
				return PalmPose{}, err
			}
		}
		if rot, ok := p["orientation"]; ok {
			if err := toFloats(RegionPalm, "orientation", rot, palm.Orientation[:]); err != nil {
				return PalmPose{}, err
			}
		}
	case map[string]any:
		if pos, ok := p["position"]; ok {
			if err := toFloats(RegionPalm, "position", pos, palm.Position[:]); err != nil {
				return PalmPose{}, err
			}
		}
		if rot, ok := p["orientation"]; ok {
			if err := toFloats(RegionPalm, "orientation", rot, palm.Orientation[:]); err != nil {
				return PalmPose{}, err
			}
		}
	case []any:
		var flat [7]float64
		if err := toFloats(RegionPalm, "pose", p, flat[:]); err != nil {
			return PalmPose{}, err
		}
		copy(palm.Position[:], flat[:3])
		copy(palm.Orientation[:], flat[3:])
	case []float64:
		var flat [7]float64
		if err := toFloats(RegionPalm, "pose", p, flat[:]); err != nil {
			return PalmPose{}, err
		}
		copy(palm.Position[:], flat[:3])
		copy(palm.Orientation[:], flat[3:])
	default:
		return PalmPose{}, &ValueError{Region: RegionPalm, Value: v}
	}
	return palm, nil
}

func toFloats(region, joint string, v any, dst []float64) error {
	switch s := v.(type) {
	case []float64:
		if len(s) != len(dst) {
			return &ValueError{Region: region, Joint: joint, Value: v}
		}
		for i, f := range s {
			if !finite(f) {
				return &ValueError{Region: region, Joint: joint, Value: f}
			}
			dst[i] = f
		}
		return nil
	case []any:
		if len(s) != len(dst) {
			return &ValueError{Region: region, Joint: joint, Value: v}
		}
		for i, e := range s {
			f, err := toFloat(e)
			if err != nil {
				return &ValueError{Region: region, Joint: joint, Value: e}
			}
			dst[i] = f
		}
		return nil
	}
	return &ValueError{Region: region, Joint: joint, Value: v}
}

// toFloat converts a numeric reading. NaN and infinities are rejected.
func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
	if !finite(f) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	return f, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
