package demo

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sbinet/npyio/npy"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

// Array names inside the archive. Map streams store one array per key under
// their prefix, e.g. "robot_states/joint_positions.npy", plus a boolean
// presence mask, e.g. "robot_states/joint_positions.mask.npy".
const (
	npzObservations = "observations.npy"
	npzActions      = "actions.npy"
	npzTimestamps   = "timestamps.npy"
	npzMetadata     = "metadata.npy"
	npzRobotStates  = "robot_states/"
	npzHandPoses    = "hand_poses/"
	npzMaskSuffix   = ".mask.npy"
)

var (
	float64Type = reflect.TypeOf(float64(0))
	float32Type = reflect.TypeOf(float32(0))
	stringType  = reflect.TypeOf("")
)

func encodeNPZ(w io.Writer, rec *Record) error {
	zw := npz.NewWriter(w)

	matrix := func(name string, rows [][]float64) error {
		v, err := denseRows(rows)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return zw.Write(name, v)
	}

	if err := matrix(npzObservations, rec.Observations); err != nil {
		return err
	}
	if err := matrix(npzActions, rec.Actions); err != nil {
		return err
	}
	if err := zw.Write(npzTimestamps, append([]float64{}, rec.Timestamps...)); err != nil {
		return err
	}

	for _, stream := range []struct {
		prefix string
		steps  []map[string][]float64
	}{
		{npzRobotStates, rec.RobotStates},
		{npzHandPoses, rec.HandPoses},
	} {
		for _, key := range streamKeys(stream.steps) {
			rows, mask, err := keyRows(stream.steps, key)
			if err != nil {
				return fmt.Errorf("%s%s: %w", stream.prefix, key, err)
			}
			if err := matrix(stream.prefix+key+".npy", rows); err != nil {
				return err
			}
			if err := zw.Write(stream.prefix+key+npzMaskSuffix, mask); err != nil {
				return err
			}
		}
	}

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := zw.Write(npzMetadata, []string{string(meta)}); err != nil {
		return err
	}

	return zw.Close()
}

func decodeNPZ(r io.Reader) (*Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := npz.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open npz: %w", err)
	}
	defer zr.Close()

	a := &npzArchive{zr: zr, names: make(map[string]bool)}
	for _, name := range zr.Keys() {
		a.names[name] = true
	}

	var rec Record

	meta, err := a.unicode(npzMetadata)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	_, rec.Timestamps, err = a.floats(npzTimestamps)
	if err != nil {
		return nil, err
	}
	n := len(rec.Timestamps)

	if rec.Observations, err = a.rows(npzObservations, n); err != nil {
		return nil, err
	}
	if rec.Actions, err = a.rows(npzActions, n); err != nil {
		return nil, err
	}

	rec.RobotStates = emptySteps(n)
	rec.HandPoses = emptySteps(n)
	names := make([]string, 0, len(a.names))
	for name := range a.names {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var steps []map[string][]float64
		var prefix string
		switch {
		case strings.HasSuffix(name, npzMaskSuffix):
			continue
		case strings.HasPrefix(name, npzRobotStates):
			steps, prefix = rec.RobotStates, npzRobotStates
		case strings.HasPrefix(name, npzHandPoses):
			steps, prefix = rec.HandPoses, npzHandPoses
		default:
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".npy")
		rows, err := a.rows(name, n)
		if err != nil {
			return nil, err
		}

		// Archives without a mask mark absent steps with NaN rows.
		var mask []bool
		if maskName := prefix + key + npzMaskSuffix; a.names[maskName] {
			if mask, err = a.mask(maskName); err != nil {
				return nil, err
			}
			if len(mask) != n {
				return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrInconsistentRecord, maskName, len(mask), n)
			}
		}
		for i, row := range rows {
			present := len(row) == 0 || !allNaN(row)
			if mask != nil {
				present = mask[i]
			}
			if present {
				steps[i][key] = row
			}
		}
	}

	return &rec, nil
}

// npzArchive reads named arrays out of an .npz archive.
type npzArchive struct {
	zr    *npz.Reader
	names map[string]bool
}

// open reads the whole entry and parses its header. The entry is buffered
// because npy.Reader does not retry short reads from the decompressor.
func (a *npzArchive) open(name string) (*npy.Reader, []byte, error) {
	if !a.names[name] {
		return nil, nil, fmt.Errorf("npz: missing %s", name)
	}
	rc, err := a.zr.Open(name)
	if err != nil {
		return nil, nil, err
	}
	buf, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	br := bytes.NewReader(buf)
	ar, err := npy.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return ar, buf[len(buf)-br.Len():], nil
}

// floats reads a numeric array as float64, returning its shape.
func (a *npzArchive) floats(name string) ([]int, []float64, error) {
	ar, _, err := a.open(name)
	if err != nil {
		return nil, nil, err
	}
	shape := ar.Header.Descr.Shape
	if ar.Header.Descr.Fortran && len(shape) > 1 {
		return nil, nil, fmt.Errorf("%s: fortran-ordered arrays are not supported", name)
	}

	switch npy.TypeFrom(ar.Header.Descr.Type) {
	case float64Type:
		var v []float64
		if err := ar.Read(&v); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		return shape, v, nil
	case float32Type:
		var v []float32
		if err := ar.Read(&v); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return shape, out, nil
	}
	return nil, nil, fmt.Errorf("%s: %w: dtype %s", name, npy.ErrTypeMismatch, ar.Header.Descr.Type)
}

// rows reads a numeric array as n rows. An empty array stands for n
// zero-width rows.
func (a *npzArchive) rows(name string, n int) ([][]float64, error) {
	shape, data, err := a.floats(name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 && n > 0 {
		rows := make([][]float64, n)
		for i := range rows {
			rows[i] = []float64{}
		}
		return rows, nil
	}
	rows, err := splitRows(shape, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(rows) != n {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrInconsistentRecord, name, len(rows), n)
	}
	return rows, nil
}

func (a *npzArchive) mask(name string) ([]bool, error) {
	ar, _, err := a.open(name)
	if err != nil {
		return nil, err
	}
	var v []bool
	if err := ar.Read(&v); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// unicode reads a '<U' array holding a single string. npy.Reader decodes the
// UTF-32 payload as UTF-8, so the code points are decoded here.
func (a *npzArchive) unicode(name string) (string, error) {
	ar, payload, err := a.open(name)
	if err != nil {
		return "", err
	}
	descr := ar.Header.Descr.Type
	width, err := strconv.Atoi(strings.TrimPrefix(strings.TrimLeft(descr, "<>|="), "U"))
	if npy.TypeFrom(descr) != stringType || !strings.Contains(descr, "U") || err != nil {
		return "", fmt.Errorf("%s: %w: want a unicode string, got %s", name, npy.ErrTypeMismatch, descr)
	}
	if count := numElems(ar.Header.Descr.Shape); count != 1 {
		return "", fmt.Errorf("%s: want one string, got shape %v", name, ar.Header.Descr.Shape)
	}
	if len(payload) > 4*width {
		payload = payload[:4*width]
	}

	var order binary.ByteOrder = binary.LittleEndian
	if descr[0] == '>' {
		order = binary.BigEndian
	}
	var sb strings.Builder
	for i := 0; i+4 <= len(payload); i += 4 {
		c := rune(order.Uint32(payload[i:]))
		if c == 0 {
			break
		}
		if !utf8.ValidRune(c) {
			return "", fmt.Errorf("%s: invalid code point %#x", name, c)
		}
		sb.WriteRune(c)
	}
	return sb.String(), nil
}

// denseRows packs equal-length rows into an (N, D) matrix. A stream without
// values is written as an empty 1-d array; readers take the row count from
// the timestamps.
func denseRows(rows [][]float64) (any, error) {
	shape, data, err := flattenRows(rows)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []float64{}, nil
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}

// flattenRows packs equal-length rows into a row-major (N, D) array.
func flattenRows(rows [][]float64) ([]int, []float64, error) {
	if len(rows) == 0 {
		return []int{0}, []float64{}, nil
	}
	d := len(rows[0])
	data := make([]float64, 0, len(rows)*d)
	for i, row := range rows {
		if len(row) != d {
			return nil, nil, fmt.Errorf("%w: row %d has %d values, row 0 has %d", ErrRaggedStream, i, len(row), d)
		}
		data = append(data, row...)
	}
	return []int{len(rows), d}, data, nil
}

// splitRows is the inverse of flattenRows. A 1-d array is one value per row.
func splitRows(shape []int, data []float64) ([][]float64, error) {
	switch len(shape) {
	case 1:
		rows := make([][]float64, shape[0])
		for i := range rows {
			rows[i] = []float64{data[i]}
		}
		return rows, nil
	case 2:
		n, d := shape[0], shape[1]
		rows := make([][]float64, n)
		for i := range rows {
			rows[i] = append([]float64{}, data[i*d:(i+1)*d]...)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%w: want 1 or 2 dimensions, got shape %v", ErrRaggedStream, shape)
}

func numElems(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func streamKeys(steps []map[string][]float64) []string {
	seen := make(map[string]struct{})
	for _, m := range steps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// keyRows extracts one key across all steps together with its presence mask.
// Steps without the key become rows of NaN.
func keyRows(steps []map[string][]float64, key string) ([][]float64, []bool, error) {
	d := -1
	for _, m := range steps {
		if v, ok := m[key]; ok {
			if d >= 0 && len(v) != d {
				return nil, nil, fmt.Errorf("%w: %d vs %d values", ErrRaggedStream, len(v), d)
			}
			d = len(v)
		}
	}
	rows := make([][]float64, len(steps))
	mask := make([]bool, len(steps))
	for i, m := range steps {
		v, ok := m[key]
		if !ok {
			v = make([]float64, d)
			for j := range v {
				v[j] = math.NaN()
			}
		}
		rows[i] = v
		mask[i] = ok
	}
	return rows, mask, nil
}

func emptySteps(n int) []map[string][]float64 {
	steps := make([]map[string][]float64, n)
	for i := range steps {
		steps[i] = map[string][]float64{}
	}
	return steps
}

func allNaN(v []float64) bool {
	for _, x := range v {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}
