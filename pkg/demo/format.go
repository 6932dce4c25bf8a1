package demo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects how a Record is persisted.
type Format string

const (
	// FormatNative is a gzip-compressed gob blob (.gob). It round-trips
	// every Go value exactly.
	FormatNative Format = "native"
	// FormatNPZ is a NumPy .npz archive of .npy arrays.
	FormatNPZ Format = "npz"
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatNative, FormatNPZ, FormatJSON}
}

// ParseFormat parses a format name. "gob" and "pickle" are accepted as
// aliases of FormatNative.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native", "gob", "pickle":
		return FormatNative, nil
	case "npz":
		return FormatNPZ, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatNative:
		return ".gob"
	case FormatNPZ:
		return ".npz"
	case FormatJSON:
		return ".json"
	}
	return ""
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats() {
		if f.Ext() == ext {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
}

// Encode writes rec to w in format f.
func Encode(w io.Writer, rec *Record, f Format) error {
	switch f {
	case FormatNative:
		return encodeNative(w, rec)
	case FormatNPZ:
		return encodeNPZ(w, rec)
	case FormatJSON:
		return encodeJSON(w, rec)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// Decode reads a Record in format f from r and validates it.
func Decode(r io.Reader, f Format) (*Record, error) {
	var (
		rec *Record
		err error
	)
	switch f {
	case FormatNative:
		rec, err = decodeNative(r)
	case FormatNPZ:
		rec, err = decodeNPZ(r)
	case FormatJSON:
		rec, err = decodeJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Save writes rec to dir/base+ext and returns the path. An existing file is
// replaced. The record is written to a temporary file first, so a failed
// encode leaves nothing behind.
func Save(rec *Record, dir, base string, f Format) (string, error) {
	ext := f.Ext()
	if ext == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
	path := filepath.Join(dir, base+ext)

	tmp, err := os.CreateTemp(dir, "."+base+ext+".*")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	fail := func(err error) (string, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, rec, f); err != nil {
		return fail(fmt.Errorf("encode %s: %w", path, err))
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("write %s: %w", path, err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("chmod %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}

// Load reads a demonstration, choosing the format from the file extension.
func Load(path string) (*Record, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rec, err := Decode(bufio.NewReader(file), f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return rec, nil
}
