package demo

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

func encodeNative(w io.Writer, rec *Record) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(rec); err != nil {
		gz.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	return gz.Close()
}

func decodeNative(r io.Reader) (*Record, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	var rec Record
	if err := gob.NewDecoder(gz).Decode(&rec); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return &rec, nil
}

func encodeJSON(w io.Writer, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func decodeJSON(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &rec, nil
}
