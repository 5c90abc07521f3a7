// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mat5 reads MAT files in the classic binary encoding used by MATLAB
// v5 through v7 (everything except -v7.3). It decodes the whole file into a
// types.Document; matrices are converted from MATLAB's column-major storage
// to row-major order on the way.
package mat5

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/pdiddy/mat2csv/pkg/types"
)

const (
	headerLen     = 128
	headerTextLen = 116

	// Version is the header version word of the classic encoding.
	Version uint16 = 0x0100
	// VersionHDF5 is the header version word written by save -v7.3.
	VersionHDF5 uint16 = 0x0200
)

var (
	// ErrNotMAT is returned when the input lacks a level 5 MAT header.
	ErrNotMAT = errors.New("not a level 5 MAT file")
	// ErrTruncated is returned when an element runs past the end of its container.
	ErrTruncated = errors.New("truncated data element")
	// ErrUnexpectedElement is returned when an element of the wrong type
	// appears where the format requires a specific one.
	ErrUnexpectedElement = errors.New("unexpected data element")
)

// Header is the 128-byte preamble of a MAT file.
type Header struct {
	Text         string
	SubsysOffset uint64
	Version      uint16
	Order        binary.ByteOrder
}

// ReadHeader parses the first 128 bytes of b. It accepts both the classic and
// the HDF5 version words so callers can use it to tell the encodings apart.
func ReadHeader(b []byte) (Header, error) {
	if len(b) < headerLen {
		return Header{}, fmt.Errorf("%w: file shorter than header", ErrNotMAT)
	}
	var order binary.ByteOrder
	switch string(b[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return Header{}, fmt.Errorf("%w: bad endian indicator %q", ErrNotMAT, b[126:128])
	}
	h := Header{
		Text:         strings.TrimRight(string(b[:headerTextLen]), " \x00"),
		SubsysOffset: order.Uint64(b[116:124]),
		Version:      order.Uint16(b[124:126]),
		Order:        order,
	}
	if h.Version != Version && h.Version != VersionHDF5 {
		return Header{}, fmt.Errorf("%w: unknown version 0x%04x", ErrNotMAT, h.Version)
	}
	return h, nil
}

// Options controls decoding.
type Options struct {
	// Squeeze drops singleton dimensions and unwraps single-element cell and
	// struct arrays, like scipy's squeeze_me.
	Squeeze bool
}

// Load reads and decodes the MAT file at path.
func Load(path string, opts Options) (*types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Decode(data, opts)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Decode decodes a complete level 5 MAT file held in data.
func Decode(data []byte, opts Options) (*types.Document, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: version 0x%04x is HDF5-backed", ErrNotMAT, h.Version)
	}

	doc := &types.Document{Format: types.FormatV5, Header: h.Text}
	dec := &decoder{order: h.Order}
	r := &reader{order: h.Order, buf: data, pos: headerLen}

	var vars []types.Variable
	var globals []string
	for r.more() {
		typ, body, err := r.element()
		if err != nil {
			return nil, fmt.Errorf("reading top-level element at offset %d: %w", r.pos, err)
		}
		if typ == miCOMPRESSED {
			body, typ, err = dec.inflate(body)
			if err != nil {
				return nil, err
			}
		}
		if typ != miMATRIX {
			// Subsystem data and padding elements carry no variables.
			continue
		}
		m, err := dec.matrix(body)
		if err != nil {
			return nil, err
		}
		v := m.value
		if opts.Squeeze {
			v = types.Squeeze(v)
		}
		vars = append(vars, types.Variable{Name: m.name, Value: v, Global: m.global})
		if m.global {
			globals = append(globals, m.name)
		}
	}

	doc.Variables = append(doc.Variables,
		types.Variable{Name: "__header__", Value: &types.Text{Rows: []string{h.Text}, Shape: []int{1, len(h.Text)}}},
		types.Variable{Name: "__version__", Value: &types.Text{Rows: []string{"1.0"}, Shape: []int{1, 3}}},
		types.Variable{Name: "__globals__", Value: &types.Text{Rows: globals, Shape: []int{len(globals), 1}}},
	)
	doc.Variables = append(doc.Variables, vars...)
	return doc, nil
}

// inflate decompresses an miCOMPRESSED payload and returns the single data
// element it wraps.
func (d *decoder) inflate(body []byte) ([]byte, uint32, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("opening compressed element: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, fmt.Errorf("inflating compressed element: %w", err)
	}
	inner := &reader{order: d.order, buf: raw}
	typ, data, err := inner.element()
	if err != nil {
		return nil, 0, fmt.Errorf("reading compressed element: %w", err)
	}
	return data, typ, nil
}
