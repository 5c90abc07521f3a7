// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package testutil builds MAT file fixtures for tests. MatWriter encodes the
// level 5 format (little-endian, optionally zlib-compressed) from row-major
// Go values so tests can describe arrays the way they are read back.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

const (
	miINT8       = 1
	miUINT8      = 2
	miINT32      = 5
	miUINT16     = 4
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miMATRIX     = 14
	miCOMPRESSED = 15

	mxCELL   = 1
	mxSTRUCT = 2
	mxCHAR   = 4
	mxSPARSE = 5
	mxDOUBLE = 6
	mxSINGLE = 7
	mxUINT8  = 9
	mxINT32  = 12

	flagComplex = 0x0800
	flagGlobal  = 0x0400
	flagLogical = 0x0200
)

var le = binary.LittleEndian

// MatValue is a value MatWriter can encode.
type MatValue interface {
	body(name string, global bool) []byte
}

// Num is a numeric array. Data and Imag are row-major. Class is one of
// double (default), single, int32, uint8 or logical.
type Num struct {
	Dims  []int
	Data  []float64
	Imag  []float64
	Class string
}

// Char is a char matrix with one string per row; rows are space padded to
// the longest.
type Char struct {
	Rows []string
}

// Cell is a cell array; Cells are row-major.
type Cell struct {
	Dims  []int
	Cells []MatValue
}

// Struct is a struct array; Elems are row-major and each maps every name
// in Fields to a value.
type Struct struct {
	Dims   []int
	Fields []string
	Elems  []map[string]MatValue
}

// Sparse is a sparse double matrix given by its non-zero entries.
type Sparse struct {
	Rows, Cols int
	// Entries are (row, col, value) triples.
	Entries [][3]float64
}

// Scalar returns a 1x1 double.
func Scalar(v float64) Num {
	return Num{Dims: []int{1, 1}, Data: []float64{v}}
}

// Matrix returns a rows x cols double matrix from row-major data.
func Matrix(rows, cols int, data ...float64) Num {
	return Num{Dims: []int{rows, cols}, Data: data}
}

// Seq returns n values 0, 1, ..., n-1.
func Seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// Record returns a 1x1 struct with the given fields in order.
func Record(fields []string, values ...MatValue) Struct {
	m := make(map[string]MatValue, len(fields))
	for i, f := range fields {
		m[f] = values[i]
	}
	return Struct{Dims: []int{1, 1}, Fields: fields, Elems: []map[string]MatValue{m}}
}

// MatWriter accumulates variables of a level 5 MAT file.
type MatWriter struct {
	// Compress wraps every variable in an miCOMPRESSED element.
	Compress bool

	buf bytes.Buffer
}

// NewMatWriter starts a file with the given header text.
func NewMatWriter(text string) *MatWriter {
	w := &MatWriter{}
	hdr := make([]byte, 128)
	for i := range hdr[:116] {
		hdr[i] = ' '
	}
	copy(hdr, text)
	le.PutUint16(hdr[124:], 0x0100)
	copy(hdr[126:], "IM")
	w.buf.Write(hdr)
	return w
}

// Var appends a variable.
func (w *MatWriter) Var(name string, v MatValue) *MatWriter {
	return w.add(name, v, false)
}

// Global appends a variable flagged as global.
func (w *MatWriter) Global(name string, v MatValue) *MatWriter {
	return w.add(name, v, true)
}

func (w *MatWriter) add(name string, v MatValue, global bool) *MatWriter {
	elem := element(miMATRIX, v.body(name, global))
	if w.Compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		zw.Write(elem)
		zw.Close()
		elem = element(miCOMPRESSED, z.Bytes())
	}
	w.buf.Write(elem)
	return w
}

// Bytes returns the encoded file.
func (w *MatWriter) Bytes() []byte {
	return append([]byte(nil), w.buf.Bytes()...)
}

// WriteFile writes the encoded file to dir/name and returns its path.
func (w *MatWriter) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, w.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (n Num) body(name string, global bool) []byte {
	class, typ := uint32(mxDOUBLE), uint32(miDOUBLE)
	var flags uint32
	switch n.Class {
	case "single":
		class, typ = mxSINGLE, miSINGLE
	case "int32":
		class, typ = mxINT32, miINT32
	case "uint8":
		class, typ = mxUINT8, miUINT8
	case "logical":
		class, typ = mxUINT8, miUINT8
		flags |= flagLogical
	}
	if n.Imag != nil {
		flags |= flagComplex
	}
	var b bytes.Buffer
	b.Write(header(class|flags, global, 0, n.Dims, name))
	b.Write(element(typ, encodeNumbers(typ, colMajor(n.Data, n.Dims))))
	if n.Imag != nil {
		b.Write(element(typ, encodeNumbers(typ, colMajor(n.Imag, n.Dims))))
	}
	return b.Bytes()
}

func (c Char) body(name string, global bool) []byte {
	width := 0
	rows := make([][]uint16, len(c.Rows))
	for i, r := range c.Rows {
		rows[i] = utf16.Encode([]rune(r))
		if len(rows[i]) > width {
			width = len(rows[i])
		}
	}
	units := make([]uint16, 0, len(rows)*width)
	for j := 0; j < width; j++ {
		for i := range rows {
			u := uint16(' ')
			if j < len(rows[i]) {
				u = rows[i][j]
			}
			units = append(units, u)
		}
	}
	data := make([]byte, 2*len(units))
	for i, u := range units {
		le.PutUint16(data[2*i:], u)
	}
	var b bytes.Buffer
	b.Write(header(mxCHAR, global, 0, []int{len(c.Rows), width}, name))
	b.Write(element(miUINT16, data))
	return b.Bytes()
}

func (c Cell) body(name string, global bool) []byte {
	var b bytes.Buffer
	b.Write(header(mxCELL, global, 0, c.Dims, name))
	for _, v := range colMajor(c.Cells, c.Dims) {
		b.Write(element(miMATRIX, v.body("", false)))
	}
	return b.Bytes()
}

func (s Struct) body(name string, global bool) []byte {
	nameLen := 1
	for _, f := range s.Fields {
		if len(f)+1 > nameLen {
			nameLen = len(f) + 1
		}
	}
	names := make([]byte, nameLen*len(s.Fields))
	for i, f := range s.Fields {
		copy(names[i*nameLen:], f)
	}
	lenData := make([]byte, 4)
	le.PutUint32(lenData, uint32(nameLen))

	var b bytes.Buffer
	b.Write(header(mxSTRUCT, global, 0, s.Dims, name))
	b.Write(element(miINT32, lenData))
	b.Write(element(miINT8, names))
	for _, e := range colMajor(s.Elems, s.Dims) {
		for _, f := range s.Fields {
			b.Write(element(miMATRIX, e[f].body("", false)))
		}
	}
	return b.Bytes()
}

func (s Sparse) body(name string, global bool) []byte {
	// Build compressed-column storage from the entries.
	byCol := make([][][2]float64, s.Cols)
	for _, e := range s.Entries {
		c := int(e[1])
		byCol[c] = append(byCol[c], [2]float64{e[0], e[2]})
	}
	var ir, jc []float64
	var pr []float64
	jc = append(jc, 0)
	for _, col := range byCol {
		for _, rv := range col {
			ir = append(ir, rv[0])
			pr = append(pr, rv[1])
		}
		jc = append(jc, float64(len(ir)))
	}
	var b bytes.Buffer
	b.Write(header(mxSPARSE, global, len(pr), []int{s.Rows, s.Cols}, name))
	b.Write(element(miINT32, encodeNumbers(miINT32, ir)))
	b.Write(element(miINT32, encodeNumbers(miINT32, jc)))
	b.Write(element(miDOUBLE, encodeNumbers(miDOUBLE, pr)))
	return b.Bytes()
}

func header(classFlags uint32, global bool, nzmax int, dims []int, name string) []byte {
	if global {
		classFlags |= flagGlobal
	}
	flags := make([]byte, 8)
	le.PutUint32(flags, classFlags)
	le.PutUint32(flags[4:], uint32(nzmax))

	d := make([]float64, len(dims))
	for i, v := range dims {
		d[i] = float64(v)
	}
	var b bytes.Buffer
	b.Write(element(miUINT32, flags))
	b.Write(element(miINT32, encodeNumbers(miINT32, d)))
	b.Write(element(miINT8, []byte(name)))
	return b.Bytes()
}

// element encodes a tagged data element, using the small format for
// payloads of four bytes or less (except empty names, which MATLAB writes
// as regular zero-length elements).
func element(typ uint32, data []byte) []byte {
	var b bytes.Buffer
	if len(data) > 0 && len(data) <= 4 && typ != miMATRIX && typ != miCOMPRESSED {
		tag := make([]byte, 8)
		le.PutUint32(tag, uint32(len(data))<<16|typ)
		copy(tag[4:], data)
		b.Write(tag)
		return b.Bytes()
	}
	tag := make([]byte, 8)
	le.PutUint32(tag, typ)
	le.PutUint32(tag[4:], uint32(len(data)))
	b.Write(tag)
	b.Write(data)
	if typ != miCOMPRESSED {
		if pad := (8 - len(data)%8) % 8; pad > 0 {
			b.Write(make([]byte, pad))
		}
	}
	return b.Bytes()
}

func encodeNumbers(typ uint32, vals []float64) []byte {
	var b bytes.Buffer
	for _, v := range vals {
		switch typ {
		case miDOUBLE:
			binary.Write(&b, le, math.Float64bits(v))
		case miSINGLE:
			binary.Write(&b, le, math.Float32bits(float32(v)))
		case miINT32:
			binary.Write(&b, le, int32(v))
		case miUINT32:
			binary.Write(&b, le, uint32(v))
		case miUINT16:
			binary.Write(&b, le, uint16(v))
		case miUINT8:
			b.WriteByte(uint8(v))
		case miINT8:
			b.WriteByte(byte(int8(v)))
		}
	}
	return b.Bytes()
}

// colMajor converts row-major data for shape into column-major order.
func colMajor[T any](rowMajor []T, shape []int) []T {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(rowMajor) != n {
		return rowMajor
	}
	out := make([]T, n)
	rowStride := make([]int, len(shape))
	s := 1
	for k := len(shape) - 1; k >= 0; k-- {
		rowStride[k] = s
		s *= shape[k]
	}
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		off := 0
		for k := range idx {
			off += idx[k] * rowStride[k]
		}
		out[i] = rowMajor[off]
		// Column-major counter: first axis fastest.
		for k := 0; k < len(idx); k++ {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}
