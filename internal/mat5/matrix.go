// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mat5

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// MATLAB array classes stored in the array flags subelement.
const (
	mxCELL     = 1
	mxSTRUCT   = 2
	mxOBJECT   = 3
	mxCHAR     = 4
	mxSPARSE   = 5
	mxDOUBLE   = 6
	mxSINGLE   = 7
	mxINT8     = 8
	mxUINT8    = 9
	mxINT16    = 10
	mxUINT16   = 11
	mxINT32    = 12
	mxUINT32   = 13
	mxINT64    = 14
	mxUINT64   = 15
	mxFUNCTION = 16
	mxOPAQUE   = 17
)

const (
	// maxEmptyElems bounds element counts of arrays whose payload cannot
	// bound them: field-less struct arrays and zero-width char arrays.
	maxEmptyElems = 1 << 16
	// maxDenseElems bounds the dense size of a sparse matrix.
	maxDenseElems = 1 << 28
)

const (
	flagComplex = 0x0800
	flagGlobal  = 0x0400
	flagLogical = 0x0200
)

var numericClassNames = map[uint32]string{
	mxDOUBLE: "double",
	mxSINGLE: "single",
	mxINT8:   "int8",
	mxUINT8:  "uint8",
	mxINT16:  "int16",
	mxUINT16: "uint16",
	mxINT32:  "int32",
	mxUINT32: "uint32",
	mxINT64:  "int64",
	mxUINT64: "uint64",
}

type decoder struct {
	order binary.ByteOrder
}

// matrix is one decoded miMATRIX element.
type matrix struct {
	name   string
	value  types.Value
	global bool
}

// arrayHeader holds the subelements shared by every matrix class.
type arrayHeader struct {
	class   uint32
	complex bool
	global  bool
	logical bool
	nzmax   int
	dims    []int
	name    string
}

// matrix decodes the body of an miMATRIX element.
func (d *decoder) matrix(body []byte) (matrix, error) {
	// Empty cells and struct fields are written as zero-length matrices.
	if len(body) == 0 {
		return matrix{value: &types.NumericArray{Shape: []int{0, 0}, MatClass: "double", Data: []float64{}}}, nil
	}
	r := &reader{order: d.order, buf: body}

	h, err := d.arrayHeader(r)
	if err != nil {
		return matrix{}, err
	}
	m := matrix{name: h.name, global: h.global}
	if h.class == mxOPAQUE {
		m.value = &types.Other{Description: "opaque MATLAB object"}
		return m, nil
	}

	switch {
	case numericClassNames[h.class] != "":
		m.value, err = d.numeric(r, h)
	case h.class == mxCHAR:
		m.value, err = d.char(r, h)
	case h.class == mxCELL:
		m.value, err = d.cell(r, h)
	case h.class == mxSTRUCT:
		m.value, err = d.structArray(r, h, "")
	case h.class == mxOBJECT:
		_, cls, cerr := r.expect("class name", miINT8)
		if cerr != nil {
			return matrix{}, fmt.Errorf("variable %q: %w", h.name, cerr)
		}
		m.value, err = d.structArray(r, h, cstring(cls))
	case h.class == mxSPARSE:
		m.value, err = d.sparse(r, h)
	case h.class == mxFUNCTION:
		m.value = &types.Other{Description: "function handle"}
	default:
		m.value = &types.Other{Description: fmt.Sprintf("unsupported MATLAB class %d", h.class)}
	}
	if err != nil {
		return matrix{}, fmt.Errorf("variable %q: %w", h.name, err)
	}
	return m, nil
}

func (d *decoder) arrayHeader(r *reader) (arrayHeader, error) {
	_, flags, err := r.expect("array flags", miUINT32)
	if err != nil {
		return arrayHeader{}, err
	}
	if len(flags) < 8 {
		return arrayHeader{}, fmt.Errorf("%w: array flags are %d bytes", ErrTruncated, len(flags))
	}
	word := d.order.Uint32(flags)
	h := arrayHeader{
		class:   word & 0xff,
		complex: word&flagComplex != 0,
		global:  word&flagGlobal != 0,
		logical: word&flagLogical != 0,
		nzmax:   int(d.order.Uint32(flags[4:])),
	}

	// Opaque objects carry their name directly after the flags.
	if h.class == mxOPAQUE {
		if _, name, err := r.expect("array name", miINT8); err == nil {
			h.name = string(name)
		}
		return h, nil
	}

	typ, dims, err := r.expect("dimensions", miINT32)
	if err != nil {
		return arrayHeader{}, err
	}
	if h.dims, err = ints(d.order, typ, dims); err != nil {
		return arrayHeader{}, err
	}
	_, name, err := r.expect("array name", miINT8)
	if err != nil {
		return arrayHeader{}, err
	}
	h.name = string(name)

	// Every element of a dense array occupies at least one byte of the
	// remaining body; sparse matrices are bounded when densified.
	limit := len(r.buf) - r.pos
	switch h.class {
	case mxSPARSE:
		limit = maxDenseElems
	case mxSTRUCT, mxOBJECT:
		limit = max(limit, maxEmptyElems)
	}
	if _, err := count(h.dims, limit); err != nil {
		return arrayHeader{}, fmt.Errorf("array %q: %w", h.name, err)
	}
	return h, nil
}

// count returns the number of elements of dims, rejecting negative
// dimensions and counts above limit.
func count(dims []int, limit int) (int, error) {
	for i, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d at axis %d", ErrUnexpectedElement, d, i)
		}
	}
	n := 1
	for _, d := range dims {
		if d != 0 && n > limit/d {
			return 0, fmt.Errorf("%w: dimensions %v exceed %d elements", ErrTruncated, dims, limit)
		}
		n *= d
	}
	if n > limit {
		return 0, fmt.Errorf("%w: dimensions %v exceed %d elements", ErrTruncated, dims, limit)
	}
	return n, nil
}

func (d *decoder) numeric(r *reader, h arrayHeader) (types.Value, error) {
	typ, data, err := r.element()
	if err != nil {
		return nil, fmt.Errorf("reading real part: %w", err)
	}
	re, err := numbers(d.order, typ, data)
	if err != nil {
		return nil, fmt.Errorf("decoding real part: %w", err)
	}
	arr := &types.NumericArray{
		Shape:    h.dims,
		MatClass: numericClassNames[h.class],
		Data:     types.RowMajor(re, h.dims),
	}
	if h.logical {
		arr.MatClass = "logical"
	}
	if h.complex {
		typ, data, err := r.element()
		if err != nil {
			return nil, fmt.Errorf("reading imaginary part: %w", err)
		}
		im, err := numbers(d.order, typ, data)
		if err != nil {
			return nil, fmt.Errorf("decoding imaginary part: %w", err)
		}
		arr.Imag = types.RowMajor(im, h.dims)
	}
	if err := arr.Validate(); err != nil {
		return nil, err
	}
	return arr, nil
}

// char decodes a char array into one string per row. Characters are stored
// column-major as UTF-16 code units (or bytes for the UTF-8 types).
func (d *decoder) char(r *reader, h arrayHeader) (types.Value, error) {
	typ, data, err := r.element()
	if err != nil {
		return nil, fmt.Errorf("reading characters: %w", err)
	}
	rows, cols := 0, 0
	if len(h.dims) > 0 {
		rows = h.dims[0]
		cols = 1
		for _, dim := range h.dims[1:] {
			cols *= dim
		}
	}
	if cols == 0 && rows > maxEmptyElems {
		return nil, fmt.Errorf("%w: %d empty character rows", ErrUnexpectedElement, rows)
	}
	text := &types.Text{Shape: h.dims, Rows: make([]string, rows)}

	switch typ {
	case miUINT16, miUTF16:
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = d.order.Uint16(data[2*i:])
		}
		if len(units) != rows*cols {
			text.Rows = []string{DecodeUTF16(units)}
			return text, nil
		}
		for i := 0; i < rows; i++ {
			row := make([]uint16, cols)
			for j := 0; j < cols; j++ {
				row[j] = units[i+rows*j]
			}
			text.Rows[i] = DecodeUTF16(row)
		}
	case miUTF8, miUINT8, miINT8:
		runes := []rune(string(data))
		if !utf8.Valid(data) || len(runes) != rows*cols {
			text.Rows = []string{strings.ToValidUTF8(string(data), "�")}
			return text, nil
		}
		for i := 0; i < rows; i++ {
			var b strings.Builder
			for j := 0; j < cols; j++ {
				b.WriteRune(runes[i+rows*j])
			}
			text.Rows[i] = b.String()
		}
	case miUTF32:
		vals, err := numbers(d.order, miUINT32, data)
		if err != nil {
			return nil, err
		}
		if len(vals) != rows*cols {
			return nil, fmt.Errorf("%w: %d characters for shape %v", types.ErrShapeMismatch, len(vals), h.dims)
		}
		for i := 0; i < rows; i++ {
			var b strings.Builder
			for j := 0; j < cols; j++ {
				b.WriteRune(rune(vals[i+rows*j]))
			}
			text.Rows[i] = b.String()
		}
	default:
		return nil, fmt.Errorf("%w: character data of type %d", ErrUnexpectedElement, typ)
	}
	return text, nil
}

// DecodeUTF16 decodes MATLAB character code units. Surrogate pairs are
// joined and unpaired surrogates replaced; trailing NULs are dropped.
func DecodeUTF16(units []uint16) string {
	raw := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(raw[2*i:], u)
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return strings.TrimRight(string(out), "\x00")
}

func (d *decoder) cell(r *reader, h arrayHeader) (types.Value, error) {
	n := 1
	for _, dim := range h.dims {
		n *= dim
	}
	cells := make([]types.Value, n)
	for i := range cells {
		_, body, err := r.expect(fmt.Sprintf("cell %d", i), miMATRIX)
		if err != nil {
			return nil, err
		}
		m, err := d.matrix(body)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		cells[i] = m.value
	}
	return &types.NumericArray{
		Shape:    h.dims,
		Class:    types.ElemObject,
		MatClass: "cell",
		Cells:    types.RowMajor(cells, h.dims),
	}, nil
}

// structArray decodes struct and object arrays. A struct array whose fields
// are all real numeric scalars becomes a structured array; anything else is
// an object array of *types.Struct cells.
func (d *decoder) structArray(r *reader, h arrayHeader, className string) (types.Value, error) {
	typ, lenData, err := r.expect("field name length", miINT32)
	if err != nil {
		return nil, err
	}
	lens, err := ints(d.order, typ, lenData)
	if err != nil || len(lens) == 0 || lens[0] <= 0 {
		return nil, fmt.Errorf("%w: bad field name length", ErrUnexpectedElement)
	}
	nameLen := lens[0]

	_, raw, err := r.expect("field names", miINT8)
	if err != nil {
		return nil, err
	}
	var fields []string
	for off := 0; off+nameLen <= len(raw); off += nameLen {
		fields = append(fields, cstring(raw[off:off+nameLen]))
	}

	n := 1
	for _, dim := range h.dims {
		n *= dim
	}
	// Each field value is a tagged element of at least eight bytes.
	if len(fields) > 0 && n > (len(r.buf)-r.pos)/(8*len(fields)) {
		return nil, fmt.Errorf("%w: %d elements of %d fields in %d bytes", ErrTruncated, n, len(fields), len(r.buf)-r.pos)
	}
	elems := make([]*types.Struct, n)
	for i := range elems {
		s := &types.Struct{
			ClassName:  className,
			FieldNames: fields,
			Fields:     make(map[string]types.Value, len(fields)),
		}
		for _, f := range fields {
			_, body, err := r.expect(fmt.Sprintf("field %q of element %d", f, i), miMATRIX)
			if err != nil {
				return nil, err
			}
			m, err := d.matrix(body)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f, err)
			}
			s.Fields[f] = m.value
		}
		elems[i] = s
	}
	elems = types.RowMajor(elems, h.dims)

	matClass := "struct"
	if className != "" {
		matClass = className
	}
	if cols, ok := scalarColumns(fields, elems); ok && n > 1 {
		return &types.NumericArray{
			Shape:    h.dims,
			Class:    types.ElemStructured,
			MatClass: matClass,
			Fields:   fields,
			Columns:  cols,
		}, nil
	}
	cells := make([]types.Value, n)
	for i, s := range elems {
		cells[i] = s
	}
	return &types.NumericArray{
		Shape:    h.dims,
		Class:    types.ElemObject,
		MatClass: matClass,
		Cells:    cells,
	}, nil
}

// scalarColumns gathers field values into columns when every field of every
// element is a real numeric scalar.
func scalarColumns(fields []string, elems []*types.Struct) (map[string][]float64, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	cols := make(map[string][]float64, len(fields))
	for _, f := range fields {
		col := make([]float64, len(elems))
		for i, s := range elems {
			a, ok := s.Fields[f].(*types.NumericArray)
			if !ok || a.Class != types.ElemNumeric || a.IsComplex() || len(a.Data) != 1 {
				return nil, false
			}
			col[i] = a.Data[0]
		}
		cols[f] = col
	}
	return cols, true
}

// sparse densifies a compressed-column sparse matrix.
func (d *decoder) sparse(r *reader, h arrayHeader) (types.Value, error) {
	if len(h.dims) != 2 {
		return nil, fmt.Errorf("%w: sparse matrix with %d dimensions", types.ErrShapeMismatch, len(h.dims))
	}
	rows, cols := h.dims[0], h.dims[1]

	typ, data, err := r.expect("row indices", miINT32)
	if err != nil {
		return nil, err
	}
	ir, err := ints(d.order, typ, data)
	if err != nil {
		return nil, err
	}
	typ, data, err = r.expect("column indices", miINT32)
	if err != nil {
		return nil, err
	}
	jc, err := ints(d.order, typ, data)
	if err != nil {
		return nil, err
	}
	if len(jc) < cols+1 {
		return nil, fmt.Errorf("%w: %d column pointers for %d columns", ErrTruncated, len(jc), cols)
	}
	if jc[0] < 0 || jc[cols] > len(ir) {
		return nil, fmt.Errorf("%w: column pointers %d..%d outside %d row indices", ErrUnexpectedElement, jc[0], jc[cols], len(ir))
	}
	for j := 0; j < cols; j++ {
		if jc[j+1] < jc[j] {
			return nil, fmt.Errorf("%w: column pointer %d decreases", ErrUnexpectedElement, j+1)
		}
	}
	for k := jc[0]; k < jc[cols]; k++ {
		if ir[k] < 0 || ir[k] >= rows {
			return nil, fmt.Errorf("%w: row index %d outside %d rows", ErrUnexpectedElement, ir[k], rows)
		}
	}

	typ, data, err = r.element()
	if err != nil {
		return nil, fmt.Errorf("reading sparse values: %w", err)
	}
	pr, err := numbers(d.order, typ, data)
	if err != nil {
		return nil, err
	}
	var pi []float64
	if h.complex {
		typ, data, err = r.element()
		if err != nil {
			return nil, fmt.Errorf("reading sparse imaginary values: %w", err)
		}
		if pi, err = numbers(d.order, typ, data); err != nil {
			return nil, err
		}
	}

	re := make([]float64, rows*cols)
	var im []float64
	if h.complex {
		im = make([]float64, rows*cols)
	}
	for j := 0; j < cols; j++ {
		for k := jc[j]; k < jc[j+1]; k++ {
			// Logical sparse matrices may omit the value array.
			v := 1.0
			if k < len(pr) {
				v = pr[k]
			}
			re[ir[k]+rows*j] = v
			if im != nil && k < len(pi) {
				im[ir[k]+rows*j] = pi[k]
			}
		}
	}
	arr := &types.NumericArray{
		Shape:    h.dims,
		MatClass: "sparse",
		Data:     types.RowMajor(re, h.dims),
	}
	if im != nil {
		arr.Imag = types.RowMajor(im, h.dims)
	}
	return arr, nil
}

func cstring(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
