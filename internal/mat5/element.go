// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mat5

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Data element types.
const (
	miINT8       uint32 = 1
	miUINT8      uint32 = 2
	miINT16      uint32 = 3
	miUINT16     uint32 = 4
	miINT32      uint32 = 5
	miUINT32     uint32 = 6
	miSINGLE     uint32 = 7
	miDOUBLE     uint32 = 9
	miINT64      uint32 = 12
	miUINT64     uint32 = 13
	miMATRIX     uint32 = 14
	miCOMPRESSED uint32 = 15
	miUTF8       uint32 = 16
	miUTF16      uint32 = 17
	miUTF32      uint32 = 18
)

// reader walks the data elements of one container (the file body, a
// decompressed element or the body of a matrix).
type reader struct {
	order binary.ByteOrder
	buf   []byte
	pos   int
}

func (r *reader) more() bool {
	// Anything shorter than a tag is trailing padding.
	return len(r.buf)-r.pos >= 8
}

// element returns the type and payload of the next data element and advances
// past it, including padding to the next 8-byte boundary.
func (r *reader) element() (uint32, []byte, error) {
	if !r.more() {
		return 0, nil, ErrTruncated
	}
	word := r.order.Uint32(r.buf[r.pos:])

	// Small data element: byte count in the upper half of the type word and
	// the payload packed into the following four bytes.
	if n := word >> 16; n != 0 {
		if n > 4 {
			return 0, nil, fmt.Errorf("%w: small element claims %d bytes", ErrTruncated, n)
		}
		typ := word & 0xffff
		data := r.buf[r.pos+4 : r.pos+4+int(n)]
		r.pos += 8
		return typ, data, nil
	}

	n := int(r.order.Uint32(r.buf[r.pos+4:]))
	start := r.pos + 8
	if n < 0 || start+n > len(r.buf) {
		return 0, nil, fmt.Errorf("%w: element of type %d needs %d bytes, %d left", ErrTruncated, word, n, len(r.buf)-start)
	}
	data := r.buf[start : start+n]
	r.pos = start + n
	if word != miCOMPRESSED {
		if pad := (8 - n%8) % 8; r.pos+pad <= len(r.buf) {
			r.pos += pad
		} else {
			r.pos = len(r.buf)
		}
	}
	return word, data, nil
}

// expect reads the next element and checks its type against want.
func (r *reader) expect(what string, want ...uint32) (uint32, []byte, error) {
	typ, data, err := r.element()
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w", what, err)
	}
	for _, w := range want {
		if typ == w {
			return typ, data, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: %s has type %d", ErrUnexpectedElement, what, typ)
}

// elemSize returns the byte width of one value of a numeric element type.
func elemSize(typ uint32) int {
	switch typ {
	case miINT8, miUINT8, miUTF8:
		return 1
	case miINT16, miUINT16, miUTF16:
		return 2
	case miINT32, miUINT32, miSINGLE, miUTF32:
		return 4
	case miDOUBLE, miINT64, miUINT64:
		return 8
	default:
		return 0
	}
}

// numbers decodes a numeric element payload into float64 values.
func numbers(order binary.ByteOrder, typ uint32, data []byte) ([]float64, error) {
	size := elemSize(typ)
	if size == 0 || typ == miUTF8 || typ == miUTF16 || typ == miUTF32 {
		return nil, fmt.Errorf("%w: type %d is not numeric", ErrUnexpectedElement, typ)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrTruncated, len(data), size)
	}
	out := make([]float64, len(data)/size)
	for i := range out {
		b := data[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(order.Uint16(b)))
		case miUINT16:
			out[i] = float64(order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(order.Uint32(b)))
		case miUINT32:
			out[i] = float64(order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(order.Uint64(b)))
		case miUINT64:
			out[i] = float64(order.Uint64(b))
		}
	}
	return out, nil
}

// ints decodes an integer element payload (dimensions, sparse indices).
func ints(order binary.ByteOrder, typ uint32, data []byte) ([]int, error) {
	vals, err := numbers(order, typ, data)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out, nil
}
