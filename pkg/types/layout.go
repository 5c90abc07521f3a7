// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RowMajor reorders src, stored in MATLAB's column-major (Fortran) order for
// the given shape, into row-major (C) order. src is returned unchanged when
// the reordering is the identity.
func RowMajor[T any](src []T, shape []int) []T {
	if len(src) != product(shape) || nonSingleton(shape) < 2 {
		return src
	}
	rank := len(shape)

	// colStride[k] is the column-major step of axis k.
	colStride := make([]int, rank)
	stride := 1
	for k := 0; k < rank; k++ {
		colStride[k] = stride
		stride *= shape[k]
	}

	out := make([]T, len(src))
	idx := make([]int, rank)
	off := 0
	for i := range out {
		out[i] = src[off]
		// Advance the row-major counter, last axis fastest.
		for k := rank - 1; k >= 0; k-- {
			idx[k]++
			off += colStride[k]
			if idx[k] < shape[k] {
				break
			}
			off -= idx[k] * colStride[k]
			idx[k] = 0
		}
	}
	return out
}

func nonSingleton(shape []int) int {
	n := 0
	for _, d := range shape {
		if d != 1 {
			n++
		}
	}
	return n
}

// Squeeze drops singleton dimensions the way numpy.squeeze does and unwraps
// single-element object arrays. Structs and mappings are squeezed
// recursively; other values are returned as is.
func Squeeze(v Value) Value {
	switch x := v.(type) {
	case *NumericArray:
		return squeezeArray(x)
	case *Struct:
		for _, f := range x.FieldNames {
			x.Fields[f] = Squeeze(x.Fields[f])
		}
		return x
	case *Mapping:
		for _, k := range x.Keys {
			x.Values[k] = Squeeze(x.Values[k])
		}
		return x
	case *Text:
		shape := make([]int, 0, len(x.Shape))
		for _, d := range x.Shape {
			if d != 1 {
				shape = append(shape, d)
			}
		}
		x.Shape = shape
		return x
	default:
		return v
	}
}

func squeezeArray(a *NumericArray) Value {
	if a.Class == ElemObject {
		for i, c := range a.Cells {
			a.Cells[i] = Squeeze(c)
		}
		if len(a.Cells) == 1 {
			return a.Cells[0]
		}
	}
	if a.Len() == 0 {
		return a
	}
	shape := make([]int, 0, len(a.Shape))
	for _, d := range a.Shape {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	a.Shape = shape
	return a
}
