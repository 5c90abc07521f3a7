// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindArray Kind = iota
	KindStruct
	KindMapping
	KindText
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindMapping:
		return "mapping"
	case KindText:
		return "text"
	default:
		return "other"
	}
}

// Value is one node of a loaded MAT document. The set of implementations is
// closed: *NumericArray, *Struct, *Mapping, *Text and *Other.
type Value interface {
	Kind() Kind
}

// ElemClass describes what the elements of a NumericArray hold.
type ElemClass int

const (
	// ElemNumeric arrays carry plain numbers in Data (and Imag when complex).
	ElemNumeric ElemClass = iota
	// ElemStructured arrays carry one numeric column per named field.
	ElemStructured
	// ElemObject arrays carry arbitrary Values in Cells.
	ElemObject
)

func (c ElemClass) String() string {
	switch c {
	case ElemStructured:
		return "structured"
	case ElemObject:
		return "object"
	default:
		return "numeric"
	}
}

// ErrShapeMismatch is returned by Validate when an array's payload does not
// agree with its shape.
var ErrShapeMismatch = errors.New("shape mismatch")

// NumericArray is an N-dimensional array stored in row-major order.
type NumericArray struct {
	Shape    []int
	Class    ElemClass
	MatClass string

	Data []float64
	Imag []float64

	Fields  []string
	Columns map[string][]float64

	Cells []Value
}

func (a *NumericArray) Kind() Kind { return KindArray }

// Rank returns the number of dimensions.
func (a *NumericArray) Rank() int { return len(a.Shape) }

// Len returns the number of elements (the product of the shape). A rank-0
// array holds one element.
func (a *NumericArray) Len() int {
	return product(a.Shape)
}

// IsComplex reports whether the array carries an imaginary part.
func (a *NumericArray) IsComplex() bool { return a.Imag != nil }

// ShapeString formats the shape the way diagnostics print it, e.g. "(3, 4)".
func (a *NumericArray) ShapeString() string {
	return FormatShape(a.Shape)
}

// Validate checks that the payload agrees with the shape.
func (a *NumericArray) Validate() error {
	for i, d := range a.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension %d at axis %d", ErrShapeMismatch, d, i)
		}
	}
	n := a.Len()
	switch a.Class {
	case ElemNumeric:
		if len(a.Data) != n {
			return fmt.Errorf("%w: shape %s needs %d values, have %d", ErrShapeMismatch, a.ShapeString(), n, len(a.Data))
		}
		if a.Imag != nil && len(a.Imag) != n {
			return fmt.Errorf("%w: imaginary part has %d values, want %d", ErrShapeMismatch, len(a.Imag), n)
		}
	case ElemStructured:
		for _, f := range a.Fields {
			col, ok := a.Columns[f]
			if !ok {
				return fmt.Errorf("%w: missing column %q", ErrShapeMismatch, f)
			}
			if len(col) != n {
				return fmt.Errorf("%w: column %q has %d values, want %d", ErrShapeMismatch, f, len(col), n)
			}
		}
	case ElemObject:
		if len(a.Cells) != n {
			return fmt.Errorf("%w: shape %s needs %d cells, have %d", ErrShapeMismatch, a.ShapeString(), n, len(a.Cells))
		}
	}
	return nil
}

// Slice returns the sub-array at index i of the leading dimension. The result
// has rank Rank()-1 and shares no storage with a.
func (a *NumericArray) Slice(i int) (*NumericArray, error) {
	if a.Rank() == 0 {
		return nil, fmt.Errorf("%w: cannot slice a rank-0 array", ErrShapeMismatch)
	}
	if i < 0 || i >= a.Shape[0] {
		return nil, fmt.Errorf("index %d out of range for leading dimension %d", i, a.Shape[0])
	}
	inner := product(a.Shape[1:])
	lo, hi := i*inner, (i+1)*inner

	out := &NumericArray{
		Shape:    append([]int(nil), a.Shape[1:]...),
		Class:    a.Class,
		MatClass: a.MatClass,
		Fields:   a.Fields,
	}
	switch a.Class {
	case ElemNumeric:
		out.Data = append([]float64(nil), a.Data[lo:hi]...)
		if a.Imag != nil {
			out.Imag = append([]float64(nil), a.Imag[lo:hi]...)
		}
	case ElemStructured:
		out.Columns = make(map[string][]float64, len(a.Fields))
		for _, f := range a.Fields {
			out.Columns[f] = append([]float64(nil), a.Columns[f][lo:hi]...)
		}
	case ElemObject:
		out.Cells = append([]Value(nil), a.Cells[lo:hi]...)
	}
	return out, nil
}

// Reshape returns a view of a with a different shape holding the same number
// of elements. Element order is unchanged.
func (a *NumericArray) Reshape(shape ...int) (*NumericArray, error) {
	if product(shape) != a.Len() {
		return nil, fmt.Errorf("%w: cannot reshape %s into %s", ErrShapeMismatch, a.ShapeString(), FormatShape(shape))
	}
	out := *a
	out.Shape = append([]int(nil), shape...)
	return &out, nil
}

// Struct is a MATLAB struct (or class object) with ordered field names.
type Struct struct {
	ClassName  string
	FieldNames []string
	Fields     map[string]Value
}

func (s *Struct) Kind() Kind { return KindStruct }

// Field returns the value stored under name.
func (s *Struct) Field(name string) (Value, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// Mapping is a generic ordered key/value container, e.g. an HDF5 group that
// is not a MATLAB struct.
type Mapping struct {
	Keys   []string
	Values map[string]Value
}

func (m *Mapping) Kind() Kind { return KindMapping }

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// Set appends key (if new) and stores v under it.
func (m *Mapping) Set(key string, v Value) {
	if m.Values == nil {
		m.Values = make(map[string]Value)
	}
	if _, ok := m.Values[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = v
}

// Text is MATLAB character data. A char matrix holds one string per row.
type Text struct {
	Rows  []string
	Shape []int
}

func (t *Text) Kind() Kind { return KindText }

// String joins the rows with newlines.
func (t *Text) String() string { return strings.Join(t.Rows, "\n") }

// Other is a value that was recognised but cannot be exported, optionally
// carrying the error that prevented it from loading.
type Other struct {
	Description string
	Err         error
}

func (o *Other) Kind() Kind { return KindOther }

// Describe returns a short human-readable description of v for diagnostics.
func Describe(v Value) string {
	switch x := v.(type) {
	case *NumericArray:
		cls := x.MatClass
		if cls == "" {
			cls = x.Class.String()
		}
		return fmt.Sprintf("%s array %s", cls, x.ShapeString())
	case *Struct:
		if x.ClassName != "" {
			return fmt.Sprintf("%s object with fields %v", x.ClassName, x.FieldNames)
		}
		return fmt.Sprintf("struct with fields %v", x.FieldNames)
	case *Mapping:
		return fmt.Sprintf("mapping with keys %v", x.Keys)
	case *Text:
		return fmt.Sprintf("char %s", FormatShape(x.Shape))
	case *Other:
		if x.Err != nil {
			return fmt.Sprintf("%s (%v)", x.Description, x.Err)
		}
		return x.Description
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FormatShape renders a shape as "(d0, d1, ...)"; rank 0 is "()".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
