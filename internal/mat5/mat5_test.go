// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mat5

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mat2csv/internal/testutil"
	"github.com/pdiddy/mat2csv/pkg/types"
)

func decode(t *testing.T, w *testutil.MatWriter, squeeze bool) *types.Document {
	t.Helper()
	doc, err := Decode(w.Bytes(), Options{Squeeze: squeeze})
	require.NoError(t, err)
	return doc
}

func lookup(t *testing.T, doc *types.Document, name string) types.Value {
	t.Helper()
	v, ok := doc.Lookup(name)
	require.True(t, ok, "variable %q not found", name)
	return v
}

func TestReadHeader(t *testing.T) {
	w := testutil.NewMatWriter("MATLAB 5.0 MAT-file, test")
	h, err := ReadHeader(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "MATLAB 5.0 MAT-file, test", h.Text)
	assert.Equal(t, Version, h.Version)
	assert.Equal(t, binary.LittleEndian, h.Order)

	_, err = ReadHeader([]byte("short"))
	assert.True(t, errors.Is(err, ErrNotMAT))

	bad := w.Bytes()
	copy(bad[126:], "XX")
	_, err = ReadHeader(bad)
	assert.True(t, errors.Is(err, ErrNotMAT))
}

func TestDecode_HDF5VersionRejected(t *testing.T) {
	data := testutil.NewMatWriter("v7.3").Bytes()
	binary.LittleEndian.PutUint16(data[124:], VersionHDF5)

	_, err := Decode(data, Options{})
	assert.ErrorIs(t, err, ErrNotMAT)
}

func TestDecode_Numeric(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			w := testutil.NewMatWriter("numeric")
			w.Compress = compress
			w.Var("m", testutil.Matrix(2, 3, 1, 2, 3, 4, 5, 6))
			w.Var("i", testutil.Num{Dims: []int{1, 3}, Data: []float64{-1, 0, 7}, Class: "int32"})
			w.Var("z", testutil.Num{Dims: []int{1, 2}, Data: []float64{1, 2}, Imag: []float64{3, 4}})

			doc := decode(t, w, false)
			assert.Equal(t, types.FormatV5, doc.Format)

			m := lookup(t, doc, "m").(*types.NumericArray)
			assert.Equal(t, []int{2, 3}, m.Shape)
			assert.Equal(t, "double", m.MatClass)
			assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, m.Data, "data must come back row-major")

			i := lookup(t, doc, "i").(*types.NumericArray)
			assert.Equal(t, "int32", i.MatClass)
			assert.Equal(t, []float64{-1, 0, 7}, i.Data)

			z := lookup(t, doc, "z").(*types.NumericArray)
			assert.True(t, z.IsComplex())
			assert.Equal(t, []float64{3, 4}, z.Imag)
		})
	}
}

func TestDecode_ThreeDimensional(t *testing.T) {
	w := testutil.NewMatWriter("3d")
	w.Var("t", testutil.Num{Dims: []int{2, 3, 4}, Data: testutil.Seq(24)})

	doc := decode(t, w, false)
	arr := lookup(t, doc, "t").(*types.NumericArray)
	assert.Equal(t, []int{2, 3, 4}, arr.Shape)
	assert.Equal(t, testutil.Seq(24), arr.Data)

	s, err := arr.Slice(1)
	require.NoError(t, err)
	assert.Equal(t, 12.0, s.Data[0])
}

func TestDecode_Metadata(t *testing.T) {
	w := testutil.NewMatWriter("meta")
	w.Global("g", testutil.Scalar(1))
	w.Var("x", testutil.Scalar(2))

	doc := decode(t, w, true)
	names := make([]string, len(doc.Variables))
	for i, v := range doc.Variables {
		names[i] = v.Name
	}
	assert.Equal(t, []string{"__header__", "__version__", "__globals__", "g", "x"}, names)

	globals := lookup(t, doc, "__globals__").(*types.Text)
	assert.Equal(t, []string{"g"}, globals.Rows)
	assert.True(t, doc.Variables[3].Global)
}

func TestDecode_Char(t *testing.T) {
	w := testutil.NewMatWriter("char")
	w.Var("s", testutil.Char{Rows: []string{"héllo"}})
	w.Var("rows", testutil.Char{Rows: []string{"ab", "cd"}})

	doc := decode(t, w, true)
	s := lookup(t, doc, "s").(*types.Text)
	assert.Equal(t, "héllo", s.String())

	rows := lookup(t, doc, "rows").(*types.Text)
	assert.Equal(t, []string{"ab", "cd"}, rows.Rows)
}

func TestDecode_Logical(t *testing.T) {
	w := testutil.NewMatWriter("logical")
	w.Var("b", testutil.Num{Dims: []int{1, 3}, Data: []float64{1, 0, 1}, Class: "logical"})

	b := lookup(t, decode(t, w, true), "b").(*types.NumericArray)
	assert.Equal(t, "logical", b.MatClass)
	assert.Equal(t, []int{3}, b.Shape)
}

func TestDecode_Sparse(t *testing.T) {
	w := testutil.NewMatWriter("sparse")
	w.Var("sp", testutil.Sparse{Rows: 2, Cols: 3, Entries: [][3]float64{{0, 0, 5}, {1, 2, 7}}})

	sp := lookup(t, decode(t, w, false), "sp").(*types.NumericArray)
	assert.Equal(t, "sparse", sp.MatClass)
	assert.Equal(t, []float64{5, 0, 0, 0, 0, 7}, sp.Data)
}

func TestDecode_Cell(t *testing.T) {
	w := testutil.NewMatWriter("cell")
	w.Var("c", testutil.Cell{Dims: []int{1, 2}, Cells: []testutil.MatValue{
		testutil.Matrix(1, 2, 1, 2),
		testutil.Char{Rows: []string{"x"}},
	}})
	w.Var("one", testutil.Cell{Dims: []int{1, 1}, Cells: []testutil.MatValue{testutil.Matrix(1, 2, 3, 4)}})

	raw := decode(t, w, false)
	c := lookup(t, raw, "c").(*types.NumericArray)
	assert.Equal(t, types.ElemObject, c.Class)
	assert.Equal(t, "cell", c.MatClass)
	require.Len(t, c.Cells, 2)
	assert.Equal(t, types.KindArray, c.Cells[0].Kind())
	assert.Equal(t, types.KindText, c.Cells[1].Kind())

	one := lookup(t, raw, "one").(*types.NumericArray)
	assert.Equal(t, []int{1, 1}, one.Shape)

	squeezed := decode(t, w, true)
	inner := lookup(t, squeezed, "one").(*types.NumericArray)
	assert.Equal(t, types.ElemNumeric, inner.Class, "single-element cell unwraps when squeezed")
	assert.Equal(t, []int{2}, inner.Shape)
}

func TestDecode_Struct(t *testing.T) {
	w := testutil.NewMatWriter("struct")
	w.Var("battery", testutil.Record(
		[]string{"cycle", "label", "meta"},
		testutil.Matrix(3, 4, testutil.Seq(12)...),
		testutil.Char{Rows: []string{"abc"}},
		testutil.Record([]string{"temp"}, testutil.Scalar(24)),
	))

	doc := decode(t, w, true)
	s, ok := lookup(t, doc, "battery").(*types.Struct)
	require.True(t, ok, "1x1 struct must squeeze to a Struct")
	assert.Equal(t, []string{"cycle", "label", "meta"}, s.FieldNames)

	cycle := s.Fields["cycle"].(*types.NumericArray)
	assert.Equal(t, []int{3, 4}, cycle.Shape)

	meta := s.Fields["meta"].(*types.Struct)
	temp := meta.Fields["temp"].(*types.NumericArray)
	assert.Equal(t, 0, temp.Rank())
	assert.Equal(t, []float64{24}, temp.Data)

	raw := decode(t, w, false)
	wrapped := lookup(t, raw, "battery").(*types.NumericArray)
	assert.Equal(t, types.ElemObject, wrapped.Class)
	assert.Equal(t, []int{1, 1}, wrapped.Shape)
}

func TestDecode_StructuredArray(t *testing.T) {
	elems := []map[string]testutil.MatValue{
		{"a": testutil.Scalar(1), "b": testutil.Scalar(10)},
		{"a": testutil.Scalar(2), "b": testutil.Scalar(20)},
		{"a": testutil.Scalar(3), "b": testutil.Scalar(30)},
	}
	w := testutil.NewMatWriter("structured")
	w.Var("rec", testutil.Struct{Dims: []int{1, 3}, Fields: []string{"a", "b"}, Elems: elems})

	rec := lookup(t, decode(t, w, false), "rec").(*types.NumericArray)
	assert.Equal(t, types.ElemStructured, rec.Class)
	assert.Equal(t, []string{"a", "b"}, rec.Fields)
	assert.Equal(t, []float64{1, 2, 3}, rec.Columns["a"])
	assert.Equal(t, []float64{10, 20, 30}, rec.Columns["b"])
}

func TestDecode_StructArrayOfRecords(t *testing.T) {
	elems := []map[string]testutil.MatValue{
		{"v": testutil.Matrix(1, 2, 1, 2)},
		{"v": testutil.Matrix(1, 3, 1, 2, 3)},
	}
	w := testutil.NewMatWriter("records")
	w.Var("cycle", testutil.Struct{Dims: []int{1, 2}, Fields: []string{"v"}, Elems: elems})

	cycle := lookup(t, decode(t, w, true), "cycle").(*types.NumericArray)
	assert.Equal(t, types.ElemObject, cycle.Class)
	assert.Equal(t, []int{2}, cycle.Shape)
	second := cycle.Cells[1].(*types.Struct)
	assert.Equal(t, []int{3}, second.Fields["v"].(*types.NumericArray).Shape)
}

func TestDecode_Truncated(t *testing.T) {
	w := testutil.NewMatWriter("trunc")
	w.Var("m", testutil.Matrix(2, 2, 1, 2, 3, 4))
	data := w.Bytes()

	_, err := Decode(data[:len(data)-20], Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		value   testutil.MatValue
		wantErr error
	}{
		{
			name:    "sparse row index out of range",
			value:   testutil.Sparse{Rows: 2, Cols: 2, Entries: [][3]float64{{5, 1, 7}}},
			wantErr: ErrUnexpectedElement,
		},
		{
			name:    "negative cell dimension",
			value:   testutil.Cell{Dims: []int{-1, 1}},
			wantErr: ErrUnexpectedElement,
		},
		{
			name:    "dimensions larger than payload",
			value:   testutil.Num{Dims: []int{1 << 20, 1 << 20}, Data: []float64{1}},
			wantErr: ErrTruncated,
		},
		{
			name:    "struct elements larger than payload",
			value:   testutil.Struct{Dims: []int{1000, 1}, Fields: []string{"a"}},
			wantErr: ErrTruncated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewMatWriter("bad").Var("x", tt.value)
			var err error
			require.NotPanics(t, func() {
				_, err = Decode(w.Bytes(), Options{})
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
