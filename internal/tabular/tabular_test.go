// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tabular

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pdiddy/mat2csv/pkg/types"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	require.NoError(t, err)
	return recs
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{1e21, "1e+21"},
		{math.NaN(), ""},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in))
	}
	assert.Equal(t, "(1+2i)", FormatComplex(1, 2))
}

func TestFromMatrix(t *testing.T) {
	a := &types.NumericArray{Shape: []int{2, 3}, Data: []float64{1, 2, 3, 4, 5, 6}}
	tbl, err := FromMatrix(a, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, tbl.Header)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", "6"}}, tbl.Rows)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumCols())

	vec := &types.NumericArray{Shape: []int{3}, Data: []float64{7, 8, 9}}
	tbl, err = FromMatrix(vec, false)
	require.NoError(t, err)
	assert.Nil(t, tbl.Header)
	assert.Equal(t, [][]string{{"7"}, {"8"}, {"9"}}, tbl.Rows)

	scalar := &types.NumericArray{Shape: []int{}, Data: []float64{4}}
	tbl, err = FromMatrix(scalar, true)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"4"}}, tbl.Rows)
}

func TestFromMatrix_Objects(t *testing.T) {
	cells := &types.NumericArray{
		Shape: []int{1, 2},
		Class: types.ElemObject,
		Cells: []types.Value{
			&types.NumericArray{Shape: []int{}, Data: []float64{3}},
			&types.Text{Rows: []string{"charge"}, Shape: []int{6}},
		},
	}
	tbl, err := FromMatrix(cells, true)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"3", "charge"}}, tbl.Rows)

	cells.Cells[0] = &types.NumericArray{Shape: []int{2}, Data: []float64{1, 2}}
	_, err = FromMatrix(cells, true)
	assert.ErrorIs(t, err, ErrNotTabular)

	rank3 := &types.NumericArray{Shape: []int{1, 1, 2}, Data: []float64{1, 2}}
	_, err = FromMatrix(rank3, true)
	assert.ErrorIs(t, err, ErrNotTabular)
}

func TestFromColumns(t *testing.T) {
	a := &types.NumericArray{
		Shape:   []int{3},
		Class:   types.ElemStructured,
		Fields:  []string{"t", "v"},
		Columns: map[string][]float64{"t": {0, 1, 2}, "v": {4.2, 4.1, 4}},
	}
	tbl, err := FromColumns(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "v"}, tbl.Header)
	assert.Equal(t, [][]string{{"0", "4.2"}, {"1", "4.1"}, {"2", "4"}}, tbl.Rows)

	a.Columns["v"] = a.Columns["v"][:2]
	_, err = FromColumns(a)
	assert.ErrorIs(t, err, types.ErrShapeMismatch)
}

func TestFlatten(t *testing.T) {
	// [[1 2] [3 4]] flattened column by column.
	a := &types.NumericArray{Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}}
	got, err := Flatten(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2", "4"}, got)

	ragged := &types.NumericArray{
		Shape: []int{2, 1},
		Class: types.ElemObject,
		Cells: []types.Value{
			&types.NumericArray{Shape: []int{2}, Data: []float64{1, 2}},
			&types.NumericArray{Shape: []int{3}, Data: []float64{3, 4, 5}},
		},
	}
	got, err = Flatten(ragged)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)

	ragged.Cells[1] = &types.Struct{}
	_, err = Flatten(ragged)
	assert.ErrorIs(t, err, ErrNotTabular)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	tbl := Table{Header: []string{"0", "1"}, Rows: [][]string{{"1", "2"}, {"3", ""}}}
	require.NoError(t, WriteCSV(path, tbl))

	assert.Equal(t, [][]string{{"0", "1"}, {"1", "2"}, {"3", ""}}, readCSV(t, path))

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(path, tbl))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "rewriting must be byte-identical")
}

func TestWriteDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.csv")
	require.NoError(t, WriteDump(path, Column([]string{"1", "", "2"})))
	assert.Equal(t, [][]string{{"1"}, {""}, {"2"}}, readCSV(t, path))
}

func TestWriteNPY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.npy")
	require.NoError(t, WriteNPY(path, []int{2, 2}, []float64{1, 2, 3, 4}, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte(npyMagic+"\x01\x00")))

	hlen := int(binary.LittleEndian.Uint16(raw[8:10]))
	assert.Zero(t, (10+hlen)%64, "data must be 64-byte aligned")
	header := string(raw[10 : 10+hlen])
	assert.Contains(t, header, "'descr': '<f8'")
	assert.Contains(t, header, "'shape': (2, 2)")

	body := raw[10+hlen:]
	require.Len(t, body, 32)
	assert.Equal(t, 3.0, math.Float64frombits(binary.LittleEndian.Uint64(body[16:24])))

	assert.Error(t, WriteNPY(path, []int{3}, []float64{1}, nil))
}

func TestNPYHeader(t *testing.T) {
	assert.Contains(t, npyHeader([]int{5}, false), "'shape': (5,)")
	assert.Contains(t, npyHeader([]int{}, true), "'descr': '<c16'")
	assert.Contains(t, npyHeader([]int{}, true), "'shape': ()")
}

func TestWriteMsgpack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.msgpack")
	in := []any{1.5, "two", map[string]any{"k": []any{3.0}}}
	require.NoError(t, WriteMsgpack(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []any
	require.NoError(t, msgpack.Unmarshal(raw, &out))
	require.Len(t, out, 3)
	assert.Equal(t, 1.5, out[0])
	assert.Equal(t, "two", out[1])
}

// failWriter rejects every write.
type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeCSV_EmptyCellWriteError(t *testing.T) {
	err := encodeCSV(failWriter{}, Table{Rows: [][]string{{""}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	var buf bytes.Buffer
	require.NoError(t, encodeCSV(&buf, Table{Rows: [][]string{{"1"}, {""}, {"2"}}}))
	assert.Equal(t, "1\n\"\"\n2\n", buf.String())
}

func TestDumpRows(t *testing.T) {
	obj := &types.NumericArray{
		Shape: []int{2, 1},
		Class: types.ElemObject,
		Cells: []types.Value{
			&types.NumericArray{Shape: []int{2}, Data: []float64{1, 2}},
			&types.Text{Rows: []string{"ok"}, Shape: []int{2}},
		},
	}
	rows, err := DumpRows(obj)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"ok"}}, rows)

	obj.Cells[1] = &types.Mapping{}
	_, err = DumpRows(obj)
	assert.ErrorIs(t, err, ErrNotTabular)
}
