// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tabular

import (
	"errors"
	"fmt"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// ErrNotTabular is returned when an array cannot be laid out as a table of
// scalar cells.
var ErrNotTabular = errors.New("not tabular")

// FromMatrix lays out a rank <= 2 array as a table. Rank 0 becomes a 1x1
// table and rank 1 a single column. Object cells must hold scalars (a
// one-element numeric array or a single-row char). When header is true the
// column indices form the header row.
func FromMatrix(a *types.NumericArray, header bool) (Table, error) {
	rows, cols, err := grid(a)
	if err != nil {
		return Table{}, err
	}
	if a.Class == types.ElemStructured {
		return Table{}, fmt.Errorf("%w: structured array needs FromColumns", ErrNotTabular)
	}

	t := Table{Rows: make([][]string, rows)}
	if header {
		t.Header = IndexHeader(cols)
	}
	for r := 0; r < rows; r++ {
		row := make([]string, cols)
		for c := 0; c < cols; c++ {
			i := r*cols + c
			switch a.Class {
			case types.ElemNumeric:
				if a.Imag != nil {
					row[c] = FormatComplex(a.Data[i], a.Imag[i])
				} else {
					row[c] = FormatFloat(a.Data[i])
				}
			case types.ElemObject:
				s, err := ScalarCell(a.Cells[i])
				if err != nil {
					return Table{}, fmt.Errorf("cell (%d, %d): %w", r, c, err)
				}
				row[c] = s
			}
		}
		t.Rows[r] = row
	}
	return t, nil
}

// FromColumns lays out a structured array as a table with one column per
// field, in declared field order, and one row per element.
func FromColumns(a *types.NumericArray) (Table, error) {
	if a.Class != types.ElemStructured {
		return Table{}, fmt.Errorf("%w: %s is not structured", ErrNotTabular, types.Describe(a))
	}
	n := a.Len()
	for _, f := range a.Fields {
		if len(a.Columns[f]) != n {
			return Table{}, fmt.Errorf("%w: column %q has %d values, want %d", types.ErrShapeMismatch, f, len(a.Columns[f]), n)
		}
	}
	t := Table{
		Header: append([]string(nil), a.Fields...),
		Rows:   make([][]string, n),
	}
	for i := 0; i < n; i++ {
		row := make([]string, len(a.Fields))
		for j, f := range a.Fields {
			row[j] = FormatFloat(a.Columns[f][i])
		}
		t.Rows[i] = row
	}
	return t, nil
}

// ScalarCell formats a single object-array element.
func ScalarCell(v types.Value) (string, error) {
	switch x := v.(type) {
	case *types.NumericArray:
		if x.Class != types.ElemNumeric || x.Len() != 1 {
			return "", fmt.Errorf("%w: %s is not a scalar", ErrNotTabular, types.Describe(x))
		}
		if x.Imag != nil {
			return FormatComplex(x.Data[0], x.Imag[0]), nil
		}
		return FormatFloat(x.Data[0]), nil
	case *types.Text:
		if len(x.Rows) > 1 {
			return "", fmt.Errorf("%w: multi-row char %s", ErrNotTabular, types.FormatShape(x.Shape))
		}
		return x.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNotTabular, types.Describe(v))
	}
}

// Flatten concatenates every column of a rank <= 2 array, column by column,
// each cell contributing all of its numeric values. It fails when a cell is
// not numeric.
func Flatten(a *types.NumericArray) ([]string, error) {
	rows, cols, err := grid(a)
	if err != nil {
		return nil, err
	}
	var out []string
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			i := r*cols + c
			switch a.Class {
			case types.ElemNumeric:
				if a.Imag != nil {
					out = append(out, FormatComplex(a.Data[i], a.Imag[i]))
				} else {
					out = append(out, FormatFloat(a.Data[i]))
				}
			case types.ElemObject:
				cell, ok := a.Cells[i].(*types.NumericArray)
				if !ok || cell.Class != types.ElemNumeric {
					return nil, fmt.Errorf("%w: cell (%d, %d) holds %s", ErrNotTabular, r, c, types.Describe(a.Cells[i]))
				}
				for k, v := range cell.Data {
					if cell.Imag != nil {
						out = append(out, FormatComplex(v, cell.Imag[k]))
					} else {
						out = append(out, FormatFloat(v))
					}
				}
			default:
				return nil, fmt.Errorf("%w: cannot flatten %s", ErrNotTabular, types.Describe(a))
			}
		}
	}
	return out, nil
}

// DumpRows lays out a rank <= 2 array as raw text rows, one per array row.
// Object cells contribute all of their numeric values in place, so rows may
// differ in width. It fails when a cell holds neither numbers nor text.
func DumpRows(a *types.NumericArray) ([][]string, error) {
	if a.Class == types.ElemStructured {
		t, err := FromColumns(a)
		return t.Rows, err
	}
	rows, cols, err := grid(a)
	if err != nil {
		return nil, err
	}
	out := make([][]string, rows)
	for r := 0; r < rows; r++ {
		var row []string
		for c := 0; c < cols; c++ {
			i := r*cols + c
			switch a.Class {
			case types.ElemNumeric:
				if a.Imag != nil {
					row = append(row, FormatComplex(a.Data[i], a.Imag[i]))
				} else {
					row = append(row, FormatFloat(a.Data[i]))
				}
			case types.ElemObject:
				vals, err := cellValues(a.Cells[i])
				if err != nil {
					return nil, fmt.Errorf("cell (%d, %d): %w", r, c, err)
				}
				row = append(row, vals...)
			}
		}
		out[r] = row
	}
	return out, nil
}

func cellValues(v types.Value) ([]string, error) {
	switch x := v.(type) {
	case *types.NumericArray:
		if x.Class != types.ElemNumeric {
			return nil, fmt.Errorf("%w: %s", ErrNotTabular, types.Describe(x))
		}
		vals := make([]string, len(x.Data))
		for k, d := range x.Data {
			if x.Imag != nil {
				vals[k] = FormatComplex(d, x.Imag[k])
			} else {
				vals[k] = FormatFloat(d)
			}
		}
		return vals, nil
	case *types.Text:
		return append([]string(nil), x.Rows...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotTabular, types.Describe(v))
	}
}

// Column turns values into single-cell rows.
func Column(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}

// WriteDump writes rows without a header row.
func WriteDump(path string, rows [][]string) error {
	return WriteCSV(path, Table{Rows: rows})
}

func grid(a *types.NumericArray) (rows, cols int, err error) {
	if err := a.Validate(); err != nil {
		return 0, 0, err
	}
	switch a.Rank() {
	case 0:
		return 1, 1, nil
	case 1:
		return a.Shape[0], 1, nil
	case 2:
		return a.Shape[0], a.Shape[1], nil
	default:
		return 0, 0, fmt.Errorf("%w: rank %d array %s", ErrNotTabular, a.Rank(), a.ShapeString())
	}
}
