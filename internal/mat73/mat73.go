// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mat73 reads MAT files saved with -v7.3, which are HDF5 files with a
// 512-byte MAT header in front of the superblock. Groups become structs (when
// MATLAB marks them so) or generic mappings; datasets become arrays.
//
// Loading is best effort: a dataset that cannot be materialised becomes a
// types.Other carrying the read error, and its siblings load normally.
package mat73

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/pdiddy/mat2csv/internal/mat5"
	"github.com/pdiddy/mat2csv/pkg/types"
)

const (
	attrClass = "MATLAB_class"
	attrEmpty = "MATLAB_empty"

	// maxDepth bounds group recursion so that link cycles terminate.
	maxDepth = 64
)

var (
	// ErrReferences is recorded for cell arrays, whose HDF5 datasets hold
	// object references rather than values.
	ErrReferences = errors.New("dataset holds object references")
	// ErrTooDeep is recorded for groups nested deeper than the loader follows.
	ErrTooDeep = errors.New("group nesting too deep")
)

// Options controls loading.
type Options struct {
	Squeeze bool
}

// Load opens the HDF5-backed MAT file at path and materialises every
// top-level member.
func Load(path string, opts Options) (*types.Document, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening HDF5 container %s: %w", path, err)
	}
	defer f.Close()

	root := f.Root()
	members, err := root.Members()
	if err != nil {
		return nil, fmt.Errorf("listing root group of %s: %w", path, err)
	}

	doc := &types.Document{Path: path, Format: types.FormatV73}
	for _, name := range members {
		v := loadMember(root, name, 1)
		if opts.Squeeze {
			v = types.Squeeze(v)
		}
		doc.Variables = append(doc.Variables, types.Variable{Name: name, Value: v})
	}
	return doc, nil
}

// loadMember opens name inside g as a group or, failing that, a dataset.
func loadMember(g *hdf5.Group, name string, depth int) types.Value {
	if sub, err := g.OpenGroup(name); err == nil {
		if depth > maxDepth {
			return &types.Other{Description: "group " + sub.Path(), Err: ErrTooDeep}
		}
		return loadGroup(sub, depth)
	}
	ds, err := g.OpenDataset(name)
	if err != nil {
		return &types.Other{Description: "unreadable member " + name, Err: err}
	}
	v, err := loadDataset(ds)
	if err != nil {
		return &types.Other{Description: "dataset " + ds.Path(), Err: err}
	}
	return v
}

func loadGroup(g *hdf5.Group, depth int) types.Value {
	members, err := g.Members()
	if err != nil {
		return &types.Other{Description: "group " + g.Path(), Err: err}
	}
	class := stringAttr(g.Attr(attrClass))
	if class == "" {
		m := &types.Mapping{}
		for _, name := range members {
			m.Set(name, loadMember(g, name, depth+1))
		}
		return m
	}

	s := &types.Struct{Fields: make(map[string]types.Value, len(members))}
	if class != "struct" {
		s.ClassName = class
	}
	for _, name := range members {
		s.FieldNames = append(s.FieldNames, name)
		s.Fields[name] = loadMember(g, name, depth+1)
	}
	return s
}

// loadDataset converts a dataset to a row-major value. MATLAB writes arrays
// with their dimensions reversed, so the HDF5 row-major payload is the
// MATLAB column-major payload of the reversed shape.
func loadDataset(ds *hdf5.Dataset) (types.Value, error) {
	class := stringAttr(ds.Attr(attrClass))

	if ds.HasAttr(attrEmpty) {
		dims, err := ds.ReadFloat64()
		if err != nil {
			return nil, fmt.Errorf("reading empty-array dimensions: %w", err)
		}
		shape := make([]int, len(dims))
		for i, d := range dims {
			shape[i] = int(d)
		}
		return &types.NumericArray{Shape: shape, MatClass: class, Data: []float64{}}, nil
	}

	h5shape := ds.Shape()
	shape := make([]int, len(h5shape))
	for i, d := range h5shape {
		shape[i] = int(d)
	}
	if class != "" {
		for i, j := 0, len(shape)-1; i < j; i, j = i+1, j-1 {
			shape[i], shape[j] = shape[j], shape[i]
		}
	}

	switch class {
	case "cell":
		return nil, ErrReferences
	case "char":
		units, err := ds.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("reading characters: %w", err)
		}
		return charText(units, shape), nil
	}

	data, err := ds.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %s values: %w", classOrDefault(class), err)
	}
	if class != "" {
		data = types.RowMajor(data, shape)
	}
	arr := &types.NumericArray{Shape: shape, MatClass: classOrDefault(class), Data: data}
	if err := arr.Validate(); err != nil {
		return nil, err
	}
	return arr, nil
}

// charText splits column-major UTF-16 code units into one string per row.
func charText(units []uint16, shape []int) *types.Text {
	t := &types.Text{Shape: shape}
	if len(shape) == 0 {
		t.Rows = []string{mat5.DecodeUTF16(units)}
		return t
	}
	rows := shape[0]
	cols := 1
	for _, d := range shape[1:] {
		cols *= d
	}
	if rows*cols != len(units) {
		t.Rows = []string{mat5.DecodeUTF16(units)}
		return t
	}
	t.Rows = make([]string, rows)
	for i := 0; i < rows; i++ {
		row := make([]uint16, cols)
		for j := 0; j < cols; j++ {
			row[j] = units[i+rows*j]
		}
		t.Rows[i] = mat5.DecodeUTF16(row)
	}
	return t
}

func stringAttr(a *hdf5.Attribute) string {
	if a == nil {
		return ""
	}
	s, err := a.ReadScalarString()
	if err != nil {
		return ""
	}
	return s
}

func classOrDefault(class string) string {
	if class == "" {
		return "double"
	}
	return class
}
