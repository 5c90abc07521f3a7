// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mat73

import (
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// writeFixture creates an HDF5 file laid out the way MATLAB -v7.3 writes
// simple variables, plus one plain (non-MATLAB) group.
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "large.mat")

	f, err := hdf5.Create(path)
	require.NoError(t, err)

	root := f.Root()
	// MATLAB 3x2 matrix [1 4; 2 5; 3 6] is stored with dims reversed.
	_, err = root.CreateDataset("m", [][]float64{{1, 2, 3}, {4, 5, 6}}, hdf5.WithAttribute(attrClass, "double"))
	require.NoError(t, err)

	_, err = root.CreateDataset("name", [][]uint16{{'a'}, {'b'}, {'c'}}, hdf5.WithAttribute(attrClass, "char"))
	require.NoError(t, err)

	grp, err := root.CreateGroup("extra")
	require.NoError(t, err)
	_, err = grp.CreateDataset("raw", []float64{7, 8})
	require.NoError(t, err)

	require.NoError(t, f.Close())
	return path
}

func TestLoad(t *testing.T) {
	path := writeFixture(t)

	doc, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.FormatV73, doc.Format)
	assert.Equal(t, path, doc.Path)

	v, ok := doc.Lookup("m")
	require.True(t, ok)
	m := v.(*types.NumericArray)
	assert.Equal(t, []int{3, 2}, m.Shape)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, m.Data)
	assert.Equal(t, "double", m.MatClass)

	v, ok = doc.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "abc", v.(*types.Text).String())

	v, ok = doc.Lookup("extra")
	require.True(t, ok)
	extra, ok := v.(*types.Mapping)
	require.True(t, ok, "group without MATLAB_class loads as a mapping")
	raw, ok := extra.Get("raw")
	require.True(t, ok)
	assert.Equal(t, []int{2}, raw.(*types.NumericArray).Shape)
	assert.Equal(t, []float64{7, 8}, raw.(*types.NumericArray).Data)
}

func TestLoad_Squeeze(t *testing.T) {
	doc, err := Load(writeFixture(t), Options{Squeeze: true})
	require.NoError(t, err)

	v, _ := doc.Lookup("name")
	assert.Equal(t, []int{3}, v.(*types.Text).Shape)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.mat"), Options{})
	assert.Error(t, err)
}

func TestCharText(t *testing.T) {
	// 2x2 char matrix ["ab"; "cd"] stored column-major.
	got := charText([]uint16{'a', 'c', 'b', 'd'}, []int{2, 2})
	assert.Equal(t, []string{"ab", "cd"}, got.Rows)

	odd := charText([]uint16{'x', 'y', 'z'}, []int{2, 2})
	assert.Equal(t, []string{"xyz"}, odd.Rows)
}
