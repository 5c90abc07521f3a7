// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package matfile opens MAT files of either supported encoding. It sniffs
// the header to choose between the classic reader (mat5) and the
// HDF5-backed reader (mat73).
package matfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/mat2csv/internal/mat5"
	"github.com/pdiddy/mat2csv/internal/mat73"
	"github.com/pdiddy/mat2csv/pkg/types"
)

// ErrUnsupportedFormat is returned for files that are neither level 5 MAT
// files nor HDF5 containers (for example level 4 MAT files).
var ErrUnsupportedFormat = errors.New("unsupported MAT file format")

var hdf5Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// LoadOptions controls how values are shaped on load.
type LoadOptions struct {
	// Squeeze drops singleton dimensions and unwraps single-element cell
	// and struct arrays.
	Squeeze bool
}

// Sniff reports the encoding of the file at path.
func Sniff(path string) (types.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512+len(hdf5Signature))
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading header of %s: %w", path, err)
	}
	buf = buf[:n]

	if bytes.HasPrefix(buf, hdf5Signature) {
		return types.FormatV73, nil
	}
	if len(buf) >= 512+len(hdf5Signature) && bytes.Equal(buf[512:], hdf5Signature) {
		return types.FormatV73, nil
	}
	h, err := mat5.ReadHeader(buf)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, err)
	}
	if h.Version == mat5.VersionHDF5 {
		return types.FormatV73, nil
	}
	return types.FormatV5, nil
}

// Load reads the MAT file at path with the reader matching its encoding.
func Load(path string, opts LoadOptions) (*types.Document, error) {
	format, err := Sniff(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	var doc *types.Document
	switch format {
	case types.FormatV73:
		doc, err = mat73.Load(path, mat73.Options{Squeeze: opts.Squeeze})
	default:
		doc, err = mat5.Load(path, mat5.Options{Squeeze: opts.Squeeze})
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc, nil
}
