// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tabular

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// npyMagic starts every .npy file; the two bytes after it are the format
// version (1.0).
const npyMagic = "\x93NUMPY"

// WriteNPY writes a C-ordered float64 array (complex128 when imag is
// non-nil) in NumPy's .npy format.
func WriteNPY(path string, shape []int, data, imag []float64) error {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n || (imag != nil && len(imag) != n) {
		return fmt.Errorf("npy: %d values do not fill shape %v", len(data), shape)
	}
	header := npyHeader(shape, imag != nil)

	return writeFile(path, func(w *bufio.Writer) error {
		w.WriteString(npyMagic)
		w.Write([]byte{1, 0})
		if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
			return err
		}
		w.WriteString(header)
		buf := make([]byte, 8)
		for i, v := range data {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			if _, err := w.Write(buf); err != nil {
				return err
			}
			if imag != nil {
				binary.LittleEndian.PutUint64(buf, math.Float64bits(imag[i]))
				if _, err := w.Write(buf); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// npyHeader builds the dictionary literal, padded with spaces so that the
// data starts on a 64-byte boundary.
func npyHeader(shape []int, complex bool) string {
	descr := "<f8"
	if complex {
		descr = "<c16"
	}
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	tuple := "(" + strings.Join(dims, ", ") + ")"
	if len(shape) == 1 {
		tuple = "(" + dims[0] + ",)"
	}
	h := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, tuple)

	// 6 magic + 2 version + 2 length bytes precede the header.
	total := 10 + len(h) + 1
	if rem := total % 64; rem != 0 {
		h += strings.Repeat(" ", 64-rem)
	}
	return h + "\n"
}
