// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tabular writes output artifacts: CSV tables (with or without a
// header row), NumPy .npy dumps of numeric data and msgpack dumps of
// arbitrary object trees.
//
// Number formatting is deterministic so that converting the same input twice
// yields byte-identical files.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Table is a rectangular block of formatted cells. A nil Header writes no
// header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// NumRows returns the number of data rows.
func (t Table) NumRows() int { return len(t.Rows) }

// NumCols returns the width of the table.
func (t Table) NumCols() int {
	if len(t.Header) > 0 {
		return len(t.Header)
	}
	if len(t.Rows) > 0 {
		return len(t.Rows[0])
	}
	return 0
}

// IndexHeader returns the column labels "0", "1", ..., n-1.
func IndexHeader(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = strconv.Itoa(i)
	}
	return h
}

// FormatFloat renders v with the shortest representation that parses back
// to the same value. NaN becomes an empty cell.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatComplex renders re+im·i, e.g. "(1+2i)".
func FormatComplex(re, im float64) string {
	return strconv.FormatComplex(complex(re, im), 'g', -1, 128)
}

// WriteCSV writes t to path, creating parent directories.
func WriteCSV(path string, t Table) error {
	return writeFile(path, func(w *bufio.Writer) error {
		return encodeCSV(w, t)
	})
}

func encodeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if t.Header != nil {
		if err := cw.Write(t.Header); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		// A lone empty field would be an empty line, which readers drop.
		if len(row) == 1 && row[0] == "" {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMsgpack encodes v with msgpack and writes it to path. Map keys are
// sorted so repeated runs produce identical bytes.
func WriteMsgpack(path string, v any) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, func(w *bufio.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func writeFile(path string, fill func(w *bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
