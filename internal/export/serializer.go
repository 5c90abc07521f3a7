// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/mat2csv/internal/tabular"
	"github.com/pdiddy/mat2csv/pkg/types"
)

// Serializer writes single arrays to files named after a prefix.
type Serializer struct {
	opts  Options
	w     io.Writer
	chain []Strategy
	disp  *Dispatcher

	skipped int
}

// NewSerializer creates a serializer that reports progress to w. Nested
// containers found inside object arrays are handed to a dispatcher sharing
// the same options.
func NewSerializer(opts Options, w io.Writer) *Serializer {
	if w == nil {
		w = io.Discard
	}
	s := &Serializer{
		opts:  opts,
		w:     w,
		chain: DefaultChain(opts.Header),
	}
	s.disp = &Dispatcher{ser: s, w: w}
	return s
}

// Dispatcher returns the dispatcher bound to s.
func (s *Serializer) Dispatcher() *Dispatcher { return s.disp }

// Serialize writes a to files derived from prefix and returns what it wrote.
//
//   - Structured arrays of rank <= 2 become <prefix>.csv with the field names
//     as header.
//   - A (1,1) object array is unwrapped: containers go to the dispatcher
//     under the same prefix, arrays are serialized as <prefix>_nested.
//   - Rank 2 arrays go through the strategy chain.
//   - Rank > 2 arrays become one <prefix>_slice<i>.csv per leading index.
//   - Rank 0 and 1 arrays are written as a single column.
func (s *Serializer) Serialize(a *types.NumericArray, prefix string) []types.Artifact {
	prefix = limitPrefix(prefix, s.opts.MaxPrefixLen)
	name := filepath.Base(prefix)
	fmt.Fprintf(s.w, "Type: %s\n", types.Describe(a))

	if err := a.Validate(); err != nil {
		s.skipf("Skipping %s: %v\n", name, err)
		return nil
	}

	switch {
	case a.Class == types.ElemStructured && a.Rank() <= 2:
		fmt.Fprintln(s.w, "Detected structured array")
		art, err := structuredStrategy{}.Write(a, prefix)
		if err != nil {
			s.skipf("Skipping %s: %v\n", name, err)
			return nil
		}
		fmt.Fprintf(s.w, "Saved structured array to %s\n", art.Path)
		return []types.Artifact{art}

	case a.Class == types.ElemObject && a.Rank() == 2 && a.Shape[0] == 1 && a.Shape[1] == 1:
		return s.nested(a.Cells[0], prefix)

	case a.Rank() > 2:
		fmt.Fprintf(s.w, "Processing %d-dimensional array\n", a.Rank())
		arts := s.WriteSlices(a, func(i int) string {
			return fmt.Sprintf("%s_slice%d.csv", prefix, i)
		})
		fmt.Fprintf(s.w, "Saved %d slices\n", len(arts))
		return arts

	default:
		art, err := s.WriteTable(a, prefix)
		if err != nil {
			s.skipf("Skipping %s: %v\n", name, err)
			return nil
		}
		fmt.Fprintf(s.w, "Saved %s array to %s\n", FormatRank(a.Rank()), art.Path)
		return []types.Artifact{art}
	}
}

func (s *Serializer) nested(v types.Value, prefix string) []types.Artifact {
	fmt.Fprintf(s.w, "Detected possible nested structure: %s\n", kindOf(v))
	switch x := v.(type) {
	case *types.Struct, *types.Mapping:
		return s.disp.container(x, prefix)
	case *types.NumericArray:
		return s.Serialize(x, prefix+"_nested")
	default:
		s.skipf("Unknown nested type: %s\n", kindOf(v))
		return nil
	}
}

// WriteTable writes an array of rank <= 2 as a single artifact. Structured
// arrays use their field names as header; everything else goes through the
// strategy chain, rank 0 and 1 arrays reshaped into one column first. The
// error joins the failure of every strategy tried.
func (s *Serializer) WriteTable(a *types.NumericArray, prefix string) (types.Artifact, error) {
	if a.Class == types.ElemStructured {
		return structuredStrategy{}.Write(a, prefix)
	}
	m := a
	if a.Rank() < 2 {
		var err error
		if m, err = a.Reshape(a.Len(), 1); err != nil {
			return types.Artifact{}, err
		}
	}
	if m.Rank() != 2 {
		return types.Artifact{}, fmt.Errorf("%w: rank %d array %s", tabular.ErrNotTabular, m.Rank(), m.ShapeString())
	}

	var errs []error
	for i, st := range s.chain {
		art, err := st.Write(m, prefix)
		if err == nil {
			return art, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
		if i == 0 {
			fmt.Fprintln(s.w, "Direct conversion failed, trying alternative method...")
		}
	}
	return types.Artifact{}, errors.Join(errs...)
}

// WriteSlices writes one CSV per index of the leading dimension of a, at
// the path returned by name. A slice that cannot be tabulated is written as
// a header-less dump of its rows (slices above rank 2 reshaped to two
// dimensions first); a slice that cannot be dumped as text is written
// through the binary strategy beside the CSV path.
func (s *Serializer) WriteSlices(a *types.NumericArray, name func(i int) string) []types.Artifact {
	if a.Rank() == 0 {
		return nil
	}
	var arts []types.Artifact
	for i := 0; i < a.Shape[0]; i++ {
		path := name(i)
		sl, err := a.Slice(i)
		if err != nil {
			s.skipf("Skipping %s: %v\n", filepath.Base(path), err)
			continue
		}
		art, err := s.writeSlice(sl, path)
		if err != nil {
			s.skipf("Skipping %s: %v\n", filepath.Base(path), err)
			continue
		}
		arts = append(arts, art)
	}
	return arts
}

// writeSlice writes one slice as a table, then as a raw dump of its rows,
// then through the binary strategy next to path.
func (s *Serializer) writeSlice(sl *types.NumericArray, path string) (types.Artifact, error) {
	flat := sl
	if sl.Rank() <= 2 {
		tbl, err := s.table(sl, s.opts.Header)
		if err == nil {
			if err := tabular.WriteCSV(path, tbl); err != nil {
				return types.Artifact{}, err
			}
			return types.Artifact{Path: path, Kind: types.ArtifactSlice, Rows: tbl.NumRows(), Cols: tbl.NumCols()}, nil
		}
		fmt.Fprintf(s.w, "Slice %s is not tabular (%v), writing raw values\n", filepath.Base(path), err)
	} else {
		var err error
		inner := sl.Len() / max(sl.Shape[0], 1)
		if flat, err = sl.Reshape(sl.Shape[0], inner); err != nil {
			return types.Artifact{}, err
		}
	}

	rows, err := tabular.DumpRows(flat)
	if err == nil {
		if err := tabular.WriteDump(path, rows); err != nil {
			return types.Artifact{}, err
		}
		return types.Artifact{Path: path, Kind: types.ArtifactDump, Rows: len(rows), Cols: width(rows)}, nil
	}
	fmt.Fprintf(s.w, "Slice %s cannot be dumped as text (%v), writing binary\n", filepath.Base(path), err)
	return binaryStrategy{}.Write(sl, strings.TrimSuffix(path, filepath.Ext(path)))
}

// width returns the length of the widest row.
func width(rows [][]string) int {
	n := 0
	for _, r := range rows {
		n = max(n, len(r))
	}
	return n
}

func (s *Serializer) table(a *types.NumericArray, header bool) (tabular.Table, error) {
	if a.Class == types.ElemStructured {
		return tabular.FromColumns(a)
	}
	return tabular.FromMatrix(a, header)
}

// FormatRank names a rank the way status lines do ("1D", "2D", ...).
func FormatRank(rank int) string {
	if rank == 0 {
		return "scalar"
	}
	return fmt.Sprintf("%dD", rank)
}

// Skipped returns how many values have been reported and skipped so far.
func (s *Serializer) Skipped() int { return s.skipped }

func (s *Serializer) skipf(format string, args ...any) {
	s.skipped++
	fmt.Fprintf(s.w, format, args...)
}

func kindOf(v types.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
