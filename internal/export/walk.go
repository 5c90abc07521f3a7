// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// Walker writes every top-level struct of a document into
// <OutputDir>/processed_<file>/, one CSV per field.
type Walker struct {
	opts Options
	w    io.Writer
	ser  *Serializer
}

// NewWalker creates a walker that reports progress to w.
func NewWalker(opts Options, w io.Writer) *Walker {
	if w == nil {
		w = io.Discard
	}
	return &Walker{opts: opts, w: w, ser: NewSerializer(opts, w)}
}

// Walk exports the struct variables of doc. Variables that are not structs
// are reported and skipped.
func (wk *Walker) Walk(doc *types.Document) []types.Artifact {
	dir := wk.opts.OutputDirFor(doc.Path)

	var arts []types.Artifact
	for _, v := range doc.Variables {
		if types.IsMetadata(v.Name, wk.opts.MetadataPrefixes) {
			continue
		}
		fmt.Fprintf(wk.w, "Processing variable: %s\n", v.Name)

		st, ok := structLike(v.Value)
		if !ok {
			wk.ser.skipf("Skipping %s: not a MATLAB struct\n", v.Name)
			continue
		}
		fmt.Fprintf(wk.w, "Found MATLAB struct with fields: %v\n", st.FieldNames)

		if err := os.MkdirAll(dir, 0o755); err != nil {
			wk.ser.skipf("Skipping %s: %v\n", v.Name, err)
			continue
		}
		arts = append(arts, tag(wk.fields(st, dir, "", 0), v.Name)...)
		fmt.Fprintf(wk.w, "Processed %s into directory: %s\n", v.Name, dir)
	}
	return arts
}

// fields writes the fields of st into dir. rel is the path of dir below the
// variable's directory and depth the number of structs above st.
func (wk *Walker) fields(st *types.Struct, dir, rel string, depth int) []types.Artifact {
	indent := strings.Repeat("  ", depth+1)

	var arts []types.Artifact
	for _, f := range st.FieldNames {
		v, ok := st.Field(f)
		if !ok {
			continue
		}
		name := path.Join(rel, f)

		if sub, ok := structLike(v); ok {
			if depth >= wk.opts.MaxStructDepth {
				wk.ser.skipf("%sSkipping %s: nested struct below depth %d\n", indent, name, wk.opts.MaxStructDepth)
				continue
			}
			fmt.Fprintf(wk.w, "%sFound nested struct in %s\n", indent, name)
			subdir := filepath.Join(dir, f)
			if err := os.MkdirAll(subdir, 0o755); err != nil {
				wk.ser.skipf("%sSkipping %s: %v\n", indent, name, err)
				continue
			}
			arts = append(arts, wk.fields(sub, subdir, name, depth+1)...)
			continue
		}

		// A rank-0 array is a scalar left by squeezing, not an array.
		a, ok := v.(*types.NumericArray)
		if !ok || a.Rank() == 0 {
			wk.ser.skipf("%sSkipping %s: not an array or struct\n", indent, name)
			continue
		}
		if a.Rank() <= 2 {
			art, err := wk.ser.WriteTable(a, filepath.Join(dir, f))
			if err != nil {
				wk.ser.skipf("%sSkipping %s: %v\n", indent, name, err)
				continue
			}
			fmt.Fprintf(wk.w, "%sSaved %s\n", indent, path.Join(rel, filepath.Base(art.Path)))
			arts = append(arts, art)
			continue
		}
		if depth > 0 {
			wk.ser.skipf("%sSkipping %s: rank %d array inside nested struct\n", indent, name, a.Rank())
			continue
		}
		slices := wk.ser.WriteSlices(a, func(i int) string {
			return filepath.Join(dir, fmt.Sprintf("%s_%d.csv", f, i))
		})
		fmt.Fprintf(wk.w, "%sSaved %s_*.csv (%d files)\n", indent, name, len(slices))
		arts = append(arts, slices...)
	}
	return arts
}

// Skipped returns how many values the walker has reported and skipped.
func (wk *Walker) Skipped() int { return wk.ser.Skipped() }

// Export sends every non-metadata variable of doc through d with prefix
// <OutputDir>/processed_<file>/<variable>.
func (d *Dispatcher) Export(doc *types.Document) []types.Artifact {
	opts := d.ser.opts
	dir := opts.OutputDirFor(doc.Path)

	var arts []types.Artifact
	for _, v := range doc.Variables {
		if types.IsMetadata(v.Name, opts.MetadataPrefixes) {
			continue
		}
		fmt.Fprintf(d.w, "Processing variable: %s\n", v.Name)
		arts = append(arts, tag(d.Dispatch(v.Value, filepath.Join(dir, v.Name)), v.Name)...)
	}
	return arts
}

// structLike returns the struct held by v: v itself, or the only element
// of a single-element object array.
func structLike(v types.Value) (*types.Struct, bool) {
	switch x := v.(type) {
	case *types.Struct:
		return x, true
	case *types.NumericArray:
		if x.Class == types.ElemObject && len(x.Cells) == 1 {
			st, ok := x.Cells[0].(*types.Struct)
			return st, ok
		}
	}
	return nil, false
}

func tag(arts []types.Artifact, variable string) []types.Artifact {
	for i := range arts {
		arts[i].Variable = variable
	}
	return arts
}
