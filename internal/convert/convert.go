// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs MAT files through loading and export, one file at a
// time, and reports a per-file status line plus a batch summary.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/mat2csv/internal/export"
	"github.com/pdiddy/mat2csv/internal/matfile"
	"github.com/pdiddy/mat2csv/pkg/types"
)

// Loader reads a MAT file into a document. MatLoader is the production
// implementation; tests substitute their own.
type Loader interface {
	Load(path string) (*types.Document, error)
}

// MatLoader loads files with matfile.Load.
type MatLoader struct {
	Opts matfile.LoadOptions
}

// Load implements Loader.
func (l MatLoader) Load(path string) (*types.Document, error) {
	return matfile.Load(path, l.Opts)
}

// Manifest is the bookkeeping the convert stage needs. *manifest.Store
// implements it. settings identifies the export configuration a file was
// converted with.
type Manifest interface {
	Unchanged(ctx context.Context, path string, info os.FileInfo, settings string) (bool, error)
	Record(ctx context.Context, runID, path string, info os.FileInfo, settings string, status types.ConversionStatus, arts []types.Artifact) error
}

// Options configures a conversion.
type Options struct {
	Mode   types.ExportMode
	Export export.Options

	// Manifest, when set, records every file and lets unchanged files be
	// skipped. RunID identifies the current run in it.
	Manifest Manifest
	RunID    string

	// Force converts files the manifest reports as unchanged.
	Force bool
}

// FileResult is the outcome of converting one file.
type FileResult struct {
	Path      string
	Status    types.ConversionStatus
	Artifacts []types.Artifact
	Skipped   int
	Err       error
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Partial   int
	Failed    int
	Files     []FileResult
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Partial + r.Failed
}

// HasFailures reports whether any file failed to convert.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertFile loads the MAT file at path and exports it. Status is
// ConversionNone when the manifest reports the file unchanged, Failed when
// the file cannot be loaded (or nothing could be exported from it), Partial
// when some values were skipped, and Done otherwise. Progress goes to w.
func ConvertFile(ctx context.Context, l Loader, path string, opts Options, w io.Writer) FileResult {
	res := FileResult{Path: path}
	base := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return fail(w, res, base, err)
	}

	if opts.Manifest != nil && !opts.Force {
		unchanged, err := opts.Manifest.Unchanged(ctx, path, info, Settings(l, opts))
		if err != nil {
			fmt.Fprintf(w, "warning: manifest lookup for %s failed: %v\n", base, err)
		}
		if unchanged {
			fmt.Fprintf(w, "skipped: %s (unchanged)\n", base)
			res.Status = types.ConversionNone
			return res
		}
	}

	doc, err := l.Load(path)
	if err != nil {
		res = fail(w, res, base, err)
		record(ctx, l, opts, w, path, info, res)
		return res
	}

	switch opts.Mode {
	case types.ModeGeneric:
		d := export.NewDispatcher(opts.Export, w)
		res.Artifacts = d.Export(doc)
		res.Skipped = d.Serializer().Skipped()
	default:
		wk := export.NewWalker(opts.Export, w)
		res.Artifacts = wk.Walk(doc)
		res.Skipped = wk.Skipped()
	}

	switch {
	case res.Skipped == 0:
		res.Status = types.ConversionDone
		fmt.Fprintf(w, "converted: %s (%d artifacts)\n", base, len(res.Artifacts))
	case len(res.Artifacts) > 0:
		res.Status = types.ConversionPartial
		fmt.Fprintf(w, "partial:   %s (%d artifacts, %d skipped)\n", base, len(res.Artifacts), res.Skipped)
	default:
		res.Status = types.ConversionFailed
		res.Err = fmt.Errorf("nothing exported from %s (%d values skipped)", base, res.Skipped)
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, res.Err)
	}
	record(ctx, l, opts, w, path, info, res)
	return res
}

// ConvertBatch converts every path in turn, printing per-file status to w
// and returning a summary. It stops early only when ctx is cancelled.
func ConvertBatch(ctx context.Context, l Loader, paths []string, opts Options, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(w, "stopping: %v\n", err)
			break
		}
		res := ConvertFile(ctx, l, p, opts, w)
		result.Files = append(result.Files, res)
		switch res.Status {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionNone:
			result.Skipped++
		case types.ConversionPartial:
			result.Partial++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d partial, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Partial, result.Skipped, result.Failed, result.Total())
	return result
}

// ExpandInputs turns the given files and directories into a sorted list of
// MAT files. Directories contribute their *.mat entries (not recursively);
// files are taken as given.
func ExpandInputs(inputs []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", in, err)
		}
		if !info.IsDir() {
			add(in)
			continue
		}
		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", in, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mat") {
				continue
			}
			add(filepath.Join(in, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func fail(w io.Writer, res FileResult, base string, err error) FileResult {
	fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
	res.Status = types.ConversionFailed
	res.Err = err
	return res
}

func record(ctx context.Context, l Loader, opts Options, w io.Writer, path string, info os.FileInfo, res FileResult) {
	if opts.Manifest == nil {
		return
	}
	if err := opts.Manifest.Record(ctx, opts.RunID, path, info, Settings(l, opts), res.Status, res.Artifacts); err != nil {
		fmt.Fprintf(w, "warning: manifest update for %s failed: %v\n", filepath.Base(path), err)
	}
}

// Settings describes the configuration that shapes the output of a
// conversion: the mode, the export options and, for MatLoader, squeezing.
// A file converted under different settings is not unchanged.
func Settings(l Loader, opts Options) string {
	exp := opts.Export
	out := exp.OutputDir
	if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}
	squeeze := "n/a"
	if ml, ok := l.(MatLoader); ok {
		squeeze = fmt.Sprint(ml.Opts.Squeeze)
	}
	return fmt.Sprintf("mode=%s output=%s header=%t squeeze=%s max-struct-depth=%d max-prefix-len=%d metadata=%s",
		opts.Mode, out, exp.Header, squeeze, exp.MaxStructDepth, exp.MaxPrefixLen, strings.Join(exp.MetadataPrefixes, ","))
}
