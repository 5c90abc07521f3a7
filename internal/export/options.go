// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export turns a loaded MAT document into files: the serializer
// writes one array through an ordered list of strategies, the dispatcher
// walks arbitrary containers naming outputs by underscore-joined paths, and
// the walker writes top-level structs into processed_<file>/ directories.
//
// Nothing in this package returns an error for bad data. Failures are
// reported as status lines on the configured writer and the value is
// skipped or written in a cruder format.
package export

import (
	"fmt"
	"hash/fnv"
	"path/filepath"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// Options configures an export.
type Options struct {
	// OutputDir receives the processed_<file>/ directories.
	OutputDir string

	// Header writes column indices as the first row of tabular CSVs.
	Header bool

	// MetadataPrefixes are variable-name prefixes that are never exported.
	MetadataPrefixes []string

	// MaxStructDepth is how many levels of nested structs the walker
	// descends into below a top-level field.
	MaxStructDepth int

	// MaxPrefixLen caps the file-name part of generated prefixes. Longer
	// prefixes are truncated and tagged with a hash of the full name.
	// 0 disables the cap.
	MaxPrefixLen int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return OptionsFromConfig(types.DefaultExportConfig())
}

// OptionsFromConfig extracts the export settings from cfg.
func OptionsFromConfig(cfg types.ExportConfig) Options {
	prefixes := cfg.MetadataPrefixes
	if prefixes == nil {
		prefixes = types.DefaultMetadataPrefixes
	}
	out := cfg.OutputDir
	if out == "" {
		out = "."
	}
	return Options{
		OutputDir:        out,
		Header:           cfg.Header,
		MetadataPrefixes: prefixes,
		MaxStructDepth:   cfg.MaxStructDepth,
		MaxPrefixLen:     cfg.MaxPrefixLen,
	}
}

// OutputDirFor returns the directory that receives the artifacts of the MAT
// file at path: <OutputDir>/processed_<base name>.
func (o Options) OutputDirFor(path string) string {
	base := filepath.Base(path)
	base = base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(o.OutputDir, "processed_"+base)
}

// limitPrefix caps the last path element of prefix at max bytes.
func limitPrefix(prefix string, max int) string {
	dir, base := filepath.Split(prefix)
	if max <= 0 || len(base) <= max {
		return prefix
	}
	h := fnv.New32a()
	h.Write([]byte(base))
	tag := fmt.Sprintf("_%08x", h.Sum32())
	keep := max - len(tag)
	if keep < 0 {
		keep = 0
	}
	return dir + base[:keep] + tag
}
