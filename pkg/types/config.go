package types

// ExportMode selects the traversal used for a file.
type ExportMode string

const (
	// ModeStruct writes each top-level struct into processed_<file>/ with one
	// CSV per field.
	ModeStruct ExportMode = "struct"
	// ModeGeneric sends every top-level variable through the generic array
	// and container dispatch, naming outputs by underscore-joined paths.
	ModeGeneric ExportMode = "generic"
)

// DefaultMetadataPrefixes are the variable-name prefixes skipped by every
// export: "__" for the loader's pseudo-variables and "#" for the HDF5
// bookkeeping groups of v7.3 files.
var DefaultMetadataPrefixes = []string{"__", "#"}

// ExportConfig holds settings for the conversion stage.
type ExportConfig struct {
	// Mode selects struct or generic traversal (default struct).
	Mode ExportMode `json:"mode" yaml:"mode"`

	// OutputDir is the directory that receives processed_<file>/ (default ".").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Squeeze drops singleton dimensions on load. Struct mode defaults to
	// true, generic mode to false.
	Squeeze bool `json:"squeeze" yaml:"squeeze"`

	// Header writes a column-index header row into tabular CSVs (default true).
	Header bool `json:"header" yaml:"header"`

	// MetadataPrefixes lists variable-name prefixes that are never exported.
	MetadataPrefixes []string `json:"metadata_prefixes" yaml:"metadata_prefixes"`

	// MaxStructDepth is how many levels of nested structs the struct walker
	// descends into below a top-level field (default 1).
	MaxStructDepth int `json:"max_struct_depth" yaml:"max_struct_depth"`

	// MaxPrefixLen caps generated output prefixes in generic mode; 0 means
	// unlimited.
	MaxPrefixLen int `json:"max_prefix_len" yaml:"max_prefix_len"`

	// ManifestPath is the SQLite manifest location; empty disables it.
	ManifestPath string `json:"manifest_path,omitempty" yaml:"manifest_path,omitempty"`

	// Force reconverts files the manifest reports as unchanged.
	Force bool `json:"force" yaml:"force"`
}

// DefaultExportConfig returns the configuration used when nothing is set.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Mode:             ModeStruct,
		OutputDir:        ".",
		Squeeze:          true,
		Header:           true,
		MetadataPrefixes: append([]string(nil), DefaultMetadataPrefixes...),
		MaxStructDepth:   1,
	}
}
