// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the mat2csv pipeline:
// the loaded MAT document model (Value and its variants), output artifacts,
// conversion status and configuration.
package types

// ConversionStatus indicates the outcome of converting one MAT file.
type ConversionStatus string

const (
	ConversionNone    ConversionStatus = "none"
	ConversionDone    ConversionStatus = "converted"
	ConversionPartial ConversionStatus = "partial"
	ConversionFailed  ConversionStatus = "failed"
)

// ArtifactKind names the output format of an artifact.
type ArtifactKind string

const (
	// ArtifactCSV is a table with a header row.
	ArtifactCSV ArtifactKind = "csv"
	// ArtifactSlice is one leading-dimension slice of a rank > 2 array.
	ArtifactSlice ArtifactKind = "slice"
	// ArtifactFlattened is a single-column, header-less dump of all columns.
	ArtifactFlattened ArtifactKind = "flattened"
	// ArtifactDump is a header-less comma-delimited dump.
	ArtifactDump ArtifactKind = "dump"
	// ArtifactNPY is a raw NumPy binary dump of numeric data.
	ArtifactNPY ArtifactKind = "npy"
	// ArtifactMsgpack is an opaque dump of an object array.
	ArtifactMsgpack ArtifactKind = "msgpack"
)

// Artifact is one file written by an export.
type Artifact struct {
	Path     string       `json:"path" yaml:"path"`
	Kind     ArtifactKind `json:"kind" yaml:"kind"`
	Variable string       `json:"variable,omitempty" yaml:"variable,omitempty"`

	// Rows and Cols describe the data portion of tabular artifacts; they are
	// zero for binary dumps.
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}
