// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Format identifies the on-disk encoding of a MAT file.
type Format string

const (
	// FormatV5 is the classic binary encoding (MATLAB v5, v6 and v7).
	FormatV5 Format = "v5"
	// FormatV73 is the HDF5-backed encoding written by save -v7.3.
	FormatV73 Format = "v7.3"
)

// Variable is one named top-level entry of a MAT file.
type Variable struct {
	Name   string
	Value  Value
	Global bool
}

// Document is the read-only result of loading a MAT file. Variables keep
// file order.
type Document struct {
	// Path is the file the document was loaded from.
	Path string

	Format Format

	// Header is the descriptive text of the file header, if any.
	Header string

	Variables []Variable
}

// Lookup returns the variable called name.
func (d *Document) Lookup(name string) (Value, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// IsMetadata reports whether name starts with any of the given prefixes.
func IsMetadata(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
