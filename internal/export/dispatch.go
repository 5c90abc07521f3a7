// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// Dispatcher routes values by kind: arrays to the serializer, structs and
// mappings recursively with the key appended to the prefix.
type Dispatcher struct {
	ser *Serializer
	w   io.Writer
}

// NewDispatcher creates a dispatcher with its own serializer.
func NewDispatcher(opts Options, w io.Writer) *Dispatcher {
	return NewSerializer(opts, w).Dispatcher()
}

// Serializer returns the serializer arrays are handed to.
func (d *Dispatcher) Serializer() *Serializer { return d.ser }

// Dispatch writes v under prefix and returns every artifact produced.
func (d *Dispatcher) Dispatch(v types.Value, prefix string) []types.Artifact {
	switch x := v.(type) {
	case *types.NumericArray:
		return d.ser.Serialize(x, prefix)
	case *types.Struct, *types.Mapping:
		return d.container(x, prefix)
	default:
		d.ser.skipf("Skipping %s: unsupported type %s\n", filepath.Base(prefix), kindOf(v))
		return nil
	}
}

func (d *Dispatcher) container(v types.Value, prefix string) []types.Artifact {
	keys, get := entries(v)
	fmt.Fprintf(d.w, "Processing dictionary with keys: %v\n", keys)

	var arts []types.Artifact
	for _, k := range keys {
		child := get(k)
		switch child.(type) {
		case *types.NumericArray, *types.Struct, *types.Mapping:
			arts = append(arts, d.Dispatch(child, prefix+"_"+k)...)
		default:
			d.ser.skipf("skipping %s: unsupported type %s\n", k, kindOf(child))
		}
	}
	return arts
}

// entries returns the ordered keys of a struct or mapping and an accessor.
func entries(v types.Value) ([]string, func(string) types.Value) {
	switch x := v.(type) {
	case *types.Struct:
		return x.FieldNames, func(k string) types.Value { return x.Fields[k] }
	case *types.Mapping:
		return x.Keys, func(k string) types.Value { return x.Values[k] }
	default:
		return nil, nil
	}
}
