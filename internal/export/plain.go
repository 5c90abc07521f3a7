// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import "github.com/pdiddy/mat2csv/pkg/types"

// Plain converts v into maps, slices and scalars that a generic encoder can
// write. Arrays keep their shape next to their payload.
func Plain(v types.Value) any {
	switch x := v.(type) {
	case *types.NumericArray:
		out := map[string]any{
			"class": x.MatClass,
			"shape": x.Shape,
		}
		switch x.Class {
		case types.ElemObject:
			cells := make([]any, len(x.Cells))
			for i, c := range x.Cells {
				cells[i] = Plain(c)
			}
			out["cells"] = cells
		case types.ElemStructured:
			cols := make(map[string]any, len(x.Fields))
			for _, f := range x.Fields {
				cols[f] = x.Columns[f]
			}
			out["fields"] = x.Fields
			out["columns"] = cols
		default:
			out["data"] = x.Data
			if x.Imag != nil {
				out["imag"] = x.Imag
			}
		}
		return out
	case *types.Struct:
		fields := make(map[string]any, len(x.FieldNames))
		for _, f := range x.FieldNames {
			fields[f] = Plain(x.Fields[f])
		}
		class := x.ClassName
		if class == "" {
			class = "struct"
		}
		return map[string]any{
			"class":      class,
			"fieldnames": x.FieldNames,
			"fields":     fields,
		}
	case *types.Mapping:
		out := make(map[string]any, len(x.Keys))
		for _, k := range x.Keys {
			out[k] = Plain(x.Values[k])
		}
		return out
	case *types.Text:
		return x.String()
	case *types.Other:
		return x.Description
	default:
		return nil
	}
}
