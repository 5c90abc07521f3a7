// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"

	"github.com/pdiddy/mat2csv/internal/tabular"
	"github.com/pdiddy/mat2csv/pkg/types"
)

// Strategy writes a rank-2 array to one file derived from prefix. A
// strategy that cannot represent the array returns an error and writes
// nothing.
type Strategy interface {
	Name() string
	Write(a *types.NumericArray, prefix string) (types.Artifact, error)
}

// DefaultChain returns the strategies tried, in order, for rank <= 2 arrays:
// a CSV table, then a single-column flattened dump, then a binary dump.
func DefaultChain(header bool) []Strategy {
	return []Strategy{
		tableStrategy{header: header},
		flattenStrategy{},
		binaryStrategy{},
	}
}

type tableStrategy struct {
	header bool
}

func (tableStrategy) Name() string { return "tabular" }

func (s tableStrategy) Write(a *types.NumericArray, prefix string) (types.Artifact, error) {
	tbl, err := tabular.FromMatrix(a, s.header)
	if err != nil {
		return types.Artifact{}, err
	}
	path := prefix + ".csv"
	if err := tabular.WriteCSV(path, tbl); err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Path: path, Kind: types.ArtifactCSV, Rows: tbl.NumRows(), Cols: tbl.NumCols()}, nil
}

type flattenStrategy struct{}

func (flattenStrategy) Name() string { return "flattened" }

func (flattenStrategy) Write(a *types.NumericArray, prefix string) (types.Artifact, error) {
	values, err := tabular.Flatten(a)
	if err != nil {
		return types.Artifact{}, err
	}
	path := prefix + "_flattened.csv"
	if err := tabular.WriteDump(path, tabular.Column(values)); err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Path: path, Kind: types.ArtifactFlattened, Rows: len(values), Cols: 1}, nil
}

type binaryStrategy struct{}

func (binaryStrategy) Name() string { return "binary" }

func (binaryStrategy) Write(a *types.NumericArray, prefix string) (types.Artifact, error) {
	if a.Class == types.ElemNumeric {
		path := prefix + ".npy"
		if err := tabular.WriteNPY(path, a.Shape, a.Data, a.Imag); err != nil {
			return types.Artifact{}, err
		}
		return types.Artifact{Path: path, Kind: types.ArtifactNPY}, nil
	}
	path := prefix + ".msgpack"
	if err := tabular.WriteMsgpack(path, Plain(a)); err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Path: path, Kind: types.ArtifactMsgpack}, nil
}

// structuredStrategy writes a structured array with its field names as the
// header row. It is not part of the default chain.
type structuredStrategy struct{}

func (structuredStrategy) Name() string { return "structured" }

func (structuredStrategy) Write(a *types.NumericArray, prefix string) (types.Artifact, error) {
	if a.Rank() > 2 {
		return types.Artifact{}, fmt.Errorf("%w: rank %d structured array", tabular.ErrNotTabular, a.Rank())
	}
	tbl, err := tabular.FromColumns(a)
	if err != nil {
		return types.Artifact{}, err
	}
	path := prefix + ".csv"
	if err := tabular.WriteCSV(path, tbl); err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Path: path, Kind: types.ArtifactCSV, Rows: tbl.NumRows(), Cols: tbl.NumCols()}, nil
}
