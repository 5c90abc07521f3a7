// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mat2csv/internal/matfile"
	"github.com/pdiddy/mat2csv/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the variables of a MAT file",
	Long: `Inspect loads a MAT file and prints each variable with its kind,
MATLAB class and shape. Struct fields and mapping entries are listed up to
--depth levels deep. Nothing is written to disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("squeeze", false, "drop singleton dimensions on load")
	inspectCmd.Flags().Int("depth", 2, "levels of struct fields to list")
	inspectCmd.Flags().Bool("all", false, "include metadata variables such as __header__")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	squeeze, _ := cmd.Flags().GetBool("squeeze")
	depth, _ := cmd.Flags().GetInt("depth")
	all, _ := cmd.Flags().GetBool("all")

	doc, err := matfile.Load(args[0], matfile.LoadOptions{Squeeze: squeeze})
	if err != nil {
		return err
	}

	w := os.Stdout
	fmt.Fprintf(w, "File:   %s\n", doc.Path)
	fmt.Fprintf(w, "Format: %s\n", doc.Format)
	if doc.Header != "" {
		fmt.Fprintf(w, "Header: %s\n", doc.Header)
	}
	for _, v := range doc.Variables {
		if !all && types.IsMetadata(v.Name, types.DefaultMetadataPrefixes) {
			continue
		}
		name := v.Name
		if v.Global {
			name += " (global)"
		}
		printValue(w, name, v.Value, 0, depth)
	}
	return nil
}

func printValue(w io.Writer, name string, v types.Value, level, maxDepth int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(w, "%s%s: %s\n", indent, name, types.Describe(v))
	if level >= maxDepth {
		return
	}
	switch x := v.(type) {
	case *types.Struct:
		for _, f := range x.FieldNames {
			printValue(w, f, x.Fields[f], level+1, maxDepth)
		}
	case *types.Mapping:
		for _, k := range x.Keys {
			printValue(w, k, x.Values[k], level+1, maxDepth)
		}
	case *types.NumericArray:
		if x.Class == types.ElemObject && len(x.Cells) == 1 {
			printValue(w, "[0]", x.Cells[0], level+1, maxDepth)
		}
	}
}
