// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mat2csv/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect the conversion manifest (list, export)",
	Long: `Manifest reads the SQLite database written by convert --manifest and
reports which files were converted, with what outcome, and which artifacts
they produced.`,
}

var manifestListCmd = &cobra.Command{
	Use:   "list [source]",
	Short: "List recorded sources, or the artifacts of one source",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runManifestList,
}

var manifestExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the manifest as YAML",
	RunE:  runManifestExport,
}

func init() {
	manifestCmd.PersistentFlags().String("manifest", manifest.DefaultFile, "SQLite manifest path")
	viper.BindPFlag("manifest.path", manifestCmd.PersistentFlags().Lookup("manifest"))

	manifestExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	manifestCmd.AddCommand(manifestListCmd)
	manifestCmd.AddCommand(manifestExportCmd)
	rootCmd.AddCommand(manifestCmd)
}

func openManifest() (*manifest.Store, error) {
	path := viper.GetString("manifest.path")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return manifest.Open(path)
}

func runManifestList(cmd *cobra.Command, args []string) error {
	store, err := openManifest()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	if len(args) == 1 {
		arts, err := store.Artifacts(ctx, args[0])
		if err != nil {
			return err
		}
		if len(arts) == 0 {
			fmt.Printf("No artifacts recorded for %s\n", args[0])
			return nil
		}
		for _, a := range arts {
			if a.Rows > 0 || a.Cols > 0 {
				fmt.Printf("%-9s %s (%d x %d) [%s]\n", a.Kind, a.Path, a.Rows, a.Cols, a.Variable)
			} else {
				fmt.Printf("%-9s %s [%s]\n", a.Kind, a.Path, a.Variable)
			}
		}
		return nil
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No sources recorded.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-9s %s (%d artifacts, run %s)\n", e.Status, e.Path, len(e.Artifacts), e.RunID)
	}
	return nil
}

func runManifestExport(cmd *cobra.Command, args []string) error {
	store, err := openManifest()
	if err != nil {
		return err
	}
	defer store.Close()

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return store.ExportYAML(context.Background(), os.Stdout)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := store.ExportYAML(context.Background(), f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
	return nil
}
