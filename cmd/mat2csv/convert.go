// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mat2csv/internal/convert"
	"github.com/pdiddy/mat2csv/internal/export"
	"github.com/pdiddy/mat2csv/internal/manifest"
	"github.com/pdiddy/mat2csv/internal/matfile"
	"github.com/pdiddy/mat2csv/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files or directories...]",
	Short: "Convert MAT files to CSV",
	Long: `Convert loads each MAT file and writes its contents below
<output-dir>/processed_<file>/. Directories are expanded to the .mat files
they contain.

In struct mode (the default) every top-level struct variable is written as
one CSV per field, with nested structs in subdirectories. In generic mode
every variable is dispatched by kind and outputs are named by the
underscore-joined path to each array.

With --manifest, each run is recorded in a SQLite database and files that
are unchanged since their last successful conversion are skipped unless
--force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.String("mode", string(types.ModeStruct), "export mode: struct or generic")
	f.StringP("output-dir", "o", ".", "directory that receives processed_<file>/ directories")
	f.Bool("squeeze", false, "drop singleton dimensions on load (when unset: on in struct mode, off in generic mode)")
	f.Bool("no-header", false, "omit the column-index header row from CSVs")
	f.Int("max-struct-depth", 1, "levels of nested structs written below a top-level field")
	f.Int("max-prefix-len", 0, "cap generated file-name prefixes in generic mode (0 = unlimited)")
	f.String("manifest", "", "SQLite manifest recording runs and artifacts (empty disables)")
	f.Bool("force", false, "convert files the manifest reports as unchanged")

	for _, name := range []string{"mode", "output-dir", "squeeze", "no-header", "max-struct-depth", "max-prefix-len", "manifest", "force"} {
		viper.BindPFlag("convert."+name, f.Lookup(name))
	}

	rootCmd.AddCommand(convertCmd)
}

// exportConfig resolves the conversion settings from flags, config file and
// environment.
func exportConfig() (types.ExportConfig, error) {
	cfg := types.DefaultExportConfig()

	switch mode := types.ExportMode(viper.GetString("convert.mode")); mode {
	case types.ModeStruct, types.ModeGeneric:
		cfg.Mode = mode
	default:
		return cfg, fmt.Errorf("unknown mode %q (want %s or %s)", mode, types.ModeStruct, types.ModeGeneric)
	}

	if dir := viper.GetString("convert.output-dir"); dir != "" {
		cfg.OutputDir = dir
	}
	if viper.IsSet("convert.squeeze") {
		cfg.Squeeze = viper.GetBool("convert.squeeze")
	} else {
		cfg.Squeeze = cfg.Mode == types.ModeStruct
	}
	cfg.Header = !viper.GetBool("convert.no-header")
	cfg.MaxStructDepth = viper.GetInt("convert.max-struct-depth")
	cfg.MaxPrefixLen = viper.GetInt("convert.max-prefix-len")
	cfg.ManifestPath = viper.GetString("convert.manifest")
	cfg.Force = viper.GetBool("convert.force")

	if cfg.MaxStructDepth < 0 {
		return cfg, fmt.Errorf("max-struct-depth must not be negative")
	}
	if cfg.MaxPrefixLen < 0 {
		return cfg, fmt.Errorf("max-prefix-len must not be negative")
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := exportConfig()
	if err != nil {
		return err
	}

	paths, err := convert.ExpandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .mat files found in %v", args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := convert.Options{
		Mode:   cfg.Mode,
		Export: export.OptionsFromConfig(cfg),
		Force:  cfg.Force,
	}

	if cfg.ManifestPath != "" {
		store, err := manifest.Open(cfg.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := store.StartRun(ctx)
		if err != nil {
			return err
		}
		opts.Manifest = store
		opts.RunID = runID
		fmt.Fprintf(os.Stderr, "Recording run %s in %s\n", runID, store.Path())
	}

	loader := convert.MatLoader{Opts: matfile.LoadOptions{Squeeze: cfg.Squeeze}}
	result := convert.ConvertBatch(ctx, loader, paths, opts, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return ctx.Err()
}
