// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mat2csv CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the mat2csv CLI.
var rootCmd = &cobra.Command{
	Use:   "mat2csv",
	Short: "Convert MATLAB .mat files to CSV",
	Long: `mat2csv reads MATLAB .mat files (level 5 and the HDF5-based v7.3
format) and writes their numeric contents as CSV files.

Top-level structs become a processed_<file>/ directory with one CSV per field.
The generic mode instead walks every variable and names outputs by the
underscore-joined path to each array. Values that cannot be tabulated fall
back to flattened CSV, then to .npy or .msgpack dumps.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mat2csv.yaml or ~/.config/mat2csv/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mat2csv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mat2csv"))
		}
	}

	viper.SetEnvPrefix("MAT2CSV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
