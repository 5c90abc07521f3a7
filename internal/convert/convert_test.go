// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/mat2csv/internal/export"
	"github.com/pdiddy/mat2csv/internal/manifest"
	"github.com/pdiddy/mat2csv/internal/matfile"
	"github.com/pdiddy/mat2csv/internal/testutil"
	"github.com/pdiddy/mat2csv/pkg/types"
)

// failingLoader implements Loader and always returns err.
type failingLoader struct {
	err error
}

func (f failingLoader) Load(string) (*types.Document, error) {
	return nil, f.err
}

var squeezed = MatLoader{Opts: matfile.LoadOptions{Squeeze: true}}

func testOptions(outDir string, mode types.ExportMode) Options {
	exp := export.DefaultOptions()
	exp.OutputDir = outDir
	return Options{Mode: mode, Export: exp}
}

// writeFixtures creates MAT files covering the conversion outcomes.
func writeFixtures(t *testing.T, dir string) map[string]string {
	t.Helper()
	return map[string]string{
		"clean": testutil.NewMatWriter("clean").
			Var("B0005", testutil.Record([]string{"cycle"}, testutil.Matrix(3, 4, testutil.Seq(12)...))).
			WriteFile(t, dir, "B0005.mat"),
		"mixed": testutil.NewMatWriter("mixed").
			Var("B0006", testutil.Record([]string{"cycle", "label"},
				testutil.Matrix(3, 4, testutil.Seq(12)...),
				testutil.Char{Rows: []string{"discharge"}})).
			WriteFile(t, dir, "B0006.mat"),
		"plain": testutil.NewMatWriter("plain").
			Var("m", testutil.Matrix(2, 2, 1, 2, 3, 4)).
			WriteFile(t, dir, "plain.mat"),
	}
}

func TestConvertFile(t *testing.T) {
	tests := []struct {
		name       string
		fixture    string
		loader     Loader
		mode       types.ExportMode
		wantStatus types.ConversionStatus
		wantLog    string
		wantFile   string
	}{
		{
			name:       "struct converted",
			fixture:    "clean",
			loader:     squeezed,
			mode:       types.ModeStruct,
			wantStatus: types.ConversionDone,
			wantLog:    "converted: B0005.mat (1 artifacts)",
			wantFile:   "processed_B0005/cycle.csv",
		},
		{
			name:       "struct with skipped field",
			fixture:    "mixed",
			loader:     squeezed,
			mode:       types.ModeStruct,
			wantStatus: types.ConversionPartial,
			wantLog:    "partial:",
			wantFile:   "processed_B0006/cycle.csv",
		},
		{
			name:       "no struct in struct mode",
			fixture:    "plain",
			loader:     squeezed,
			mode:       types.ModeStruct,
			wantStatus: types.ConversionFailed,
			wantLog:    "failed:",
		},
		{
			name:       "generic mode",
			fixture:    "plain",
			loader:     MatLoader{},
			mode:       types.ModeGeneric,
			wantStatus: types.ConversionDone,
			wantLog:    "converted: plain.mat",
			wantFile:   "processed_plain/m.csv",
		},
		{
			name:       "load failure",
			fixture:    "clean",
			loader:     failingLoader{err: errors.New("corrupt file")},
			mode:       types.ModeStruct,
			wantStatus: types.ConversionFailed,
			wantLog:    "failed:  B0005.mat (corrupt file)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			fixtures := writeFixtures(t, filepath.Join(tmpDir, "raw"))
			outDir := filepath.Join(tmpDir, "out")

			var log bytes.Buffer
			res := ConvertFile(context.Background(), tt.loader, fixtures[tt.fixture], testOptions(outDir, tt.mode), &log)

			if res.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", res.Status, tt.wantStatus)
			}
			if !strings.Contains(log.String(), tt.wantLog) {
				t.Errorf("log output %q does not contain %q", log.String(), tt.wantLog)
			}
			if tt.wantStatus == types.ConversionFailed && res.Err == nil {
				t.Error("failed result should carry an error")
			}
			if tt.wantFile != "" {
				if _, err := os.Stat(filepath.Join(outDir, tt.wantFile)); err != nil {
					t.Errorf("expected output file %s: %v", tt.wantFile, err)
				}
			}
		})
	}
}

func TestConvertFile_MissingInput(t *testing.T) {
	var log bytes.Buffer
	res := ConvertFile(context.Background(), squeezed, filepath.Join(t.TempDir(), "nope.mat"), testOptions(t.TempDir(), types.ModeStruct), &log)
	if res.Status != types.ConversionFailed {
		t.Errorf("status = %q, want failed", res.Status)
	}
}

func TestConvertFile_Manifest(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	fixtures := writeFixtures(t, filepath.Join(tmpDir, "raw"))

	store, err := manifest.Open(filepath.Join(tmpDir, manifest.DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	runID, err := store.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions(filepath.Join(tmpDir, "out"), types.ModeStruct)
	opts.Manifest = store
	opts.RunID = runID

	var log bytes.Buffer
	first := ConvertFile(ctx, squeezed, fixtures["clean"], opts, &log)
	if first.Status != types.ConversionDone {
		t.Fatalf("first run status = %q, want converted", first.Status)
	}

	arts, err := store.Artifacts(ctx, fixtures["clean"])
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 || arts[0].Variable != "B0005" {
		t.Errorf("manifest artifacts = %+v, want one artifact of B0005", arts)
	}

	second := ConvertFile(ctx, squeezed, fixtures["clean"], opts, &log)
	if second.Status != types.ConversionNone {
		t.Errorf("second run status = %q, want none", second.Status)
	}
	if !strings.Contains(log.String(), "skipped: B0005.mat (unchanged)") {
		t.Errorf("log output %q does not report the skip", log.String())
	}

	opts.Force = true
	forced := ConvertFile(ctx, squeezed, fixtures["clean"], opts, &log)
	if forced.Status != types.ConversionDone {
		t.Errorf("forced run status = %q, want converted", forced.Status)
	}
}

func TestConvertFile_ManifestSettingsChange(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	fixtures := writeFixtures(t, filepath.Join(tmpDir, "raw"))

	store, err := manifest.Open(filepath.Join(tmpDir, manifest.DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	runID, err := store.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions(filepath.Join(tmpDir, "out"), types.ModeStruct)
	opts.Manifest = store
	opts.RunID = runID

	var log bytes.Buffer
	if res := ConvertFile(ctx, squeezed, fixtures["clean"], opts, &log); res.Status != types.ConversionDone {
		t.Fatalf("first run status = %q, want converted", res.Status)
	}

	tests := []struct {
		name     string
		change   func(o *Options)
		wantFile string
	}{
		{
			name:     "new output directory",
			change:   func(o *Options) { o.Export.OutputDir = filepath.Join(tmpDir, "other") },
			wantFile: filepath.Join(tmpDir, "other", "processed_B0005", "cycle.csv"),
		},
		{
			name:     "outputs deleted",
			change:   func(o *Options) { os.RemoveAll(filepath.Join(tmpDir, "other")) },
			wantFile: filepath.Join(tmpDir, "other", "processed_B0005", "cycle.csv"),
		},
		{
			name:     "new mode",
			change:   func(o *Options) { o.Mode = types.ModeGeneric },
			wantFile: filepath.Join(tmpDir, "other", "processed_B0005", "B0005_cycle.csv"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.change(&opts)
			res := ConvertFile(ctx, squeezed, fixtures["clean"], opts, &log)
			if res.Status != types.ConversionDone {
				t.Errorf("status = %q, want converted", res.Status)
			}
			if _, err := os.Stat(tt.wantFile); err != nil {
				t.Errorf("expected output file %s: %v", tt.wantFile, err)
			}
		})
	}
}

func TestSettings(t *testing.T) {
	base := testOptions("out", types.ModeStruct)
	other := base
	other.Export.Header = false

	if Settings(squeezed, base) == Settings(squeezed, other) {
		t.Error("header change should alter settings")
	}
	if Settings(squeezed, base) == Settings(MatLoader{}, base) {
		t.Error("squeeze change should alter settings")
	}
	if Settings(squeezed, base) != Settings(squeezed, testOptions("out", types.ModeStruct)) {
		t.Error("settings should be stable")
	}
}

func TestConvertBatch(t *testing.T) {
	tmpDir := t.TempDir()
	fixtures := writeFixtures(t, filepath.Join(tmpDir, "raw"))
	paths := []string{fixtures["clean"], fixtures["mixed"], fixtures["plain"]}

	var log bytes.Buffer
	result := ConvertBatch(context.Background(), squeezed, paths, testOptions(filepath.Join(tmpDir, "out"), types.ModeStruct), &log)

	if result.Converted != 1 {
		t.Errorf("converted = %d, want 1", result.Converted)
	}
	if result.Partial != 1 {
		t.Errorf("partial = %d, want 1", result.Partial)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if result.Total() != 3 || len(result.Files) != 3 {
		t.Errorf("total = %d (files %d), want 3", result.Total(), len(result.Files))
	}
	if !strings.Contains(log.String(), "Batch summary: 1 converted, 1 partial, 0 skipped, 1 failed (total: 3)") {
		t.Errorf("batch output %q should contain summary line", log.String())
	}
}

func TestConvertBatch_Cancelled(t *testing.T) {
	tmpDir := t.TempDir()
	fixtures := writeFixtures(t, tmpDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log bytes.Buffer
	result := ConvertBatch(ctx, squeezed, []string{fixtures["clean"]}, testOptions(tmpDir, types.ModeStruct), &log)
	if result.Total() != 0 {
		t.Errorf("total = %d, want 0 after cancellation", result.Total())
	}
}

func TestExpandInputs(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"b.mat", "a.MAT", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "sub.mat"), 0o755); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(tmpDir, "b.mat")

	got, err := ExpandInputs([]string{tmpDir, single})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(tmpDir, "a.MAT"), filepath.Join(tmpDir, "b.mat")}
	if len(got) != len(want) {
		t.Fatalf("ExpandInputs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExpandInputs[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := ExpandInputs([]string{filepath.Join(tmpDir, "missing.mat")}); err == nil {
		t.Error("expected error for missing input")
	}
}
