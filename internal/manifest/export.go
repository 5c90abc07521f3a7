// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mat2csv/pkg/types"
)

// Entry is one converted source file with its artifacts.
type Entry struct {
	Path      string                 `json:"path" yaml:"path"`
	Size      int64                  `json:"size" yaml:"size"`
	ModTime   string                 `json:"mod_time" yaml:"mod_time"`
	Status    types.ConversionStatus `json:"status" yaml:"status"`
	Settings  string                 `json:"settings" yaml:"settings"`
	RunID     string                 `json:"run_id" yaml:"run_id"`
	Artifacts []types.Artifact       `json:"artifacts" yaml:"artifacts"`
}

// Entries returns every recorded source, ordered by path.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, size, mod_time, status, settings, run_id FROM sources ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.Path, &e.Size, &e.ModTime, &status, &e.Settings, &e.RunID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		e.Status = types.ConversionStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range entries {
		arts, err := s.Artifacts(ctx, entries[i].Path)
		if err != nil {
			return nil, err
		}
		entries[i].Artifacts = arts
	}
	return entries, nil
}

// ExportYAML writes every recorded source and its artifacts to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	entries, err := s.Entries(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
