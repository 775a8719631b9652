package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportSnapshotLimit is how many context snapshots an export includes.
const ExportSnapshotLimit = 10

// ExportDocument is the JSON document written by ExportJSON.
type ExportDocument struct {
	ExportedAt       time.Time             `json:"exported_at"`
	Project          *ProjectInfo          `json:"project"`
	Statistics       *Statistics           `json:"statistics"`
	Errors           []ErrorRecord         `json:"errors"`
	ErrorPatterns    []ErrorPattern        `json:"error_patterns"`
	Solutions        []Solution            `json:"solutions"`
	Decisions        []Decision            `json:"decisions"`
	QualityGates     []QualityGate         `json:"quality_gates"`
	Checkpoints      []Checkpoint          `json:"checkpoints"`
	ContextSnapshots []Snapshot            `json:"context_snapshots"`
	VersionHistory   []VersionHistoryEntry `json:"version_history"`
	SchemaVersion    int                   `json:"schema_version"`
}

// Export collects the whole store into one document. Only the most recent
// snapshotLimit context snapshots are included.
func (s *Store) Export(ctx context.Context, snapshotLimit int) (*ExportDocument, error) {
	if snapshotLimit <= 0 {
		snapshotLimit = ExportSnapshotLimit
	}
	out := &ExportDocument{ExportedAt: s.now().UTC(), SchemaVersion: SchemaVersion}

	var err error
	if out.Project, err = s.Project(ctx); err != nil && !errors.Is(err, ErrNotInitialized) {
		return nil, err
	}
	if out.Statistics, err = s.Statistics(ctx); err != nil {
		return nil, err
	}
	if out.Errors, err = s.ListErrors(ctx, ErrorQuery{Limit: Unlimited}); err != nil {
		return nil, err
	}
	if out.ErrorPatterns, err = s.GetPatterns(ctx, PatternQuery{Limit: Unlimited}); err != nil {
		return nil, err
	}
	if out.Solutions, err = s.ListSolutions(ctx, Unlimited); err != nil {
		return nil, err
	}
	if out.Decisions, err = s.ListDecisions(ctx, DecisionQuery{Limit: Unlimited}); err != nil {
		return nil, err
	}
	if out.QualityGates, err = s.ListQualityGates(ctx, Unlimited); err != nil {
		return nil, err
	}
	if out.Checkpoints, err = s.ListCheckpoints(ctx, -1); err != nil {
		return nil, err
	}
	if out.ContextSnapshots, err = s.ListContextSnapshots(ctx, snapshotLimit); err != nil {
		return nil, err
	}
	if out.VersionHistory, err = s.VersionHistory(ctx, Unlimited); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportJSON writes the store as indented JSON to path and returns the
// absolute path written.
func (s *Store) ExportJSON(ctx context.Context, path string) (string, error) {
	return s.ExportJSONWithLimit(ctx, path, ExportSnapshotLimit)
}

// ExportJSONWithLimit is ExportJSON with a custom snapshot cap.
func (s *Store) ExportJSONWithLimit(ctx context.Context, path string, snapshotLimit int) (string, error) {
	if path == "" {
		return "", invalidf("export path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve export path: %w", err)
	}

	doc, err := s.Export(ctx, snapshotLimit)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	s.logger.Info("memory exported", "path", abs, "errors", len(doc.Errors), "snapshots", len(doc.ContextSnapshots))
	return abs, nil
}
