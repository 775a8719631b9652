package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runger/nebula/internal/signature"
)

// ErrSeedNotFound is returned when no seed file exists for a framework.
var ErrSeedNotFound = errors.New("no seed file for framework")

// SeedPattern is a known error pattern shipped for a framework.
type SeedPattern struct {
	ErrorCode           string `yaml:"error_code"`
	Message             string `yaml:"message"`
	CommonCause         string `yaml:"common_cause"`
	RecommendedSolution string `yaml:"recommended_solution"`
}

// SeedFile is the on-disk layout of <seeds dir>/<framework>.yaml.
type SeedFile struct {
	Framework string        `yaml:"framework"`
	Patterns  []SeedPattern `yaml:"patterns"`
}

// SeedPath returns the seed file path for a framework.
func SeedPath(dir, framework string) string {
	return filepath.Join(dir, strings.ToLower(strings.TrimSpace(framework))+".yaml")
}

// LoadSeedFile reads the seed patterns for framework from dir.
func LoadSeedFile(dir, framework string) ([]SeedPattern, error) {
	if strings.TrimSpace(framework) == "" {
		return nil, invalidf("framework is required")
	}
	path := SeedPath(dir, framework)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, path)
		}
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for i, p := range f.Patterns {
		if strings.TrimSpace(p.Message) == "" {
			return nil, invalidf("seed pattern %d in %s has no message", i+1, path)
		}
	}
	return f.Patterns, nil
}

// SeedPatterns inserts known patterns that are not in the store yet and
// returns how many were added. Seeded patterns start with zero occurrences,
// so the first matching error reports the pattern as found along with its
// recommended solution.
func (s *Store) SeedPatterns(ctx context.Context, patterns []SeedPattern) (int, error) {
	added := 0
	now := s.nowMs()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range patterns {
			errorType := p.ErrorCode
			if errorType == "" {
				errorType = UnknownErrorType
			}
			cause := p.CommonCause
			if cause == "" {
				cause = truncateRunes(p.Message, maxCauseRunes)
			}
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO error_patterns (
					signature, error_type, common_cause, recommended_solution,
					occurrences, first_seen_ts, last_seen_ts
				) VALUES (?, ?, ?, ?, 0, ?, ?)
			`, signature.Compute(p.Message, p.ErrorCode), errorType, cause,
				nullString(p.RecommendedSolution), now, now)
			if err != nil {
				return fmt.Errorf("failed to seed pattern: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to check rows affected: %w", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.logger.Info("seeded error patterns", "added", added, "offered", len(patterns))
	}
	return added, nil
}
