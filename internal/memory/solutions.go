package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/runger/nebula/internal/signature"
)

const solutionColumns = `
	so.id, so.error_id, so.description, so.code_changes, so.applied_by,
	so.effectiveness, so.notes, so.applied_ts`

func (in *SolutionInput) validate() error {
	if in.ErrorID <= 0 {
		return invalidf("error id must be positive (got %d)", in.ErrorID)
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalidf("description is required")
	}
	if !in.AppliedBy.Valid() {
		return invalidf("applied_by must be ai or human (got %q)", in.AppliedBy)
	}
	if in.Effectiveness < 0 || in.Effectiveness > 5 {
		return invalidf("effectiveness must be 1-5 or unset (got %d)", in.Effectiveness)
	}
	return nil
}

// RecordSolution stores the fix for an error and marks the error resolved.
// A solution rated 4 or 5 becomes the recommended fix for the error's pattern.
func (s *Store) RecordSolution(ctx context.Context, in SolutionInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	in.CodeChanges = s.redact(in.CodeChanges)
	in.Notes = s.redact(in.Notes)

	var solutionID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := getError(ctx, tx, in.ErrorID)
		if err != nil {
			return err
		}
		if rec.Resolved {
			return fmt.Errorf("%w: error %d", ErrAlreadyResolved, in.ErrorID)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO solutions (
				error_id, description, code_changes, applied_by, effectiveness, notes, applied_ts
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, in.ErrorID, in.Description, nullString(in.CodeChanges), string(in.AppliedBy),
			nullInt(in.Effectiveness), in.Notes, s.nowMs())
		if err != nil {
			return fmt.Errorf("failed to insert solution: %w", err)
		}
		if solutionID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get solution id: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE errors SET resolved = 1, solution_id = ? WHERE id = ?
		`, solutionID, in.ErrorID)
		if err != nil {
			return fmt.Errorf("failed to mark error resolved: %w", err)
		}

		if in.Effectiveness >= successThreshold {
			return promotePattern(ctx, tx, signature.Compute(rec.Message, rec.Code), in.Description)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return solutionID, nil
}

// GetSolution returns one solution.
func (s *Store) GetSolution(ctx context.Context, id int64) (*Solution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+solutionColumns+` FROM solutions so WHERE so.id = ?`, id)
	sol, err := scanSolution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrSolutionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get solution %d: %w", id, err)
	}
	return sol, nil
}

// ListSolutions returns solutions, newest first.
func (s *Store) ListSolutions(ctx context.Context, limit int) ([]Solution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+solutionColumns+` FROM solutions so
		ORDER BY so.applied_ts DESC, so.id DESC LIMIT ?
	`, clampLimit(limit, DefaultListLimit, 1000))
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solution: %w", err)
		}
		out = append(out, *sol)
	}
	return out, rows.Err()
}

func scanSolution(row rowScanner) (*Solution, error) {
	var (
		sol           Solution
		codeChanges   sql.NullString
		appliedBy     string
		effectiveness sql.NullInt64
		appliedTs     int64
	)
	err := row.Scan(&sol.ID, &sol.ErrorID, &sol.Description, &codeChanges, &appliedBy,
		&effectiveness, &sol.Notes, &appliedTs)
	if err != nil {
		return nil, err
	}
	sol.CodeChanges = codeChanges.String
	sol.AppliedBy = Actor(appliedBy)
	sol.Effectiveness = int(effectiveness.Int64)
	sol.AppliedAt = fromMs(appliedTs)
	return &sol, nil
}
