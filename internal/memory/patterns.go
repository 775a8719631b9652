package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	// UnknownErrorType is the pattern type for errors logged without a code.
	UnknownErrorType = "UNKNOWN"

	// maxCauseRunes bounds the common cause copied from the first message.
	maxCauseRunes = 200

	// successThreshold is the lowest rating that feeds a pattern.
	successThreshold = 4
)

const patternColumns = `
	id, signature, error_type, common_cause, recommended_solution,
	occurrences, success_rate, first_seen_ts, last_seen_ts`

// trackPattern bumps the pattern for sig or creates it.
func (s *Store) trackPattern(ctx context.Context, tx *sql.Tx, in *ErrorInput, sig string, now int64, result *LogResult) error {
	var (
		id          int64
		occurrences int
		recommended sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, occurrences, recommended_solution FROM error_patterns WHERE signature = ?
	`, sig).Scan(&id, &occurrences, &recommended)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		errorType := in.Code
		if errorType == "" {
			errorType = UnknownErrorType
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO error_patterns (
				signature, error_type, common_cause, occurrences, first_seen_ts, last_seen_ts
			) VALUES (?, ?, ?, 1, ?, ?)
		`, sig, errorType, truncateRunes(in.Message, maxCauseRunes), now, now)
		if err != nil {
			return fmt.Errorf("failed to create pattern: %w", err)
		}
		result.PatternFound = false
		result.Occurrences = 1
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up pattern: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE error_patterns SET occurrences = occurrences + 1, last_seen_ts = ? WHERE id = ?
	`, now, id)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}
	result.PatternFound = true
	result.Occurrences = occurrences + 1
	result.RecommendedSolution = recommended.String
	return nil
}

// promotePattern makes description the recommended fix for sig and
// recomputes the success rate over every well-rated solution sharing it.
func promotePattern(ctx context.Context, tx *sql.Tx, sig, description string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE error_patterns SET
			recommended_solution = ?,
			success_rate = COALESCE((
				SELECT AVG(so.effectiveness / 5.0)
				FROM solutions so
				JOIN errors e ON e.id = so.error_id
				WHERE e.signature = ? AND so.effectiveness >= ?
			), 0.0)
		WHERE signature = ?
	`, description, sig, successThreshold, sig)
	if err != nil {
		return fmt.Errorf("failed to update pattern success rate: %w", err)
	}
	return nil
}

// GetPatterns lists patterns, most frequent first.
func (s *Store) GetPatterns(ctx context.Context, q PatternQuery) ([]ErrorPattern, error) {
	var (
		where []string
		args  []any
	)
	if q.ErrorType != "" {
		where = append(where, "error_type = ?")
		args = append(args, q.ErrorType)
	}
	if q.MinOccurrences > 0 {
		where = append(where, "occurrences >= ?")
		args = append(args, q.MinOccurrences)
	}
	query := `SELECT ` + patternColumns + ` FROM error_patterns`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurrences DESC, last_seen_ts DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(q.Limit, DefaultListLimit, 1000))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var out []ErrorPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetPattern returns the pattern for a signature.
func (s *Store) GetPattern(ctx context.Context, sig string) (*ErrorPattern, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patternColumns+` FROM error_patterns WHERE signature = ?`, sig)
	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return p, nil
}

func scanPattern(row rowScanner) (*ErrorPattern, error) {
	var (
		p                 ErrorPattern
		recommended       sql.NullString
		firstSeen, lastTs int64
	)
	err := row.Scan(&p.ID, &p.Signature, &p.ErrorType, &p.CommonCause, &recommended,
		&p.Occurrences, &p.SuccessRate, &firstSeen, &lastTs)
	if err != nil {
		return nil, err
	}
	if recommended.Valid {
		r := recommended.String
		p.RecommendedSolution = &r
	}
	p.FirstSeen = fromMs(firstSeen)
	p.LastSeen = fromMs(lastTs)
	return &p, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
