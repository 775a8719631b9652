package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	nlog "github.com/runger/nebula/internal/log"
	"github.com/runger/nebula/internal/signature"
)

// DefaultListLimit bounds list queries that were given no limit.
const DefaultListLimit = 50

const errorColumns = `
	e.id, e.level, e.phase, e.constellation, e.file_path, e.line_number, e.error_code,
	e.message, e.stack_trace, e.attributes, e.signature, e.resolved, e.solution_id, e.created_ts`

func (in *ErrorInput) validate() error {
	if !in.Level.Valid() {
		return invalidf("level must be ERROR or CRITICAL (got %q)", in.Level)
	}
	if strings.TrimSpace(in.Message) == "" {
		return invalidf("message is required")
	}
	if in.Line < 0 {
		return invalidf("line must be >= 0 (got %d)", in.Line)
	}
	return nil
}

// LogError records an error and folds it into its pattern. The error row and
// the pattern update commit together.
func (s *Store) LogError(ctx context.Context, in ErrorInput) (*LogResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s.redactError(&in)
	attrs, err := encodeAttributes(in.Attributes)
	if err != nil {
		return nil, err
	}

	sig := signature.Compute(in.Message, in.Code)
	now := s.nowMs()
	result := &LogResult{Signature: sig}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO errors (
				level, phase, constellation, file_path, line_number, error_code,
				message, stack_trace, attributes, signature, created_ts
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, string(in.Level), in.Phase, in.Constellation, nullString(in.File), nullInt(in.Line),
			nullString(in.Code), in.Message, nullString(in.StackTrace), attrs, sig, now)
		if err != nil {
			return fmt.Errorf("failed to insert error: %w", err)
		}
		if result.ErrorID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get error id: %w", err)
		}
		return s.trackPattern(ctx, tx, &in, sig, now, result)
	})
	if err != nil {
		return nil, err
	}

	if result.PatternFound {
		nlog.LogPatternMatched(s.logger, sig, result.Occurrences)
	}
	return result, nil
}

// GetError returns one error record.
func (s *Store) GetError(ctx context.Context, id int64) (*ErrorRecord, error) {
	return getError(ctx, s.db, id)
}

func getError(ctx context.Context, q querier, id int64) (*ErrorRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+errorColumns+` FROM errors e WHERE e.id = ?`, id)
	rec, err := scanError(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrErrorNotFound, id)
		}
		return nil, fmt.Errorf("failed to get error %d: %w", id, err)
	}
	return rec, nil
}

// ListErrors returns errors newest first.
func (s *Store) ListErrors(ctx context.Context, q ErrorQuery) ([]ErrorRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.Phase != "" {
		where = append(where, "e.phase = ?")
		args = append(args, q.Phase)
	}
	if q.Unresolved {
		where = append(where, "e.resolved = 0")
	}
	query := `SELECT ` + errorColumns + ` FROM errors e`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.created_ts DESC, e.id DESC LIMIT ?"
	args = append(args, clampLimit(q.Limit, DefaultListLimit, 1000))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list errors: %w", err)
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		rec, err := scanError(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanError(row rowScanner, extra ...any) (*ErrorRecord, error) {
	var (
		rec        ErrorRecord
		level      string
		file       sql.NullString
		line       sql.NullInt64
		code       sql.NullString
		stack      sql.NullString
		attrs      string
		resolved   int
		solutionID sql.NullInt64
		createdTs  int64
	)
	dest := []any{
		&rec.ID, &level, &rec.Phase, &rec.Constellation, &file, &line, &code,
		&rec.Message, &stack, &attrs, &rec.Signature, &resolved, &solutionID, &createdTs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	rec.Level = Level(level)
	rec.File = file.String
	rec.Line = int(line.Int64)
	rec.Code = code.String
	rec.StackTrace = stack.String
	rec.Resolved = resolved != 0
	if solutionID.Valid {
		id := solutionID.Int64
		rec.SolutionID = &id
	}
	rec.CreatedAt = fromMs(createdTs)
	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}
	return &rec, nil
}

func encodeAttributes(a Attributes) (string, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(data), nil
}
