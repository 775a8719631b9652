package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultSearchLimit is the number of similar errors returned by default.
	DefaultSearchLimit = 10

	// MaxSearchLimit caps similar-error queries.
	MaxSearchLimit = 100
)

// searcher finds errors whose message or stack trace matches text. The
// strategy is fixed when the store opens.
type searcher interface {
	find(ctx context.Context, q querier, text, phase string, limit int) ([]SimilarError, error)
}

const similarSelect = `SELECT ` + errorColumns + `, %s,
	so.id, so.description, so.code_changes, so.applied_by, so.effectiveness, so.notes, so.applied_ts
	FROM %s
	LEFT JOIN solutions so ON so.error_id = e.id
	WHERE %s AND (? = '' OR e.phase = ?)
	ORDER BY e.created_ts DESC, e.id DESC
	LIMIT ?`

var (
	ftsSearchQuery = fmt.Sprintf(similarSelect,
		"bm25(errors_fts)",
		"errors_fts JOIN errors e ON e.id = errors_fts.rowid",
		"errors_fts MATCH ?")

	// instr keeps the match case-sensitive, unlike LIKE in SQLite.
	substringSearchQuery = fmt.Sprintf(similarSelect,
		"0.0",
		"errors e",
		"(instr(e.message, ?) > 0 OR instr(COALESCE(e.stack_trace, ''), ?) > 0)")
)

type ftsSearcher struct{}

func (ftsSearcher) find(ctx context.Context, q querier, text, phase string, limit int) ([]SimilarError, error) {
	rows, err := q.QueryContext(ctx, ftsSearchQuery, escapeFTS5Query(text), phase, phase, limit)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	return scanSimilar(rows)
}

type substringSearcher struct{}

func (substringSearcher) find(ctx context.Context, q querier, text, phase string, limit int) ([]SimilarError, error) {
	rows, err := q.QueryContext(ctx, substringSearchQuery, text, text, phase, phase, limit)
	if err != nil {
		return nil, fmt.Errorf("substring search failed: %w", err)
	}
	return scanSimilar(rows)
}

// FindSimilarErrors returns past errors matching text, newest first, each with
// the solution that resolved it when there is one. Blank text matches nothing.
func (s *Store) FindSimilarErrors(ctx context.Context, q SimilarQuery) ([]SimilarError, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, nil
	}
	return s.search.find(ctx, s.db, text, q.Phase, clampLimit(q.Limit, DefaultSearchLimit, MaxSearchLimit))
}

// RebuildSearchIndex repopulates the full-text index from the errors table.
func (s *Store) RebuildSearchIndex(ctx context.Context) error {
	if !s.ftsAvailable {
		return ErrFTS5Unavailable
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO errors_fts(errors_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	return nil
}

func scanSimilar(rows *sql.Rows) ([]SimilarError, error) {
	defer rows.Close()

	var out []SimilarError
	for rows.Next() {
		var (
			score         float64
			solID         sql.NullInt64
			description   sql.NullString
			codeChanges   sql.NullString
			appliedBy     sql.NullString
			effectiveness sql.NullInt64
			notes         sql.NullString
			appliedTs     sql.NullInt64
		)
		rec, err := scanError(rows, &score, &solID, &description, &codeChanges,
			&appliedBy, &effectiveness, &notes, &appliedTs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		hit := SimilarError{ErrorRecord: *rec, Score: score}
		if solID.Valid {
			hit.Solution = &Solution{
				ID:            solID.Int64,
				ErrorID:       rec.ID,
				Description:   description.String,
				CodeChanges:   codeChanges.String,
				AppliedBy:     Actor(appliedBy.String),
				Effectiveness: int(effectiveness.Int64),
				Notes:         notes.String,
				AppliedAt:     fromMs(appliedTs.Int64),
			}
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

// escapeFTS5Query turns free text into a single FTS5 phrase so operator
// characters are matched literally. A query ending in a letter or digit
// becomes a prefix phrase, so "pointer deref" finds "pointer dereference".
func escapeFTS5Query(query string) string {
	escaped := fmt.Sprintf(`"%s"`, strings.ReplaceAll(query, `"`, `""`))
	last, _ := utf8.DecodeLastRuneInString(query)
	if unicode.IsLetter(last) || unicode.IsDigit(last) {
		escaped += "*"
	}
	return escaped
}
