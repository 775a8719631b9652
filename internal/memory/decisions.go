package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CategoryVersionBump is the decision category written by BumpVersion.
const CategoryVersionBump = "version_bump"

func (in *DecisionInput) validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return invalidf("category is required")
	}
	if strings.TrimSpace(in.Question) == "" {
		return invalidf("question is required")
	}
	if strings.TrimSpace(in.Chosen) == "" {
		return invalidf("chosen option is required")
	}
	if !in.DecidedBy.Valid() {
		return invalidf("decided_by must be ai or human (got %q)", in.DecidedBy)
	}
	return nil
}

// RecordDecision appends a decision to the log.
func (s *Store) RecordDecision(ctx context.Context, in DecisionInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	return insertDecision(ctx, s.db, in, s.nowMs())
}

func insertDecision(ctx context.Context, q querier, in DecisionInput, now int64) (int64, error) {
	alternatives, err := encodeList(in.Alternatives)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO decisions (
			phase, constellation, category, question, chosen, alternatives,
			rationale, decided_by, created_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Phase, in.Constellation, in.Category, in.Question, in.Chosen, alternatives,
		in.Rationale, string(in.DecidedBy), now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert decision: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get decision id: %w", err)
	}
	return id, nil
}

// ListDecisions returns decisions, newest first.
func (s *Store) ListDecisions(ctx context.Context, q DecisionQuery) ([]Decision, error) {
	var (
		where []string
		args  []any
	)
	if q.Phase != "" {
		where = append(where, "phase = ?")
		args = append(args, q.Phase)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	query := `SELECT id, phase, constellation, category, question, chosen, alternatives,
		rationale, decided_by, created_ts FROM decisions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_ts DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(q.Limit, DefaultListLimit, 1000))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d            Decision
			alternatives string
			decidedBy    string
			createdTs    int64
		)
		if err := rows.Scan(&d.ID, &d.Phase, &d.Constellation, &d.Category, &d.Question,
			&d.Chosen, &alternatives, &d.Rationale, &decidedBy, &createdTs); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if d.Alternatives, err = decodeList(alternatives); err != nil {
			return nil, err
		}
		d.DecidedBy = Actor(decidedBy)
		d.CreatedAt = fromMs(createdTs)
		out = append(out, d)
	}
	return out, rows.Err()
}

// encodeList stores a string list as a JSON array; nil becomes [].
func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	items := []string{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return items, nil
}
