package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/runger/nebula/internal/memory"
)

// Source is the slice of the memory store the browser reads from.
type Source interface {
	ListErrors(ctx context.Context, q memory.ErrorQuery) ([]memory.ErrorRecord, error)
	FindSimilarErrors(ctx context.Context, q memory.SimilarQuery) ([]memory.SimilarError, error)
	GetPatterns(ctx context.Context, q memory.PatternQuery) ([]memory.ErrorPattern, error)
}

// StoreProvider implements Provider on top of the project memory.
type StoreProvider struct {
	src Source
}

// Compile-time check that StoreProvider implements Provider.
var _ Provider = (*StoreProvider)(nil)

// NewStoreProvider creates a provider reading from src.
func NewStoreProvider(src Source) *StoreProvider {
	return &StoreProvider{src: src}
}

// Fetch returns one page of the requested tab. Queries on error tabs go
// through similarity search; the pattern tab filters case-insensitively on
// error type and common cause.
func (p *StoreProvider) Fetch(ctx context.Context, req Request) (Response, error) {
	want := req.Offset + req.Limit
	if req.Limit <= 0 {
		want = req.Offset + memory.DefaultListLimit
	}

	var (
		items []Item
		err   error
	)
	switch req.TabID {
	case TabUnresolved, TabAll:
		items, err = p.fetchErrors(ctx, req.TabID == TabUnresolved, req.Query, want)
	case TabPatterns:
		items, err = p.fetchPatterns(ctx, req.Query, want)
	default:
		return Response{}, fmt.Errorf("store provider: unknown tab %q", req.TabID)
	}
	if err != nil {
		return Response{}, fmt.Errorf("store provider: %w", err)
	}

	atEnd := len(items) < want
	if req.Offset >= len(items) {
		return Response{RequestID: req.RequestID, AtEnd: true}, nil
	}
	items = items[req.Offset:]
	if req.Limit > 0 && len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return Response{RequestID: req.RequestID, Items: items, AtEnd: atEnd}, nil
}

func (p *StoreProvider) fetchErrors(ctx context.Context, unresolved bool, query string, want int) ([]Item, error) {
	if strings.TrimSpace(query) == "" {
		recs, err := p.src.ListErrors(ctx, memory.ErrorQuery{Unresolved: unresolved, Limit: want})
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(recs))
		for i := range recs {
			items = append(items, errorItem(&recs[i]))
		}
		return items, nil
	}

	hits, err := p.src.FindSimilarErrors(ctx, memory.SimilarQuery{Text: query, Limit: want})
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(hits))
	for i := range hits {
		if unresolved && hits[i].Resolved {
			continue
		}
		items = append(items, errorItem(&hits[i].ErrorRecord))
	}
	return items, nil
}

func (p *StoreProvider) fetchPatterns(ctx context.Context, query string, want int) ([]Item, error) {
	limit := want
	if query != "" {
		limit = memory.Unlimited
	}
	patterns, err := p.src.GetPatterns(ctx, memory.PatternQuery{Limit: limit})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	items := make([]Item, 0, len(patterns))
	for i := range patterns {
		pat := &patterns[i]
		if needle != "" &&
			!strings.Contains(strings.ToLower(pat.CommonCause), needle) &&
			!strings.Contains(strings.ToLower(pat.ErrorType), needle) {
			continue
		}
		items = append(items, patternItem(pat))
		if len(items) == want {
			break
		}
	}
	return items, nil
}

func errorItem(rec *memory.ErrorRecord) Item {
	title := rec.Message
	if rec.Code != "" {
		title = rec.Code + ": " + title
	}
	detail := string(rec.Level)
	if rec.Phase != "" {
		detail += " " + rec.Phase
	}
	if rec.Resolved {
		detail += " resolved"
	}
	return Item{
		ID:     rec.ID,
		Kind:   KindError,
		Title:  rowText(title),
		Detail: detail,
	}
}

func patternItem(p *memory.ErrorPattern) Item {
	detail := fmt.Sprintf("%dx", p.Occurrences)
	if p.RecommendedSolution != nil {
		detail += fmt.Sprintf(" fix %.0f%%", p.SuccessRate*100)
	}
	return Item{
		ID:     p.ID,
		Kind:   KindPattern,
		Title:  rowText(p.ErrorType + ": " + p.CommonCause),
		Detail: detail,
		Key:    p.Signature,
	}
}
