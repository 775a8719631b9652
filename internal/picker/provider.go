package picker

import "context"

// Provider is the interface for data sources that supply items to the picker.
type Provider interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// Request describes what items the picker wants from a Provider.
type Request struct {
	RequestID uint64 // Monotonically increasing, for stale response detection
	Query     string // Search filter
	TabID     string // Active tab identifier
	Limit     int
	Offset    int
}

// Response carries items back from a Provider.
type Response struct {
	RequestID uint64 // Must match Request.RequestID to be accepted
	Items     []Item
	AtEnd     bool // No more pages available
}

// Item is one selectable row.
type Item struct {
	ID     int64
	Kind   ItemKind
	Title  string // First line shown in the list
	Detail string // Dimmed suffix (occurrences, phase, resolution)
	Key    string // Pattern signature; empty for errors
}

// ItemKind distinguishes error rows from pattern rows.
type ItemKind string

const (
	KindError   ItemKind = "error"
	KindPattern ItemKind = "pattern"
)

// Tab is one picker tab.
type Tab struct {
	ID    string
	Label string
}

// Tab identifiers understood by StoreProvider.
const (
	TabUnresolved = "unresolved"
	TabAll        = "all"
	TabPatterns   = "patterns"
)

// DefaultTabs returns the browse tabs in display order.
func DefaultTabs() []Tab {
	return []Tab{
		{ID: TabUnresolved, Label: "Unresolved"},
		{ID: TabAll, Label: "All errors"},
		{ID: TabPatterns, Label: "Patterns"},
	}
}
