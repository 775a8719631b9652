// Package memory provides the embedded Project Memory store: a SQLite-backed
// ledger of development errors, recurring error patterns, solutions,
// decisions, quality checkpoints, context snapshots and the project version.
//
// A Store owns a single database connection for its lifetime and is meant to
// be used by one process at a time. Every multi-step write runs inside one
// transaction.
package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runger/nebula/internal/version"
)

var (
	// ErrInvalidInput wraps validation failures on operation inputs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotInitialized is returned when the project row has not been created.
	ErrNotInitialized = errors.New("project memory not initialized")

	// ErrErrorNotFound is returned when an error record does not exist.
	ErrErrorNotFound = errors.New("error record not found")

	// ErrPatternNotFound is returned when no pattern has the given signature.
	ErrPatternNotFound = errors.New("error pattern not found")

	// ErrSolutionNotFound is returned when a solution does not exist.
	ErrSolutionNotFound = errors.New("solution not found")

	// ErrAlreadyResolved is returned when a solution is recorded for an
	// error that already has one.
	ErrAlreadyResolved = errors.New("error already resolved")

	// ErrNoSnapshot is returned when no context snapshot matches.
	ErrNoSnapshot = errors.New("no context snapshot")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Level is the severity of an error record.
type Level string

// Error severities.
const (
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// ParseLevel converts a case-insensitive name to a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", invalidf("level must be ERROR or CRITICAL (got %q)", s)
	}
	return l, nil
}

// Valid reports whether l is a known severity.
func (l Level) Valid() bool {
	return l == LevelError || l == LevelCritical
}

// Actor identifies who applied a solution, made a decision or reviewed a checkpoint.
type Actor string

// Actors.
const (
	ActorAI    Actor = "ai"
	ActorHuman Actor = "human"
)

// ParseActor converts a case-insensitive name to an Actor.
func ParseActor(s string) (Actor, error) {
	a := Actor(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", invalidf("actor must be ai or human (got %q)", s)
	}
	return a, nil
}

// Valid reports whether a is a known actor.
func (a Actor) Valid() bool {
	return a == ActorAI || a == ActorHuman
}

// CheckpointStatus is the outcome of a checkpoint attempt.
type CheckpointStatus string

// Checkpoint outcomes.
const (
	CheckpointPassed  CheckpointStatus = "passed"
	CheckpointFailed  CheckpointStatus = "failed"
	CheckpointPending CheckpointStatus = "pending"
	CheckpointSkipped CheckpointStatus = "skipped"
)

// ParseCheckpointStatus converts a case-insensitive name to a CheckpointStatus.
func ParseCheckpointStatus(s string) (CheckpointStatus, error) {
	st := CheckpointStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", invalidf("status must be passed, failed, pending or skipped (got %q)", s)
	}
	return st, nil
}

// Valid reports whether st is a known outcome.
func (st CheckpointStatus) Valid() bool {
	switch st {
	case CheckpointPassed, CheckpointFailed, CheckpointPending, CheckpointSkipped:
		return true
	default:
		return false
	}
}

// Attributes is free-form string context attached to an error. It is stored
// as a JSON object so individual keys stay queryable with json_extract.
type Attributes map[string]string

// ProjectInfo is the singleton project row.
type ProjectInfo struct {
	Name           string          `json:"name"`
	Framework      string          `json:"framework"`
	InstanceID     string          `json:"instance_id"`
	CurrentVersion string          `json:"current_version"`
	Version        version.Version `json:"version"`
	Phase          string          `json:"current_phase"`
	Constellation  string          `json:"current_constellation"`
	SubPhase       string          `json:"current_sub_phase"`
	ContextSummary string          `json:"context_summary,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PhasePointer moves the project's current phase pointers.
type PhasePointer struct {
	Phase         string
	Constellation string
	SubPhase      string
}

// ErrorInput describes an error to ingest.
type ErrorInput struct {
	Level         Level
	Phase         string
	Constellation string
	File          string // optional
	Line          int    // optional, 0 = unknown
	Code          string // optional
	Message       string
	StackTrace    string // optional
	Attributes    Attributes
}

// ErrorRecord is a stored error.
type ErrorRecord struct {
	ID            int64      `json:"id"`
	Level         Level      `json:"level"`
	Phase         string     `json:"phase"`
	Constellation string     `json:"constellation"`
	File          string     `json:"file,omitempty"`
	Line          int        `json:"line,omitempty"`
	Code          string     `json:"error_code,omitempty"`
	Message       string     `json:"message"`
	StackTrace    string     `json:"stack_trace,omitempty"`
	Attributes    Attributes `json:"attributes,omitempty"`
	Signature     string     `json:"signature"`
	Resolved      bool       `json:"resolved"`
	SolutionID    *int64     `json:"solution_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LogResult reports what ingestion did with an error.
type LogResult struct {
	ErrorID             int64  `json:"error_id"`
	Signature           string `json:"signature"`
	PatternFound        bool   `json:"pattern_found"`
	Occurrences         int    `json:"occurrences"`
	RecommendedSolution string `json:"recommended_solution,omitempty"`
}

// ErrorQuery filters ListErrors.
type ErrorQuery struct {
	Phase      string
	Unresolved bool
	Limit      int
}

// ErrorPattern aggregates every error sharing a signature.
type ErrorPattern struct {
	ID                  int64     `json:"id"`
	Signature           string    `json:"signature"`
	ErrorType           string    `json:"error_type"`
	CommonCause         string    `json:"common_cause"`
	RecommendedSolution *string   `json:"recommended_solution"`
	Occurrences         int       `json:"occurrences"`
	SuccessRate         float64   `json:"success_rate"`
	FirstSeen           time.Time `json:"first_seen"`
	LastSeen            time.Time `json:"last_seen"`
}

// PatternQuery filters GetPatterns.
type PatternQuery struct {
	ErrorType      string
	MinOccurrences int
	Limit          int
}

// SolutionInput describes a remediation applied to an error.
type SolutionInput struct {
	ErrorID       int64
	Description   string
	CodeChanges   string // optional
	AppliedBy     Actor
	Effectiveness int // 1-5, 0 = unrated
	Notes         string
}

// Solution is a stored remediation. Solutions are immutable.
type Solution struct {
	ID            int64     `json:"id"`
	ErrorID       int64     `json:"error_id"`
	Description   string    `json:"description"`
	CodeChanges   string    `json:"code_changes,omitempty"`
	AppliedBy     Actor     `json:"applied_by"`
	Effectiveness int       `json:"effectiveness,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	AppliedAt     time.Time `json:"applied_at"`
}

// SimilarQuery configures FindSimilarErrors.
type SimilarQuery struct {
	Text  string
	Phase string // optional filter
	Limit int
}

// SimilarError is a search hit with its historical fix, if any.
type SimilarError struct {
	ErrorRecord
	Score    float64   `json:"score"`
	Solution *Solution `json:"solution,omitempty"`
}

// DecisionInput describes an architectural choice.
type DecisionInput struct {
	Phase         string
	Constellation string
	Category      string
	Question      string
	Chosen        string
	Alternatives  []string
	Rationale     string
	DecidedBy     Actor
}

// Decision is an append-only decision log entry.
type Decision struct {
	ID            int64     `json:"id"`
	Phase         string    `json:"phase"`
	Constellation string    `json:"constellation"`
	Category      string    `json:"category"`
	Question      string    `json:"question"`
	Chosen        string    `json:"chosen"`
	Alternatives  []string  `json:"alternatives"`
	Rationale     string    `json:"rationale"`
	DecidedBy     Actor     `json:"decided_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// DecisionQuery filters ListDecisions.
type DecisionQuery struct {
	Phase    string
	Category string
	Limit    int
}

// QualityGateInput records a legacy pass/fail gate.
type QualityGateInput struct {
	Phase         string
	Constellation string
	GateName      string
	Passed        bool
	Details       string
}

// QualityGate is a legacy gate outcome.
type QualityGate struct {
	ID            int64     `json:"id"`
	Phase         string    `json:"phase"`
	Constellation string    `json:"constellation"`
	GateName      string    `json:"gate_name"`
	Passed        bool      `json:"passed"`
	Details       string    `json:"details,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// CheckpointInput describes one checkpoint attempt.
type CheckpointInput struct {
	Constellation         string
	ConstellationIndex    int
	Status                CheckpointStatus
	AutomatedTotal        int
	AutomatedPassed       int
	ManualTotal           int
	ManualPassed          int
	TestsSkipped          int
	SkipReasons           []string
	DurationSeconds       int
	PerformanceAcceptable bool
	DocsUpdated           bool
	BreakingChanges       bool
	BreakingChangeNotes   string
	Notes                 string
	Reviewer              string
	ReviewerType          Actor
}

// Checkpoint is a stored, immutable checkpoint attempt.
type Checkpoint struct {
	ID                    int64            `json:"id"`
	Constellation         string           `json:"constellation"`
	ConstellationIndex    int              `json:"constellation_index"`
	Status                CheckpointStatus `json:"status"`
	AutomatedTotal        int              `json:"automated_tests_total"`
	AutomatedPassed       int              `json:"automated_tests_passed"`
	ManualTotal           int              `json:"manual_tests_total"`
	ManualPassed          int              `json:"manual_tests_passed"`
	TestsSkipped          int              `json:"tests_skipped"`
	SkipReasons           []string         `json:"skip_reasons"`
	DurationSeconds       int              `json:"duration_seconds"`
	PerformanceAcceptable bool             `json:"performance_acceptable"`
	DocsUpdated           bool             `json:"docs_updated"`
	BreakingChanges       bool             `json:"breaking_changes"`
	BreakingChangeNotes   string           `json:"breaking_change_notes,omitempty"`
	Notes                 string           `json:"notes,omitempty"`
	Reviewer              string           `json:"reviewer,omitempty"`
	ReviewerType          Actor            `json:"reviewer_type"`
	CreatedAt             time.Time        `json:"created_at"`
}

// CheckpointSummary aggregates checkpoint history.
type CheckpointSummary struct {
	Total        int `json:"total"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Pending      int `json:"pending"`
	Skipped      int `json:"skipped"`
	TestsSkipped int `json:"tests_skipped"`
}

// SnapshotInput captures open work state.
type SnapshotInput struct {
	Phase          string
	Constellation  string
	ActiveFiles    []string
	KeyDecisions   []string
	OpenIssues     []string
	NextSteps      string
	SessionMinutes int // optional
}

// Snapshot is a stored context snapshot.
type Snapshot struct {
	ID             int64     `json:"id"`
	Phase          string    `json:"phase"`
	Constellation  string    `json:"constellation"`
	ActiveFiles    []string  `json:"active_files"`
	KeyDecisions   []string  `json:"key_decisions"`
	OpenIssues     []string  `json:"open_issues"`
	NextSteps      string    `json:"next_steps"`
	SessionMinutes int       `json:"session_minutes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// BumpOptions configures BumpVersion. The zero value resets lower components.
type BumpOptions struct {
	Changelog string
	Tag       string

	// DecidedBy is recorded on the bump decision (default ai).
	DecidedBy Actor
	KeepLower bool
}

// VersionHistoryEntry is one row of the append-only version ledger.
type VersionHistoryEntry struct {
	ID            int64     `json:"id"`
	Version       string    `json:"version"`
	Phase         string    `json:"phase"`
	Constellation string    `json:"constellation"`
	Changelog     string    `json:"changelog,omitempty"`
	Tag           string    `json:"tag,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Statistics aggregates counts across the store.
type Statistics struct {
	TotalErrors        int    `json:"total_errors"`
	UnresolvedErrors   int    `json:"unresolved_errors"`
	ErrorPatterns      int    `json:"error_patterns"`
	Decisions          int    `json:"decisions"`
	QualityGatesPassed int    `json:"quality_gates_passed"`
	QualityGatesTotal  int    `json:"quality_gates_total"`
	CheckpointsPassed  int    `json:"checkpoints_passed"`
	CheckpointsFailed  int    `json:"checkpoints_failed"`
	CheckpointsSkipped int    `json:"checkpoints_skipped"`
	CheckpointsTotal   int    `json:"checkpoints_total"`
	TestsSkipped       int    `json:"tests_skipped"`
	CurrentVersion     string `json:"current_version"`
	CurrentPhase       string `json:"current_phase"`
}

// Metrics are derived quality and velocity figures.
type Metrics struct {
	QualityRatio    float64 `json:"quality_ratio"`
	AIEffectiveness float64 `json:"ai_effectiveness"`
	DailyVelocity   int     `json:"daily_velocity"`
}
