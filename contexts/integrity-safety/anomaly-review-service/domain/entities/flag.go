package entities

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionRejected ReviewDecision = "rejected"
)

// Flag marks a statistically unexpected score sheet awaiting adjudication.
// Flags are append-only: a reviewed flag is terminal, and correcting a
// decision requires a fresh flag, never mutation of history. Multiple
// unreviewed flags may coexist for one sheet.
type Flag struct {
	FlagID        string
	SheetID       string
	JudgeID       string
	ParticipantID string
	EventID       string
	Severity      Severity
	Confidence    float64
	Method        string
	Reason        string
	AdminReviewed bool
	Decision      ReviewDecision
	ReviewerID    string
	ReviewNotes   string
	CreatedAt     time.Time
	ReviewedAt    *time.Time
}

// SheetContext is the joined submission view the adjudication queue shows
// next to each flag.
type SheetContext struct {
	SheetID       string
	JudgeID       string
	ParticipantID string
	EventID       string
	Total         float64
	Excluded      bool
}
