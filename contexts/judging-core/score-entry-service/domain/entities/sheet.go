package entities

import "time"

// Criterion is one judged dimension of an event. The criterion catalog is
// owned by the event catalog service; this context validates against it and
// never mutates it within a scoring cycle.
type Criterion struct {
	CriterionID string
	Label       string
	MaxScore    float64
}

// ScoreSheet is one judge's complete per-criterion scoring of a participant
// in an event. Exactly one active sheet exists per (judge, participant,
// event); a resubmission overwrites the prior sheet in place and keeps its
// sheet ID, it never appends a second contributor.
//
// The Excluded bit is owned by the integrity review flow, not by the judge.
type ScoreSheet struct {
	SheetID         string
	JudgeID         string
	ParticipantID   string
	EventID         string
	CriterionScores map[string]float64
	Total           float64
	Comments        string
	Excluded        bool
	SubmittedAt     time.Time
	UpdatedAt       time.Time
}

// ConsensusStatus distinguishes a derivable aggregate from one still below
// quorum. Pending is a valid state, not a failure.
type ConsensusStatus string

const (
	ConsensusStatusPending   ConsensusStatus = "pending"
	ConsensusStatusPublished ConsensusStatus = "published"
)

// ConsensusResult is the derived aggregate for a participant in an event.
// It has no storage authority of its own: it is recomputed on demand from
// the current non-excluded sheet set.
type ConsensusResult struct {
	ParticipantID   string
	EventID         string
	Status          ConsensusStatus
	JudgesSubmitted int
	JudgeTotals     []float64
	FinalScore      *float64
	ComputedAt      time.Time
}
