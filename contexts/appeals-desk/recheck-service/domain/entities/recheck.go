package entities

import "time"

// Status is the recheck workflow state. Rejected and Resolved are terminal.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusAccepted        Status = "accepted"
	StatusRejected        Status = "rejected"
	StatusPaymentRequired Status = "payment_required"
	StatusPaid            Status = "paid"
	StatusResolved        Status = "resolved"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusResolved
}

// ResultRef identifies the published result a recheck targets.
type ResultRef struct {
	ParticipantID string
	EventID       string
}

// PaymentRecord is the snapshot of the gateway order attached to a request.
// OrderID is assigned on initiation; PaymentID and PaidAt once verified.
type PaymentRecord struct {
	Fee       float64
	Currency  string
	Paid      bool
	OrderID   string
	PaymentID string
	PaidAt    *time.Time
}

// RecheckRequest is a student's paid appeal against a published result. It
// moves through the workflow one transition at a time; timestamps record
// when each stage was reached.
type RecheckRequest struct {
	RequestID          string
	Result             ResultRef
	StudentID          string
	Reason             string
	Status             Status
	AssignedVolunteer  string
	Payment            PaymentRecord
	SubmittedAt        time.Time
	DecidedAt          *time.Time
	PaymentInitiatedAt *time.Time
	PaidAt             *time.Time
	ResolvedAt         *time.Time
}
