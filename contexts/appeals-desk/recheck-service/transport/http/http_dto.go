package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SubmitRecheckRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	EventID       string `json:"event_id" validate:"required"`
	Reason        string `json:"reason" validate:"required,max=2000"`
}

type DecideRecheckRequest struct {
	Accept    bool   `json:"accept"`
	Volunteer string `json:"volunteer" validate:"required_if=Accept true"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Proof     string `json:"proof" validate:"required"`
}

type FreshSheetRequest struct {
	JudgeID         string             `json:"judge_id" validate:"required"`
	CriterionScores map[string]float64 `json:"criterion_scores" validate:"required,min=1"`
	Comments        string             `json:"comments" validate:"max=2000"`
}

type ResolveRecheckRequest struct {
	FreshSheets []FreshSheetRequest `json:"fresh_sheets" validate:"required,min=1,dive"`
}

type PaymentResponse struct {
	Fee       float64 `json:"fee"`
	Currency  string  `json:"currency"`
	Paid      bool    `json:"paid"`
	OrderID   string  `json:"order_id,omitempty"`
	PaymentID string  `json:"payment_id,omitempty"`
	PaidAt    *string `json:"paid_at,omitempty"`
}

type RecheckResponse struct {
	RequestID          string          `json:"request_id"`
	ParticipantID      string          `json:"participant_id"`
	EventID            string          `json:"event_id"`
	StudentID          string          `json:"student_id"`
	Reason             string          `json:"reason"`
	Status             string          `json:"status"`
	AssignedVolunteer  string          `json:"assigned_volunteer,omitempty"`
	Payment            PaymentResponse `json:"payment"`
	SubmittedAt        string          `json:"submitted_at"`
	DecidedAt          *string         `json:"decided_at,omitempty"`
	PaymentInitiatedAt *string         `json:"payment_initiated_at,omitempty"`
	PaidAt             *string         `json:"paid_at,omitempty"`
	ResolvedAt         *string         `json:"resolved_at,omitempty"`
}
