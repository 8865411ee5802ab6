package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ReviewFlagRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type FlagResponse struct {
	FlagID        string   `json:"flag_id"`
	SheetID       string   `json:"sheet_id"`
	JudgeID       string   `json:"judge_id"`
	ParticipantID string   `json:"participant_id"`
	EventID       string   `json:"event_id"`
	Severity      string   `json:"severity"`
	Confidence    float64  `json:"confidence"`
	Method        string   `json:"method"`
	Reason        string   `json:"reason"`
	AdminReviewed bool     `json:"admin_reviewed"`
	Decision      string   `json:"decision,omitempty"`
	ReviewerID    string   `json:"reviewer_id,omitempty"`
	ReviewNotes   string   `json:"review_notes,omitempty"`
	CreatedAt     string   `json:"created_at"`
	ReviewedAt    *string  `json:"reviewed_at,omitempty"`
	SheetTotal    *float64 `json:"sheet_total,omitempty"`
	SheetExcluded bool     `json:"sheet_excluded"`
}

type FlagQueueResponse struct {
	EventID string         `json:"event_id,omitempty"`
	Flags   []FlagResponse `json:"flags"`
}
