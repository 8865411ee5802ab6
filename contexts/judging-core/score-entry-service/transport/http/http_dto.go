package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SubmitScoreRequest struct {
	CriterionScores map[string]float64 `json:"criterion_scores" validate:"required,min=1"`
	Comments        string             `json:"comments" validate:"max=2000"`
}

type ScoreSheetResponse struct {
	SheetID         string             `json:"sheet_id"`
	JudgeID         string             `json:"judge_id"`
	ParticipantID   string             `json:"participant_id"`
	EventID         string             `json:"event_id"`
	CriterionScores map[string]float64 `json:"criterion_scores"`
	Total           float64            `json:"total"`
	Comments        string             `json:"comments,omitempty"`
	Excluded        bool               `json:"excluded"`
	WasUpdate       bool               `json:"was_update"`
}

type ConsensusResponse struct {
	ParticipantID   string    `json:"participant_id"`
	EventID         string    `json:"event_id"`
	Status          string    `json:"status"`
	JudgesSubmitted int       `json:"judges_submitted"`
	JudgeTotals     []float64 `json:"judge_totals"`
	FinalScore      *float64  `json:"final_score"`
	ComputedAt      string    `json:"computed_at"`
}

type ActiveSheetsResponse struct {
	ParticipantID string               `json:"participant_id"`
	EventID       string               `json:"event_id"`
	Sheets        []ScoreSheetResponse `json:"sheets"`
}
