package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	scoringerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	scoringhttp "rostrum/contexts/judging-core/score-entry-service/transport/http"
)

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	judgeID := r.Header.Get("X-Judge-Id")
	if judgeID == "" {
		writeScoringError(w, http.StatusUnauthorized, "missing_judge", "X-Judge-Id header is required")
		return
	}

	var req scoringhttp.SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeScoringError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.scoring.Handler.SubmitScoreHandler(
		r.Context(),
		judgeID,
		r.PathValue("event_id"),
		r.PathValue("participant_id"),
		req,
	)
	if err != nil {
		writeScoringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.scoring.Handler.ConsensusHandler(
		r.Context(),
		r.PathValue("event_id"),
		r.PathValue("participant_id"),
	)
	if err != nil {
		writeScoringDomainError(w, err)
		return
	}
	// Below-quorum consensus is a pending state, not an error.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveSheets(w http.ResponseWriter, r *http.Request) {
	resp, err := s.scoring.Handler.ActiveSheetsHandler(
		r.Context(),
		r.PathValue("event_id"),
		r.PathValue("participant_id"),
	)
	if err != nil {
		writeScoringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeScoringDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scoringerrors.ErrSheetNotFound):
		writeScoringError(w, http.StatusNotFound, "sheet_not_found", err.Error())
	case errors.Is(err, scoringerrors.ErrEventNotFound):
		writeScoringError(w, http.StatusNotFound, "event_not_found", err.Error())
	case errors.Is(err, scoringerrors.ErrSheetConflict):
		writeScoringError(w, http.StatusConflict, "sheet_conflict", err.Error())
	case errors.Is(err, scoringerrors.ErrInvalidScoreInput),
		errors.Is(err, scoringerrors.ErrUnknownCriterion),
		errors.Is(err, scoringerrors.ErrScoreOutOfRange),
		errors.Is(err, scoringerrors.ErrEmptyCriterionSet):
		writeScoringError(w, http.StatusBadRequest, "invalid_score", err.Error())
	default:
		writeScoringError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeScoringError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, scoringhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
