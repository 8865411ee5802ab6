package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	integrityerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	integrityhttp "rostrum/contexts/integrity-safety/anomaly-review-service/transport/http"
)

func (s *Server) handleListFlags(w http.ResponseWriter, r *http.Request) {
	resp, err := s.integrity.Handler.FlagQueueHandler(r.Context(), r.URL.Query().Get("event_id"))
	if err != nil {
		writeIntegrityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReviewFlag(w http.ResponseWriter, r *http.Request) {
	reviewerID := strings.TrimSpace(r.Header.Get("X-Admin-Id"))
	if reviewerID == "" {
		reviewerID = strings.TrimSpace(r.Header.Get("X-User-Id"))
	}
	if reviewerID == "" {
		writeIntegrityError(w, http.StatusUnauthorized, "missing_reviewer", "X-Admin-Id header is required")
		return
	}

	var req integrityhttp.ReviewFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeIntegrityError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.integrity.Handler.ReviewFlagHandler(r.Context(), r.PathValue("flag_id"), reviewerID, req)
	if err != nil {
		writeIntegrityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeIntegrityDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, integrityerrors.ErrFlagNotFound):
		writeIntegrityError(w, http.StatusNotFound, "flag_not_found", err.Error())
	case errors.Is(err, integrityerrors.ErrFlagAlreadyReviewed):
		writeIntegrityError(w, http.StatusConflict, "flag_already_reviewed", err.Error())
	case errors.Is(err, integrityerrors.ErrInvalidFlagInput):
		writeIntegrityError(w, http.StatusBadRequest, "invalid_review", err.Error())
	default:
		writeIntegrityError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeIntegrityError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, integrityhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
