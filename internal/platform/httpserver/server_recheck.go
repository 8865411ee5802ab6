package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	recheckerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	recheckhttp "rostrum/contexts/appeals-desk/recheck-service/transport/http"
)

func (s *Server) handleSubmitRecheck(w http.ResponseWriter, r *http.Request) {
	studentID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if studentID == "" {
		writeRecheckError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req recheckhttp.SubmitRecheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecheckError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.rechecks.Handler.SubmitRecheckHandler(r.Context(), studentID, req)
	if err != nil {
		writeRecheckDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRecheckStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.rechecks.Handler.RecheckStatusHandler(r.Context(), r.PathValue("request_id"))
	if err != nil {
		writeRecheckDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecideRecheck(w http.ResponseWriter, r *http.Request) {
	adminID := strings.TrimSpace(r.Header.Get("X-Admin-Id"))
	if adminID == "" {
		writeRecheckError(w, http.StatusUnauthorized, "missing_admin", "X-Admin-Id header is required")
		return
	}

	var req recheckhttp.DecideRecheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecheckError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.rechecks.Handler.DecideRecheckHandler(r.Context(), r.PathValue("request_id"), req)
	if err != nil {
		writeRecheckDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	resp, err := s.rechecks.Handler.InitiatePaymentHandler(r.Context(), r.PathValue("request_id"))
	if err != nil {
		writeRecheckDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req recheckhttp.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecheckError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.rechecks.Handler.VerifyPaymentHandler(r.Context(), req)
	if err != nil {
		writeRecheckDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolveRecheck(w http.ResponseWriter, r *http.Request) {
	volunteerID := strings.TrimSpace(r.Header.Get("X-Volunteer-Id"))
	if volunteerID == "" {
		volunteerID = strings.TrimSpace(r.Header.Get("X-User-Id"))
	}
	if volunteerID == "" {
		writeRecheckError(w, http.StatusUnauthorized, "missing_volunteer", "X-Volunteer-Id header is required")
		return
	}

	var req recheckhttp.ResolveRecheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecheckError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.rechecks.Handler.ResolveRecheckHandler(r.Context(), r.PathValue("request_id"), volunteerID, req)
	if err != nil {
		writeRecheckDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRecheckDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recheckerrors.ErrRecheckNotFound):
		writeRecheckError(w, http.StatusNotFound, "recheck_not_found", err.Error())
	case errors.Is(err, recheckerrors.ErrPaymentNotFound):
		writeRecheckError(w, http.StatusNotFound, "payment_not_found", err.Error())
	case errors.Is(err, recheckerrors.ErrOpenRecheckExists):
		writeRecheckError(w, http.StatusConflict, "open_recheck_exists", err.Error())
	case errors.Is(err, recheckerrors.ErrInvalidStateTransition):
		writeRecheckError(w, http.StatusConflict, "invalid_state_transition", err.Error())
	case errors.Is(err, recheckerrors.ErrPaymentGateway):
		writeRecheckError(w, http.StatusBadGateway, "payment_gateway_unavailable", err.Error())
	case errors.Is(err, recheckerrors.ErrPaymentInvalid):
		writeRecheckError(w, http.StatusUnprocessableEntity, "payment_invalid", err.Error())
	case errors.Is(err, recheckerrors.ErrInvalidRecheckInput):
		writeRecheckError(w, http.StatusBadRequest, "invalid_recheck", err.Error())
	default:
		writeRecheckError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRecheckError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, recheckhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
