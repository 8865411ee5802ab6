package commands

import (
	"context"
	"strings"

	application "rostrum/contexts/appeals-desk/recheck-service/application"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
)

// SubmitRecheckCommand opens a recheck request against a published result.
type SubmitRecheckCommand struct {
	ParticipantID string
	EventID       string
	StudentID     string
	Reason        string
}

// SubmitRecheck creates a request in Submitted state. A result with a
// non-terminal request already open conflicts; rejected or resolved requests
// free the slot for a new submission.
func (uc *WorkflowUseCase) SubmitRecheck(ctx context.Context, cmd SubmitRecheckCommand) (entities.RecheckRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	result := entities.ResultRef{
		ParticipantID: strings.TrimSpace(cmd.ParticipantID),
		EventID:       strings.TrimSpace(cmd.EventID),
	}
	studentID := strings.TrimSpace(cmd.StudentID)
	reason := strings.TrimSpace(cmd.Reason)
	if result.ParticipantID == "" || result.EventID == "" || studentID == "" || reason == "" {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}

	unlock := uc.keys.lock(result.ParticipantID + "|" + result.EventID)
	defer unlock()

	if existing, found, err := uc.Requests.FindOpenByResult(ctx, result); err != nil {
		return entities.RecheckRequest{}, err
	} else if found {
		logger.Warn("recheck submission rejected: open request exists",
			"event", "recheck_submit_conflict",
			"module", "appeals-desk/recheck-service",
			"layer", "application",
			"participant_id", result.ParticipantID,
			"event_id", result.EventID,
			"open_request_id", existing.RequestID,
		)
		return entities.RecheckRequest{}, domainerrors.ErrOpenRecheckExists
	}

	requestID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.RecheckRequest{}, err
	}
	now := uc.now()
	request := entities.RecheckRequest{
		RequestID: requestID,
		Result:    result,
		StudentID: studentID,
		Reason:    reason,
		Status:    entities.StatusSubmitted,
		Payment: entities.PaymentRecord{
			Fee:      uc.Fee,
			Currency: uc.Currency,
		},
		SubmittedAt: now,
	}
	if err := uc.Requests.SaveRequest(ctx, request); err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := uc.appendRecheckEvent(ctx, "recheck.submitted", request, now, nil); err != nil {
		return entities.RecheckRequest{}, err
	}

	logger.Info("recheck request submitted",
		"event", "recheck_submitted",
		"module", "appeals-desk/recheck-service",
		"layer", "application",
		"request_id", request.RequestID,
		"participant_id", result.ParticipantID,
		"event_id", result.EventID,
		"student_id", studentID,
	)
	return request, nil
}
