package commands

import (
	"context"
	"strings"

	application "rostrum/contexts/appeals-desk/recheck-service/application"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

// ResolveRecheckCommand closes a paid request with the volunteer's fresh
// scoring cycle.
type ResolveRecheckCommand struct {
	RequestID   string
	VolunteerID string
	FreshSheets []ports.FreshSheet
}

// ResolveRecheck runs the rescore cycle through the judging-core bridge and
// moves the request to terminal Resolved. The cycle retires the result's
// active sheets and enters the fresh set, so the republished consensus
// reflects only the recheck's contributors.
func (uc *WorkflowUseCase) ResolveRecheck(ctx context.Context, cmd ResolveRecheckCommand) (entities.RecheckRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	requestID := strings.TrimSpace(cmd.RequestID)
	volunteerID := strings.TrimSpace(cmd.VolunteerID)
	if requestID == "" || volunteerID == "" || len(cmd.FreshSheets) == 0 {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}

	unlock := uc.keys.lock(requestID)
	defer unlock()

	request, err := uc.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := requireStatus(request, entities.StatusPaid, "resolve"); err != nil {
		return entities.RecheckRequest{}, err
	}

	// The scoring cycle runs before the terminal transition: a failed cycle
	// leaves the request at Paid and resolvable again.
	if err := uc.Scoring.RescoreCycle(
		ctx,
		request.Result.ParticipantID,
		request.Result.EventID,
		cmd.FreshSheets,
	); err != nil {
		logger.Error("recheck rescore cycle failed",
			"event", "recheck_rescore_failed",
			"module", "appeals-desk/recheck-service",
			"layer", "application",
			"request_id", requestID,
			"participant_id", request.Result.ParticipantID,
			"event_id", request.Result.EventID,
			"error", err.Error(),
		)
		return entities.RecheckRequest{}, err
	}

	now := uc.now()
	request.Status = entities.StatusResolved
	request.ResolvedAt = &now
	if err := uc.Requests.SaveRequest(ctx, request); err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := uc.appendRecheckEvent(ctx, "recheck.resolved", request, now, map[string]any{
		"volunteer_id": volunteerID,
		"fresh_sheets": len(cmd.FreshSheets),
	}); err != nil {
		return entities.RecheckRequest{}, err
	}

	logger.Info("recheck request resolved",
		"event", "recheck_resolved",
		"module", "appeals-desk/recheck-service",
		"layer", "application",
		"request_id", request.RequestID,
		"participant_id", request.Result.ParticipantID,
		"event_id", request.Result.EventID,
		"volunteer_id", volunteerID,
	)
	return request, nil
}
