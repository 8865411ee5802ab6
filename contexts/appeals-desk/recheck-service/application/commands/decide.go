package commands

import (
	"context"
	"strings"

	application "rostrum/contexts/appeals-desk/recheck-service/application"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
)

// DecideRecheckCommand accepts or rejects a submitted request.
type DecideRecheckCommand struct {
	RequestID string
	Accept    bool
	Volunteer string
	Notes     string
}

// DecideRecheck moves a Submitted request to Accepted or terminal Rejected.
// Acceptance assigns the volunteer who will run the recheck and opens the
// payment stage.
func (uc *WorkflowUseCase) DecideRecheck(ctx context.Context, cmd DecideRecheckCommand) (entities.RecheckRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	requestID := strings.TrimSpace(cmd.RequestID)
	volunteer := strings.TrimSpace(cmd.Volunteer)
	if requestID == "" {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}
	if cmd.Accept && volunteer == "" {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}

	unlock := uc.keys.lock(requestID)
	defer unlock()

	request, err := uc.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := requireStatus(request, entities.StatusSubmitted, "decide"); err != nil {
		return entities.RecheckRequest{}, err
	}

	now := uc.now()
	request.DecidedAt = &now
	if cmd.Accept {
		request.Status = entities.StatusAccepted
		request.AssignedVolunteer = volunteer
	} else {
		request.Status = entities.StatusRejected
	}
	if err := uc.Requests.SaveRequest(ctx, request); err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := uc.appendRecheckEvent(ctx, "recheck.decided", request, now, map[string]any{
		"accepted":  cmd.Accept,
		"volunteer": volunteer,
	}); err != nil {
		return entities.RecheckRequest{}, err
	}

	logger.Info("recheck request decided",
		"event", "recheck_decided",
		"module", "appeals-desk/recheck-service",
		"layer", "application",
		"request_id", request.RequestID,
		"status", string(request.Status),
		"volunteer", volunteer,
	)
	return request, nil
}
