package queries

import (
	"context"
	"strings"

	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

// StatusUseCase serves the workflow read side.
type StatusUseCase struct {
	Requests ports.RecheckRepository
}

func (uc StatusUseCase) GetRequest(ctx context.Context, requestID string) (entities.RecheckRequest, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}
	return uc.Requests.GetRequest(ctx, requestID)
}

func (uc StatusUseCase) ListByStudent(ctx context.Context, studentID string) ([]entities.RecheckRequest, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, domainerrors.ErrInvalidRecheckInput
	}
	return uc.Requests.ListRequestsByStudent(ctx, studentID)
}
