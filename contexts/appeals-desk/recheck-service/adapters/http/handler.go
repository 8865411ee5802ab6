package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"rostrum/contexts/appeals-desk/recheck-service/application/commands"
	"rostrum/contexts/appeals-desk/recheck-service/application/queries"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
	httptransport "rostrum/contexts/appeals-desk/recheck-service/transport/http"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	Workflow *commands.WorkflowUseCase
	Status   *queries.StatusUseCase
	Logger   *slog.Logger
}

// SubmitRecheckHandler opens a recheck request against a published result.
// @Summary Submit a recheck request
// @Tags rechecks
func (h Handler) SubmitRecheckHandler(
	ctx context.Context,
	studentID string,
	req httptransport.SubmitRecheckRequest,
) (httptransport.RecheckResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.RecheckResponse{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidRecheckInput, err)
	}
	request, err := h.Workflow.SubmitRecheck(ctx, commands.SubmitRecheckCommand{
		ParticipantID: req.ParticipantID,
		EventID:       req.EventID,
		StudentID:     studentID,
		Reason:        req.Reason,
	})
	if err != nil {
		return httptransport.RecheckResponse{}, err
	}
	return recheckResponse(request), nil
}

// DecideRecheckHandler accepts or rejects a submitted request.
// @Summary Decide a recheck request
// @Tags rechecks
func (h Handler) DecideRecheckHandler(
	ctx context.Context,
	requestID string,
	req httptransport.DecideRecheckRequest,
) (httptransport.RecheckResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.RecheckResponse{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidRecheckInput, err)
	}
	request, err := h.Workflow.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: requestID,
		Accept:    req.Accept,
		Volunteer: req.Volunteer,
		Notes:     req.Notes,
	})
	if err != nil {
		return httptransport.RecheckResponse{}, err
	}
	return recheckResponse(request), nil
}

// InitiatePaymentHandler opens the payment stage for an accepted request.
// Repeated calls return the existing unpaid order.
// @Summary Initiate the recheck fee payment
// @Tags rechecks
func (h Handler) InitiatePaymentHandler(ctx context.Context, requestID string) (httptransport.RecheckResponse, error) {
	request, err := h.Workflow.InitiatePayment(ctx, requestID)
	if err != nil {
		return httptransport.RecheckResponse{}, err
	}
	return recheckResponse(request), nil
}

// VerifyPaymentHandler confirms a provider payment and moves the request to
// paid.
// @Summary Verify a recheck fee payment
// @Tags rechecks
func (h Handler) VerifyPaymentHandler(
	ctx context.Context,
	req httptransport.VerifyPaymentRequest,
) (httptransport.RecheckResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.RecheckResponse{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidRecheckInput, err)
	}
	request, err := h.Workflow.VerifyPayment(ctx, commands.VerifyPaymentCommand{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Proof:     req.Proof,
	})
	if err != nil {
		return httptransport.RecheckResponse{}, err
	}
	return recheckResponse(request), nil
}

// ResolveRecheckHandler closes a paid request with a fresh scoring cycle.
// @Summary Resolve a recheck request
// @Tags rechecks
func (h Handler) ResolveRecheckHandler(
	ctx context.Context,
	requestID string,
	volunteerID string,
	req httptransport.ResolveRecheckRequest,
) (httptransport.RecheckResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.RecheckResponse{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidRecheckInput, err)
	}
	fresh := make([]ports.FreshSheet, 0, len(req.FreshSheets))
	for _, sheet := range req.FreshSheets {
		fresh = append(fresh, ports.FreshSheet{
			JudgeID:         sheet.JudgeID,
			CriterionScores: sheet.CriterionScores,
			Comments:        sheet.Comments,
		})
	}
	request, err := h.Workflow.ResolveRecheck(ctx, commands.ResolveRecheckCommand{
		RequestID:   requestID,
		VolunteerID: volunteerID,
		FreshSheets: fresh,
	})
	if err != nil {
		return httptransport.RecheckResponse{}, err
	}
	return recheckResponse(request), nil
}

// RecheckStatusHandler returns one request by ID.
// @Summary Get a recheck request
// @Tags rechecks
func (h Handler) RecheckStatusHandler(ctx context.Context, requestID string) (httptransport.RecheckResponse, error) {
	request, err := h.Status.GetRequest(ctx, requestID)
	if err != nil {
		return httptransport.RecheckResponse{}, err
	}
	return recheckResponse(request), nil
}

func recheckResponse(request entities.RecheckRequest) httptransport.RecheckResponse {
	return httptransport.RecheckResponse{
		RequestID:         request.RequestID,
		ParticipantID:     request.Result.ParticipantID,
		EventID:           request.Result.EventID,
		StudentID:         request.StudentID,
		Reason:            request.Reason,
		Status:            string(request.Status),
		AssignedVolunteer: request.AssignedVolunteer,
		Payment: httptransport.PaymentResponse{
			Fee:       request.Payment.Fee,
			Currency:  request.Payment.Currency,
			Paid:      request.Payment.Paid,
			OrderID:   request.Payment.OrderID,
			PaymentID: request.Payment.PaymentID,
			PaidAt:    formatTimePtr(request.Payment.PaidAt),
		},
		SubmittedAt:        request.SubmittedAt.Format(time.RFC3339),
		DecidedAt:          formatTimePtr(request.DecidedAt),
		PaymentInitiatedAt: formatTimePtr(request.PaymentInitiatedAt),
		PaidAt:             formatTimePtr(request.PaidAt),
		ResolvedAt:         formatTimePtr(request.ResolvedAt),
	}
}

func formatTimePtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(time.RFC3339)
	return &formatted
}
