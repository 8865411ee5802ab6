package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	application "rostrum/contexts/appeals-desk/recheck-service/application"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
)

// InitiatePayment opens the payment stage for an accepted request. The call
// is idempotent: a request already in PaymentRequired returns its existing
// unpaid order instead of creating a second one.
func (uc *WorkflowUseCase) InitiatePayment(ctx context.Context, requestID string) (entities.RecheckRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}

	unlock := uc.keys.lock(requestID)
	defer unlock()

	request, err := uc.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return entities.RecheckRequest{}, err
	}
	if request.Status == entities.StatusPaymentRequired && request.Payment.OrderID != "" {
		return request, nil
	}
	if err := requireStatus(request, entities.StatusAccepted, "initiate payment"); err != nil {
		return entities.RecheckRequest{}, err
	}

	order, err := uc.Gateway.CreateOrder(ctx, request.Payment.Fee, request.Payment.Currency)
	if err != nil {
		logger.Error("payment order creation failed",
			"event", "recheck_payment_order_failed",
			"module", "appeals-desk/recheck-service",
			"layer", "application",
			"request_id", requestID,
			"error", err.Error(),
		)
		return entities.RecheckRequest{}, fmt.Errorf("%w: %v", domainerrors.ErrPaymentGateway, err)
	}

	now := uc.now()
	request.Status = entities.StatusPaymentRequired
	request.Payment.OrderID = order.OrderID
	request.PaymentInitiatedAt = &now
	if err := uc.Requests.SaveRequest(ctx, request); err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := uc.appendRecheckEvent(ctx, "recheck.payment_required", request, now, map[string]any{
		"order_id": order.OrderID,
		"fee":      request.Payment.Fee,
		"currency": request.Payment.Currency,
	}); err != nil {
		return entities.RecheckRequest{}, err
	}

	logger.Info("recheck payment initiated",
		"event", "recheck_payment_initiated",
		"module", "appeals-desk/recheck-service",
		"layer", "application",
		"request_id", request.RequestID,
		"order_id", order.OrderID,
	)
	return request, nil
}

// VerifyPaymentCommand carries the provider's callback identifiers.
type VerifyPaymentCommand struct {
	OrderID   string
	PaymentID string
	Proof     string
}

// VerifyPayment confirms a payment against the gateway and moves the request
// to Paid. Gateway failure or an invalid proof leaves the request at
// PaymentRequired, so verification can be retried with the same order and
// payment identifiers.
func (uc *WorkflowUseCase) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (entities.RecheckRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	orderID := strings.TrimSpace(cmd.OrderID)
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if orderID == "" || paymentID == "" {
		return entities.RecheckRequest{}, domainerrors.ErrInvalidRecheckInput
	}

	request, err := uc.Requests.GetRequestByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrRecheckNotFound) {
			return entities.RecheckRequest{}, domainerrors.ErrPaymentNotFound
		}
		return entities.RecheckRequest{}, err
	}

	unlock := uc.keys.lock(request.RequestID)
	defer unlock()

	request, err = uc.Requests.GetRequest(ctx, request.RequestID)
	if err != nil {
		return entities.RecheckRequest{}, err
	}
	if request.Status == entities.StatusPaid && request.Payment.PaymentID == paymentID {
		return request, nil
	}
	if err := requireStatus(request, entities.StatusPaymentRequired, "verify payment"); err != nil {
		return entities.RecheckRequest{}, err
	}

	verified, err := uc.Gateway.VerifyPayment(ctx, orderID, paymentID, cmd.Proof)
	if err != nil {
		logger.Error("payment verification gateway failure",
			"event", "recheck_payment_gateway_failed",
			"module", "appeals-desk/recheck-service",
			"layer", "application",
			"request_id", request.RequestID,
			"order_id", orderID,
			"error", err.Error(),
		)
		return entities.RecheckRequest{}, fmt.Errorf("%w: %v", domainerrors.ErrPaymentGateway, err)
	}
	if !verified {
		logger.Warn("payment verification rejected",
			"event", "recheck_payment_invalid",
			"module", "appeals-desk/recheck-service",
			"layer", "application",
			"request_id", request.RequestID,
			"order_id", orderID,
			"payment_id", paymentID,
		)
		return entities.RecheckRequest{}, domainerrors.ErrPaymentInvalid
	}

	now := uc.now()
	request.Status = entities.StatusPaid
	request.Payment.Paid = true
	request.Payment.PaymentID = paymentID
	request.Payment.PaidAt = &now
	request.PaidAt = &now
	if err := uc.Requests.SaveRequest(ctx, request); err != nil {
		return entities.RecheckRequest{}, err
	}
	if err := uc.appendRecheckEvent(ctx, "recheck.paid", request, now, map[string]any{
		"order_id":   orderID,
		"payment_id": paymentID,
	}); err != nil {
		return entities.RecheckRequest{}, err
	}

	logger.Info("recheck payment verified",
		"event", "recheck_paid",
		"module", "appeals-desk/recheck-service",
		"layer", "application",
		"request_id", request.RequestID,
		"order_id", orderID,
		"payment_id", paymentID,
	)
	return request, nil
}
