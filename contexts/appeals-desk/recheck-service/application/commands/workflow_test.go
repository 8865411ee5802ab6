package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/appeals-desk/recheck-service/adapters/gateway"
	"rostrum/contexts/appeals-desk/recheck-service/adapters/memory"
	"rostrum/contexts/appeals-desk/recheck-service/application/commands"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

type recordingCycle struct {
	calls int
	err   error
}

func (c *recordingCycle) RescoreCycle(_ context.Context, _, _ string, _ []ports.FreshSheet) error {
	if c.err != nil {
		return c.err
	}
	c.calls++
	return nil
}

type workflowFixture struct {
	uc      *commands.WorkflowUseCase
	store   *memory.Store
	gateway *gateway.MemoryGateway
	cycle   *recordingCycle
}

func newWorkflowFixture() workflowFixture {
	store := memory.NewStore(nil)
	provider := gateway.NewMemoryGateway()
	cycle := &recordingCycle{}
	return workflowFixture{
		uc: &commands.WorkflowUseCase{
			Requests: store,
			Gateway:  provider,
			Scoring:  cycle,
			Outbox:   store,
			Clock:    store,
			IDGen:    store,
			Fee:      250,
			Currency: "INR",
		},
		store:   store,
		gateway: provider,
		cycle:   cycle,
	}
}

func submitRequest(t *testing.T, f workflowFixture) entities.RecheckRequest {
	t.Helper()
	request, err := f.uc.SubmitRecheck(context.Background(), commands.SubmitRecheckCommand{
		ParticipantID: "participant-1",
		EventID:       "event-1",
		StudentID:     "student-1",
		Reason:        "total looks inconsistent with the rubric",
	})
	require.NoError(t, err)
	return request
}

func freshSheets() []ports.FreshSheet {
	return []ports.FreshSheet{
		{JudgeID: "judge-7", CriterionScores: map[string]float64{"technique": 35, "creativity": 25, "presentation": 25}},
	}
}

func TestRecheckHappyPath(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	request := submitRequest(t, f)
	require.Equal(t, entities.StatusSubmitted, request.Status)
	require.Equal(t, 250.0, request.Payment.Fee)

	request, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusAccepted, request.Status)
	require.Equal(t, "volunteer-1", request.AssignedVolunteer)
	require.NotNil(t, request.DecidedAt)

	request, err = f.uc.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusPaymentRequired, request.Status)
	require.NotEmpty(t, request.Payment.OrderID)

	request, err = f.uc.VerifyPayment(ctx, commands.VerifyPaymentCommand{
		OrderID:   request.Payment.OrderID,
		PaymentID: "payment-1",
		Proof:     gateway.Proof(request.Payment.OrderID),
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusPaid, request.Status)
	require.True(t, request.Payment.Paid)
	require.Equal(t, "payment-1", request.Payment.PaymentID)

	request, err = f.uc.ResolveRecheck(ctx, commands.ResolveRecheckCommand{
		RequestID:   request.RequestID,
		VolunteerID: "volunteer-1",
		FreshSheets: freshSheets(),
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusResolved, request.Status)
	require.True(t, request.Status.Terminal())
	require.Equal(t, 1, f.cycle.calls)

	pending, err := f.store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 5)
}

func TestSubmitRejectsWhileRequestOpen(t *testing.T) {
	f := newWorkflowFixture()
	submitRequest(t, f)

	_, err := f.uc.SubmitRecheck(context.Background(), commands.SubmitRecheckCommand{
		ParticipantID: "participant-1",
		EventID:       "event-1",
		StudentID:     "student-2",
		Reason:        "same result, second appellant",
	})
	require.ErrorIs(t, err, domainerrors.ErrOpenRecheckExists)
}

func TestRejectedRequestFreesResult(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	rejected, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    false,
		Notes:     "no grounds",
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusRejected, rejected.Status)
	require.True(t, rejected.Status.Terminal())

	again := submitRequest(t, f)
	require.NotEqual(t, request.RequestID, again.RequestID)
}

func TestTransitionsGuardSourceState(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	// Submitted requests cannot skip decision or payment stages.
	_, err := f.uc.InitiatePayment(ctx, request.RequestID)
	require.ErrorIs(t, err, domainerrors.ErrInvalidStateTransition)

	_, err = f.uc.ResolveRecheck(ctx, commands.ResolveRecheckCommand{
		RequestID:   request.RequestID,
		VolunteerID: "volunteer-1",
		FreshSheets: freshSheets(),
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStateTransition)

	rejected, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    false,
	})
	require.NoError(t, err)

	_, err = f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: rejected.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStateTransition)
}

func TestInitiatePaymentIsIdempotent(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	_, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)

	first, err := f.uc.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)
	second, err := f.uc.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)
	require.Equal(t, first.Payment.OrderID, second.Payment.OrderID)
}

func TestInitiatePaymentGatewayFailure(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	_, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)

	f.gateway.CreateOrderErr = errors.New("provider down")
	_, err = f.uc.InitiatePayment(ctx, request.RequestID)
	require.ErrorIs(t, err, domainerrors.ErrPaymentGateway)

	stored, err := f.store.GetRequest(ctx, request.RequestID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusAccepted, stored.Status)
}

func TestVerifyPaymentInvalidProofKeepsPaymentRequired(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	_, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)
	request, err = f.uc.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)

	_, err = f.uc.VerifyPayment(ctx, commands.VerifyPaymentCommand{
		OrderID:   request.Payment.OrderID,
		PaymentID: "payment-1",
		Proof:     "tampered",
	})
	require.ErrorIs(t, err, domainerrors.ErrPaymentInvalid)

	stored, err := f.store.GetRequest(ctx, request.RequestID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusPaymentRequired, stored.Status)

	// A correct retry with the same identifiers still succeeds.
	paid, err := f.uc.VerifyPayment(ctx, commands.VerifyPaymentCommand{
		OrderID:   request.Payment.OrderID,
		PaymentID: "payment-1",
		Proof:     gateway.Proof(request.Payment.OrderID),
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusPaid, paid.Status)
}

func TestVerifyPaymentUnknownOrder(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.uc.VerifyPayment(context.Background(), commands.VerifyPaymentCommand{
		OrderID:   "order-unknown",
		PaymentID: "payment-1",
		Proof:     "paid:order-unknown",
	})
	require.ErrorIs(t, err, domainerrors.ErrPaymentNotFound)
}

func TestVerifyPaymentIsIdempotent(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	_, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)
	request, err = f.uc.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)

	cmd := commands.VerifyPaymentCommand{
		OrderID:   request.Payment.OrderID,
		PaymentID: "payment-1",
		Proof:     gateway.Proof(request.Payment.OrderID),
	}
	first, err := f.uc.VerifyPayment(ctx, cmd)
	require.NoError(t, err)
	second, err := f.uc.VerifyPayment(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, first.Payment.PaymentID, second.Payment.PaymentID)
	require.Equal(t, entities.StatusPaid, second.Status)
}

func TestResolveFailedCycleLeavesRequestPaid(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	request := submitRequest(t, f)

	_, err := f.uc.DecideRecheck(ctx, commands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)
	request, err = f.uc.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)
	request, err = f.uc.VerifyPayment(ctx, commands.VerifyPaymentCommand{
		OrderID:   request.Payment.OrderID,
		PaymentID: "payment-1",
		Proof:     gateway.Proof(request.Payment.OrderID),
	})
	require.NoError(t, err)

	f.cycle.err = errors.New("judging-core unavailable")
	_, err = f.uc.ResolveRecheck(ctx, commands.ResolveRecheckCommand{
		RequestID:   request.RequestID,
		VolunteerID: "volunteer-1",
		FreshSheets: freshSheets(),
	})
	require.Error(t, err)

	stored, err := f.store.GetRequest(ctx, request.RequestID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusPaid, stored.Status)

	f.cycle.err = nil
	resolved, err := f.uc.ResolveRecheck(ctx, commands.ResolveRecheckCommand{
		RequestID:   request.RequestID,
		VolunteerID: "volunteer-1",
		FreshSheets: freshSheets(),
	})
	require.NoError(t, err)
	require.Equal(t, entities.StatusResolved, resolved.Status)
}
