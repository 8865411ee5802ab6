package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

const keyedMutexStripes = 64

// keyedMutex serializes workflow mutations per request (and submissions per
// result) so concurrent callers cannot race a transition.
type keyedMutex struct {
	stripes [keyedMutexStripes]sync.Mutex
}

func (m *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	stripe := &m.stripes[h.Sum32()%keyedMutexStripes]
	stripe.Lock()
	return stripe.Unlock
}

// WorkflowUseCase drives a recheck request through its state machine. Every
// transition is guarded: a disallowed source state surfaces
// ErrInvalidStateTransition naming both states.
type WorkflowUseCase struct {
	Requests ports.RecheckRepository
	Gateway  ports.PaymentGateway
	Scoring  ports.ScoringCycle
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Fee      float64
	Currency string
	Logger   *slog.Logger

	keys keyedMutex
}

func (uc *WorkflowUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func requireStatus(request entities.RecheckRequest, want entities.Status, attempted string) error {
	if request.Status == want {
		return nil
	}
	return fmt.Errorf("%w: %s not allowed from %q",
		domainerrors.ErrInvalidStateTransition, attempted, request.Status)
}

func (uc *WorkflowUseCase) appendRecheckEvent(
	ctx context.Context,
	eventType string,
	request entities.RecheckRequest,
	occurredAt time.Time,
	extra map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"request_id":     request.RequestID,
		"participant_id": request.Result.ParticipantID,
		"event_id":       request.Result.EventID,
		"student_id":     request.StudentID,
		"status":         string(request.Status),
	}
	for key, value := range extra {
		data[key] = value
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	// Recheck events are partitioned by request so each workflow's
	// transitions are observed in order.
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "recheck-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "request_id",
		PartitionKey:     request.RequestID,
		Data:             payload,
	})
}
