package ports

import (
	"context"
	"time"

	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	contractsv1 "rostrum/contracts/gen/events/v1"
)

// SheetRepository persists score sheets. SaveSheet upserts by sheet ID;
// identity lookups resolve the at-most-one-sheet-per-judge invariant.
type SheetRepository interface {
	SaveSheet(ctx context.Context, sheet entities.ScoreSheet) error
	GetSheet(ctx context.Context, sheetID string) (entities.ScoreSheet, error)
	GetSheetByIdentity(ctx context.Context, judgeID, participantID, eventID string) (entities.ScoreSheet, bool, error)
	ListActiveSheets(ctx context.Context, participantID, eventID string) ([]entities.ScoreSheet, error)
	ListSheetsByJudgeParticipant(ctx context.Context, judgeID, participantID string) ([]entities.ScoreSheet, error)
	ListSheets(ctx context.Context, participantID, eventID string) ([]entities.ScoreSheet, error)
}

// CriterionCatalog resolves the fixed, ordered criterion list for an event.
// The catalog is external; this context validates against it, never owns it.
type CriterionCatalog interface {
	CriteriaForEvent(ctx context.Context, eventID string) ([]entities.Criterion, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter appends an event for asynchronous publication. Writes happen
// in the same store scope as the state change that produced them.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

// OutboxRepository is the relay-side view of the outbox.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
