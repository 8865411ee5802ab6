package ports

import (
	"context"
	"time"

	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	contractsv1 "rostrum/contracts/gen/events/v1"
)

// FlagRepository persists anomaly flags. The log is append-only; SaveFlag on
// an existing ID only ever records the terminal review fields.
type FlagRepository interface {
	SaveFlag(ctx context.Context, flag entities.Flag) error
	GetFlag(ctx context.Context, flagID string) (entities.Flag, error)
	ListUnreviewedFlags(ctx context.Context, eventID string) ([]entities.Flag, error)
	ListFlagsBySheet(ctx context.Context, sheetID string) ([]entities.Flag, error)
}

// SheetSource is the read-side view of judging-core this context needs:
// the flagged sheet itself, its co-judge cohort, and the judge's scoring
// history for the same participant.
type SheetSource interface {
	GetSheetContext(ctx context.Context, sheetID string) (entities.SheetContext, error)
	ListCohortTotals(ctx context.Context, participantID, eventID string) ([]JudgeTotal, error)
	ListJudgeHistory(ctx context.Context, judgeID, participantID string) ([]JudgeTotal, error)
}

// JudgeTotal is one sheet total with enough identity to exclude self-matches.
type JudgeTotal struct {
	SheetID string
	JudgeID string
	EventID string
	Total   float64
}

// SheetExcluder flips the exclusion bit on a sheet in judging-core. The bit
// is owned by this context's review decisions.
type SheetExcluder interface {
	ExcludeSheet(ctx context.Context, sheetID string, cause string) error
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

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

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

// EventDedupStore makes consumers replay-safe across bus redeliveries.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, expiresAt time.Time) (bool, error)
}
