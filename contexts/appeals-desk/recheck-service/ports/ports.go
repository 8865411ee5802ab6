package ports

import (
	"context"
	"time"

	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	contractsv1 "rostrum/contracts/gen/events/v1"
)

// RecheckRepository persists recheck requests. FindOpenByResult backs the
// one-open-request-per-result rule.
type RecheckRepository interface {
	SaveRequest(ctx context.Context, request entities.RecheckRequest) error
	GetRequest(ctx context.Context, requestID string) (entities.RecheckRequest, error)
	FindOpenByResult(ctx context.Context, result entities.ResultRef) (entities.RecheckRequest, bool, error)
	GetRequestByOrder(ctx context.Context, orderID string) (entities.RecheckRequest, error)
	ListRequestsByStudent(ctx context.Context, studentID string) ([]entities.RecheckRequest, error)
}

// Order is a gateway payment order awaiting verification.
type Order struct {
	OrderID  string
	Amount   float64
	Currency string
}

// PaymentGateway fronts the external payment provider. VerifyPayment returns
// false for a well-formed but unverifiable payment; errors are reserved for
// gateway failures.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (Order, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, proof string) (bool, error)
}

// FreshSheet is one judge's re-scored entry for a resolution cycle.
type FreshSheet struct {
	JudgeID         string
	CriterionScores map[string]float64
	Comments        string
}

// ScoringCycle is the judging-core bridge: retire the active sheets for a
// result and enter the fresh set in one cycle.
type ScoringCycle interface {
	RescoreCycle(ctx context.Context, participantID, eventID string, fresh []FreshSheet) error
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
