package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "rostrum/contexts/integrity-safety/anomaly-review-service/application"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

// OutboxRelay publishes persisted integrity outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending rows, marking each published
// only after the bus accepts it, and stops at the first failure so retries
// stay ordered.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("integrity outbox list failed",
			"event", "integrity_outbox_list_failed",
			"module", "integrity-safety/anomaly-review-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("integrity outbox decode failed",
				"event", "integrity_outbox_decode_failed",
				"module", "integrity-safety/anomaly-review-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("integrity outbox publish failed",
				"event", "integrity_outbox_publish_failed",
				"module", "integrity-safety/anomaly-review-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return err
		}
	}
	return nil
}
