package commands

import (
	"encoding/json"
	"time"

	"rostrum/contexts/judging-core/score-entry-service/ports"
)

func newScoringEnvelope(
	eventID string,
	eventType string,
	participantID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Scoring events are partitioned by participant so consumers that react
	// per result (recomputation, notification) observe a stable order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "score-entry-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "participant_id",
		PartitionKey:     participantID,
		Data:             payload,
	}, nil
}
