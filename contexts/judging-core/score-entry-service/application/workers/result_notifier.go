package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "rostrum/contexts/judging-core/score-entry-service/application"
	"rostrum/contexts/judging-core/score-entry-service/application/queries"
	"rostrum/contexts/judging-core/score-entry-service/ports"
)

const (
	scoreSubmittedTopic = "score.submitted"
	scoreExcludedTopic  = "score.excluded"
	resultUpdatedTopic  = "result.updated"
	defaultNotifierCG   = "score-entry-result-notifier-cg"
)

// ResultNotifier turns sheet mutations into result.updated notifications: it
// recomputes the consensus for the touched (participant, event) and publishes
// the fresh aggregate for downstream delivery. This replaces client polling
// with a publish/subscribe surface at the service boundary.
type ResultNotifier struct {
	Subscriber    ports.EventSubscriber
	Publisher     ports.EventPublisher
	Consensus     *queries.ConsensusUseCase
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	ConsumerGroup string
	Logger        *slog.Logger
}

// Start subscribes the notifier to every topic that mutates consensus inputs.
func (n ResultNotifier) Start(ctx context.Context) error {
	logger := application.ResolveLogger(n.Logger)
	group := strings.TrimSpace(n.ConsumerGroup)
	if group == "" {
		group = defaultNotifierCG
	}
	for _, topic := range []string{scoreSubmittedTopic, scoreExcludedTopic} {
		if err := n.Subscriber.Subscribe(ctx, topic, group, n.handleSheetMutation); err != nil {
			logger.Error("result notifier subscribe failed",
				"event", "scoring_result_notifier_subscribe_failed",
				"module", "judging-core/score-entry-service",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("result notifier subscriptions active",
		"event", "scoring_result_notifier_started",
		"module", "judging-core/score-entry-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (n ResultNotifier) handleSheetMutation(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(n.Logger)

	var payload struct {
		ParticipantID string `json:"participant_id"`
		EventID       string `json:"event_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("sheet mutation payload decode failed",
			"event", "scoring_result_notifier_decode_failed",
			"module", "judging-core/score-entry-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	result, err := n.Consensus.Consensus(ctx, payload.ParticipantID, payload.EventID)
	if err != nil {
		logger.Error("result recompute failed",
			"event", "scoring_result_recompute_failed",
			"module", "judging-core/score-entry-service",
			"layer", "worker",
			"participant_id", payload.ParticipantID,
			"event_id", payload.EventID,
			"error", err.Error(),
		)
		return err
	}

	eventID, err := n.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if n.Clock != nil {
		now = n.Clock.Now().UTC()
	}
	data := map[string]any{
		"participant_id":   result.ParticipantID,
		"event_id":         result.EventID,
		"status":           string(result.Status),
		"judges_submitted": result.JudgesSubmitted,
		"occurred_at":      now.Format(time.RFC3339),
	}
	if result.FinalScore != nil {
		data["final_score"] = *result.FinalScore
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return n.Publisher.Publish(ctx, resultUpdatedTopic, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        resultUpdatedTopic,
		OccurredAt:       now,
		SourceService:    "score-entry-service",
		TraceID:          event.TraceID,
		SchemaVersion:    1,
		PartitionKeyPath: "participant_id",
		PartitionKey:     result.ParticipantID,
		Data:             raw,
	})
}
