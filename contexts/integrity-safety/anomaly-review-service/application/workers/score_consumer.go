package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "rostrum/contexts/integrity-safety/anomaly-review-service/application"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/detector"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

const (
	scoreSubmittedTopic = "score.submitted"
	defaultScoreCG      = "anomaly-review-score-cg"
	defaultInspectLimit = 5 * time.Second
)

// ScoreConsumer inspects newly submitted sheets for anomalies. It is fully
// decoupled from the submission path: inspection runs under its own timeout,
// and every failure degrades to "no flag" plus a logged warning so a
// detector outage can never fail or delay a judge's submission.
type ScoreConsumer struct {
	Subscriber     ports.EventSubscriber
	Dedup          ports.EventDedupStore
	Flags          ports.FlagRepository
	Sheets         ports.SheetSource
	Detector       detector.Detector
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	ConsumerGroup  string
	DedupTTL       time.Duration
	InspectTimeout time.Duration
	Logger         *slog.Logger
}

// Start subscribes the consumer to score submissions with dedupe semantics.
func (c ScoreConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultScoreCG
	}
	if err := c.Subscriber.Subscribe(ctx, scoreSubmittedTopic, group, c.handleScoreSubmitted); err != nil {
		logger.Error("score consumer subscribe failed",
			"event", "integrity_score_consumer_subscribe_failed",
			"module", "integrity-safety/anomaly-review-service",
			"layer", "worker",
			"topic", scoreSubmittedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("score consumer subscription active",
		"event", "integrity_score_consumer_started",
		"module", "integrity-safety/anomaly-review-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c ScoreConsumer) handleScoreSubmitted(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	if alreadyProcessed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		return nil
	}

	var payload struct {
		SheetID string `json:"sheet_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("score.submitted payload decode failed",
			"event", "integrity_score_decode_failed",
			"module", "integrity-safety/anomaly-review-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	// Detection is advisory: inspection errors are swallowed after logging,
	// never bubbled to the bus for redelivery against the submitter.
	if err := c.inspectSheet(ctx, payload.SheetID); err != nil {
		logger.Warn("anomaly inspection degraded to no flag",
			"event", "integrity_inspection_degraded",
			"module", "integrity-safety/anomaly-review-service",
			"layer", "worker",
			"sheet_id", payload.SheetID,
			"error", err.Error(),
		)
	}
	return nil
}

func (c ScoreConsumer) inspectSheet(ctx context.Context, sheetID string) error {
	timeout := c.InspectTimeout
	if timeout <= 0 {
		timeout = defaultInspectLimit
	}
	inspectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sheet, err := c.Sheets.GetSheetContext(inspectCtx, strings.TrimSpace(sheetID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrSheetNotFound) {
			return nil
		}
		return err
	}
	if sheet.Excluded {
		return nil
	}

	drafts, err := c.Detector.Inspect(inspectCtx, sheet)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	for _, draft := range drafts {
		flagID, err := c.IDGen.NewID(inspectCtx)
		if err != nil {
			return err
		}
		flag := entities.Flag{
			FlagID:        flagID,
			SheetID:       sheet.SheetID,
			JudgeID:       sheet.JudgeID,
			ParticipantID: sheet.ParticipantID,
			EventID:       sheet.EventID,
			Severity:      draft.Severity,
			Confidence:    draft.Confidence,
			Method:        draft.Method,
			Reason:        draft.Reason,
			CreatedAt:     now,
		}
		if err := c.Flags.SaveFlag(inspectCtx, flag); err != nil {
			return err
		}
		if err := c.appendFlagCreated(inspectCtx, flag, now); err != nil {
			return err
		}
	}
	return nil
}

func (c ScoreConsumer) appendFlagCreated(ctx context.Context, flag entities.Flag, occurredAt time.Time) error {
	if c.Outbox == nil {
		return nil
	}
	eventID, err := c.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"flag_id":        flag.FlagID,
		"sheet_id":       flag.SheetID,
		"judge_id":       flag.JudgeID,
		"participant_id": flag.ParticipantID,
		"event_id":       flag.EventID,
		"severity":       string(flag.Severity),
		"confidence":     flag.Confidence,
		"method":         flag.Method,
		"reason":         flag.Reason,
		"occurred_at":    occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return c.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "flag.created",
		OccurredAt:       occurredAt,
		SourceService:    "anomaly-review-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "sheet_id",
		PartitionKey:     flag.SheetID,
		Data:             data,
	})
}

func (c ScoreConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	if c.Dedup == nil {
		return false, nil
	}
	ttl := c.DedupTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	reserved, err := c.Dedup.ReserveEvent(ctx, event.EventID, now.Add(ttl))
	if err != nil {
		return false, err
	}
	return !reserved, nil
}
