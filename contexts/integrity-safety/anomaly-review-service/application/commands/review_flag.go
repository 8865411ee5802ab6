package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "rostrum/contexts/integrity-safety/anomaly-review-service/application"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

// ReviewFlagCommand applies an adjudication decision to one flag.
type ReviewFlagCommand struct {
	FlagID     string
	ReviewerID string
	Approved   bool
	Notes      string
}

// ReviewUseCase resolves anomaly flags. Decisions are terminal: approval
// leaves the sheet counted, rejection excludes it from aggregation through
// the judging-core port, and a reviewed flag can never be re-reviewed.
type ReviewUseCase struct {
	Flags    ports.FlagRepository
	Excluder ports.SheetExcluder
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc ReviewUseCase) ReviewFlag(ctx context.Context, cmd ReviewFlagCommand) (entities.Flag, error) {
	logger := application.ResolveLogger(uc.Logger)
	flagID := strings.TrimSpace(cmd.FlagID)
	reviewerID := strings.TrimSpace(cmd.ReviewerID)

	logger.Info("flag review processing started",
		"event", "integrity_flag_review_started",
		"module", "integrity-safety/anomaly-review-service",
		"layer", "application",
		"flag_id", flagID,
		"reviewer_id", reviewerID,
		"approved", cmd.Approved,
	)
	if flagID == "" || reviewerID == "" {
		return entities.Flag{}, domainerrors.ErrInvalidFlagInput
	}

	flag, err := uc.Flags.GetFlag(ctx, flagID)
	if err != nil {
		return entities.Flag{}, err
	}
	if flag.AdminReviewed {
		logger.Warn("flag review rejected: decision already terminal",
			"event", "integrity_flag_review_conflict",
			"module", "integrity-safety/anomaly-review-service",
			"layer", "application",
			"flag_id", flagID,
			"reviewer_id", reviewerID,
		)
		return entities.Flag{}, domainerrors.ErrFlagAlreadyReviewed
	}

	now := uc.now()
	flag.AdminReviewed = true
	flag.ReviewerID = reviewerID
	flag.ReviewNotes = strings.TrimSpace(cmd.Notes)
	flag.ReviewedAt = &now
	if cmd.Approved {
		flag.Decision = entities.DecisionApproved
	} else {
		flag.Decision = entities.DecisionRejected
	}

	if !cmd.Approved {
		// Exclusion before persisting the decision: if judging-core fails,
		// the flag stays reviewable and the operation has no partial effect.
		if err := uc.Excluder.ExcludeSheet(ctx, flag.SheetID, "anomaly_flag_rejected"); err != nil {
			return entities.Flag{}, err
		}
	}

	if err := uc.Flags.SaveFlag(ctx, flag); err != nil {
		return entities.Flag{}, err
	}
	if err := uc.appendFlagEvent(ctx, "flag.reviewed", flag, now, map[string]any{
		"decision":    string(flag.Decision),
		"reviewer_id": reviewerID,
	}); err != nil {
		return entities.Flag{}, err
	}

	logger.Info("flag reviewed",
		"event", "integrity_flag_reviewed",
		"module", "integrity-safety/anomaly-review-service",
		"layer", "application",
		"flag_id", flag.FlagID,
		"sheet_id", flag.SheetID,
		"decision", string(flag.Decision),
		"reviewer_id", reviewerID,
	)
	return flag, nil
}

func (uc ReviewUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc ReviewUseCase) appendFlagEvent(
	ctx context.Context,
	eventType string,
	flag entities.Flag,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"flag_id":        flag.FlagID,
		"sheet_id":       flag.SheetID,
		"judge_id":       flag.JudgeID,
		"participant_id": flag.ParticipantID,
		"event_id":       flag.EventID,
		"severity":       string(flag.Severity),
		"method":         flag.Method,
		"occurred_at":    occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "anomaly-review-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "sheet_id",
		PartitionKey:     flag.SheetID,
		Data:             payload,
	})
}
