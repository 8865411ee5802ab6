package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	application "rostrum/contexts/judging-core/score-entry-service/application"
	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	"rostrum/contexts/judging-core/score-entry-service/ports"
)

// SubmitScoreCommand is the write-model input for a judge's score sheet.
type SubmitScoreCommand struct {
	JudgeID         string
	ParticipantID   string
	EventID         string
	CriterionScores map[string]float64
	Comments        string
}

// SubmitScoreResult returns the stored sheet plus an overwrite marker the
// transport layer maps to API semantics.
type SubmitScoreResult struct {
	Sheet     entities.ScoreSheet
	WasUpdate bool
}

// ScoreUseCase orchestrates score sheet writes: catalog validation, defensive
// clamping, the one-active-sheet-per-judge upsert, and outbox emission. The
// submitting call never waits on recomputation or anomaly detection; both
// ride the score.submitted event.
type ScoreUseCase struct {
	Sheets  ports.SheetRepository
	Catalog ports.CriterionCatalog
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger

	keys keyedMutex
}

// SubmitScore validates and upserts one judge's sheet for a participant in an
// event. A later submission for the same (judge, participant, event) replaces
// the prior one in place, keeping its sheet ID.
func (uc *ScoreUseCase) SubmitScore(ctx context.Context, cmd SubmitScoreCommand) (SubmitScoreResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	judgeID := strings.TrimSpace(cmd.JudgeID)
	participantID := strings.TrimSpace(cmd.ParticipantID)
	eventID := strings.TrimSpace(cmd.EventID)

	logger.Info("score submit processing started",
		"event", "scoring_submit_started",
		"module", "judging-core/score-entry-service",
		"layer", "application",
		"judge_id", judgeID,
		"participant_id", participantID,
		"event_id", eventID,
	)
	if judgeID == "" || participantID == "" || eventID == "" || len(cmd.CriterionScores) == 0 {
		logger.Warn("score submit validation failed",
			"event", "scoring_submit_validation_failed",
			"module", "judging-core/score-entry-service",
			"layer", "application",
			"judge_id", judgeID,
			"participant_id", participantID,
			"event_id", eventID,
		)
		return SubmitScoreResult{}, domainerrors.ErrInvalidScoreInput
	}

	criteria, err := uc.Catalog.CriteriaForEvent(ctx, eventID)
	if err != nil {
		return SubmitScoreResult{}, err
	}
	if len(criteria) == 0 {
		return SubmitScoreResult{}, domainerrors.ErrEmptyCriterionSet
	}

	scores, total, err := validateAndClamp(cmd.CriterionScores, criteria)
	if err != nil {
		logger.Warn("score submit rejected by catalog validation",
			"event", "scoring_submit_catalog_rejected",
			"module", "judging-core/score-entry-service",
			"layer", "application",
			"judge_id", judgeID,
			"participant_id", participantID,
			"event_id", eventID,
			"error", err.Error(),
		)
		return SubmitScoreResult{}, err
	}

	now := uc.now()

	// Serialize per submission key; distinct judges hit independent stripes.
	unlock := uc.keys.lock(judgeID + "|" + participantID + "|" + eventID)
	defer unlock()

	existing, found, err := uc.Sheets.GetSheetByIdentity(ctx, judgeID, participantID, eventID)
	if err != nil {
		return SubmitScoreResult{}, err
	}
	if found {
		existing.CriterionScores = scores
		existing.Total = total
		existing.Comments = strings.TrimSpace(cmd.Comments)
		// A resubmission is a fresh contribution; a previously excluded
		// sheet re-enters aggregation and may be re-flagged downstream.
		existing.Excluded = false
		existing.UpdatedAt = now
		if err := uc.Sheets.SaveSheet(ctx, existing); err != nil {
			return SubmitScoreResult{}, err
		}
		if err := uc.appendScoreEvent(ctx, "score.submitted", existing, now, map[string]any{
			"was_update": true,
		}); err != nil {
			return SubmitScoreResult{}, err
		}
		logger.Info("score sheet replaced",
			"event", "scoring_sheet_replaced",
			"module", "judging-core/score-entry-service",
			"layer", "application",
			"sheet_id", existing.SheetID,
			"judge_id", judgeID,
			"participant_id", participantID,
			"event_id", eventID,
			"total", existing.Total,
		)
		return SubmitScoreResult{Sheet: existing, WasUpdate: true}, nil
	}

	sheetID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitScoreResult{}, err
	}
	sheet := entities.ScoreSheet{
		SheetID:         sheetID,
		JudgeID:         judgeID,
		ParticipantID:   participantID,
		EventID:         eventID,
		CriterionScores: scores,
		Total:           total,
		Comments:        strings.TrimSpace(cmd.Comments),
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
	if err := uc.Sheets.SaveSheet(ctx, sheet); err != nil {
		return SubmitScoreResult{}, err
	}
	if err := uc.appendScoreEvent(ctx, "score.submitted", sheet, now, nil); err != nil {
		return SubmitScoreResult{}, err
	}
	logger.Info("score sheet created",
		"event", "scoring_sheet_created",
		"module", "judging-core/score-entry-service",
		"layer", "application",
		"sheet_id", sheet.SheetID,
		"judge_id", judgeID,
		"participant_id", participantID,
		"event_id", eventID,
		"total", sheet.Total,
	)
	return SubmitScoreResult{Sheet: sheet}, nil
}

// ExcludeSheet flips the exclusion bit on a sheet. The bit is owned by the
// integrity review flow; the sheet itself is preserved as history.
func (uc *ScoreUseCase) ExcludeSheet(ctx context.Context, sheetID string, cause string) error {
	logger := application.ResolveLogger(uc.Logger)
	sheet, err := uc.Sheets.GetSheet(ctx, strings.TrimSpace(sheetID))
	if err != nil {
		return err
	}
	if sheet.Excluded {
		return nil
	}
	now := uc.now()

	unlock := uc.keys.lock(sheet.JudgeID + "|" + sheet.ParticipantID + "|" + sheet.EventID)
	defer unlock()

	sheet.Excluded = true
	sheet.UpdatedAt = now
	if err := uc.Sheets.SaveSheet(ctx, sheet); err != nil {
		return err
	}
	if err := uc.appendScoreEvent(ctx, "score.excluded", sheet, now, map[string]any{
		"cause": strings.TrimSpace(cause),
	}); err != nil {
		return err
	}
	logger.Info("score sheet excluded",
		"event", "scoring_sheet_excluded",
		"module", "judging-core/score-entry-service",
		"layer", "application",
		"sheet_id", sheet.SheetID,
		"participant_id", sheet.ParticipantID,
		"event_id", sheet.EventID,
		"cause", strings.TrimSpace(cause),
	)
	return nil
}

func (uc *ScoreUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc *ScoreUseCase) appendScoreEvent(
	ctx context.Context,
	eventType string,
	sheet entities.ScoreSheet,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"sheet_id":       sheet.SheetID,
		"judge_id":       sheet.JudgeID,
		"participant_id": sheet.ParticipantID,
		"event_id":       sheet.EventID,
		"total":          sheet.Total,
		"excluded":       sheet.Excluded,
		"occurred_at":    occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newScoringEnvelope(eventID, eventType, sheet.ParticipantID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

// validateAndClamp checks every submitted value against the catalog-defined
// range, requires a complete sheet, and returns the clamped copy plus total.
func validateAndClamp(
	submitted map[string]float64,
	criteria []entities.Criterion,
) (map[string]float64, float64, error) {
	byID := make(map[string]entities.Criterion, len(criteria))
	for _, criterion := range criteria {
		byID[criterion.CriterionID] = criterion
	}

	for criterionID, value := range submitted {
		criterion, ok := byID[criterionID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", domainerrors.ErrUnknownCriterion, criterionID)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > criterion.MaxScore {
			return nil, 0, fmt.Errorf("%w: %q must be within [0, %g], got %g",
				domainerrors.ErrScoreOutOfRange, criterionID, criterion.MaxScore, value)
		}
	}
	for _, criterion := range criteria {
		if _, ok := submitted[criterion.CriterionID]; !ok {
			return nil, 0, fmt.Errorf("%w: missing criterion %q",
				domainerrors.ErrInvalidScoreInput, criterion.CriterionID)
		}
	}

	scores := make(map[string]float64, len(submitted))
	total := 0.0
	for criterionID, value := range submitted {
		clamped := math.Min(math.Max(value, 0), byID[criterionID].MaxScore)
		scores[criterionID] = clamped
		total += clamped
	}
	return scores, total, nil
}
