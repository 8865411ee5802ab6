package commands

import (
	"context"
	"strings"

	application "rostrum/contexts/judging-core/score-entry-service/application"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
)

// FreshSheet is one judge's re-scored sheet entering a fresh cycle.
type FreshSheet struct {
	JudgeID         string
	CriterionScores map[string]float64
	Comments        string
}

// RescoreCycle retires every active sheet for the result and enters the
// fresh set, so the republished consensus reflects only the new contributors.
// Driven by recheck resolution; retired sheets stay on record as history.
func (uc *ScoreUseCase) RescoreCycle(
	ctx context.Context,
	participantID string,
	eventID string,
	fresh []FreshSheet,
) error {
	logger := application.ResolveLogger(uc.Logger)
	participantID = strings.TrimSpace(participantID)
	eventID = strings.TrimSpace(eventID)
	if participantID == "" || eventID == "" || len(fresh) == 0 {
		return domainerrors.ErrInvalidScoreInput
	}

	active, err := uc.Sheets.ListActiveSheets(ctx, participantID, eventID)
	if err != nil {
		return err
	}
	for _, sheet := range active {
		if err := uc.ExcludeSheet(ctx, sheet.SheetID, "recheck_rescore_cycle"); err != nil {
			return err
		}
	}

	for _, entry := range fresh {
		if _, err := uc.SubmitScore(ctx, SubmitScoreCommand{
			JudgeID:         entry.JudgeID,
			ParticipantID:   participantID,
			EventID:         eventID,
			CriterionScores: entry.CriterionScores,
			Comments:        entry.Comments,
		}); err != nil {
			return err
		}
	}

	logger.Info("rescore cycle completed",
		"event", "scoring_rescore_cycle_completed",
		"module", "judging-core/score-entry-service",
		"layer", "application",
		"participant_id", participantID,
		"event_id", eventID,
		"retired", len(active),
		"entered", len(fresh),
	)
	return nil
}
