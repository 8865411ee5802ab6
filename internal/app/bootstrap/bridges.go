package bootstrap

import (
	"context"
	"errors"

	recheckports "rostrum/contexts/appeals-desk/recheck-service/ports"
	integrityentities "rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	integrityerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	integrityports "rostrum/contexts/integrity-safety/anomaly-review-service/ports"
	scoringcommands "rostrum/contexts/judging-core/score-entry-service/application/commands"
	scoringerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	scoringports "rostrum/contexts/judging-core/score-entry-service/ports"
)

// The bridges below live in the composition root so the bounded contexts
// stay decoupled: integrity-safety and appeals-desk each define the port
// they need, and judging-core fulfils it here without either side importing
// the other.

// ScoringSheetSource adapts the judging-core sheet repository to the
// integrity context's read-side port.
type ScoringSheetSource struct {
	Sheets scoringports.SheetRepository
}

func (s ScoringSheetSource) GetSheetContext(ctx context.Context, sheetID string) (integrityentities.SheetContext, error) {
	sheet, err := s.Sheets.GetSheet(ctx, sheetID)
	if err != nil {
		if errors.Is(err, scoringerrors.ErrSheetNotFound) {
			return integrityentities.SheetContext{}, integrityerrors.ErrSheetNotFound
		}
		return integrityentities.SheetContext{}, err
	}
	return integrityentities.SheetContext{
		SheetID:       sheet.SheetID,
		JudgeID:       sheet.JudgeID,
		ParticipantID: sheet.ParticipantID,
		EventID:       sheet.EventID,
		Total:         sheet.Total,
		Excluded:      sheet.Excluded,
	}, nil
}

func (s ScoringSheetSource) ListCohortTotals(ctx context.Context, participantID, eventID string) ([]integrityports.JudgeTotal, error) {
	sheets, err := s.Sheets.ListActiveSheets(ctx, participantID, eventID)
	if err != nil {
		return nil, err
	}
	totals := make([]integrityports.JudgeTotal, 0, len(sheets))
	for _, sheet := range sheets {
		totals = append(totals, integrityports.JudgeTotal{
			SheetID: sheet.SheetID,
			JudgeID: sheet.JudgeID,
			EventID: sheet.EventID,
			Total:   sheet.Total,
		})
	}
	return totals, nil
}

func (s ScoringSheetSource) ListJudgeHistory(ctx context.Context, judgeID, participantID string) ([]integrityports.JudgeTotal, error) {
	sheets, err := s.Sheets.ListSheetsByJudgeParticipant(ctx, judgeID, participantID)
	if err != nil {
		return nil, err
	}
	totals := make([]integrityports.JudgeTotal, 0, len(sheets))
	for _, sheet := range sheets {
		totals = append(totals, integrityports.JudgeTotal{
			SheetID: sheet.SheetID,
			JudgeID: sheet.JudgeID,
			EventID: sheet.EventID,
			Total:   sheet.Total,
		})
	}
	return totals, nil
}

// ScoringExcluder lets integrity reviews retire a sheet from aggregation.
type ScoringExcluder struct {
	Scores *scoringcommands.ScoreUseCase
}

func (e ScoringExcluder) ExcludeSheet(ctx context.Context, sheetID string, cause string) error {
	return e.Scores.ExcludeSheet(ctx, sheetID, cause)
}

// ScoringCycleBridge lets recheck resolution drive a fresh scoring cycle.
type ScoringCycleBridge struct {
	Scores *scoringcommands.ScoreUseCase
}

func (b ScoringCycleBridge) RescoreCycle(ctx context.Context, participantID, eventID string, fresh []recheckports.FreshSheet) error {
	entries := make([]scoringcommands.FreshSheet, 0, len(fresh))
	for _, sheet := range fresh {
		entries = append(entries, scoringcommands.FreshSheet{
			JudgeID:         sheet.JudgeID,
			CriterionScores: sheet.CriterionScores,
			Comments:        sheet.Comments,
		})
	}
	return b.Scores.RescoreCycle(ctx, participantID, eventID, entries)
}
