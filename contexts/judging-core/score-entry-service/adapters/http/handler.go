package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"rostrum/contexts/judging-core/score-entry-service/application/commands"
	"rostrum/contexts/judging-core/score-entry-service/application/queries"
	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	httptransport "rostrum/contexts/judging-core/score-entry-service/transport/http"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	Scores    *commands.ScoreUseCase
	Consensus *queries.ConsensusUseCase
	Logger    *slog.Logger
}

// SubmitScoreHandler records a judge's sheet for a participant in an event.
// @Summary Submit a judge score sheet
// @Tags scoring
func (h Handler) SubmitScoreHandler(
	ctx context.Context,
	judgeID string,
	eventID string,
	participantID string,
	req httptransport.SubmitScoreRequest,
) (httptransport.ScoreSheetResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.ScoreSheetResponse{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidScoreInput, err)
	}
	result, err := h.Scores.SubmitScore(ctx, commands.SubmitScoreCommand{
		JudgeID:         judgeID,
		ParticipantID:   participantID,
		EventID:         eventID,
		CriterionScores: req.CriterionScores,
		Comments:        req.Comments,
	})
	if err != nil {
		return httptransport.ScoreSheetResponse{}, err
	}
	resp := sheetResponse(result.Sheet)
	resp.WasUpdate = result.WasUpdate
	return resp, nil
}

// ConsensusHandler returns the current aggregate for a participant.
// @Summary Get the consensus result for a participant
// @Tags scoring
func (h Handler) ConsensusHandler(
	ctx context.Context,
	eventID string,
	participantID string,
) (httptransport.ConsensusResponse, error) {
	result, err := h.Consensus.Consensus(ctx, participantID, eventID)
	if err != nil {
		return httptransport.ConsensusResponse{}, err
	}
	return httptransport.ConsensusResponse{
		ParticipantID:   result.ParticipantID,
		EventID:         result.EventID,
		Status:          string(result.Status),
		JudgesSubmitted: result.JudgesSubmitted,
		JudgeTotals:     result.JudgeTotals,
		FinalScore:      result.FinalScore,
		ComputedAt:      result.ComputedAt.Format(time.RFC3339),
	}, nil
}

// ActiveSheetsHandler lists the non-excluded sheets feeding the consensus.
// @Summary List active score sheets for a participant
// @Tags scoring
func (h Handler) ActiveSheetsHandler(
	ctx context.Context,
	eventID string,
	participantID string,
) (httptransport.ActiveSheetsResponse, error) {
	sheets, err := h.Consensus.ListActive(ctx, participantID, eventID)
	if err != nil {
		return httptransport.ActiveSheetsResponse{}, err
	}
	items := make([]httptransport.ScoreSheetResponse, 0, len(sheets))
	for _, sheet := range sheets {
		items = append(items, sheetResponse(sheet))
	}
	return httptransport.ActiveSheetsResponse{
		ParticipantID: participantID,
		EventID:       eventID,
		Sheets:        items,
	}, nil
}

func sheetResponse(sheet entities.ScoreSheet) httptransport.ScoreSheetResponse {
	return httptransport.ScoreSheetResponse{
		SheetID:         sheet.SheetID,
		JudgeID:         sheet.JudgeID,
		ParticipantID:   sheet.ParticipantID,
		EventID:         sheet.EventID,
		CriterionScores: sheet.CriterionScores,
		Total:           sheet.Total,
		Comments:        sheet.Comments,
		Excluded:        sheet.Excluded,
	}
}
