package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"rostrum/contexts/integrity-safety/anomaly-review-service/application/commands"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/queries"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	httptransport "rostrum/contexts/integrity-safety/anomaly-review-service/transport/http"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	Review *commands.ReviewUseCase
	Queue  *queries.QueueUseCase
	Logger *slog.Logger
}

// FlagQueueHandler lists unreviewed anomaly flags, optionally narrowed to
// one event.
// @Summary List unreviewed anomaly flags
// @Tags integrity
func (h Handler) FlagQueueHandler(ctx context.Context, eventID string) (httptransport.FlagQueueResponse, error) {
	items, err := h.Queue.ListUnreviewed(ctx, eventID)
	if err != nil {
		return httptransport.FlagQueueResponse{}, err
	}
	flags := make([]httptransport.FlagResponse, 0, len(items))
	for _, item := range items {
		resp := flagResponse(item.Flag)
		total := item.Sheet.Total
		resp.SheetTotal = &total
		resp.SheetExcluded = item.Sheet.Excluded
		flags = append(flags, resp)
	}
	return httptransport.FlagQueueResponse{EventID: eventID, Flags: flags}, nil
}

// ReviewFlagHandler applies an admin decision to a flag. Rejection excludes
// the flagged sheet from consensus.
// @Summary Review an anomaly flag
// @Tags integrity
func (h Handler) ReviewFlagHandler(
	ctx context.Context,
	flagID string,
	reviewerID string,
	req httptransport.ReviewFlagRequest,
) (httptransport.FlagResponse, error) {
	if err := validate.Struct(req); err != nil {
		return httptransport.FlagResponse{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidFlagInput, err)
	}
	flag, err := h.Review.ReviewFlag(ctx, commands.ReviewFlagCommand{
		FlagID:     flagID,
		ReviewerID: reviewerID,
		Approved:   req.Approved,
		Notes:      req.Notes,
	})
	if err != nil {
		return httptransport.FlagResponse{}, err
	}
	return flagResponse(flag), nil
}

func flagResponse(flag entities.Flag) httptransport.FlagResponse {
	resp := httptransport.FlagResponse{
		FlagID:        flag.FlagID,
		SheetID:       flag.SheetID,
		JudgeID:       flag.JudgeID,
		ParticipantID: flag.ParticipantID,
		EventID:       flag.EventID,
		Severity:      string(flag.Severity),
		Confidence:    flag.Confidence,
		Method:        flag.Method,
		Reason:        flag.Reason,
		AdminReviewed: flag.AdminReviewed,
		Decision:      string(flag.Decision),
		ReviewerID:    flag.ReviewerID,
		ReviewNotes:   flag.ReviewNotes,
		CreatedAt:     flag.CreatedAt.Format(time.RFC3339),
	}
	if flag.ReviewedAt != nil {
		reviewed := flag.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &reviewed
	}
	return resp
}
