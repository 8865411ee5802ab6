package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "rostrum/contexts/integrity-safety/anomaly-review-service/application"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

// QueueItem is one unreviewed flag joined with its sheet context for the
// adjudication queue.
type QueueItem struct {
	Flag  entities.Flag
	Sheet entities.SheetContext
}

// QueueUseCase serves the adjudication read side.
type QueueUseCase struct {
	Flags  ports.FlagRepository
	Sheets ports.SheetSource
	Logger *slog.Logger
}

// ListUnreviewed returns pending flags, optionally narrowed to one event,
// each joined with its current sheet context. A flag whose sheet has since
// vanished is still listed with what the flag itself recorded.
func (uc QueueUseCase) ListUnreviewed(ctx context.Context, eventID string) ([]QueueItem, error) {
	logger := application.ResolveLogger(uc.Logger)
	flags, err := uc.Flags.ListUnreviewedFlags(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(flags))
	for _, flag := range flags {
		sheet, err := uc.Sheets.GetSheetContext(ctx, flag.SheetID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrSheetNotFound) {
				logger.Warn("flagged sheet missing from judging-core",
					"event", "integrity_queue_sheet_missing",
					"module", "integrity-safety/anomaly-review-service",
					"layer", "application",
					"flag_id", flag.FlagID,
					"sheet_id", flag.SheetID,
				)
				sheet = entities.SheetContext{
					SheetID:       flag.SheetID,
					JudgeID:       flag.JudgeID,
					ParticipantID: flag.ParticipantID,
					EventID:       flag.EventID,
				}
			} else {
				return nil, err
			}
		}
		items = append(items, QueueItem{Flag: flag, Sheet: sheet})
	}
	return items, nil
}
