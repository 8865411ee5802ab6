package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/integrity-safety/anomaly-review-service/adapters/memory"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/commands"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
)

type recordingExcluder struct {
	excluded []string
	err      error
}

func (e *recordingExcluder) ExcludeSheet(_ context.Context, sheetID string, _ string) error {
	if e.err != nil {
		return e.err
	}
	e.excluded = append(e.excluded, sheetID)
	return nil
}

func seedFlag(flagID string) entities.Flag {
	return entities.Flag{
		FlagID:        flagID,
		SheetID:       "sheet-1",
		JudgeID:       "judge-1",
		ParticipantID: "participant-1",
		EventID:       "event-1",
		Severity:      entities.SeverityMedium,
		Confidence:    0.7,
		Method:        "cohort_zscore",
		Reason:        "outlier",
		CreatedAt:     time.Now().UTC(),
	}
}

func newReviewUseCase(excluder *recordingExcluder, seed ...entities.Flag) (commands.ReviewUseCase, *memory.Store) {
	store := memory.NewStore(seed)
	return commands.ReviewUseCase{
		Flags:    store,
		Excluder: excluder,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
	}, store
}

func TestReviewFlagApprovedKeepsSheetCounted(t *testing.T) {
	excluder := &recordingExcluder{}
	uc, store := newReviewUseCase(excluder, seedFlag("flag-1"))

	flag, err := uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:     "flag-1",
		ReviewerID: "admin-1",
		Approved:   true,
		Notes:      "score is plausible",
	})
	require.NoError(t, err)
	require.True(t, flag.AdminReviewed)
	require.Equal(t, entities.DecisionApproved, flag.Decision)
	require.Equal(t, "admin-1", flag.ReviewerID)
	require.NotNil(t, flag.ReviewedAt)
	require.Empty(t, excluder.excluded)

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "flag.reviewed", pending[0].EventType)
}

func TestReviewFlagRejectedExcludesSheet(t *testing.T) {
	excluder := &recordingExcluder{}
	uc, _ := newReviewUseCase(excluder, seedFlag("flag-1"))

	flag, err := uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:     "flag-1",
		ReviewerID: "admin-1",
		Approved:   false,
	})
	require.NoError(t, err)
	require.Equal(t, entities.DecisionRejected, flag.Decision)
	require.Equal(t, []string{"sheet-1"}, excluder.excluded)
}

func TestReviewFlagExclusionFailureLeavesFlagReviewable(t *testing.T) {
	excluder := &recordingExcluder{err: context.DeadlineExceeded}
	uc, store := newReviewUseCase(excluder, seedFlag("flag-1"))

	_, err := uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:     "flag-1",
		ReviewerID: "admin-1",
		Approved:   false,
	})
	require.Error(t, err)

	stored, err := store.GetFlag(context.Background(), "flag-1")
	require.NoError(t, err)
	require.False(t, stored.AdminReviewed)
}

func TestReviewFlagIsTerminal(t *testing.T) {
	excluder := &recordingExcluder{}
	uc, _ := newReviewUseCase(excluder, seedFlag("flag-1"))

	_, err := uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:     "flag-1",
		ReviewerID: "admin-1",
		Approved:   true,
	})
	require.NoError(t, err)

	_, err = uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:     "flag-1",
		ReviewerID: "admin-2",
		Approved:   false,
	})
	require.ErrorIs(t, err, domainerrors.ErrFlagAlreadyReviewed)
}

func TestReviewFlagUnknownFlag(t *testing.T) {
	uc, _ := newReviewUseCase(&recordingExcluder{})

	_, err := uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:     "missing",
		ReviewerID: "admin-1",
		Approved:   true,
	})
	require.ErrorIs(t, err, domainerrors.ErrFlagNotFound)
}

func TestReviewFlagRequiresIdentity(t *testing.T) {
	uc, _ := newReviewUseCase(&recordingExcluder{}, seedFlag("flag-1"))

	_, err := uc.ReviewFlag(context.Background(), commands.ReviewFlagCommand{
		FlagID:   "flag-1",
		Approved: true,
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidFlagInput)
}
