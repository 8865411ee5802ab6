package commands_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/judging-core/score-entry-service/adapters/memory"
	"rostrum/contexts/judging-core/score-entry-service/application/commands"
	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
)

func newScoreUseCase(t *testing.T) (*commands.ScoreUseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore(nil)
	store.SetCriteria("event-1", []entities.Criterion{
		{CriterionID: "technique", Label: "Technique", MaxScore: 40},
		{CriterionID: "creativity", Label: "Creativity", MaxScore: 30},
		{CriterionID: "presentation", Label: "Presentation", MaxScore: 30},
	})
	return &commands.ScoreUseCase{
		Sheets:  store,
		Catalog: store,
		Outbox:  store,
		Clock:   store,
		IDGen:   store,
	}, store
}

func fullSheet(technique, creativity, presentation float64) map[string]float64 {
	return map[string]float64{
		"technique":    technique,
		"creativity":   creativity,
		"presentation": presentation,
	}
}

func TestSubmitScoreCreatesSheetWithTotal(t *testing.T) {
	uc, _ := newScoreUseCase(t)

	result, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
		JudgeID:         "judge-1",
		ParticipantID:   "participant-1",
		EventID:         "event-1",
		CriterionScores: fullSheet(35, 25, 20),
		Comments:        "solid routine",
	})
	require.NoError(t, err)
	require.False(t, result.WasUpdate)
	require.NotEmpty(t, result.Sheet.SheetID)
	require.InDelta(t, 80.0, result.Sheet.Total, 1e-9)
	require.False(t, result.Sheet.Excluded)
}

func TestSubmitScoreReplacesInPlace(t *testing.T) {
	uc, _ := newScoreUseCase(t)

	first, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
		JudgeID:         "judge-1",
		ParticipantID:   "participant-1",
		EventID:         "event-1",
		CriterionScores: fullSheet(35, 25, 20),
	})
	require.NoError(t, err)

	second, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
		JudgeID:         "judge-1",
		ParticipantID:   "participant-1",
		EventID:         "event-1",
		CriterionScores: fullSheet(30, 20, 15),
	})
	require.NoError(t, err)
	require.True(t, second.WasUpdate)
	require.Equal(t, first.Sheet.SheetID, second.Sheet.SheetID)
	require.InDelta(t, 65.0, second.Sheet.Total, 1e-9)
}

func TestSubmitScoreReactivatesExcludedSheet(t *testing.T) {
	uc, store := newScoreUseCase(t)

	first, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
		JudgeID:         "judge-1",
		ParticipantID:   "participant-1",
		EventID:         "event-1",
		CriterionScores: fullSheet(35, 25, 20),
	})
	require.NoError(t, err)

	require.NoError(t, uc.ExcludeSheet(context.Background(), first.Sheet.SheetID, "anomaly_flag_rejected"))
	excluded, err := store.GetSheet(context.Background(), first.Sheet.SheetID)
	require.NoError(t, err)
	require.True(t, excluded.Excluded)

	second, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
		JudgeID:         "judge-1",
		ParticipantID:   "participant-1",
		EventID:         "event-1",
		CriterionScores: fullSheet(20, 20, 20),
	})
	require.NoError(t, err)
	require.True(t, second.WasUpdate)
	require.False(t, second.Sheet.Excluded)
}

func TestSubmitScoreValidation(t *testing.T) {
	uc, _ := newScoreUseCase(t)

	cases := []struct {
		name   string
		scores map[string]float64
		want   error
	}{
		{
			name: "unknown criterion",
			scores: map[string]float64{
				"technique":    30,
				"creativity":   20,
				"presentation": 20,
				"stage_fright": 5,
			},
			want: domainerrors.ErrUnknownCriterion,
		},
		{
			name:   "score above criterion max",
			scores: fullSheet(45, 20, 20),
			want:   domainerrors.ErrScoreOutOfRange,
		},
		{
			name:   "negative score",
			scores: fullSheet(-1, 20, 20),
			want:   domainerrors.ErrScoreOutOfRange,
		},
		{
			name: "incomplete sheet",
			scores: map[string]float64{
				"technique": 30,
			},
			want: domainerrors.ErrInvalidScoreInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
				JudgeID:         "judge-1",
				ParticipantID:   "participant-1",
				EventID:         "event-1",
				CriterionScores: tc.scores,
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubmitScoreUnknownEvent(t *testing.T) {
	uc, _ := newScoreUseCase(t)

	_, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
		JudgeID:         "judge-1",
		ParticipantID:   "participant-1",
		EventID:         "event-404",
		CriterionScores: fullSheet(10, 10, 10),
	})
	require.ErrorIs(t, err, domainerrors.ErrEventNotFound)
}

func TestRescoreCycleRetiresAndReenters(t *testing.T) {
	uc, store := newScoreUseCase(t)

	for _, judge := range []string{"judge-1", "judge-2", "judge-3"} {
		_, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
			JudgeID:         judge,
			ParticipantID:   "participant-1",
			EventID:         "event-1",
			CriterionScores: fullSheet(30, 20, 20),
		})
		require.NoError(t, err)
	}

	err := uc.RescoreCycle(context.Background(), "participant-1", "event-1", []commands.FreshSheet{
		{JudgeID: "judge-4", CriterionScores: fullSheet(40, 30, 30)},
		{JudgeID: "judge-5", CriterionScores: fullSheet(35, 25, 25)},
		{JudgeID: "judge-6", CriterionScores: fullSheet(30, 25, 20)},
	})
	require.NoError(t, err)

	active, err := store.ListActiveSheets(context.Background(), "participant-1", "event-1")
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, sheet := range active {
		require.Contains(t, []string{"judge-4", "judge-5", "judge-6"}, sheet.JudgeID)
	}

	all, err := store.ListSheets(context.Background(), "participant-1", "event-1")
	require.NoError(t, err)
	require.Len(t, all, 6)
}

func TestSubmitScoreConcurrentResubmission(t *testing.T) {
	uc, store := newScoreUseCase(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := uc.SubmitScore(context.Background(), commands.SubmitScoreCommand{
				JudgeID:         "judge-1",
				ParticipantID:   "participant-1",
				EventID:         "event-1",
				CriterionScores: fullSheet(float64(20+n), 20, 20),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	active, err := store.ListActiveSheets(context.Background(), "participant-1", "event-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
}
