package queries_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/judging-core/score-entry-service/adapters/memory"
	"rostrum/contexts/judging-core/score-entry-service/application/queries"
	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
)

func seedSheets(totals []float64, excluded ...int) []entities.ScoreSheet {
	excludedSet := make(map[int]bool, len(excluded))
	for _, index := range excluded {
		excludedSet[index] = true
	}
	now := time.Now().UTC()
	sheets := make([]entities.ScoreSheet, 0, len(totals))
	for i, total := range totals {
		sheets = append(sheets, entities.ScoreSheet{
			SheetID:       fmt.Sprintf("sheet-%d", i),
			JudgeID:       fmt.Sprintf("judge-%d", i),
			ParticipantID: "participant-1",
			EventID:       "event-1",
			Total:         total,
			Excluded:      excludedSet[i],
			SubmittedAt:   now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:     now.Add(time.Duration(i) * time.Minute),
		})
	}
	return sheets
}

func TestConsensusRules(t *testing.T) {
	cases := []struct {
		name     string
		totals   []float64
		excluded []int
		want     *float64
		judges   int
	}{
		{
			name:   "below quorum is pending",
			totals: []float64{80, 82},
			judges: 2,
		},
		{
			name:   "three judges take the plain mean",
			totals: []float64{60, 65, 70},
			want:   ptr(65.00),
			judges: 3,
		},
		{
			name:   "four judges take the plain mean",
			totals: []float64{60, 70, 80, 90},
			want:   ptr(75.00),
			judges: 4,
		},
		{
			name:   "five judges drop one min and one max",
			totals: []float64{70, 72, 75, 78, 95},
			want:   ptr(75.00),
			judges: 5,
		},
		{
			name:   "duplicate extremes drop one occurrence each",
			totals: []float64{50, 50, 70, 90, 90},
			want:   ptr(70.00),
			judges: 5,
		},
		{
			name:     "excluded sheets do not count toward quorum or mean",
			totals:   []float64{60, 65, 70, 100},
			excluded: []int{3},
			want:     ptr(65.00),
			judges:   3,
		},
		{
			name:     "exclusion can drop a published result back to pending",
			totals:   []float64{60, 65, 70},
			excluded: []int{0},
			judges:   2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore(seedSheets(tc.totals, tc.excluded...))
			uc := &queries.ConsensusUseCase{Sheets: store, Clock: store}

			result, err := uc.Consensus(context.Background(), "participant-1", "event-1")
			require.NoError(t, err)
			require.Equal(t, tc.judges, result.JudgesSubmitted)
			if tc.want == nil {
				require.Equal(t, entities.ConsensusStatusPending, result.Status)
				require.Nil(t, result.FinalScore)
				return
			}
			require.Equal(t, entities.ConsensusStatusPublished, result.Status)
			require.NotNil(t, result.FinalScore)
			require.InDelta(t, *tc.want, *result.FinalScore, 1e-9)
		})
	}
}

func TestConsensusRoundsHalfToEven(t *testing.T) {
	// 12.5 hundredths rounds down to 0.12, 37.5 hundredths rounds up to
	// 0.38; both sit exactly on the midpoint.
	cases := []struct {
		totals []float64
		want   float64
	}{
		{totals: []float64{0.125, 0.125, 0.125}, want: 0.12},
		{totals: []float64{0.375, 0.375, 0.375}, want: 0.38},
	}
	for _, tc := range cases {
		store := memory.NewStore(seedSheets(tc.totals))
		uc := &queries.ConsensusUseCase{Sheets: store, Clock: store}

		result, err := uc.Consensus(context.Background(), "participant-1", "event-1")
		require.NoError(t, err)
		require.NotNil(t, result.FinalScore)
		require.Equal(t, tc.want, *result.FinalScore)
	}
}

func TestConsensusRejectsBlankIdentity(t *testing.T) {
	store := memory.NewStore(nil)
	uc := &queries.ConsensusUseCase{Sheets: store, Clock: store}

	_, err := uc.Consensus(context.Background(), "  ", "event-1")
	require.ErrorIs(t, err, domainerrors.ErrInvalidScoreInput)
}

func TestListActiveOrdersBySubmission(t *testing.T) {
	store := memory.NewStore(seedSheets([]float64{70, 60, 80}, 1))
	uc := &queries.ConsensusUseCase{Sheets: store, Clock: store}

	sheets, err := uc.ListActive(context.Background(), "participant-1", "event-1")
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	require.Equal(t, "sheet-0", sheets[0].SheetID)
	require.Equal(t, "sheet-2", sheets[1].SheetID)
}

func ptr(value float64) *float64 {
	return &value
}
