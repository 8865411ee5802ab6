package queries

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	"rostrum/contexts/judging-core/score-entry-service/ports"
)

// Quorum is the minimum number of non-excluded sheets before an aggregate is
// derivable; below it the result is pending, which is a state, not an error.
const Quorum = 3

// trimThreshold is the sheet count at which one positional minimum and one
// positional maximum are dropped before averaging.
const trimThreshold = 5

// ConsensusUseCase derives a participant's aggregate from the current
// non-excluded sheet set. It is a pure view: nothing is cached across input
// mutations, and every call reads the committed set at call time. Concurrent
// identical computations are collapsed with singleflight; callers that need
// the newest state after a mutation simply re-query.
type ConsensusUseCase struct {
	Sheets ports.SheetRepository
	Clock  ports.Clock

	group singleflight.Group
}

// Consensus computes the aggregate for (participant, event).
//
// Rules, in sheet-count order:
//   - n < 3: pending, nil score.
//   - 3 <= n < 5: arithmetic mean.
//   - n >= 5: sort totals ascending, drop exactly one minimum and one maximum
//     occurrence, mean the remainder.
//
// Every published score is rounded half-to-even to two decimals so the
// outcome is deterministic across branches and platforms.
func (uc *ConsensusUseCase) Consensus(ctx context.Context, participantID, eventID string) (entities.ConsensusResult, error) {
	participantID = strings.TrimSpace(participantID)
	eventID = strings.TrimSpace(eventID)
	if participantID == "" || eventID == "" {
		return entities.ConsensusResult{}, domainerrors.ErrInvalidScoreInput
	}

	value, err, _ := uc.group.Do(participantID+"|"+eventID, func() (any, error) {
		sheets, err := uc.Sheets.ListActiveSheets(ctx, participantID, eventID)
		if err != nil {
			return entities.ConsensusResult{}, err
		}
		return uc.derive(participantID, eventID, sheets), nil
	})
	if err != nil {
		return entities.ConsensusResult{}, err
	}
	return value.(entities.ConsensusResult), nil
}

// ListActive returns the non-excluded sheets feeding the consensus, ordered
// by submission time.
func (uc *ConsensusUseCase) ListActive(ctx context.Context, participantID, eventID string) ([]entities.ScoreSheet, error) {
	participantID = strings.TrimSpace(participantID)
	eventID = strings.TrimSpace(eventID)
	if participantID == "" || eventID == "" {
		return nil, domainerrors.ErrInvalidScoreInput
	}
	return uc.Sheets.ListActiveSheets(ctx, participantID, eventID)
}

func (uc *ConsensusUseCase) derive(participantID, eventID string, sheets []entities.ScoreSheet) entities.ConsensusResult {
	totals := make([]float64, 0, len(sheets))
	for _, sheet := range sheets {
		totals = append(totals, sheet.Total)
	}

	result := entities.ConsensusResult{
		ParticipantID:   participantID,
		EventID:         eventID,
		Status:          entities.ConsensusStatusPending,
		JudgesSubmitted: len(totals),
		JudgeTotals:     totals,
		ComputedAt:      uc.now(),
	}
	if len(totals) < Quorum {
		return result
	}

	contributing := totals
	if len(totals) >= trimThreshold {
		sorted := append([]float64(nil), totals...)
		sort.Float64s(sorted)
		// Positional trim: one occurrence of the minimum and one of the
		// maximum, regardless of how many judges share the extreme value.
		contributing = sorted[1 : len(sorted)-1]
	}

	score := roundHalfEven(mean(contributing))
	result.Status = entities.ConsensusStatusPublished
	result.FinalScore = &score
	return result
}

func (uc *ConsensusUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

// roundHalfEven rounds to two decimals with banker's rounding.
func roundHalfEven(value float64) float64 {
	return math.RoundToEven(value*100) / 100
}
