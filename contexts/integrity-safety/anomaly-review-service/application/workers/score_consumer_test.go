package workers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/integrity-safety/anomaly-review-service/adapters/memory"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/detector"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/workers"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

// capturingBus hands the subscribed handler back to the test so delivery is
// synchronous and assertions are race-free.
type capturingBus struct {
	handler func(context.Context, ports.EventEnvelope) error
}

func (b *capturingBus) Subscribe(
	_ context.Context,
	_ string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	b.handler = handler
	return nil
}

type consumerSheets struct {
	sheet    entities.SheetContext
	sheetErr error
	cohort   []ports.JudgeTotal
}

func (s consumerSheets) GetSheetContext(context.Context, string) (entities.SheetContext, error) {
	if s.sheetErr != nil {
		return entities.SheetContext{}, s.sheetErr
	}
	return s.sheet, nil
}

func (s consumerSheets) ListCohortTotals(context.Context, string, string) ([]ports.JudgeTotal, error) {
	return s.cohort, nil
}

func (s consumerSheets) ListJudgeHistory(context.Context, string, string) ([]ports.JudgeTotal, error) {
	return nil, nil
}

func scoreSubmittedEvent(eventID string) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:   eventID,
		EventType: "score.submitted",
		Data:      []byte(`{"sheet_id":"sheet-x"}`),
	}
}

func startConsumer(t *testing.T, sheets consumerSheets) (*capturingBus, *memory.Store) {
	t.Helper()
	bus := &capturingBus{}
	store := memory.NewStore(nil)
	consumer := workers.ScoreConsumer{
		Subscriber: bus,
		Dedup:      store,
		Flags:      store,
		Sheets:     sheets,
		Detector:   detector.Detector{Sheets: sheets},
		Outbox:     store,
		Clock:      store,
		IDGen:      store,
	}
	require.NoError(t, consumer.Start(context.Background()))
	require.NotNil(t, bus.handler)
	return bus, store
}

func TestScoreConsumerFlagsOutlier(t *testing.T) {
	sheets := consumerSheets{
		sheet: entities.SheetContext{
			SheetID:       "sheet-x",
			JudgeID:       "judge-x",
			ParticipantID: "participant-1",
			EventID:       "event-1",
			Total:         95,
		},
		cohort: []ports.JudgeTotal{
			{SheetID: "a", JudgeID: "A", EventID: "event-1", Total: 70},
			{SheetID: "b", JudgeID: "B", EventID: "event-1", Total: 72},
			{SheetID: "c", JudgeID: "C", EventID: "event-1", Total: 75},
		},
	}
	bus, store := startConsumer(t, sheets)

	require.NoError(t, bus.handler(context.Background(), scoreSubmittedEvent("event-aaa")))

	flags, err := store.ListUnreviewedFlags(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, flags, 1)
	require.Equal(t, "sheet-x", flags[0].SheetID)

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "flag.created", pending[0].EventType)
}

func TestScoreConsumerDeduplicatesRedelivery(t *testing.T) {
	sheets := consumerSheets{
		sheet: entities.SheetContext{
			SheetID: "sheet-x", JudgeID: "judge-x",
			ParticipantID: "participant-1", EventID: "event-1", Total: 95,
		},
		cohort: []ports.JudgeTotal{
			{SheetID: "a", JudgeID: "A", EventID: "event-1", Total: 70},
			{SheetID: "b", JudgeID: "B", EventID: "event-1", Total: 72},
			{SheetID: "c", JudgeID: "C", EventID: "event-1", Total: 75},
		},
	}
	bus, store := startConsumer(t, sheets)

	require.NoError(t, bus.handler(context.Background(), scoreSubmittedEvent("event-aaa")))
	require.NoError(t, bus.handler(context.Background(), scoreSubmittedEvent("event-aaa")))

	flags, err := store.ListUnreviewedFlags(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, flags, 1)
}

func TestScoreConsumerDegradesToNoFlag(t *testing.T) {
	bus, store := startConsumer(t, consumerSheets{sheetErr: errors.New("sheet source down")})

	// Inspection failure is swallowed: the handler acks and no flag appears.
	require.NoError(t, bus.handler(context.Background(), scoreSubmittedEvent("event-bbb")))

	flags, err := store.ListUnreviewedFlags(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, flags)
}

func TestScoreConsumerSkipsExcludedSheet(t *testing.T) {
	sheets := consumerSheets{
		sheet: entities.SheetContext{
			SheetID: "sheet-x", JudgeID: "judge-x",
			ParticipantID: "participant-1", EventID: "event-1",
			Total: 95, Excluded: true,
		},
		cohort: []ports.JudgeTotal{
			{SheetID: "a", JudgeID: "A", EventID: "event-1", Total: 70},
			{SheetID: "b", JudgeID: "B", EventID: "event-1", Total: 72},
			{SheetID: "c", JudgeID: "C", EventID: "event-1", Total: 75},
		},
	}
	bus, store := startConsumer(t, sheets)

	require.NoError(t, bus.handler(context.Background(), scoreSubmittedEvent("event-ccc")))

	flags, err := store.ListUnreviewedFlags(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, flags)
}
