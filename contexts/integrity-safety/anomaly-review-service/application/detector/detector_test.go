package detector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/integrity-safety/anomaly-review-service/application/detector"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

type stubSheets struct {
	cohort  []ports.JudgeTotal
	history []ports.JudgeTotal
}

func (s stubSheets) GetSheetContext(context.Context, string) (entities.SheetContext, error) {
	return entities.SheetContext{}, nil
}

func (s stubSheets) ListCohortTotals(context.Context, string, string) ([]ports.JudgeTotal, error) {
	return s.cohort, nil
}

func (s stubSheets) ListJudgeHistory(context.Context, string, string) ([]ports.JudgeTotal, error) {
	return s.history, nil
}

func cohortOf(totals ...float64) []ports.JudgeTotal {
	cohort := make([]ports.JudgeTotal, 0, len(totals))
	for i, total := range totals {
		cohort = append(cohort, ports.JudgeTotal{
			SheetID: string(rune('a' + i)),
			JudgeID: string(rune('A' + i)),
			EventID: "event-1",
			Total:   total,
		})
	}
	return cohort
}

func sheetUnderTest(total float64) entities.SheetContext {
	return entities.SheetContext{
		SheetID:       "sheet-x",
		JudgeID:       "judge-x",
		ParticipantID: "participant-1",
		EventID:       "event-1",
		Total:         total,
	}
}

func TestCohortZScoreFlagsOutlier(t *testing.T) {
	d := detector.Detector{Sheets: stubSheets{cohort: cohortOf(70, 72, 75, 78)}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(95))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, detector.MethodCohortZScore, drafts[0].Method)
	require.Equal(t, entities.SeverityHigh, drafts[0].Severity)
	require.Greater(t, drafts[0].Confidence, 0.5)
}

func TestCohortZScoreIgnoresInliers(t *testing.T) {
	d := detector.Detector{Sheets: stubSheets{cohort: cohortOf(70, 72, 75, 78)}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(75))
	require.NoError(t, err)
	require.Empty(t, drafts)
}

func TestCohortZScoreNeedsMinimumCohort(t *testing.T) {
	d := detector.Detector{Sheets: stubSheets{cohort: cohortOf(70, 72)}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(95))
	require.NoError(t, err)
	require.Empty(t, drafts)
}

func TestCohortZScoreExcludesOwnSheet(t *testing.T) {
	cohort := cohortOf(70, 72, 75)
	cohort = append(cohort, ports.JudgeTotal{SheetID: "sheet-x", JudgeID: "judge-x", EventID: "event-1", Total: 95})
	d := detector.Detector{Sheets: stubSheets{cohort: cohort}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(95))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, detector.MethodCohortZScore, drafts[0].Method)
}

func TestUnanimousCohortDisagreementIsHighSeverity(t *testing.T) {
	d := detector.Detector{Sheets: stubSheets{cohort: cohortOf(70, 70, 70)}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(90))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, entities.SeverityHigh, drafts[0].Severity)
	require.Contains(t, drafts[0].Reason, "unanimous")
}

func TestUnanimousCohortAgreementIsClean(t *testing.T) {
	d := detector.Detector{Sheets: stubSheets{cohort: cohortOf(70, 70, 70)}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(70))
	require.NoError(t, err)
	require.Empty(t, drafts)
}

func historyOf(eventIDs []string, totals []float64) []ports.JudgeTotal {
	history := make([]ports.JudgeTotal, 0, len(totals))
	for i, total := range totals {
		history = append(history, ports.JudgeTotal{
			SheetID: string(rune('p' + i)),
			JudgeID: "judge-x",
			EventID: eventIDs[i],
			Total:   total,
		})
	}
	return history
}

func TestHistoryDeviationSeverityBands(t *testing.T) {
	history := historyOf([]string{"event-2", "event-3"}, []float64{60, 64})

	cases := []struct {
		name  string
		total float64
		want  entities.Severity
		flags bool
	}{
		{name: "small drift is clean", total: 70, flags: false},
		{name: "moderate deviation is medium", total: 90, want: entities.SeverityMedium, flags: true},
		{name: "large deviation is high", total: 100, want: entities.SeverityHigh, flags: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := detector.Detector{Sheets: stubSheets{history: history}}
			drafts, err := d.Inspect(context.Background(), sheetUnderTest(tc.total))
			require.NoError(t, err)
			if !tc.flags {
				require.Empty(t, drafts)
				return
			}
			require.Len(t, drafts, 1)
			require.Equal(t, detector.MethodHistoryDeviation, drafts[0].Method)
			require.Equal(t, tc.want, drafts[0].Severity)
		})
	}
}

func TestHistoryDeviationExcludesSameEvent(t *testing.T) {
	// Only one prior total survives the same-event filter, which is below
	// the baseline minimum.
	history := historyOf([]string{"event-1", "event-2"}, []float64{60, 64})
	d := detector.Detector{Sheets: stubSheets{history: history}}

	drafts, err := d.Inspect(context.Background(), sheetUnderTest(100))
	require.NoError(t, err)
	require.Empty(t, drafts)
}
