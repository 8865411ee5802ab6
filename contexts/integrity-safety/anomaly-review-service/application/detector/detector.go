package detector

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	application "rostrum/contexts/integrity-safety/anomaly-review-service/application"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

const (
	// MethodCohortZScore compares a sheet total against co-judge totals for
	// the same participant and event.
	MethodCohortZScore = "cohort_zscore"
	// MethodHistoryDeviation compares a sheet total against the judge's own
	// prior totals for the same participant across events.
	MethodHistoryDeviation = "history_deviation"

	// minCohortSize is the smallest co-judge cohort a z-score is meaningful
	// for; smaller cohorts produce no flag rather than a noisy one.
	minCohortSize = 3
	// minHistorySize is the smallest history a deviation baseline needs.
	minHistorySize = 2

	zFlagThreshold       = 2.0
	zMediumThreshold     = 2.5
	zHighThreshold       = 3.0
	deviationThreshold   = 0.35
	deviationHighCutoff  = 0.60
	maxConfidenceSamples = 10
)

// Draft is a detector finding before it is persisted as a flag.
type Draft struct {
	Severity   entities.Severity
	Confidence float64
	Method     string
	Reason     string
}

// Detector scores a sheet against its statistical expectation. It is
// advisory: every failure path degrades to "no finding" at the caller, and
// nothing here ever blocks or fails the originating submission.
type Detector struct {
	Sheets ports.SheetSource
	Logger *slog.Logger
}

// Inspect runs every method against the sheet and returns zero or more
// drafts. A method that cannot establish a baseline contributes nothing.
func (d Detector) Inspect(ctx context.Context, sheet entities.SheetContext) ([]Draft, error) {
	logger := application.ResolveLogger(d.Logger)
	drafts := make([]Draft, 0, 2)

	cohort, err := d.Sheets.ListCohortTotals(ctx, sheet.ParticipantID, sheet.EventID)
	if err != nil {
		return nil, err
	}
	if draft, ok := cohortZScore(sheet, cohort); ok {
		drafts = append(drafts, draft)
	}

	history, err := d.Sheets.ListJudgeHistory(ctx, sheet.JudgeID, sheet.ParticipantID)
	if err != nil {
		return nil, err
	}
	if draft, ok := historyDeviation(sheet, history); ok {
		drafts = append(drafts, draft)
	}

	if len(drafts) > 0 {
		logger.Info("anomaly detector produced findings",
			"event", "integrity_detector_findings",
			"module", "integrity-safety/anomaly-review-service",
			"layer", "application",
			"sheet_id", sheet.SheetID,
			"findings", len(drafts),
		)
	}
	return drafts, nil
}

func cohortZScore(sheet entities.SheetContext, cohort []ports.JudgeTotal) (Draft, bool) {
	peers := make([]float64, 0, len(cohort))
	for _, peer := range cohort {
		if peer.SheetID == sheet.SheetID {
			continue
		}
		peers = append(peers, peer.Total)
	}
	if len(peers) < minCohortSize {
		return Draft{}, false
	}

	mu, sigma := meanStddev(peers)
	if sigma == 0 {
		// A unanimous cohort with a differing sheet is the strongest signal
		// this method can produce.
		if sheet.Total == mu {
			return Draft{}, false
		}
		return Draft{
			Severity:   entities.SeverityHigh,
			Confidence: confidence(len(peers)),
			Method:     MethodCohortZScore,
			Reason: fmt.Sprintf("total %.2f differs from a unanimous co-judge cohort at %.2f",
				sheet.Total, mu),
		}, true
	}

	z := (sheet.Total - mu) / sigma
	if math.Abs(z) < zFlagThreshold {
		return Draft{}, false
	}
	return Draft{
		Severity:   zSeverity(math.Abs(z)),
		Confidence: confidence(len(peers)),
		Method:     MethodCohortZScore,
		Reason: fmt.Sprintf("total %.2f is %.2f standard deviations from the co-judge mean %.2f",
			sheet.Total, z, mu),
	}, true
}

func historyDeviation(sheet entities.SheetContext, history []ports.JudgeTotal) (Draft, bool) {
	prior := make([]float64, 0, len(history))
	for _, item := range history {
		if item.SheetID == sheet.SheetID || item.EventID == sheet.EventID {
			continue
		}
		prior = append(prior, item.Total)
	}
	if len(prior) < minHistorySize {
		return Draft{}, false
	}

	baseline, _ := meanStddev(prior)
	if baseline == 0 {
		return Draft{}, false
	}
	deviation := math.Abs(sheet.Total-baseline) / baseline
	if deviation < deviationThreshold {
		return Draft{}, false
	}

	severity := entities.SeverityMedium
	if deviation >= deviationHighCutoff {
		severity = entities.SeverityHigh
	}
	return Draft{
		Severity:   severity,
		Confidence: confidence(len(prior)),
		Method:     MethodHistoryDeviation,
		Reason: fmt.Sprintf("total %.2f deviates %.0f%% from the judge's own baseline %.2f for this participant",
			sheet.Total, deviation*100, baseline),
	}, true
}

func zSeverity(absZ float64) entities.Severity {
	switch {
	case absZ >= zHighThreshold:
		return entities.SeverityHigh
	case absZ >= zMediumThreshold:
		return entities.SeverityMedium
	default:
		return entities.SeverityLow
	}
}

// confidence grows with sample size and saturates; a three-judge baseline is
// weak evidence, ten or more is as good as this model gets.
func confidence(samples int) float64 {
	if samples >= maxConfidenceSamples {
		return 0.95
	}
	return 0.5 + 0.45*float64(samples)/float64(maxConfidenceSamples)
}

func meanStddev(values []float64) (float64, float64) {
	mu := 0.0
	for _, value := range values {
		mu += value
	}
	mu /= float64(len(values))

	variance := 0.0
	for _, value := range values {
		variance += (value - mu) * (value - mu)
	}
	variance /= float64(len(values))
	return mu, math.Sqrt(variance)
}
