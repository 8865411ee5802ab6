package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rostrum/contexts/appeals-desk/recheck-service/adapters/gateway"
	recheckcommands "rostrum/contexts/appeals-desk/recheck-service/application/commands"
	recheckentities "rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	recheckports "rostrum/contexts/appeals-desk/recheck-service/ports"
	integritycommands "rostrum/contexts/integrity-safety/anomaly-review-service/application/commands"
	integrityentities "rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	scoringcommands "rostrum/contexts/judging-core/score-entry-service/application/commands"
	scoringentities "rostrum/contexts/judging-core/score-entry-service/domain/entities"
	"rostrum/internal/app/bootstrap"
)

func submitScore(t *testing.T, app *bootstrap.InMemoryApp, judgeID string, technique, creativity, presentation float64) {
	t.Helper()
	_, err := app.Scoring.Scores.SubmitScore(context.Background(), scoringcommands.SubmitScoreCommand{
		JudgeID:       judgeID,
		ParticipantID: "participant-1",
		EventID:       "event-1",
		CriterionScores: map[string]float64{
			"technique":    technique,
			"creativity":   creativity,
			"presentation": presentation,
		},
	})
	require.NoError(t, err)
}

// Full pipeline on the in-process wiring: five submissions flow through the
// outbox relay to the anomaly consumer, the outlier gets flagged, rejection
// excludes it from consensus, and a paid recheck replaces the panel.
func TestInMemoryPipeline(t *testing.T) {
	app, err := bootstrap.BuildInMemory(nil, ":0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.AnomalyConsumer.Start(ctx))

	app.Scoring.Store.SetCriteria("event-1", []scoringentities.Criterion{
		{CriterionID: "technique", Label: "Technique", MaxScore: 40},
		{CriterionID: "creativity", Label: "Creativity", MaxScore: 30},
		{CriterionID: "presentation", Label: "Presentation", MaxScore: 30},
	})

	submitScore(t, app, "judge-1", 30, 20, 20) // 70
	submitScore(t, app, "judge-2", 30, 21, 21) // 72
	submitScore(t, app, "judge-3", 31, 22, 22) // 75
	submitScore(t, app, "judge-4", 32, 23, 23) // 78
	submitScore(t, app, "judge-5", 40, 28, 27) // 95, the outlier

	consensus, err := app.Scoring.Consensus.Consensus(ctx, "participant-1", "event-1")
	require.NoError(t, err)
	require.Equal(t, scoringentities.ConsensusStatusPublished, consensus.Status)
	require.Equal(t, 5, consensus.JudgesSubmitted)
	require.NotNil(t, consensus.FinalScore)
	require.InDelta(t, 75.0, *consensus.FinalScore, 0.001)

	require.NoError(t, app.ScoringRelay.RunOnce(ctx))

	var flags []integrityentities.Flag
	require.Eventually(t, func() bool {
		flags, err = app.Integrity.Store.ListUnreviewedFlags(ctx, "event-1")
		return err == nil && len(flags) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "judge-5", flags[0].JudgeID)
	require.Equal(t, integrityentities.SeverityHigh, flags[0].Severity)

	// Rejecting the flag excludes the sheet and shrinks the panel below the
	// trim threshold, so consensus falls back to the plain mean.
	reviewed, err := app.Integrity.Review.ReviewFlag(ctx, integritycommands.ReviewFlagCommand{
		FlagID:     flags[0].FlagID,
		ReviewerID: "admin-1",
		Approved:   false,
	})
	require.NoError(t, err)
	require.Equal(t, integrityentities.DecisionRejected, reviewed.Decision)

	consensus, err = app.Scoring.Consensus.Consensus(ctx, "participant-1", "event-1")
	require.NoError(t, err)
	require.Equal(t, 4, consensus.JudgesSubmitted)
	require.InDelta(t, 73.75, *consensus.FinalScore, 0.001)

	// Recheck the published result and replace the panel with a fresh one.
	request, err := app.Rechecks.Workflow.SubmitRecheck(ctx, recheckcommands.SubmitRecheckCommand{
		ParticipantID: "participant-1",
		EventID:       "event-1",
		StudentID:     "student-1",
		Reason:        "panel total disputed after exclusion",
	})
	require.NoError(t, err)

	request, err = app.Rechecks.Workflow.DecideRecheck(ctx, recheckcommands.DecideRecheckCommand{
		RequestID: request.RequestID,
		Accept:    true,
		Volunteer: "volunteer-1",
	})
	require.NoError(t, err)

	request, err = app.Rechecks.Workflow.InitiatePayment(ctx, request.RequestID)
	require.NoError(t, err)

	request, err = app.Rechecks.Workflow.VerifyPayment(ctx, recheckcommands.VerifyPaymentCommand{
		OrderID:   request.Payment.OrderID,
		PaymentID: "payment-1",
		Proof:     gateway.Proof(request.Payment.OrderID),
	})
	require.NoError(t, err)

	request, err = app.Rechecks.Workflow.ResolveRecheck(ctx, recheckcommands.ResolveRecheckCommand{
		RequestID:   request.RequestID,
		VolunteerID: "volunteer-1",
		FreshSheets: []recheckports.FreshSheet{
			{JudgeID: "judge-6", CriterionScores: map[string]float64{"technique": 30, "creativity": 22, "presentation": 22}},
			{JudgeID: "judge-7", CriterionScores: map[string]float64{"technique": 30, "creativity": 23, "presentation": 22}},
			{JudgeID: "judge-8", CriterionScores: map[string]float64{"technique": 30, "creativity": 23, "presentation": 23}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, recheckentities.StatusResolved, request.Status)

	consensus, err = app.Scoring.Consensus.Consensus(ctx, "participant-1", "event-1")
	require.NoError(t, err)
	require.Equal(t, 3, consensus.JudgesSubmitted)
	require.InDelta(t, 75.0, *consensus.FinalScore, 0.001)
}
