package bootstrap

import (
	"log/slog"

	recheck "rostrum/contexts/appeals-desk/recheck-service"
	anomalyreview "rostrum/contexts/integrity-safety/anomaly-review-service"
	integrityworkers "rostrum/contexts/integrity-safety/anomaly-review-service/application/workers"
	scoreentry "rostrum/contexts/judging-core/score-entry-service"
	scoringworkers "rostrum/contexts/judging-core/score-entry-service/application/workers"
	"rostrum/internal/platform/httpserver"
	"rostrum/internal/platform/messaging"
)

// InMemoryApp is the full system wired on in-process adapters: memory
// stores, the in-process bus and the fake payment gateway. Local runs and
// integration tests build this instead of the Postgres-backed processes.
type InMemoryApp struct {
	Scoring   scoreentry.Module
	Integrity anomalyreview.Module
	Rechecks  recheck.Module
	Bus       *messaging.Kafka
	Server    *httpserver.Server

	ScoringRelay    scoringworkers.OutboxRelay
	IntegrityRelay  integrityworkers.OutboxRelay
	AnomalyConsumer integrityworkers.ScoreConsumer
	ResultNotifier  scoringworkers.ResultNotifier
}

func BuildInMemory(logger *slog.Logger, addr string) (*InMemoryApp, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bus, err := messaging.NewKafka(nil, logger)
	if err != nil {
		return nil, err
	}

	scoringModule := scoreentry.NewInMemoryModule(nil, logger)
	sheetSource := ScoringSheetSource{Sheets: scoringModule.Store}
	integrityModule := anomalyreview.NewInMemoryModule(
		nil,
		sheetSource,
		ScoringExcluder{Scores: scoringModule.Scores},
		logger,
	)
	recheckModule := recheck.NewInMemoryModule(
		nil,
		ScoringCycleBridge{Scores: scoringModule.Scores},
		logger,
	)

	server := httpserver.New(scoringModule, integrityModule, recheckModule, logger, addr)
	return &InMemoryApp{
		Scoring:   scoringModule,
		Integrity: integrityModule,
		Rechecks:  recheckModule,
		Bus:       bus,
		Server:    server,
		ScoringRelay: scoringworkers.OutboxRelay{
			Outbox:    scoringModule.Store,
			Publisher: bus,
			Clock:     scoringModule.Store,
			Logger:    logger,
		},
		IntegrityRelay: integrityworkers.OutboxRelay{
			Outbox:    integrityModule.Store,
			Publisher: bus,
			Clock:     integrityModule.Store,
			Logger:    logger,
		},
		AnomalyConsumer: integrityworkers.ScoreConsumer{
			Subscriber: bus,
			Dedup:      integrityModule.Store,
			Flags:      integrityModule.Store,
			Sheets:     sheetSource,
			Detector:   integrityModule.Detector,
			Outbox:     integrityModule.Store,
			Clock:      integrityModule.Store,
			IDGen:      integrityModule.Store,
			Logger:     logger,
		},
		ResultNotifier: scoringworkers.ResultNotifier{
			Subscriber: bus,
			Publisher:  bus,
			Consensus:  scoringModule.Consensus,
			Clock:      scoringModule.Store,
			IDGen:      scoringModule.Store,
			Logger:     logger,
		},
	}, nil
}
