package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	recheck "rostrum/contexts/appeals-desk/recheck-service"
	recheckgateway "rostrum/contexts/appeals-desk/recheck-service/adapters/gateway"
	recheckpostgres "rostrum/contexts/appeals-desk/recheck-service/adapters/postgres"
	recheckworkers "rostrum/contexts/appeals-desk/recheck-service/application/workers"
	anomalyreview "rostrum/contexts/integrity-safety/anomaly-review-service"
	integritypostgres "rostrum/contexts/integrity-safety/anomaly-review-service/adapters/postgres"
	integrityworkers "rostrum/contexts/integrity-safety/anomaly-review-service/application/workers"
	scoreentry "rostrum/contexts/judging-core/score-entry-service"
	scoringcatalog "rostrum/contexts/judging-core/score-entry-service/adapters/catalog"
	scoringpostgres "rostrum/contexts/judging-core/score-entry-service/adapters/postgres"
	scoringworkers "rostrum/contexts/judging-core/score-entry-service/application/workers"
	scoringports "rostrum/contexts/judging-core/score-entry-service/ports"
	"rostrum/internal/platform/config"
	"rostrum/internal/platform/db"
	"rostrum/internal/platform/httpserver"
	"rostrum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres

	scoringRelay   scoringworkers.OutboxRelay
	integrityRelay integrityworkers.OutboxRelay
	recheckRelay   recheckworkers.OutboxRelay

	anomalyConsumer integrityworkers.ScoreConsumer
	resultNotifier  scoringworkers.ResultNotifier

	enableAnomalyConsumer bool
	enableResultNotifier  bool
	enableOutboxRelays    bool

	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	scoringRepo := scoringpostgres.NewRepository(pg.DB, logger)
	catalog := scoringports.CriterionCatalog(scoringRepo)
	if strings.TrimSpace(cfg.CriterionCatalogPath) != "" {
		fileCatalog, err := scoringcatalog.LoadYAMLCatalog(cfg.CriterionCatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = fileCatalog
	}

	scoringModule := scoreentry.NewModule(scoreentry.Dependencies{
		Sheets:  scoringRepo,
		Catalog: catalog,
		Outbox:  scoringRepo,
		Clock:   scoringpostgres.SystemClock{},
		IDGen:   scoringpostgres.UUIDGenerator{},
		Logger:  logger,
	})

	integrityRepo := integritypostgres.NewRepository(pg.DB, logger)
	integrityModule := anomalyreview.NewModule(anomalyreview.Dependencies{
		Flags:    integrityRepo,
		Sheets:   ScoringSheetSource{Sheets: scoringRepo},
		Excluder: ScoringExcluder{Scores: scoringModule.Scores},
		Outbox:   integrityRepo,
		Clock:    integritypostgres.SystemClock{},
		IDGen:    integritypostgres.UUIDGenerator{},
		Logger:   logger,
	})

	recheckRepo := recheckpostgres.NewRepository(pg.DB, logger)
	recheckModule := recheck.NewModule(recheck.Dependencies{
		Requests: recheckRepo,
		Gateway: recheckgateway.NewClient(recheckgateway.ClientConfig{
			BaseURL:        cfg.PaymentGatewayURL,
			APIKey:         cfg.PaymentGatewayAPIKey,
			WebhookSecret:  cfg.PaymentWebhookSecret,
			RequestTimeout: cfg.PaymentRequestTimeout,
			Logger:         logger,
		}),
		Scoring:  ScoringCycleBridge{Scores: scoringModule.Scores},
		Outbox:   recheckRepo,
		Clock:    recheckpostgres.SystemClock{},
		IDGen:    recheckpostgres.UUIDGenerator{},
		Fee:      cfg.RecheckFee,
		Currency: cfg.RecheckCurrency,
		Logger:   logger,
	})

	server := httpserver.New(scoringModule, integrityModule, recheckModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	scoringRepo := scoringpostgres.NewRepository(pg.DB, logger)
	scoringModule := scoreentry.NewModule(scoreentry.Dependencies{
		Sheets:  scoringRepo,
		Catalog: scoringRepo,
		Outbox:  scoringRepo,
		Clock:   scoringpostgres.SystemClock{},
		IDGen:   scoringpostgres.UUIDGenerator{},
		Logger:  logger,
	})

	integrityRepo := integritypostgres.NewRepository(pg.DB, logger)
	integrityModule := anomalyreview.NewModule(anomalyreview.Dependencies{
		Flags:    integrityRepo,
		Sheets:   ScoringSheetSource{Sheets: scoringRepo},
		Excluder: ScoringExcluder{Scores: scoringModule.Scores},
		Outbox:   integrityRepo,
		Clock:    integritypostgres.SystemClock{},
		IDGen:    integritypostgres.UUIDGenerator{},
		Logger:   logger,
	})

	recheckRepo := recheckpostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		scoringRelay: scoringworkers.OutboxRelay{
			Outbox:    scoringRepo,
			Publisher: kafka,
			Clock:     scoringpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		integrityRelay: integrityworkers.OutboxRelay{
			Outbox:    integrityRepo,
			Publisher: kafka,
			Clock:     integritypostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		recheckRelay: recheckworkers.OutboxRelay{
			Outbox:    recheckRepo,
			Publisher: kafka,
			Clock:     recheckpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		anomalyConsumer: integrityworkers.ScoreConsumer{
			Subscriber:     kafka,
			Dedup:          integrityRepo,
			Flags:          integrityRepo,
			Sheets:         ScoringSheetSource{Sheets: scoringRepo},
			Detector:       integrityModule.Detector,
			Outbox:         integrityRepo,
			Clock:          integritypostgres.SystemClock{},
			IDGen:          integritypostgres.UUIDGenerator{},
			DedupTTL:       7 * 24 * time.Hour,
			InspectTimeout: cfg.AnomalyTimeout,
			Logger:         logger,
		},
		resultNotifier: scoringworkers.ResultNotifier{
			Subscriber: kafka,
			Publisher:  kafka,
			Consensus:  scoringModule.Consensus,
			Clock:      scoringpostgres.SystemClock{},
			IDGen:      scoringpostgres.UUIDGenerator{},
			Logger:     logger,
		},
		enableAnomalyConsumer: cfg.EnableAnomalyConsumer,
		enableResultNotifier:  cfg.EnableResultNotifier,
		enableOutboxRelays:    cfg.EnableOutboxRelays,
		pollInterval:          cfg.OutboxRelayInterval,
		logger:                logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start(ctx)
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	if w.enableAnomalyConsumer {
		if err := w.anomalyConsumer.Start(groupCtx); err != nil {
			return err
		}
	}
	if w.enableResultNotifier {
		if err := w.resultNotifier.Start(groupCtx); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	if w.enableOutboxRelays {
		group.Go(func() error {
			ticker := time.NewTicker(w.pollInterval)
			defer ticker.Stop()
			for {
				if err := w.scoringRelay.RunOnce(groupCtx); err != nil {
					return err
				}
				if err := w.integrityRelay.RunOnce(groupCtx); err != nil {
					return err
				}
				if err := w.recheckRelay.RunOnce(groupCtx); err != nil {
					return err
				}
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	} else {
		group.Go(func() error {
			<-groupCtx.Done()
			return nil
		})
	}

	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
