package anomalyreview

import (
	"log/slog"

	httpadapter "rostrum/contexts/integrity-safety/anomaly-review-service/adapters/http"
	"rostrum/contexts/integrity-safety/anomaly-review-service/adapters/memory"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/commands"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/detector"
	"rostrum/contexts/integrity-safety/anomaly-review-service/application/queries"
	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Review   *commands.ReviewUseCase
	Queue    *queries.QueueUseCase
	Detector detector.Detector
	Store    *memory.Store
}

type Dependencies struct {
	Flags    ports.FlagRepository
	Sheets   ports.SheetSource
	Excluder ports.SheetExcluder
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	reviewUseCase := &commands.ReviewUseCase{
		Flags:    deps.Flags,
		Excluder: deps.Excluder,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	queueUseCase := &queries.QueueUseCase{
		Flags:  deps.Flags,
		Sheets: deps.Sheets,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Review: reviewUseCase,
			Queue:  queueUseCase,
			Logger: deps.Logger,
		},
		Review: reviewUseCase,
		Queue:  queueUseCase,
		Detector: detector.Detector{
			Sheets: deps.Sheets,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(
	seed []entities.Flag,
	sheets ports.SheetSource,
	excluder ports.SheetExcluder,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Flags:    store,
		Sheets:   sheets,
		Excluder: excluder,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
