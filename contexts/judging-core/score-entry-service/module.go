package scoreentry

import (
	"log/slog"

	httpadapter "rostrum/contexts/judging-core/score-entry-service/adapters/http"
	"rostrum/contexts/judging-core/score-entry-service/adapters/memory"
	"rostrum/contexts/judging-core/score-entry-service/application/commands"
	"rostrum/contexts/judging-core/score-entry-service/application/queries"
	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	"rostrum/contexts/judging-core/score-entry-service/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Scores    *commands.ScoreUseCase
	Consensus *queries.ConsensusUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Sheets  ports.SheetRepository
	Catalog ports.CriterionCatalog
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) Module {
	scoreUseCase := &commands.ScoreUseCase{
		Sheets:  deps.Sheets,
		Catalog: deps.Catalog,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	consensusUseCase := &queries.ConsensusUseCase{
		Sheets: deps.Sheets,
		Clock:  deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Scores:    scoreUseCase,
			Consensus: consensusUseCase,
			Logger:    deps.Logger,
		},
		Scores:    scoreUseCase,
		Consensus: consensusUseCase,
	}
}

func NewInMemoryModule(seed []entities.ScoreSheet, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Sheets:  store,
		Catalog: store,
		Outbox:  store,
		Clock:   store,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	return module
}
