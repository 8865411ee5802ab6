package recheck

import (
	"log/slog"

	"rostrum/contexts/appeals-desk/recheck-service/adapters/gateway"
	httpadapter "rostrum/contexts/appeals-desk/recheck-service/adapters/http"
	"rostrum/contexts/appeals-desk/recheck-service/adapters/memory"
	"rostrum/contexts/appeals-desk/recheck-service/application/commands"
	"rostrum/contexts/appeals-desk/recheck-service/application/queries"
	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

const (
	defaultRecheckFee      = 250.0
	defaultRecheckCurrency = "INR"
)

type Module struct {
	Handler  httpadapter.Handler
	Workflow *commands.WorkflowUseCase
	Status   *queries.StatusUseCase
	Store    *memory.Store
	Gateway  *gateway.MemoryGateway
}

type Dependencies struct {
	Requests ports.RecheckRepository
	Gateway  ports.PaymentGateway
	Scoring  ports.ScoringCycle
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Fee      float64
	Currency string
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	fee := deps.Fee
	if fee <= 0 {
		fee = defaultRecheckFee
	}
	currency := deps.Currency
	if currency == "" {
		currency = defaultRecheckCurrency
	}
	workflow := &commands.WorkflowUseCase{
		Requests: deps.Requests,
		Gateway:  deps.Gateway,
		Scoring:  deps.Scoring,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Fee:      fee,
		Currency: currency,
		Logger:   deps.Logger,
	}
	status := &queries.StatusUseCase{Requests: deps.Requests}
	return Module{
		Handler: httpadapter.Handler{
			Workflow: workflow,
			Status:   status,
			Logger:   deps.Logger,
		},
		Workflow: workflow,
		Status:   status,
	}
}

func NewInMemoryModule(
	seed []entities.RecheckRequest,
	scoring ports.ScoringCycle,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(seed)
	fake := gateway.NewMemoryGateway()
	module := NewModule(Dependencies{
		Requests: store,
		Gateway:  fake,
		Scoring:  scoring,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	module.Gateway = fake
	return module
}
