package distributionservice

import (
	"log/slog"

	httpadapter "mealtrack/contexts/meal-operations/distribution-service/adapters/http"
	"mealtrack/contexts/meal-operations/distribution-service/adapters/memory"
	"mealtrack/contexts/meal-operations/distribution-service/application/commands"
	"mealtrack/contexts/meal-operations/distribution-service/application/queries"
	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	"mealtrack/contexts/meal-operations/distribution-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Distributions ports.DistributionRepository
	Ledger        ports.ClaimLedger
	Students      ports.StudentDirectory
	Approvals     ports.ApprovalSource
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Outbox        ports.OutboxWriter
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Distributions: deps.Distributions,
		Ledger:        deps.Ledger,
		Students:      deps.Students,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Outbox:        deps.Outbox,
		Logger:        deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Distributions: deps.Distributions,
		Ledger:        deps.Ledger,
		Students:      deps.Students,
		Approvals:     deps.Approvals,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Distribution, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Distributions: store,
		Ledger:        store,
		Students:      store,
		Approvals:     store,
		Clock:         store,
		IDGen:         store,
		Outbox:        store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
