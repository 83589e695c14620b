package deliveryservice

import (
	"log/slog"

	httpadapter "mealtrack/contexts/meal-operations/delivery-service/adapters/http"
	"mealtrack/contexts/meal-operations/delivery-service/adapters/memory"
	"mealtrack/contexts/meal-operations/delivery-service/application/commands"
	"mealtrack/contexts/meal-operations/delivery-service/application/queries"
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	"mealtrack/contexts/meal-operations/delivery-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Plans     ports.PlanRepository
	Vendors   ports.VendorDirectory
	Approvals ports.ApprovalRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Outbox    ports.OutboxWriter
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Plans:     deps.Plans,
		Vendors:   deps.Vendors,
		Approvals: deps.Approvals,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Outbox:    deps.Outbox,
		Logger:    deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Plans:     deps.Plans,
		Vendors:   deps.Vendors,
		Approvals: deps.Approvals,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.MealPlan, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Plans:     store,
		Vendors:   store,
		Approvals: store,
		Clock:     store,
		IDGen:     store,
		Outbox:    store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
