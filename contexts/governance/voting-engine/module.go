package votingengine

import (
	"log/slog"

	httpadapter "agora/contexts/governance/voting-engine/adapters/http"
	"agora/contexts/governance/voting-engine/adapters/memory"
	"agora/contexts/governance/voting-engine/application/commands"
	"agora/contexts/governance/voting-engine/application/queries"
	"agora/contexts/governance/voting-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repo                   ports.Repository
	UoW                    ports.UnitOfWork
	Clock                  ports.Clock
	CorrectedParticipation bool
	Logger                 *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Registry: commands.RegistryUseCase{
				UoW:    deps.UoW,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			Rounds: commands.RoundUseCase{
				UoW:    deps.UoW,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			Catalog: commands.CatalogUseCase{
				UoW:    deps.UoW,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			Delegations: commands.DelegationUseCase{
				UoW:    deps.UoW,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			Votes: commands.VoteUseCase{
				UoW:                    deps.UoW,
				Clock:                  deps.Clock,
				CorrectedParticipation: deps.CorrectedParticipation,
				Logger:                 deps.Logger,
			},
			Finalize: commands.FinalizeUseCase{
				UoW:    deps.UoW,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			Results: queries.ResultsUseCase{
				Repo: deps.Repo,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(owner string, logger *slog.Logger) Module {
	store := memory.NewStore(owner)
	module := NewModule(Dependencies{
		Repo:   store,
		UoW:    store,
		Clock:  store,
		Logger: logger,
	})
	module.Store = store
	return module
}
