package tournamentengine

import (
	"log/slog"
	"time"

	httpadapter "tandem/contexts/competition/tournament-engine/adapters/http"
	"tandem/contexts/competition/tournament-engine/adapters/memory"
	"tandem/contexts/competition/tournament-engine/application/commands"
	"tandem/contexts/competition/tournament-engine/application/queries"
	"tandem/contexts/competition/tournament-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
	// Tournaments backs read-side consumers outside the HTTP handler, such as
	// the live event stream and the in-memory rating source.
	Tournaments ports.TournamentRepository
	Outbox      ports.OutboxRepository
}

type Dependencies struct {
	Tournaments    ports.TournamentRepository
	Outbox         ports.OutboxRepository
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			CreateTournament: commands.CreateTournamentUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			OpenRegistration: commands.OpenRegistrationUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			RegisterCompetitor: commands.RegisterCompetitorUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			AddJudge: commands.AddJudgeUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			StartQualifying: commands.StartQualifyingUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			SubmitLapScore: commands.SubmitLapScoreUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			SetLapPenalty: commands.SetLapPenaltyUseCase{
				Tournaments: deps.Tournaments,
				Logger:      deps.Logger,
			},
			AdvanceQualifying: commands.AdvanceQualifyingUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			EndQualifying: commands.EndQualifyingUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			SubmitBattleVote: commands.SubmitBattleVoteUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			AdvanceBattle: commands.AdvanceBattleUseCase{
				Tournaments:    deps.Tournaments,
				Clock:          deps.Clock,
				IDGenerator:    deps.IDGenerator,
				IdempotencyTTL: deps.IdempotencyTTL,
				Logger:         deps.Logger,
			},
			OverrideNextBattle: commands.OverrideNextBattleUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			AssignWildcard: commands.AssignWildcardUseCase{
				Tournaments: deps.Tournaments,
				Clock:       deps.Clock,
				IDGenerator: deps.IDGenerator,
				Logger:      deps.Logger,
			},
			GetState: queries.GetTournamentStateUseCase{
				Tournaments: deps.Tournaments,
				Logger:      deps.Logger,
			},
			ListTournaments: queries.ListTournamentsUseCase{
				Tournaments: deps.Tournaments,
				Logger:      deps.Logger,
			},
			Logger: deps.Logger,
		},
		Tournaments: deps.Tournaments,
		Outbox:      deps.Outbox,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Tournaments:    store,
		Outbox:         store,
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
