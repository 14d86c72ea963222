package ratingengine

import (
	"log/slog"
	"time"

	httpadapter "tandem/contexts/competition/rating-engine/adapters/http"
	"tandem/contexts/competition/rating-engine/adapters/memory"
	application "tandem/contexts/competition/rating-engine/application"
	"tandem/contexts/competition/rating-engine/application/workers"
	"tandem/contexts/competition/rating-engine/domain/services"
	"tandem/contexts/competition/rating-engine/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Consumer workers.TournamentCompletedConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Battles     ports.BattleSource
	Ratings     ports.RatingStore
	Leases      ports.LeaseManager
	Subscriber  ports.EventSubscriber
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Decay       services.DecayPolicy
	LeaseTTL    time.Duration
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Battles:     deps.Battles,
		Ratings:     deps.Ratings,
		Leases:      deps.Leases,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Decay:       deps.Decay,
		LeaseTTL:    deps.LeaseTTL,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Consumer: workers.TournamentCompletedConsumer{
			Subscriber: deps.Subscriber,
			Batches:    service,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule keeps ratings in process. A nil battles source falls back
// to the store's own seeded battles.
func NewInMemoryModule(battles ports.BattleSource, subscriber ports.EventSubscriber, logger *slog.Logger) Module {
	store := memory.NewStore()
	if battles == nil {
		battles = store
	}
	module := NewModule(Dependencies{
		Battles:     battles,
		Ratings:     store,
		Leases:      store,
		Subscriber:  subscriber,
		Clock:       store,
		IDGenerator: store,
		Decay:       services.DefaultDecayPolicy(),
		LeaseTTL:    30 * time.Minute,
		Logger:      logger,
	})
	module.Store = store
	return module
}
