package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	ratingengine "tandem/contexts/competition/rating-engine"
	ratingmemory "tandem/contexts/competition/rating-engine/adapters/memory"
	ratingpostgres "tandem/contexts/competition/rating-engine/adapters/postgres"
	ratingservices "tandem/contexts/competition/rating-engine/domain/services"
	tournamentengine "tandem/contexts/competition/tournament-engine"
	tournamentpostgres "tandem/contexts/competition/tournament-engine/adapters/postgres"
	tournamentworkers "tandem/contexts/competition/tournament-engine/application/workers"
	"tandem/internal/platform/config"
	"tandem/internal/platform/db"
	"tandem/internal/platform/httpserver"
	"tandem/internal/platform/messaging"
	"tandem/internal/platform/otel"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	// background is set when the API runs on memory adapters and has to host
	// the relay and consumers itself.
	background *WorkerApp
	shutdown   func(context.Context) error
	logger     *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  tournamentworkers.OutboxRelay
	ratings      ratingengine.Module
	ratingOnEnd  bool
	pollInterval time.Duration
	shutdown     func(context.Context) error
	logger       *slog.Logger
}

type wiring struct {
	tournaments tournamentengine.Module
	ratings     ratingengine.Module
	bus         *messaging.Kafka
	postgres    *db.Postgres
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (wiring, error) {
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return wiring{}, err
	}
	decay := ratingservices.DecayPolicy{Grace: cfg.RatingDecayGrace, PerDay: cfg.RatingDecayPerDay}

	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, using in-memory adapters",
			"event", "bootstrap_memory_adapters",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		tournaments := tournamentengine.NewInMemoryModule(logger)
		store := ratingmemory.NewStore()
		ratings := ratingengine.NewModule(ratingengine.Dependencies{
			Battles:     tournamentBattleSource{tournaments: tournaments.Tournaments},
			Ratings:     store,
			Leases:      store,
			Subscriber:  bus,
			Clock:       store,
			IDGenerator: store,
			Decay:       decay,
			LeaseTTL:    cfg.RatingLeaseTTL,
			Logger:      logger,
		})
		ratings.Store = store
		return wiring{tournaments: tournaments, ratings: ratings, bus: bus}, nil
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return wiring{}, err
	}

	tournamentRepo := tournamentpostgres.NewRepository(pg.DB, logger)
	ratingRepo := ratingpostgres.NewRepository(pg.DB, logger)
	if err := tournamentRepo.AutoMigrate(ctx); err != nil {
		_ = pg.Close()
		return wiring{}, err
	}
	if err := ratingRepo.AutoMigrate(ctx); err != nil {
		_ = pg.Close()
		return wiring{}, err
	}

	tournaments := tournamentengine.NewModule(tournamentengine.Dependencies{
		Tournaments:    tournamentRepo,
		Outbox:         tournamentRepo,
		Clock:          tournamentpostgres.SystemClock{},
		IDGenerator:    tournamentpostgres.UUIDGenerator{},
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})
	ratings := ratingengine.NewModule(ratingengine.Dependencies{
		Battles:     ratingRepo,
		Ratings:     ratingRepo,
		Leases:      ratingRepo,
		Subscriber:  bus,
		Clock:       ratingpostgres.SystemClock{},
		IDGenerator: ratingpostgres.UUIDGenerator{},
		Decay:       decay,
		LeaseTTL:    cfg.RatingLeaseTTL,
		Logger:      logger,
	})
	return wiring{tournaments: tournaments, ratings: ratings, bus: bus, postgres: pg}, nil
}

func newWorker(cfg config.Config, w wiring, logger *slog.Logger) *WorkerApp {
	return &WorkerApp{
		postgres: w.postgres,
		outboxRelay: tournamentworkers.OutboxRelay{
			Outbox:    w.tournaments.Outbox,
			Publisher: w.bus,
			BatchSize: 100,
			Logger:    logger,
		},
		ratings:      w.ratings,
		ratingOnEnd:  cfg.EnableRatingOnCompletion,
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	shutdown, err := otel.Setup(ctx, cfg.ServiceName+"-api", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return nil, err
	}
	w, err := build(ctx, cfg, logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	var live *httpserver.LiveEvents
	if cfg.EnableLiveEvents {
		live = httpserver.NewLiveEvents(logger)
	}
	app := &APIApp{
		server:   httpserver.New(w.tournaments, w.ratings, live, logger, normalizeAddr(cfg.HTTPPort)),
		postgres: w.postgres,
		shutdown: shutdown,
		logger:   logger,
	}
	if w.postgres == nil {
		app.background = newWorker(cfg, w, logger)
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	shutdown, err := otel.Setup(ctx, cfg.ServiceName+"-worker", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return nil, err
	}
	w, err := build(ctx, cfg, logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	worker := newWorker(cfg, w, logger)
	worker.shutdown = shutdown
	return worker, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_process_worker", a.background != nil,
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Start(ctx)
	})
	if a.background != nil {
		group.Go(func() error {
			return a.background.Run(ctx)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.Background()))
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.ratingOnEnd {
		if err := w.ratings.Consumer.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"rating_on_completion", w.ratingOnEnd,
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("outbox relay cycle failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.shutdown != nil {
		errs = append(errs, w.shutdown(context.Background()))
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
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
