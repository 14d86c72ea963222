package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
	domainerrors "tandem/contexts/competition/rating-engine/domain/errors"
	"tandem/contexts/competition/rating-engine/domain/services"
	"tandem/contexts/competition/rating-engine/ports"
)

const (
	moduleName = "competition/rating-engine"
	// renewEvery is how many saved steps may pass between lease renewals.
	renewEvery = 50
)

type Service struct {
	Battles     ports.BattleSource
	Ratings     ports.RatingStore
	Leases      ports.LeaseManager
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Decay       services.DecayPolicy
	LeaseTTL    time.Duration
	Logger      *slog.Logger
}

// RunBatch recomputes every rating in region by replaying its battles from
// the start. It holds the region lease for the whole run, so an interrupted
// batch is resumed by running it again. The lease is renewed before the reset,
// every renewEvery steps and before the final write; a batch that finds it
// taken over stops with ErrLeaseLost without writing further.
func (s Service) RunBatch(ctx context.Context, region string) (entities.BatchReport, error) {
	logger := ResolveLogger(s.Logger)
	region = entities.NormalizeRegion(region)
	if region == "" {
		return entities.BatchReport{}, domainerrors.ErrInvalidRegion
	}

	owner, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.BatchReport{}, err
	}
	startedAt := s.now()
	acquired, err := s.Leases.AcquireLease(ctx, region, owner, s.leaseTTL(), startedAt)
	if err != nil {
		return entities.BatchReport{}, err
	}
	if !acquired {
		return entities.BatchReport{}, domainerrors.ErrBatchAlreadyRunning
	}
	defer func() {
		if err := s.Leases.ReleaseLease(context.WithoutCancel(ctx), region, owner); err != nil {
			logger.Error("rating lease release failed",
				"event", "rating_lease_release_failed",
				"module", moduleName,
				"layer", "application",
				"region", region,
				"error", err.Error(),
			)
		}
	}()

	report := entities.BatchReport{Region: region, StartedAt: startedAt}
	battles, err := s.Battles.ListRatedBattles(ctx, region)
	if err != nil {
		return entities.BatchReport{}, err
	}
	services.SortBattles(battles)

	if err := s.renewLease(ctx, region, owner); err != nil {
		return entities.BatchReport{}, err
	}
	if err := s.Ratings.ResetRegion(ctx, region); err != nil {
		return entities.BatchReport{}, err
	}

	ledger := services.NewLedger(region, s.Decay)
	for _, battle := range battles {
		if err := ctx.Err(); err != nil {
			return entities.BatchReport{}, err
		}
		step, err := ledger.Apply(battle)
		if errors.Is(err, domainerrors.ErrUnratableBattle) {
			report.Skipped++
			logger.Warn("rating battle skipped",
				"event", "rating_battle_skipped",
				"module", moduleName,
				"layer", "application",
				"region", region,
				"battle_id", battle.BattleID,
				"tournament_id", battle.TournamentID,
			)
			continue
		}
		if err != nil {
			return entities.BatchReport{}, err
		}
		if report.Processed > 0 && report.Processed%renewEvery == 0 {
			if err := s.renewLease(ctx, region, owner); err != nil {
				return entities.BatchReport{}, err
			}
		}
		if err := s.saveStep(ctx, ledger, step); err != nil {
			return entities.BatchReport{}, err
		}
		report.Processed++
	}

	finishedAt := s.now()
	running := ledger.Ratings()
	totals := make([]entities.DriverRating, 0, len(running))
	for _, rating := range running {
		totals = append(totals, entities.DriverRating{
			DriverID:     rating.DriverID,
			Region:       region,
			Rating:       rating.Value,
			TotalBattles: rating.CountedBattles,
			LastBattleAt: rating.LastBattleAt,
			UpdatedAt:    finishedAt,
		})
	}
	if err := s.renewLease(ctx, region, owner); err != nil {
		return entities.BatchReport{}, err
	}
	if err := s.Ratings.WriteDriverRatings(ctx, region, totals); err != nil {
		return entities.BatchReport{}, err
	}
	report.Drivers = len(totals)
	report.FinishedAt = finishedAt

	logger.Info("rating batch completed",
		"event", "rating_batch_completed",
		"module", moduleName,
		"layer", "application",
		"region", region,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"drivers", report.Drivers,
		"duration_ms", finishedAt.Sub(startedAt).Milliseconds(),
	)
	return report, nil
}

func (s Service) renewLease(ctx context.Context, region string, owner string) error {
	renewed, err := s.Leases.RenewLease(ctx, region, owner, s.leaseTTL(), s.now())
	if err != nil {
		return err
	}
	if !renewed {
		ResolveLogger(s.Logger).Warn("rating lease lost",
			"event", "rating_lease_lost",
			"module", moduleName,
			"layer", "application",
			"region", region,
			"owner", owner,
		)
		return domainerrors.ErrLeaseLost
	}
	return nil
}

func (s Service) saveStep(ctx context.Context, ledger *services.Ledger, step services.Step) error {
	recordedAt := s.now()
	ratings := make([]entities.RunningRating, 0, 2)
	history := make([]entities.RatingHistory, 0, 2)
	for _, side := range []services.Side{step.Winner, step.Loser} {
		rating, _ := ledger.Rating(side.DriverID)
		ratings = append(ratings, rating)
		historyID, err := s.IDGenerator.NewID(ctx)
		if err != nil {
			return err
		}
		history = append(history, entities.RatingHistory{
			HistoryID:    historyID,
			DriverID:     side.DriverID,
			Region:       rating.Region,
			BattleID:     step.Battle.BattleID,
			TournamentID: step.Battle.TournamentID,
			Before:       side.Before,
			Decayed:      side.Decayed,
			After:        side.After,
			RecordedAt:   recordedAt,
		})
	}
	return s.Ratings.SaveStep(ctx, ratings, history)
}

// Leaderboard lists a region's permanent ratings, best first.
func (s Service) Leaderboard(ctx context.Context, region string, limit int) ([]entities.DriverRating, error) {
	region = entities.NormalizeRegion(region)
	if region == "" {
		return nil, domainerrors.ErrInvalidRegion
	}
	items, err := s.Ratings.ListDriverRatings(ctx, region)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Rating != items[j].Rating {
			return items[i].Rating > items[j].Rating
		}
		return items[i].DriverID < items[j].DriverID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s Service) DriverHistory(ctx context.Context, region string, driverID string) ([]entities.RatingHistory, error) {
	region = entities.NormalizeRegion(region)
	driverID = strings.TrimSpace(driverID)
	if region == "" {
		return nil, domainerrors.ErrInvalidRegion
	}
	items, err := s.Ratings.ListHistory(ctx, region, driverID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domainerrors.ErrRatingNotFound
	}
	return items, nil
}

func (s Service) leaseTTL() time.Duration {
	if s.LeaseTTL <= 0 {
		return 30 * time.Minute
	}
	return s.LeaseTTL
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
