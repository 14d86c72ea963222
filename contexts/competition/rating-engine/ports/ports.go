package ports

import (
	"context"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
	"tandem/internal/shared/events"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// BattleSource lists every finished battle of a region's completed
// tournaments, in any order.
type BattleSource interface {
	ListRatedBattles(ctx context.Context, region string) ([]entities.RatedBattle, error)
}

type RatingStore interface {
	// ResetRegion drops the region's running ratings and history so a batch
	// can replay from scratch.
	ResetRegion(ctx context.Context, region string) error
	SaveStep(ctx context.Context, ratings []entities.RunningRating, history []entities.RatingHistory) error
	WriteDriverRatings(ctx context.Context, region string, ratings []entities.DriverRating) error
	ListDriverRatings(ctx context.Context, region string) ([]entities.DriverRating, error)
	ListHistory(ctx context.Context, region string, driverID string) ([]entities.RatingHistory, error)
}

// LeaseManager grants one batch per region at a time. An expired lease may be
// taken over by another owner. RenewLease extends a lease only while owner
// still holds it.
type LeaseManager interface {
	AcquireLease(ctx context.Context, region string, owner string, ttl time.Duration, now time.Time) (bool, error)
	RenewLease(ctx context.Context, region string, owner string, ttl time.Duration, now time.Time) (bool, error)
	ReleaseLease(ctx context.Context, region string, owner string) error
}

type EventEnvelope = events.Envelope

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
