package ports

import (
	"context"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	"tandem/internal/shared/events"
)

// TournamentAggregate is everything a tournament command reads: the root row
// plus its competitors, judges, laps, scores, battles and votes.
type TournamentAggregate struct {
	Tournament  entities.Tournament
	Competitors []entities.Competitor
	Judges      []entities.Judge
	Laps        []entities.Lap
	LapScores   []entities.LapScore
	Battles     []entities.Battle
	Votes       []entities.BattleVote
}

// TournamentTx writes inside the transaction opened by WithinTournament.
// Writes are not reflected back into the aggregate handed to the callback.
type TournamentTx interface {
	SaveTournament(ctx context.Context, tournament entities.Tournament) error
	AddCompetitor(ctx context.Context, competitor entities.Competitor) (entities.Competitor, error)
	UpdateCompetitors(ctx context.Context, competitors []entities.Competitor) error
	AddJudge(ctx context.Context, judge entities.Judge) error
	AddLaps(ctx context.Context, laps []entities.Lap) ([]entities.Lap, error)
	UpdateLap(ctx context.Context, lap entities.Lap) error
	UpsertLapScore(ctx context.Context, score entities.LapScore) error
	// AddBattles assigns ids in slice order.
	AddBattles(ctx context.Context, battles []entities.Battle) ([]entities.Battle, error)
	UpdateBattles(ctx context.Context, battles []entities.Battle) error
	UpsertBattleVote(ctx context.Context, vote entities.BattleVote) error
	DeleteBattleVotes(ctx context.Context, battleID int64) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
	GetIdempotency(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutIdempotency(ctx context.Context, record IdempotencyRecord) error
}

type TournamentFilter struct {
	Region string
	State  entities.State
}

type TournamentRepository interface {
	CreateTournament(ctx context.Context, tournament entities.Tournament) error
	ListTournaments(ctx context.Context, filter TournamentFilter) ([]entities.Tournament, error)
	GetTournamentAggregate(ctx context.Context, tournamentID string) (TournamentAggregate, error)
	// WithinTournament locks the tournament for the lifetime of fn. Nothing fn
	// wrote survives when it returns an error.
	WithinTournament(
		ctx context.Context,
		tournamentID string,
		fn func(ctx context.Context, tx TournamentTx, aggregate TournamentAggregate) error,
	) error
}

type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	TournamentID    string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
