package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/ports"
	"tandem/internal/shared/outbox"

	"github.com/google/uuid"
)

type lapScoreKey struct {
	judgeID string
	lapID   int64
}

type voteKey struct {
	judgeID  string
	battleID int64
}

// tournamentRows is every row owned by one tournament.
type tournamentRows struct {
	tournament  entities.Tournament
	competitors map[int64]entities.Competitor
	judges      map[string]entities.Judge
	laps        map[int64]entities.Lap
	lapScores   map[lapScoreKey]entities.LapScore
	battles     map[int64]entities.Battle
	votes       map[voteKey]entities.BattleVote
}

type outboxRow struct {
	message     ports.OutboxMessage
	status      string
	publishedAt *time.Time
}

type Store struct {
	mu sync.RWMutex

	tournaments map[string]*tournamentRows
	locks       map[string]*sync.Mutex
	outbox      []outboxRow
	idempotency map[string]ports.IdempotencyRecord

	sequence atomic.Int64
}

func NewStore() *Store {
	return &Store{
		tournaments: make(map[string]*tournamentRows),
		locks:       make(map[string]*sync.Mutex),
		outbox:      make([]outboxRow, 0),
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Store) CreateTournament(_ context.Context, tournament entities.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tournaments[tournament.TournamentID]; exists {
		return domainerrors.ErrConflict
	}
	s.tournaments[tournament.TournamentID] = &tournamentRows{
		tournament:  tournament,
		competitors: make(map[int64]entities.Competitor),
		judges:      make(map[string]entities.Judge),
		laps:        make(map[int64]entities.Lap),
		lapScores:   make(map[lapScoreKey]entities.LapScore),
		battles:     make(map[int64]entities.Battle),
		votes:       make(map[voteKey]entities.BattleVote),
	}
	s.locks[tournament.TournamentID] = &sync.Mutex{}
	return nil
}

func (s *Store) ListTournaments(_ context.Context, filter ports.TournamentFilter) ([]entities.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Tournament, 0, len(s.tournaments))
	for _, rows := range s.tournaments {
		if filter.Region != "" && rows.tournament.Region != filter.Region {
			continue
		}
		if filter.State != "" && rows.tournament.State != filter.State {
			continue
		}
		items = append(items, rows.tournament)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].TournamentID < items[j].TournamentID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) GetTournamentAggregate(_ context.Context, tournamentID string) (ports.TournamentAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, exists := s.tournaments[strings.TrimSpace(tournamentID)]
	if !exists {
		return ports.TournamentAggregate{}, domainerrors.ErrTournamentNotFound
	}
	return rows.aggregate(), nil
}

// WithinTournament runs fn against a private copy of the tournament's rows and
// swaps the copy in only when fn succeeds.
func (s *Store) WithinTournament(
	ctx context.Context,
	tournamentID string,
	fn func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error,
) error {
	tournamentID = strings.TrimSpace(tournamentID)
	s.mu.RLock()
	lock, exists := s.locks[tournamentID]
	s.mu.RUnlock()
	if !exists {
		return domainerrors.ErrTournamentNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	working := s.tournaments[tournamentID].clone()
	s.mu.RUnlock()

	tx := &txn{store: s, rows: working, idempotency: make(map[string]ports.IdempotencyRecord)}
	if err := fn(ctx, tx, working.aggregate()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments[tournamentID] = working
	s.outbox = append(s.outbox, tx.outbox...)
	for key, record := range tx.idempotency {
		s.idempotency[key] = record
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, row := range s.outbox {
		if row.status != outbox.StatusPending {
			continue
		}
		items = append(items, row.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			at := publishedAt.UTC()
			s.outbox[i].status = outbox.StatusPublished
			s.outbox[i].publishedAt = &at
			return nil
		}
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) nextSequence() int64 {
	return s.sequence.Add(1)
}

func (r *tournamentRows) clone() *tournamentRows {
	copied := &tournamentRows{
		tournament:  r.tournament,
		competitors: make(map[int64]entities.Competitor, len(r.competitors)),
		judges:      make(map[string]entities.Judge, len(r.judges)),
		laps:        make(map[int64]entities.Lap, len(r.laps)),
		lapScores:   make(map[lapScoreKey]entities.LapScore, len(r.lapScores)),
		battles:     make(map[int64]entities.Battle, len(r.battles)),
		votes:       make(map[voteKey]entities.BattleVote, len(r.votes)),
	}
	for id, item := range r.competitors {
		copied.competitors[id] = item
	}
	for id, item := range r.judges {
		copied.judges[id] = item
	}
	for id, item := range r.laps {
		copied.laps[id] = item
	}
	for key, item := range r.lapScores {
		copied.lapScores[key] = item
	}
	for id, item := range r.battles {
		copied.battles[id] = item
	}
	for key, item := range r.votes {
		copied.votes[key] = item
	}
	return copied
}

func (r *tournamentRows) aggregate() ports.TournamentAggregate {
	aggregate := ports.TournamentAggregate{
		Tournament:  r.tournament,
		Competitors: make([]entities.Competitor, 0, len(r.competitors)),
		Judges:      make([]entities.Judge, 0, len(r.judges)),
		Laps:        make([]entities.Lap, 0, len(r.laps)),
		LapScores:   make([]entities.LapScore, 0, len(r.lapScores)),
		Battles:     make([]entities.Battle, 0, len(r.battles)),
		Votes:       make([]entities.BattleVote, 0, len(r.votes)),
	}
	for _, item := range r.competitors {
		aggregate.Competitors = append(aggregate.Competitors, item)
	}
	for _, item := range r.judges {
		aggregate.Judges = append(aggregate.Judges, item)
	}
	for _, item := range r.laps {
		aggregate.Laps = append(aggregate.Laps, item)
	}
	for _, item := range r.lapScores {
		aggregate.LapScores = append(aggregate.LapScores, item)
	}
	for _, item := range r.battles {
		aggregate.Battles = append(aggregate.Battles, item)
	}
	for _, item := range r.votes {
		aggregate.Votes = append(aggregate.Votes, item)
	}

	sort.Slice(aggregate.Competitors, func(i, j int) bool {
		return aggregate.Competitors[i].CompetitorID < aggregate.Competitors[j].CompetitorID
	})
	sort.Slice(aggregate.Judges, func(i, j int) bool {
		return aggregate.Judges[i].CreatedAt.Before(aggregate.Judges[j].CreatedAt) ||
			(aggregate.Judges[i].CreatedAt.Equal(aggregate.Judges[j].CreatedAt) && aggregate.Judges[i].JudgeID < aggregate.Judges[j].JudgeID)
	})
	sort.Slice(aggregate.Laps, func(i, j int) bool {
		return aggregate.Laps[i].LapID < aggregate.Laps[j].LapID
	})
	sort.Slice(aggregate.LapScores, func(i, j int) bool {
		if aggregate.LapScores[i].LapID != aggregate.LapScores[j].LapID {
			return aggregate.LapScores[i].LapID < aggregate.LapScores[j].LapID
		}
		return aggregate.LapScores[i].JudgeID < aggregate.LapScores[j].JudgeID
	})
	sort.Slice(aggregate.Battles, func(i, j int) bool {
		return aggregate.Battles[i].BattleID < aggregate.Battles[j].BattleID
	})
	sort.Slice(aggregate.Votes, func(i, j int) bool {
		if aggregate.Votes[i].BattleID != aggregate.Votes[j].BattleID {
			return aggregate.Votes[i].BattleID < aggregate.Votes[j].BattleID
		}
		return aggregate.Votes[i].JudgeID < aggregate.Votes[j].JudgeID
	})
	return aggregate
}

// txn stages writes on a cloned tournament; outbox and idempotency rows are
// buffered until commit.
type txn struct {
	store       *Store
	rows        *tournamentRows
	outbox      []outboxRow
	idempotency map[string]ports.IdempotencyRecord
}

func (t *txn) SaveTournament(_ context.Context, tournament entities.Tournament) error {
	if tournament.TournamentID != t.rows.tournament.TournamentID {
		return domainerrors.ErrTournamentNotFound
	}
	t.rows.tournament = tournament
	return nil
}

func (t *txn) AddCompetitor(_ context.Context, competitor entities.Competitor) (entities.Competitor, error) {
	if !competitor.IsBye {
		for _, existing := range t.rows.competitors {
			if !existing.IsBye && existing.DriverID == competitor.DriverID {
				return entities.Competitor{}, domainerrors.ErrConflict
			}
		}
	}
	competitor.CompetitorID = t.store.nextSequence()
	competitor.TournamentID = t.rows.tournament.TournamentID
	t.rows.competitors[competitor.CompetitorID] = competitor
	return competitor, nil
}

func (t *txn) UpdateCompetitors(_ context.Context, competitors []entities.Competitor) error {
	for _, competitor := range competitors {
		if _, exists := t.rows.competitors[competitor.CompetitorID]; !exists {
			return domainerrors.ErrCompetitorNotFound
		}
		t.rows.competitors[competitor.CompetitorID] = competitor
	}
	return nil
}

func (t *txn) AddJudge(_ context.Context, judge entities.Judge) error {
	if _, exists := t.rows.judges[judge.JudgeID]; exists {
		return domainerrors.ErrConflict
	}
	judge.TournamentID = t.rows.tournament.TournamentID
	t.rows.judges[judge.JudgeID] = judge
	return nil
}

func (t *txn) AddLaps(_ context.Context, laps []entities.Lap) ([]entities.Lap, error) {
	created := make([]entities.Lap, 0, len(laps))
	for _, lap := range laps {
		if _, exists := t.rows.competitors[lap.CompetitorID]; !exists {
			return nil, domainerrors.ErrCompetitorNotFound
		}
		lap.LapID = t.store.nextSequence()
		lap.TournamentID = t.rows.tournament.TournamentID
		t.rows.laps[lap.LapID] = lap
		created = append(created, lap)
	}
	return created, nil
}

func (t *txn) UpdateLap(_ context.Context, lap entities.Lap) error {
	if _, exists := t.rows.laps[lap.LapID]; !exists {
		return domainerrors.ErrLapNotFound
	}
	t.rows.laps[lap.LapID] = lap
	return nil
}

func (t *txn) UpsertLapScore(_ context.Context, score entities.LapScore) error {
	if _, exists := t.rows.laps[score.LapID]; !exists {
		return domainerrors.ErrLapNotFound
	}
	t.rows.lapScores[lapScoreKey{judgeID: score.JudgeID, lapID: score.LapID}] = score
	return nil
}

func (t *txn) AddBattles(_ context.Context, battles []entities.Battle) ([]entities.Battle, error) {
	created := make([]entities.Battle, 0, len(battles))
	for _, battle := range battles {
		battle.BattleID = t.store.nextSequence()
		battle.TournamentID = t.rows.tournament.TournamentID
		t.rows.battles[battle.BattleID] = battle
		created = append(created, battle)
	}
	return created, nil
}

func (t *txn) UpdateBattles(_ context.Context, battles []entities.Battle) error {
	for _, battle := range battles {
		if _, exists := t.rows.battles[battle.BattleID]; !exists {
			return domainerrors.ErrBattleNotFound
		}
		t.rows.battles[battle.BattleID] = battle
	}
	return nil
}

func (t *txn) UpsertBattleVote(_ context.Context, vote entities.BattleVote) error {
	if _, exists := t.rows.battles[vote.BattleID]; !exists {
		return domainerrors.ErrBattleNotFound
	}
	t.rows.votes[voteKey{judgeID: vote.JudgeID, battleID: vote.BattleID}] = vote
	return nil
}

func (t *txn) DeleteBattleVotes(_ context.Context, battleID int64) error {
	for key := range t.rows.votes {
		if key.battleID == battleID {
			delete(t.rows.votes, key)
		}
	}
	return nil
}

func (t *txn) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	t.outbox = append(t.outbox, outboxRow{
		message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt,
		},
		status: outbox.StatusPending,
	})
	return nil
}

func (t *txn) GetIdempotency(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	if record, ok := t.idempotency[key]; ok {
		return record, true, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	record, ok := t.store.idempotency[key]
	if !ok || now.After(record.ExpiresAt) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (t *txn) PutIdempotency(_ context.Context, record ports.IdempotencyRecord) error {
	t.idempotency[record.Key] = record
	return nil
}

var _ ports.TournamentRepository = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.TournamentTx = (*txn)(nil)
