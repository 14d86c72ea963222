package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
	"tandem/contexts/competition/rating-engine/ports"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

type Store struct {
	mu sync.RWMutex

	running map[string]map[string]entities.RunningRating
	history map[string][]entities.RatingHistory
	ratings map[string]map[string]entities.DriverRating
	leases  map[string]lease
	battles map[string][]entities.RatedBattle

	sequence atomic.Uint64
}

func NewStore() *Store {
	return &Store{
		running: map[string]map[string]entities.RunningRating{},
		history: map[string][]entities.RatingHistory{},
		ratings: map[string]map[string]entities.DriverRating{},
		leases:  map[string]lease{},
		battles: map[string][]entities.RatedBattle{},
	}
}

// SeedBattles replaces the battles ListRatedBattles returns for region. Used
// when no tournament store is wired in.
func (s *Store) SeedBattles(region string, battles []entities.RatedBattle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battles[region] = append([]entities.RatedBattle(nil), battles...)
}

func (s *Store) ListRatedBattles(_ context.Context, region string) ([]entities.RatedBattle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.RatedBattle(nil), s.battles[region]...), nil
}

func (s *Store) ResetRegion(_ context.Context, region string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, region)
	delete(s.history, region)
	return nil
}

func (s *Store) SaveStep(_ context.Context, ratings []entities.RunningRating, history []entities.RatingHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rating := range ratings {
		byDriver, ok := s.running[rating.Region]
		if !ok {
			byDriver = map[string]entities.RunningRating{}
			s.running[rating.Region] = byDriver
		}
		byDriver[rating.DriverID] = rating
	}
	for _, item := range history {
		s.history[item.Region] = append(s.history[item.Region], item)
	}
	return nil
}

func (s *Store) WriteDriverRatings(_ context.Context, region string, ratings []entities.DriverRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDriver := make(map[string]entities.DriverRating, len(ratings))
	for _, rating := range ratings {
		byDriver[rating.DriverID] = rating
	}
	s.ratings[region] = byDriver
	return nil
}

func (s *Store) ListDriverRatings(_ context.Context, region string) ([]entities.DriverRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.DriverRating, 0, len(s.ratings[region]))
	for _, rating := range s.ratings[region] {
		items = append(items, rating)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DriverID < items[j].DriverID })
	return items, nil
}

func (s *Store) ListHistory(_ context.Context, region string, driverID string) ([]entities.RatingHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.RatingHistory, 0)
	for _, item := range s.history[region] {
		if driverID != "" && item.DriverID != driverID {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// RunningRatings is the in-progress state of the last or current batch.
func (s *Store) RunningRatings(region string) []entities.RunningRating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.RunningRating, 0, len(s.running[region]))
	for _, rating := range s.running[region] {
		items = append(items, rating)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DriverID < items[j].DriverID })
	return items
}

func (s *Store) AcquireLease(_ context.Context, region string, owner string, ttl time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.leases[region]
	if ok && current.owner != owner && now.Before(current.expiresAt) {
		return false, nil
	}
	s.leases[region] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *Store) RenewLease(_ context.Context, region string, owner string, ttl time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.leases[region]
	if !ok || current.owner != owner {
		return false, nil
	}
	s.leases[region] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *Store) ReleaseLease(_ context.Context, region string, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.leases[region]; ok && current.owner == owner {
		delete(s.leases, region)
	}
	return nil
}

func (s *Store) NewID(context.Context) (string, error) {
	n := s.sequence.Add(1)
	return fmt.Sprintf("rating-%06d", n), nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.BattleSource = (*Store)(nil)
var _ ports.RatingStore = (*Store)(nil)
var _ ports.LeaseManager = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
