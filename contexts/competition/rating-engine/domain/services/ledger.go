package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
	domainerrors "tandem/contexts/competition/rating-engine/domain/errors"
)

// Side is one participant's rating movement in a step.
type Side struct {
	DriverID string
	Before   float64
	Decayed  float64
	After    float64
}

type Step struct {
	Battle entities.RatedBattle
	Winner Side
	Loser  Side
}

// Ledger replays battles for one region. Every step reads the running ratings
// left by the steps before it.
type Ledger struct {
	region  string
	policy  DecayPolicy
	ratings map[string]*entities.RunningRating
}

func NewLedger(region string, policy DecayPolicy) *Ledger {
	return &Ledger{
		region:  region,
		policy:  policy,
		ratings: make(map[string]*entities.RunningRating),
	}
}

// SortBattles puts battles in replay order: created time, then id.
func SortBattles(battles []entities.RatedBattle) {
	sort.SliceStable(battles, func(i, j int) bool {
		if !battles[i].CreatedAt.Equal(battles[j].CreatedAt) {
			return battles[i].CreatedAt.Before(battles[j].CreatedAt)
		}
		return battles[i].BattleID < battles[j].BattleID
	})
}

func (l *Ledger) Apply(battle entities.RatedBattle) (Step, error) {
	winnerID := strings.TrimSpace(battle.WinnerDriverID)
	loserID := strings.TrimSpace(battle.LoserDriverID)
	if winnerID == "" || loserID == "" || winnerID == loserID {
		return Step{}, fmt.Errorf("%w: battle %d", domainerrors.ErrUnratableBattle, battle.BattleID)
	}

	winner := l.running(winnerID)
	loser := l.running(loserID)
	step := Step{
		Battle: battle,
		Winner: Side{DriverID: winnerID, Before: winner.Value},
		Loser:  Side{DriverID: loserID, Before: loser.Value},
	}
	step.Winner.Decayed = l.policy.Apply(winner.Value, winner.LastBattleAt, battle.CreatedAt)
	step.Loser.Decayed = l.policy.Apply(loser.Value, loser.LastBattleAt, battle.CreatedAt)

	kw, kl := KFactors(winner.CountedBattles, battle.IsFinal)
	step.Winner.After, step.Loser.After = Exchange(step.Winner.Decayed, step.Loser.Decayed, kw, kl)

	at := battle.CreatedAt.UTC()
	for _, update := range []struct {
		rating *entities.RunningRating
		value  float64
	}{{winner, step.Winner.After}, {loser, step.Loser.After}} {
		update.rating.Value = update.value
		update.rating.CountedBattles++
		update.rating.LastBattleAt = timePtr(at)
	}
	return step, nil
}

// Rating returns a copy of the driver's running rating.
func (l *Ledger) Rating(driverID string) (entities.RunningRating, bool) {
	rating, ok := l.ratings[driverID]
	if !ok {
		return entities.RunningRating{}, false
	}
	return *rating, true
}

// Ratings lists every driver seen so far, ordered by driver id.
func (l *Ledger) Ratings() []entities.RunningRating {
	items := make([]entities.RunningRating, 0, len(l.ratings))
	for _, rating := range l.ratings {
		items = append(items, *rating)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DriverID < items[j].DriverID
	})
	return items
}

func (l *Ledger) running(driverID string) *entities.RunningRating {
	rating, ok := l.ratings[driverID]
	if !ok {
		rating = &entities.RunningRating{DriverID: driverID, Region: l.region, Value: entities.DefaultRating}
		l.ratings[driverID] = rating
	}
	return rating
}

func timePtr(value time.Time) *time.Time {
	return &value
}
