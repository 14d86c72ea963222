package services

import (
	"fmt"
	"sort"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
)

// BattleArena holds a tournament's battles indexed by id. Forward edges are
// plain ids into the same arena.
type BattleArena struct {
	battles map[int64]*entities.Battle
	dirty   map[int64]struct{}
}

func NewBattleArena(battles []entities.Battle) *BattleArena {
	arena := &BattleArena{
		battles: make(map[int64]*entities.Battle, len(battles)),
		dirty:   make(map[int64]struct{}),
	}
	for _, battle := range battles {
		copied := battle
		arena.battles[battle.BattleID] = &copied
	}
	return arena
}

func (a *BattleArena) Battle(battleID int64) (entities.Battle, bool) {
	battle, ok := a.battles[battleID]
	if !ok {
		return entities.Battle{}, false
	}
	return *battle, true
}

// Put inserts or replaces a battle and marks it for persistence.
func (a *BattleArena) Put(battle entities.Battle) {
	copied := battle
	a.battles[battle.BattleID] = &copied
	a.dirty[battle.BattleID] = struct{}{}
}

// Ordered returns every battle in running order.
func (a *BattleArena) Ordered() []entities.Battle {
	items := make([]entities.Battle, 0, len(a.battles))
	for _, battle := range a.battles {
		items = append(items, *battle)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].RunsBefore(items[j])
	})
	return items
}

// Changed drains the battles modified since the last call, in id order.
func (a *BattleArena) Changed() []entities.Battle {
	items := make([]entities.Battle, 0, len(a.dirty))
	for id := range a.dirty {
		items = append(items, *a.battles[id])
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].BattleID < items[j].BattleID
	})
	a.dirty = make(map[int64]struct{})
	return items
}

// NextPending returns the first unresolved battle in running order.
func (a *BattleArena) NextPending() (entities.Battle, bool) {
	for _, battle := range a.Ordered() {
		if !battle.Resolved() {
			return battle, true
		}
	}
	return entities.Battle{}, false
}

// Apply records winnerID on the battle and pushes the winner and the loser
// along their forward edges. Applying the same winner twice changes nothing.
func (a *BattleArena) Apply(battleID int64, winnerID int64, at time.Time) error {
	battle, ok := a.battles[battleID]
	if !ok {
		return domainerrors.ErrBattleNotFound
	}
	if !battle.Seated() {
		return domainerrors.ErrBattleNotReady
	}
	loserID, ok := battle.Opponent(winnerID)
	if !ok {
		return fmt.Errorf("%w: competitor %d is not in battle %d", domainerrors.ErrInvalidInput, winnerID, battleID)
	}
	if battle.Resolved() && *battle.WinnerID != winnerID {
		return domainerrors.ErrBattleAlreadyResolved
	}

	if !battle.Resolved() {
		resolvedAt := at.UTC()
		battle.WinnerID = entities.Int64Ptr(winnerID)
		battle.ResolvedAt = &resolvedAt
		a.dirty[battleID] = struct{}{}
	}
	if err := a.seatForward(battle.WinnerNextBattleID, winnerID); err != nil {
		return err
	}
	return a.seatForward(battle.LoserNextBattleID, loserID)
}

func (a *BattleArena) seatForward(targetID *int64, competitorID int64) error {
	if targetID == nil {
		return nil
	}
	target, ok := a.battles[*targetID]
	if !ok {
		return fmt.Errorf("%w: edge to missing battle %d", domainerrors.ErrInvariantViolation, *targetID)
	}
	if target.Holds(competitorID) {
		return nil
	}
	switch {
	case target.LeftCompetitorID == nil:
		target.LeftCompetitorID = entities.Int64Ptr(competitorID)
	case target.RightCompetitorID == nil:
		target.RightCompetitorID = entities.Int64Ptr(competitorID)
	default:
		return fmt.Errorf("%w: battle %d has no free slot for competitor %d",
			domainerrors.ErrInvariantViolation, target.BattleID, competitorID)
	}
	a.dirty[target.BattleID] = struct{}{}
	return nil
}

// Undo clears a resolved battle's winner and removes its two competitors from
// the battles its edges feed. It refuses while a fed battle is resolved, and
// returns the fed battles that lost a competitor.
func (a *BattleArena) Undo(battleID int64) ([]int64, error) {
	battle, ok := a.battles[battleID]
	if !ok {
		return nil, domainerrors.ErrBattleNotFound
	}
	if !battle.Resolved() {
		return nil, nil
	}
	for _, targetID := range []*int64{battle.WinnerNextBattleID, battle.LoserNextBattleID} {
		if targetID == nil {
			continue
		}
		target, ok := a.battles[*targetID]
		if !ok {
			return nil, fmt.Errorf("%w: edge to missing battle %d", domainerrors.ErrInvariantViolation, *targetID)
		}
		if target.Resolved() {
			return nil, fmt.Errorf("%w: battle %d", domainerrors.ErrDownstreamResolved, target.BattleID)
		}
	}

	var vacated []int64
	for _, targetID := range []*int64{battle.WinnerNextBattleID, battle.LoserNextBattleID} {
		if targetID == nil {
			continue
		}
		target := a.battles[*targetID]
		left := vacate(&target.LeftCompetitorID, battle)
		right := vacate(&target.RightCompetitorID, battle)
		if left || right {
			a.dirty[target.BattleID] = struct{}{}
			vacated = append(vacated, target.BattleID)
		}
	}
	battle.WinnerID = nil
	battle.ResolvedAt = nil
	a.dirty[battleID] = struct{}{}
	return vacated, nil
}

func vacate(slot **int64, source *entities.Battle) bool {
	if *slot == nil || !source.Holds(**slot) {
		return false
	}
	*slot = nil
	return true
}
