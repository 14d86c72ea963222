package services

import (
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
)

// ByeWinner returns the competitor that advances from a seated battle holding
// at least one bye. When both slots are byes the left one advances.
func ByeWinner(battle entities.Battle, isBye func(int64) bool) (int64, bool) {
	if !battle.Seated() {
		return 0, false
	}
	left, right := *battle.LeftCompetitorID, *battle.RightCompetitorID
	switch {
	case isBye(left) && isBye(right):
		return left, true
	case isBye(left):
		return right, true
	case isBye(right):
		return left, true
	default:
		return 0, false
	}
}

// ByeRun is the outcome of auto-advancing past bye battles.
type ByeRun struct {
	Next     *entities.Battle
	Resolved []int64
}

// RunByes resolves pending bye battles in running order until it reaches a
// battle between two real competitors, a battle still waiting for a slot, or
// the end of the arena.
func RunByes(arena *BattleArena, isBye func(int64) bool, at time.Time) (ByeRun, error) {
	run := ByeRun{}
	for {
		next, ok := arena.NextPending()
		if !ok {
			return run, nil
		}
		winner, bye := ByeWinner(next, isBye)
		if !bye {
			run.Next = &next
			return run, nil
		}
		if err := arena.Apply(next.BattleID, winner, at); err != nil {
			return run, err
		}
		run.Resolved = append(run.Resolved, next.BattleID)
	}
}

// OpenWildcardSlot finds the seeded battle still missing its late entrant: an
// empty slot in a battle no edge feeds.
func OpenWildcardSlot(battles []entities.Battle) (entities.Battle, bool) {
	fed := make(map[int64]struct{}, len(battles))
	for _, battle := range battles {
		if battle.WinnerNextBattleID != nil {
			fed[*battle.WinnerNextBattleID] = struct{}{}
		}
		if battle.LoserNextBattleID != nil {
			fed[*battle.LoserNextBattleID] = struct{}{}
		}
	}
	for _, battle := range NewBattleArena(battles).Ordered() {
		if _, ok := fed[battle.BattleID]; ok || battle.Resolved() {
			continue
		}
		if battle.LeftCompetitorID == nil || battle.RightCompetitorID == nil {
			return battle, true
		}
	}
	return entities.Battle{}, false
}
