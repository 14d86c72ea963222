package commands

import (
	"fmt"
	"sort"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/ports"
)

const moduleName = "competition/tournament-engine"

func transition(tournament *entities.Tournament, to entities.State, now time.Time) (entities.State, error) {
	from := tournament.State
	if !from.CanTransition(to) {
		return from, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, from, to)
	}
	tournament.State = to
	tournament.UpdatedAt = now
	return from, nil
}

func requireState(tournament entities.Tournament, state entities.State) error {
	if tournament.State != state {
		return fmt.Errorf("%w: tournament is %s, need %s", domainerrors.ErrInvalidTransition, tournament.State, state)
	}
	return nil
}

func findJudge(aggregate ports.TournamentAggregate, judgeID string) (entities.Judge, bool) {
	for _, judge := range aggregate.Judges {
		if judge.JudgeID == judgeID {
			return judge, true
		}
	}
	return entities.Judge{}, false
}

func findLap(aggregate ports.TournamentAggregate, lapID int64) (entities.Lap, bool) {
	for _, lap := range aggregate.Laps {
		if lap.LapID == lapID {
			return lap, true
		}
	}
	return entities.Lap{}, false
}

func byeLookup(competitors []entities.Competitor) func(int64) bool {
	byes := make(map[int64]struct{})
	for _, competitor := range competitors {
		if competitor.IsBye {
			byes[competitor.CompetitorID] = struct{}{}
		}
	}
	return func(competitorID int64) bool {
		_, ok := byes[competitorID]
		return ok
	}
}

func entrants(competitors []entities.Competitor) []entities.Competitor {
	items := make([]entities.Competitor, 0, len(competitors))
	for _, competitor := range competitors {
		if !competitor.IsBye {
			items = append(items, competitor)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CompetitorID < items[j].CompetitorID
	})
	return items
}

// ladderOrder lists qualifiers by qualifying position, top first.
func ladderOrder(competitors []entities.Competitor) []int64 {
	ranked := make([]entities.Competitor, 0, len(competitors))
	for _, competitor := range competitors {
		if !competitor.IsBye && competitor.QualifyingPosition != nil {
			ranked = append(ranked, competitor)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return *ranked[i].QualifyingPosition < *ranked[j].QualifyingPosition
	})
	ids := make([]int64, 0, len(ranked))
	for _, competitor := range ranked {
		ids = append(ids, competitor.CompetitorID)
	}
	return ids
}

func votesForBattle(votes []entities.BattleVote, battleID int64) []entities.BattleVote {
	items := make([]entities.BattleVote, 0, len(votes))
	for _, vote := range votes {
		if vote.BattleID == battleID {
			items = append(items, vote)
		}
	}
	return items
}

func sameID(left *int64, right *int64) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return *left == *right
}
