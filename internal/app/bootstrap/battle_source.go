package bootstrap

import (
	"context"

	ratingentities "tandem/contexts/competition/rating-engine/domain/entities"
	ratingports "tandem/contexts/competition/rating-engine/ports"
	tournamententities "tandem/contexts/competition/tournament-engine/domain/entities"
	tournamentports "tandem/contexts/competition/tournament-engine/ports"
)

// tournamentBattleSource feeds the rating engine from the tournament
// repository when both run on the in-memory adapters. The postgres rating
// adapter reads the tournament tables directly instead.
type tournamentBattleSource struct {
	tournaments tournamentports.TournamentRepository
}

func (s tournamentBattleSource) ListRatedBattles(ctx context.Context, region string) ([]ratingentities.RatedBattle, error) {
	finished, err := s.tournaments.ListTournaments(ctx, tournamentports.TournamentFilter{
		Region: region,
		State:  tournamententities.StateEnd,
	})
	if err != nil {
		return nil, err
	}

	var battles []ratingentities.RatedBattle
	for _, tournament := range finished {
		aggregate, err := s.tournaments.GetTournamentAggregate(ctx, tournament.TournamentID)
		if err != nil {
			return nil, err
		}
		drivers := make(map[int64]string, len(aggregate.Competitors))
		for _, competitor := range aggregate.Competitors {
			if !competitor.IsBye {
				drivers[competitor.CompetitorID] = competitor.DriverID
			}
		}
		for _, battle := range aggregate.Battles {
			if battle.WinnerID == nil {
				continue
			}
			loserID := battle.LeftCompetitorID
			if loserID != nil && *loserID == *battle.WinnerID {
				loserID = battle.RightCompetitorID
			}
			rated := ratingentities.RatedBattle{
				BattleID:       battle.BattleID,
				TournamentID:   tournament.TournamentID,
				Region:         tournament.Region,
				IsFinal:        tournament.IsFinal,
				WinnerDriverID: drivers[*battle.WinnerID],
				CreatedAt:      battle.CreatedAt,
			}
			if loserID != nil {
				rated.LoserDriverID = drivers[*loserID]
			}
			battles = append(battles, rated)
		}
	}
	return battles, nil
}

var _ ratingports.BattleSource = tournamentBattleSource{}
