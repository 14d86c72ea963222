package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	application "tandem/contexts/competition/tournament-engine/application"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	"tandem/contexts/competition/tournament-engine/domain/services"
	"tandem/contexts/competition/tournament-engine/ports"
)

type CompetitorView struct {
	Competitor entities.Competitor
	BestScores []float64
}

type LapView struct {
	Lap        entities.Lap
	ScoreCount int
	Complete   bool
	Total      float64
}

type BattleView struct {
	Battle    entities.Battle
	VoteCount int
}

// TournamentState is the read model behind tournamentState: the tournament
// row, both next pointers and every competitor, lap and battle.
type TournamentState struct {
	Tournament  entities.Tournament
	JudgeCount  int
	Judges      []entities.Judge
	Competitors []CompetitorView
	Laps        []LapView
	Battles     []BattleView
}

type GetTournamentStateUseCase struct {
	Tournaments ports.TournamentRepository
	Logger      *slog.Logger
}

func (uc GetTournamentStateUseCase) Execute(ctx context.Context, tournamentID string) (TournamentState, error) {
	logger := application.ResolveLogger(uc.Logger)
	aggregate, err := uc.Tournaments.GetTournamentAggregate(ctx, strings.TrimSpace(tournamentID))
	if err != nil {
		return TournamentState{}, err
	}
	state := BuildTournamentState(aggregate)
	logger.Debug("tournament state fetched",
		"event", "tournament_state_fetched",
		"module", "competition/tournament-engine",
		"layer", "application",
		"tournament_id", tournamentID,
	)
	return state, nil
}

func BuildTournamentState(aggregate ports.TournamentAggregate) TournamentState {
	judgeCount := len(aggregate.Judges)
	totals := services.LapTotals(aggregate.Laps, aggregate.LapScores, aggregate.Tournament.ScoreFormula, judgeCount)

	scoreCounts := make(map[int64]int, len(aggregate.Laps))
	for _, score := range aggregate.LapScores {
		scoreCounts[score.LapID]++
	}
	laps := make([]LapView, 0, len(aggregate.Laps))
	for _, lap := range aggregate.Laps {
		total, complete := totals[lap.LapID]
		laps = append(laps, LapView{Lap: lap, ScoreCount: scoreCounts[lap.LapID], Complete: complete, Total: total})
	}
	sort.Slice(laps, func(i, j int) bool {
		return laps[i].Lap.LapID < laps[j].Lap.LapID
	})

	best := make(map[int64][]float64)
	for _, result := range services.RankQualifying(aggregate.Competitors, aggregate.Laps, totals) {
		best[result.CompetitorID] = result.BestScores
	}
	competitors := make([]CompetitorView, 0, len(aggregate.Competitors))
	for _, competitor := range aggregate.Competitors {
		competitors = append(competitors, CompetitorView{Competitor: competitor, BestScores: best[competitor.CompetitorID]})
	}
	sort.Slice(competitors, func(i, j int) bool {
		return competitors[i].Competitor.CompetitorID < competitors[j].Competitor.CompetitorID
	})

	voteCounts := make(map[int64]int)
	for _, vote := range aggregate.Votes {
		voteCounts[vote.BattleID]++
	}
	battles := make([]BattleView, 0, len(aggregate.Battles))
	for _, battle := range services.NewBattleArena(aggregate.Battles).Ordered() {
		battles = append(battles, BattleView{Battle: battle, VoteCount: voteCounts[battle.BattleID]})
	}

	return TournamentState{
		Tournament:  aggregate.Tournament,
		JudgeCount:  judgeCount,
		Judges:      append([]entities.Judge(nil), aggregate.Judges...),
		Competitors: competitors,
		Laps:        laps,
		Battles:     battles,
	}
}

type ListTournamentsUseCase struct {
	Tournaments ports.TournamentRepository
	Logger      *slog.Logger
}

func (uc ListTournamentsUseCase) Execute(ctx context.Context, filter ports.TournamentFilter) ([]entities.Tournament, error) {
	if filter.Region != "" {
		filter.Region = entities.NormalizeRegion(filter.Region)
	}
	return uc.Tournaments.ListTournaments(ctx, filter)
}
