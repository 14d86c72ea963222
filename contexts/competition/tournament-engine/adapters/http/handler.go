package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tandem/contexts/competition/tournament-engine/application/commands"
	"tandem/contexts/competition/tournament-engine/application/queries"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/ports"
	httptransport "tandem/contexts/competition/tournament-engine/transport/http"
)

type Handler struct {
	CreateTournament   commands.CreateTournamentUseCase
	OpenRegistration   commands.OpenRegistrationUseCase
	RegisterCompetitor commands.RegisterCompetitorUseCase
	AddJudge           commands.AddJudgeUseCase
	StartQualifying    commands.StartQualifyingUseCase
	SubmitLapScore     commands.SubmitLapScoreUseCase
	SetLapPenalty      commands.SetLapPenaltyUseCase
	AdvanceQualifying  commands.AdvanceQualifyingUseCase
	EndQualifying      commands.EndQualifyingUseCase
	SubmitBattleVote   commands.SubmitBattleVoteUseCase
	AdvanceBattle      commands.AdvanceBattleUseCase
	OverrideNextBattle commands.OverrideNextBattleUseCase
	AssignWildcard     commands.AssignWildcardUseCase
	GetState           queries.GetTournamentStateUseCase
	ListTournaments    queries.ListTournamentsUseCase
	Logger             *slog.Logger
}

func (h Handler) CreateTournamentHandler(
	ctx context.Context,
	req httptransport.CreateTournamentRequest,
) (httptransport.TournamentResponse, error) {
	tournament, err := h.CreateTournament.Execute(ctx, commands.CreateTournamentCommand{
		Name:           req.Name,
		Region:         req.Region,
		Format:         entities.Format(strings.ToUpper(strings.TrimSpace(req.Format))),
		QualifyingLaps: req.QualifyingLaps,
		ScoreFormula:   entities.ScoreFormula(strings.ToUpper(strings.TrimSpace(req.ScoreFormula))),
		BracketSize:    req.BracketSize,
		FullInclusion:  req.FullInclusion,
		IsFinal:        req.IsFinal,
		Numbering:      entities.Numbering(strings.ToUpper(strings.TrimSpace(req.Numbering))),
	})
	if err != nil {
		return httptransport.TournamentResponse{}, err
	}
	return httptransport.TournamentResponse{Tournament: mapTournament(tournament)}, nil
}

func (h Handler) ListTournamentsHandler(ctx context.Context, region string, state string) (httptransport.ListTournamentsResponse, error) {
	items, err := h.ListTournaments.Execute(ctx, ports.TournamentFilter{
		Region: region,
		State:  entities.State(strings.ToUpper(strings.TrimSpace(state))),
	})
	if err != nil {
		return httptransport.ListTournamentsResponse{}, err
	}
	result := make([]httptransport.TournamentDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapTournament(item))
	}
	return httptransport.ListTournamentsResponse{Items: result}, nil
}

func (h Handler) GetStateHandler(ctx context.Context, tournamentID string) (httptransport.TournamentStateResponse, error) {
	state, err := h.GetState.Execute(ctx, tournamentID)
	if err != nil {
		return httptransport.TournamentStateResponse{}, err
	}
	return MapState(state), nil
}

func (h Handler) OpenRegistrationHandler(ctx context.Context, tournamentID string) (httptransport.TournamentResponse, error) {
	tournament, err := h.OpenRegistration.Execute(ctx, tournamentID)
	if err != nil {
		return httptransport.TournamentResponse{}, err
	}
	return httptransport.TournamentResponse{Tournament: mapTournament(tournament)}, nil
}

func (h Handler) RegisterCompetitorHandler(
	ctx context.Context,
	tournamentID string,
	req httptransport.RegisterCompetitorRequest,
) (httptransport.CompetitorResponse, error) {
	competitor, err := h.RegisterCompetitor.Execute(ctx, commands.RegisterCompetitorCommand{
		TournamentID: tournamentID,
		DriverID:     req.DriverID,
		Number:       req.Number,
	})
	if err != nil {
		return httptransport.CompetitorResponse{}, err
	}
	return httptransport.CompetitorResponse{Competitor: mapCompetitor(competitor, nil)}, nil
}

func (h Handler) AddJudgeHandler(
	ctx context.Context,
	tournamentID string,
	req httptransport.AddJudgeRequest,
) (httptransport.JudgeResponse, error) {
	judge, err := h.AddJudge.Execute(ctx, commands.AddJudgeCommand{
		TournamentID: tournamentID,
		DriverID:     req.DriverID,
		Name:         req.Name,
	})
	if err != nil {
		return httptransport.JudgeResponse{}, err
	}
	return httptransport.JudgeResponse{Judge: mapJudge(judge)}, nil
}

func (h Handler) StartQualifyingHandler(ctx context.Context, tournamentID string) (httptransport.TournamentResponse, error) {
	tournament, err := h.StartQualifying.Execute(ctx, tournamentID)
	if err != nil {
		return httptransport.TournamentResponse{}, err
	}
	return httptransport.TournamentResponse{Tournament: mapTournament(tournament)}, nil
}

func (h Handler) SubmitLapScoreHandler(
	ctx context.Context,
	tournamentID string,
	lapID int64,
	req httptransport.SubmitLapScoreRequest,
) (httptransport.LapScoreResponse, error) {
	result, err := h.SubmitLapScore.Execute(ctx, commands.SubmitLapScoreCommand{
		TournamentID: tournamentID,
		JudgeID:      req.JudgeID,
		LapID:        lapID,
		Score:        req.Score,
	})
	if err != nil {
		return httptransport.LapScoreResponse{}, err
	}
	return httptransport.LapScoreResponse{
		LapID:               result.LapID,
		Complete:            result.Complete,
		Total:               result.Total,
		NextQualifyingLapID: result.NextQualifyingLapID,
	}, nil
}

func (h Handler) SetLapPenaltyHandler(
	ctx context.Context,
	tournamentID string,
	lapID int64,
	req httptransport.SetLapPenaltyRequest,
) (httptransport.LapResponse, error) {
	lap, err := h.SetLapPenalty.Execute(ctx, commands.SetLapPenaltyCommand{
		TournamentID: tournamentID,
		LapID:        lapID,
		Penalty:      req.Penalty,
	})
	if err != nil {
		return httptransport.LapResponse{}, err
	}
	return httptransport.LapResponse{Lap: httptransport.LapDTO{
		LapID:        lap.LapID,
		CompetitorID: lap.CompetitorID,
		Round:        lap.Round,
		Penalty:      lap.Penalty,
	}}, nil
}

func (h Handler) AdvanceQualifyingHandler(ctx context.Context, tournamentID string) (httptransport.AdvanceQualifyingResponse, error) {
	next, err := h.AdvanceQualifying.Execute(ctx, tournamentID)
	if err != nil {
		return httptransport.AdvanceQualifyingResponse{}, err
	}
	return httptransport.AdvanceQualifyingResponse{NextQualifyingLapID: next}, nil
}

func (h Handler) EndQualifyingHandler(
	ctx context.Context,
	tournamentID string,
	req httptransport.EndQualifyingRequest,
) (httptransport.EndQualifyingResponse, error) {
	result, err := h.EndQualifying.Execute(ctx, commands.EndQualifyingCommand{
		TournamentID: tournamentID,
		Force:        req.Force,
	})
	if err != nil {
		return httptransport.EndQualifyingResponse{}, err
	}
	ranking := make([]httptransport.RankingEntryDTO, 0, len(result.Ranking))
	for _, entry := range result.Ranking {
		ranking = append(ranking, httptransport.RankingEntryDTO{
			CompetitorID: entry.CompetitorID,
			Position:     entry.Position,
			BestScores:   append([]float64{}, entry.BestScores...),
		})
	}
	return httptransport.EndQualifyingResponse{
		Tournament:   mapTournament(result.Tournament),
		Ranking:      ranking,
		BracketSize:  result.BracketSize,
		ByeCount:     result.ByeCount,
		AutoResolved: append([]int64{}, result.AutoResolved...),
	}, nil
}

func (h Handler) SubmitBattleVoteHandler(
	ctx context.Context,
	tournamentID string,
	battleID int64,
	req httptransport.SubmitBattleVoteRequest,
) (httptransport.BattleVoteResponse, error) {
	vote, err := h.SubmitBattleVote.Execute(ctx, commands.SubmitBattleVoteCommand{
		TournamentID: tournamentID,
		JudgeID:      req.JudgeID,
		BattleID:     battleID,
		CompetitorID: req.CompetitorID,
	})
	if err != nil {
		return httptransport.BattleVoteResponse{}, err
	}
	return httptransport.BattleVoteResponse{Vote: httptransport.BattleVoteDTO{
		JudgeID:      vote.JudgeID,
		BattleID:     vote.BattleID,
		Choice:       string(vote.Choice),
		CompetitorID: vote.CompetitorID,
	}}, nil
}

func (h Handler) AdvanceBattleHandler(
	ctx context.Context,
	tournamentID string,
	idempotencyKey string,
) (httptransport.AdvanceBattleResponse, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return httptransport.AdvanceBattleResponse{}, domainerrors.ErrIdempotencyKeyRequired
	}
	result, err := h.AdvanceBattle.Execute(ctx, commands.AdvanceBattleCommand{
		TournamentID:   tournamentID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.AdvanceBattleResponse{}, err
	}
	return httptransport.AdvanceBattleResponse{
		TournamentID: result.TournamentID,
		BattleID:     result.BattleID,
		Outcome:      string(result.Outcome),
		WinnerID:     result.WinnerID,
		LeftVotes:    result.LeftVotes,
		RightVotes:   result.RightVotes,
		TieVotes:     result.TieVotes,
		NextBattleID: result.NextBattleID,
		State:        string(result.State),
		AutoResolved: result.AutoResolved,
		Replayed:     result.Replayed,
	}, nil
}

func (h Handler) OverrideNextBattleHandler(
	ctx context.Context,
	tournamentID string,
	req httptransport.OverrideNextBattleRequest,
) (httptransport.TournamentResponse, error) {
	tournament, err := h.OverrideNextBattle.Execute(ctx, commands.OverrideNextBattleCommand{
		TournamentID: tournamentID,
		BattleID:     req.BattleID,
	})
	if err != nil {
		return httptransport.TournamentResponse{}, err
	}
	return httptransport.TournamentResponse{Tournament: mapTournament(tournament)}, nil
}

func (h Handler) AssignWildcardHandler(
	ctx context.Context,
	tournamentID string,
	req httptransport.AssignWildcardRequest,
) (httptransport.CompetitorResponse, error) {
	competitor, err := h.AssignWildcard.Execute(ctx, commands.AssignWildcardCommand{
		TournamentID: tournamentID,
		DriverID:     req.DriverID,
		Number:       req.Number,
	})
	if err != nil {
		return httptransport.CompetitorResponse{}, err
	}
	return httptransport.CompetitorResponse{Competitor: mapCompetitor(competitor, nil)}, nil
}

// MapState converts the read model into the wire shape shared by the state
// endpoint and the live event stream.
func MapState(state queries.TournamentState) httptransport.TournamentStateResponse {
	judges := make([]httptransport.JudgeDTO, 0, len(state.Judges))
	for _, judge := range state.Judges {
		judges = append(judges, mapJudge(judge))
	}
	competitors := make([]httptransport.CompetitorDTO, 0, len(state.Competitors))
	for _, view := range state.Competitors {
		competitors = append(competitors, mapCompetitor(view.Competitor, view.BestScores))
	}
	laps := make([]httptransport.LapDTO, 0, len(state.Laps))
	for _, view := range state.Laps {
		laps = append(laps, httptransport.LapDTO{
			LapID:        view.Lap.LapID,
			CompetitorID: view.Lap.CompetitorID,
			Round:        view.Lap.Round,
			Penalty:      view.Lap.Penalty,
			ScoreCount:   view.ScoreCount,
			Complete:     view.Complete,
			Total:        view.Total,
		})
	}
	battles := make([]httptransport.BattleDTO, 0, len(state.Battles))
	for _, view := range state.Battles {
		battle := view.Battle
		item := httptransport.BattleDTO{
			BattleID:           battle.BattleID,
			Round:              battle.Round,
			Bracket:            battle.Bracket.String(),
			LeftCompetitorID:   battle.LeftCompetitorID,
			RightCompetitorID:  battle.RightCompetitorID,
			WinnerID:           battle.WinnerID,
			WinnerNextBattleID: battle.WinnerNextBattleID,
			LoserNextBattleID:  battle.LoserNextBattleID,
			VoteCount:          view.VoteCount,
		}
		if battle.ResolvedAt != nil {
			item.ResolvedAt = battle.ResolvedAt.UTC().Format(time.RFC3339)
		}
		battles = append(battles, item)
	}
	return httptransport.TournamentStateResponse{
		Tournament:  mapTournament(state.Tournament),
		JudgeCount:  state.JudgeCount,
		Judges:      judges,
		Competitors: competitors,
		Laps:        laps,
		Battles:     battles,
	}
}

func mapTournament(item entities.Tournament) httptransport.TournamentDTO {
	return httptransport.TournamentDTO{
		TournamentID:        item.TournamentID,
		Name:                item.Name,
		Region:              item.Region,
		Format:              string(item.Format),
		State:               string(item.State),
		QualifyingLaps:      item.QualifyingLaps,
		ScoreFormula:        string(item.ScoreFormula),
		BracketSize:         item.BracketSize,
		FullInclusion:       item.FullInclusion,
		IsFinal:             item.IsFinal,
		Numbering:           string(item.Numbering),
		NextQualifyingLapID: item.NextQualifyingLapID,
		NextBattleID:        item.NextBattleID,
		CreatedAt:           item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapCompetitor(item entities.Competitor, bestScores []float64) httptransport.CompetitorDTO {
	return httptransport.CompetitorDTO{
		CompetitorID:       item.CompetitorID,
		DriverID:           item.DriverID,
		IsBye:              item.IsBye,
		QualifyingPosition: item.QualifyingPosition,
		Number:             item.Number,
		BestScores:         bestScores,
	}
}

func mapJudge(item entities.Judge) httptransport.JudgeDTO {
	return httptransport.JudgeDTO{
		JudgeID:  item.JudgeID,
		Name:     item.Name,
		DriverID: item.DriverID,
	}
}
