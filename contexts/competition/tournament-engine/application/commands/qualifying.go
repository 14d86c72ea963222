package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	application "tandem/contexts/competition/tournament-engine/application"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/domain/services"
	"tandem/contexts/competition/tournament-engine/ports"
)

type SubmitLapScoreCommand struct {
	TournamentID string
	JudgeID      string
	LapID        int64
	Score        float64
}

type LapScoreResult struct {
	LapID               int64
	Complete            bool
	Total               float64
	NextQualifyingLapID *int64
}

type SubmitLapScoreUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute upserts the judge's score. A score that completes a lap moves the
// next-lap pointer.
func (uc SubmitLapScoreUseCase) Execute(ctx context.Context, cmd SubmitLapScoreCommand) (LapScoreResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if math.IsNaN(cmd.Score) || !entities.ValidLapScore(cmd.Score) {
		return LapScoreResult{}, domainerrors.ErrInvalidScore
	}
	judgeID := strings.TrimSpace(cmd.JudgeID)

	ctx, span := application.StartSpan(ctx, "tournament.submit_lap_score", cmd.TournamentID)
	var result LapScoreResult
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		tournament := aggregate.Tournament
		if err := requireState(tournament, entities.StateQualifying); err != nil {
			return err
		}
		if _, ok := findJudge(aggregate, judgeID); !ok {
			return domainerrors.ErrJudgeNotFound
		}
		lap, ok := findLap(aggregate, cmd.LapID)
		if !ok {
			return domainerrors.ErrLapNotFound
		}

		now := uc.Clock.Now().UTC()
		score := entities.LapScore{JudgeID: judgeID, LapID: lap.LapID, Score: cmd.Score, UpdatedAt: now}
		if err := tx.UpsertLapScore(ctx, score); err != nil {
			return err
		}

		scores := make([]entities.LapScore, 0, len(aggregate.LapScores)+1)
		for _, existing := range aggregate.LapScores {
			if existing.LapID == score.LapID && existing.JudgeID == score.JudgeID {
				continue
			}
			scores = append(scores, existing)
		}
		scores = append(scores, score)

		totals := services.LapTotals(aggregate.Laps, scores, tournament.ScoreFormula, len(aggregate.Judges))
		total, complete := totals[lap.LapID]
		result = LapScoreResult{LapID: lap.LapID, Complete: complete, Total: total}
		if complete {
			next := services.NextQualifyingLap(aggregate.Laps, totals)
			if !sameID(next, tournament.NextQualifyingLapID) {
				tournament.NextQualifyingLapID = next
				tournament.UpdatedAt = now
				if err := tx.SaveTournament(ctx, tournament); err != nil {
					return err
				}
			}
		}
		result.NextQualifyingLapID = tournament.NextQualifyingLapID
		return nil
	})
	application.EndSpan(span, err)
	if err != nil {
		return LapScoreResult{}, err
	}

	logger.Info("lap score submitted",
		"event", "tournament_lap_score_submitted",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"lap_id", cmd.LapID,
		"judge_id", judgeID,
		"lap_complete", result.Complete,
	)
	return result, nil
}

type SetLapPenaltyCommand struct {
	TournamentID string
	LapID        int64
	Penalty      float64
}

type SetLapPenaltyUseCase struct {
	Tournaments ports.TournamentRepository
	Logger      *slog.Logger
}

func (uc SetLapPenaltyUseCase) Execute(ctx context.Context, cmd SetLapPenaltyCommand) (entities.Lap, error) {
	logger := application.ResolveLogger(uc.Logger)
	if math.IsNaN(cmd.Penalty) || cmd.Penalty < 0 {
		return entities.Lap{}, fmt.Errorf("%w: penalty must not be negative", domainerrors.ErrInvalidInput)
	}

	ctx, span := application.StartSpan(ctx, "tournament.set_lap_penalty", cmd.TournamentID)
	var result entities.Lap
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		if err := requireState(aggregate.Tournament, entities.StateQualifying); err != nil {
			return err
		}
		lap, ok := findLap(aggregate, cmd.LapID)
		if !ok {
			return domainerrors.ErrLapNotFound
		}
		lap.Penalty = cmd.Penalty
		result = lap
		return tx.UpdateLap(ctx, lap)
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Lap{}, err
	}

	logger.Info("lap penalty set",
		"event", "tournament_lap_penalty_set",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"lap_id", cmd.LapID,
		"penalty", cmd.Penalty,
	)
	return result, nil
}

type AdvanceQualifyingUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute re-queries the next lap. It returns nil once every lap is complete.
func (uc AdvanceQualifyingUseCase) Execute(ctx context.Context, tournamentID string) (*int64, error) {
	logger := application.ResolveLogger(uc.Logger)
	ctx, span := application.StartSpan(ctx, "tournament.advance_qualifying", tournamentID)
	var next *int64
	err := uc.Tournaments.WithinTournament(ctx, tournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		tournament := aggregate.Tournament
		if err := requireState(tournament, entities.StateQualifying); err != nil {
			return err
		}
		totals := services.LapTotals(aggregate.Laps, aggregate.LapScores, tournament.ScoreFormula, len(aggregate.Judges))
		next = services.NextQualifyingLap(aggregate.Laps, totals)
		if sameID(next, tournament.NextQualifyingLapID) {
			return nil
		}
		tournament.NextQualifyingLapID = next
		tournament.UpdatedAt = uc.Clock.Now().UTC()
		return tx.SaveTournament(ctx, tournament)
	})
	application.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	logger.Info("qualifying advanced",
		"event", "tournament_qualifying_advanced",
		"module", moduleName,
		"layer", "application",
		"tournament_id", tournamentID,
		"qualifying_done", next == nil,
	)
	return next, nil
}

type EndQualifyingCommand struct {
	TournamentID string
	// Force ends qualifying with unscored laps; they count as not run.
	Force bool
}

type EndQualifyingResult struct {
	Tournament   entities.Tournament
	Ranking      []services.QualifyingResult
	BracketSize  int
	ByeCount     int
	AutoResolved []int64
}

type EndQualifyingUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute ranks the field, writes qualifying positions, builds the bracket and
// enters the battle phase, auto-advancing any opening byes.
func (uc EndQualifyingUseCase) Execute(ctx context.Context, cmd EndQualifyingCommand) (EndQualifyingResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	ctx, span := application.StartSpan(ctx, "tournament.end_qualifying", cmd.TournamentID)
	var result EndQualifyingResult
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		if err := requireState(aggregate.Tournament, entities.StateQualifying); err != nil {
			return err
		}
		formula := aggregate.Tournament.ScoreFormula
		totals := services.LapTotals(aggregate.Laps, aggregate.LapScores, formula, len(aggregate.Judges))
		if next := services.NextQualifyingLap(aggregate.Laps, totals); next != nil && !cmd.Force {
			return fmt.Errorf("%w: lap %d is next", domainerrors.ErrQualifyingIncomplete, *next)
		}

		ranking := services.RankQualifying(aggregate.Competitors, aggregate.Laps, totals)
		positions := make(map[int64]int, len(ranking))
		ranked := make([]int64, 0, len(ranking))
		for _, entry := range ranking {
			positions[entry.CompetitorID] = entry.Position
			ranked = append(ranked, entry.CompetitorID)
		}
		competitors := append([]entities.Competitor(nil), aggregate.Competitors...)
		updated := make([]entities.Competitor, 0, len(ranking))
		for i, competitor := range competitors {
			position, ok := positions[competitor.CompetitorID]
			if !ok {
				continue
			}
			if competitor.QualifyingPosition != nil {
				return fmt.Errorf("%w: competitor %d", domainerrors.ErrPositionAlreadyAssigned, competitor.CompetitorID)
			}
			competitors[i].QualifyingPosition = &position
			updated = append(updated, competitors[i])
		}
		if err := tx.UpdateCompetitors(ctx, updated); err != nil {
			return err
		}

		plan, err := services.BuildBracket(services.BracketInput{
			Format:        aggregate.Tournament.Format,
			FullInclusion: aggregate.Tournament.FullInclusion,
			SizeCap:       aggregate.Tournament.BracketSize,
			Ranked:        ranked,
		})
		if err != nil {
			return err
		}

		now := uc.Clock.Now().UTC()
		events := emitter{tx: tx, idGen: uc.IDGenerator, now: now}
		aggregate.Competitors = competitors
		flow := newProgression(tx, events, aggregate)
		flow.tournament.NextQualifyingLapID = nil
		from, err := transition(&flow.tournament, entities.StateBattles, now)
		if err != nil {
			return err
		}
		if err := events.stateChanged(ctx, flow.tournament, from); err != nil {
			return err
		}
		if err := flow.materialize(ctx, plan); err != nil {
			return err
		}
		autoResolved, err := flow.selectNext(ctx)
		if err != nil {
			return err
		}
		if err := flow.flush(ctx); err != nil {
			return err
		}

		result = EndQualifyingResult{
			Tournament:   flow.tournament,
			Ranking:      ranking,
			BracketSize:  plan.BracketSize,
			ByeCount:     plan.ByeCount(),
			AutoResolved: autoResolved,
		}
		return nil
	})
	application.EndSpan(span, err)
	if err != nil {
		if domainerrors.IsValidation(err) {
			return EndQualifyingResult{}, err
		}
		logger.Error("end qualifying failed",
			"event", "tournament_end_qualifying_failed",
			"module", moduleName,
			"layer", "application",
			"tournament_id", cmd.TournamentID,
			"error", err.Error(),
		)
		return EndQualifyingResult{}, err
	}

	logger.Info("qualifying ended",
		"event", "tournament_qualifying_ended",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"forced", cmd.Force,
		"bracket_size", result.BracketSize,
		"bye_count", result.ByeCount,
		"state", string(result.Tournament.State),
	)
	return result, nil
}
