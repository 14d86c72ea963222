package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "tandem/contexts/competition/tournament-engine/application"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/domain/services"
	"tandem/contexts/competition/tournament-engine/ports"
)

type SubmitBattleVoteCommand struct {
	TournamentID string
	JudgeID      string
	BattleID     int64
	// CompetitorID is nil for a tie (one more time) vote.
	CompetitorID *int64
}

type SubmitBattleVoteUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute upserts the judge's vote on the current battle. Judges may change
// their vote until the battle is advanced.
func (uc SubmitBattleVoteUseCase) Execute(ctx context.Context, cmd SubmitBattleVoteCommand) (entities.BattleVote, error) {
	logger := application.ResolveLogger(uc.Logger)
	judgeID := strings.TrimSpace(cmd.JudgeID)

	ctx, span := application.StartSpan(ctx, "tournament.submit_battle_vote", cmd.TournamentID)
	var vote entities.BattleVote
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		tournament := aggregate.Tournament
		if err := requireState(tournament, entities.StateBattles); err != nil {
			return err
		}
		if _, ok := findJudge(aggregate, judgeID); !ok {
			return domainerrors.ErrJudgeNotFound
		}
		battle, ok := services.NewBattleArena(aggregate.Battles).Battle(cmd.BattleID)
		if !ok {
			return domainerrors.ErrBattleNotFound
		}
		if tournament.NextBattleID == nil || *tournament.NextBattleID != battle.BattleID {
			return domainerrors.ErrBattleNotCurrent
		}
		if !battle.Seated() {
			return domainerrors.ErrBattleNotReady
		}

		vote = entities.BattleVote{
			JudgeID:   judgeID,
			BattleID:  battle.BattleID,
			Choice:    entities.VoteChoiceTie,
			UpdatedAt: uc.Clock.Now().UTC(),
		}
		if cmd.CompetitorID != nil {
			if !battle.Holds(*cmd.CompetitorID) || byeLookup(aggregate.Competitors)(*cmd.CompetitorID) {
				return domainerrors.ErrInvalidVote
			}
			vote.Choice = entities.VoteChoiceCompetitor
			vote.CompetitorID = entities.Int64Ptr(*cmd.CompetitorID)
		}
		return tx.UpsertBattleVote(ctx, vote)
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.BattleVote{}, err
	}

	logger.Info("battle vote submitted",
		"event", "tournament_battle_vote_submitted",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"battle_id", cmd.BattleID,
		"judge_id", judgeID,
		"choice", string(vote.Choice),
	)
	return vote, nil
}

type AdvanceOutcome string

const (
	AdvanceOutcomeResolved AdvanceOutcome = "RESOLVED"
	AdvanceOutcomeRevote   AdvanceOutcome = "REVOTE"
)

type AdvanceBattleCommand struct {
	TournamentID   string
	IdempotencyKey string
}

type AdvanceBattleResult struct {
	TournamentID string         `json:"tournament_id"`
	BattleID     int64          `json:"battle_id"`
	Outcome      AdvanceOutcome `json:"outcome"`
	WinnerID     *int64         `json:"winner_id,omitempty"`
	LeftVotes    int            `json:"left_votes"`
	RightVotes   int            `json:"right_votes"`
	TieVotes     int            `json:"tie_votes"`
	NextBattleID *int64         `json:"next_battle_id,omitempty"`
	State        entities.State `json:"state"`
	AutoResolved []int64        `json:"auto_resolved,omitempty"`
	Replayed     bool           `json:"-"`
}

type AdvanceBattleUseCase struct {
	Tournaments    ports.TournamentRepository
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute decides the current battle from its votes. A winner is advanced and
// the next battle selected; a tie clears the votes for a revote. Repeating an
// idempotency key replays the first result.
func (uc AdvanceBattleUseCase) Execute(ctx context.Context, cmd AdvanceBattleCommand) (AdvanceBattleResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	key := strings.TrimSpace(cmd.IdempotencyKey)
	requestHash := hashAdvanceCommand(cmd.TournamentID)

	ctx, span := application.StartSpan(ctx, "tournament.advance_battle", cmd.TournamentID)
	var result AdvanceBattleResult
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		now := uc.Clock.Now().UTC()
		if key != "" {
			record, found, err := tx.GetIdempotency(ctx, key, now)
			if err != nil {
				return err
			}
			if found {
				if record.RequestHash != requestHash {
					return domainerrors.ErrIdempotencyConflict
				}
				if err := json.Unmarshal(record.ResponsePayload, &result); err != nil {
					return err
				}
				result.Replayed = true
				return nil
			}
		}

		var err error
		result, err = uc.advance(ctx, tx, aggregate, now)
		if err != nil {
			return err
		}
		if key == "" {
			return nil
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return tx.PutIdempotency(ctx, ports.IdempotencyRecord{
			Key:             key,
			RequestHash:     requestHash,
			TournamentID:    cmd.TournamentID,
			ResponsePayload: payload,
			ExpiresAt:       now.Add(uc.ttl()),
		})
	})
	application.EndSpan(span, err)
	if err != nil {
		if !domainerrors.IsValidation(err) && !domainerrors.IsNotFound(err) {
			logger.Error("advance battle failed",
				"event", "tournament_advance_battle_failed",
				"module", moduleName,
				"layer", "application",
				"tournament_id", cmd.TournamentID,
				"error", err.Error(),
			)
		}
		return AdvanceBattleResult{}, err
	}

	logger.Info("battle advanced",
		"event", "tournament_battle_advanced",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"battle_id", result.BattleID,
		"outcome", string(result.Outcome),
		"state", string(result.State),
		"replayed", result.Replayed,
	)
	return result, nil
}

func (uc AdvanceBattleUseCase) advance(
	ctx context.Context,
	tx ports.TournamentTx,
	aggregate ports.TournamentAggregate,
	now time.Time,
) (AdvanceBattleResult, error) {
	tournament := aggregate.Tournament
	if err := requireState(tournament, entities.StateBattles); err != nil {
		return AdvanceBattleResult{}, err
	}
	if tournament.NextBattleID == nil {
		return AdvanceBattleResult{}, domainerrors.ErrNoCurrentBattle
	}
	events := emitter{tx: tx, idGen: uc.IDGenerator, now: now}
	flow := newProgression(tx, events, aggregate)
	battle, ok := flow.arena.Battle(*tournament.NextBattleID)
	if !ok {
		return AdvanceBattleResult{}, fmt.Errorf("%w: next battle %d is missing", domainerrors.ErrInvariantViolation, *tournament.NextBattleID)
	}
	if !battle.Seated() {
		return AdvanceBattleResult{}, domainerrors.ErrBattleNotReady
	}

	consensus := services.ResolveConsensus(battle, votesForBattle(aggregate.Votes, battle.BattleID), len(aggregate.Judges))
	result := AdvanceBattleResult{
		TournamentID: tournament.TournamentID,
		BattleID:     battle.BattleID,
		LeftVotes:    consensus.LeftVotes,
		RightVotes:   consensus.RightVotes,
		TieVotes:     consensus.TieVotes,
	}
	switch consensus.Status {
	case services.ConsensusNotReady:
		return AdvanceBattleResult{}, domainerrors.ErrVotesIncomplete
	case services.ConsensusTie:
		if err := tx.DeleteBattleVotes(ctx, battle.BattleID); err != nil {
			return AdvanceBattleResult{}, err
		}
		if err := events.emit(ctx, EventRevoteRequired, tournament.TournamentID, map[string]any{
			"battle_id":   battle.BattleID,
			"left_votes":  consensus.LeftVotes,
			"right_votes": consensus.RightVotes,
			"tie_votes":   consensus.TieVotes,
		}); err != nil {
			return AdvanceBattleResult{}, err
		}
		result.Outcome = AdvanceOutcomeRevote
		result.NextBattleID = tournament.NextBattleID
		result.State = tournament.State
		return result, nil
	}

	if err := flow.resolve(ctx, battle.BattleID, consensus.WinnerID); err != nil {
		return AdvanceBattleResult{}, err
	}
	autoResolved, err := flow.selectNext(ctx)
	if err != nil {
		return AdvanceBattleResult{}, err
	}
	if err := flow.flush(ctx); err != nil {
		return AdvanceBattleResult{}, err
	}
	result.Outcome = AdvanceOutcomeResolved
	result.WinnerID = entities.Int64Ptr(consensus.WinnerID)
	result.NextBattleID = flow.tournament.NextBattleID
	result.State = flow.tournament.State
	result.AutoResolved = autoResolved
	return result, nil
}

func (uc AdvanceBattleUseCase) ttl() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func hashAdvanceCommand(tournamentID string) string {
	raw, _ := json.Marshal(map[string]any{
		"operation":     "advance_battle",
		"tournament_id": strings.TrimSpace(tournamentID),
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

type OverrideNextBattleCommand struct {
	TournamentID string
	BattleID     int64
}

type OverrideNextBattleUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute reopens a battle: its result is undone and it becomes the current
// battle. Votes already cast on it are kept; votes on the battles it fed are
// dropped, since one of their competitors is gone. Bye battles cannot be
// reopened.
func (uc OverrideNextBattleUseCase) Execute(ctx context.Context, cmd OverrideNextBattleCommand) (entities.Tournament, error) {
	logger := application.ResolveLogger(uc.Logger)
	ctx, span := application.StartSpan(ctx, "tournament.override_next_battle", cmd.TournamentID)
	var result entities.Tournament
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		if err := requireState(aggregate.Tournament, entities.StateBattles); err != nil {
			return err
		}
		now := uc.Clock.Now().UTC()
		events := emitter{tx: tx, idGen: uc.IDGenerator, now: now}
		flow := newProgression(tx, events, aggregate)
		battle, ok := flow.arena.Battle(cmd.BattleID)
		if !ok {
			return domainerrors.ErrBattleNotFound
		}
		current := aggregate.Tournament.NextBattleID != nil && *aggregate.Tournament.NextBattleID == battle.BattleID
		if !battle.Resolved() && !current {
			return domainerrors.ErrInvalidOverride
		}
		isBye := byeLookup(aggregate.Competitors)
		for _, slot := range []*int64{battle.LeftCompetitorID, battle.RightCompetitorID} {
			if slot != nil && isBye(*slot) {
				return fmt.Errorf("%w: battle %d holds a bye", domainerrors.ErrInvalidOverride, battle.BattleID)
			}
		}
		vacated, err := flow.arena.Undo(battle.BattleID)
		if err != nil {
			return err
		}
		for _, battleID := range vacated {
			if err := tx.DeleteBattleVotes(ctx, battleID); err != nil {
				return err
			}
		}
		if err := flow.point(ctx, &battle); err != nil {
			return err
		}
		if err := flow.flush(ctx); err != nil {
			return err
		}
		result = flow.tournament
		return nil
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Tournament{}, err
	}

	logger.Info("next battle overridden",
		"event", "tournament_next_battle_overridden",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"battle_id", cmd.BattleID,
	)
	return result, nil
}

type AssignWildcardCommand struct {
	TournamentID string
	DriverID     string
	Number       int
}

type AssignWildcardUseCase struct {
	Tournaments ports.TournamentRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute registers a late entrant into the reserved slot of a WILDCARD bracket.
func (uc AssignWildcardUseCase) Execute(ctx context.Context, cmd AssignWildcardCommand) (entities.Competitor, error) {
	logger := application.ResolveLogger(uc.Logger)
	driverID := strings.TrimSpace(cmd.DriverID)
	if driverID == "" {
		return entities.Competitor{}, domainerrors.ErrInvalidInput
	}

	ctx, span := application.StartSpan(ctx, "tournament.assign_wildcard", cmd.TournamentID)
	var result entities.Competitor
	var battleID int64
	err := uc.Tournaments.WithinTournament(ctx, cmd.TournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		if aggregate.Tournament.Format != entities.FormatWildcard {
			return domainerrors.ErrWildcardUnavailable
		}
		if err := requireState(aggregate.Tournament, entities.StateBattles); err != nil {
			return err
		}
		slot, ok := services.OpenWildcardSlot(aggregate.Battles)
		if !ok {
			return domainerrors.ErrWildcardUnavailable
		}
		now := uc.Clock.Now().UTC()
		entrant, err := newEntrant(aggregate, driverID, cmd.Number, now)
		if err != nil {
			return err
		}
		result, err = tx.AddCompetitor(ctx, entrant)
		if err != nil {
			return err
		}
		if slot.LeftCompetitorID == nil {
			slot.LeftCompetitorID = entities.Int64Ptr(result.CompetitorID)
		} else {
			slot.RightCompetitorID = entities.Int64Ptr(result.CompetitorID)
		}
		battleID = slot.BattleID
		if err := tx.UpdateBattles(ctx, []entities.Battle{slot}); err != nil {
			return err
		}
		return emitter{tx: tx, idGen: uc.IDGenerator, now: now}.emit(ctx, EventWildcardAssigned, cmd.TournamentID, map[string]any{
			"battle_id":     slot.BattleID,
			"competitor_id": result.CompetitorID,
			"driver_id":     driverID,
		})
	})
	application.EndSpan(span, err)
	if err != nil {
		return entities.Competitor{}, err
	}

	logger.Info("wildcard assigned",
		"event", "tournament_wildcard_assigned",
		"module", moduleName,
		"layer", "application",
		"tournament_id", cmd.TournamentID,
		"battle_id", battleID,
		"competitor_id", result.CompetitorID,
	)
	return result, nil
}
