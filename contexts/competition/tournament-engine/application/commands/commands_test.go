package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"tandem/contexts/competition/tournament-engine/adapters/memory"
	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
	"tandem/contexts/competition/tournament-engine/ports"
)

type fixture struct {
	store             *memory.Store
	create            CreateTournamentUseCase
	open              OpenRegistrationUseCase
	register          RegisterCompetitorUseCase
	addJudge          AddJudgeUseCase
	start             StartQualifyingUseCase
	score             SubmitLapScoreUseCase
	penalty           SetLapPenaltyUseCase
	advanceQualifying AdvanceQualifyingUseCase
	endQualifying     EndQualifyingUseCase
	vote              SubmitBattleVoteUseCase
	advance           AdvanceBattleUseCase
	override          OverrideNextBattleUseCase
	wildcard          AssignWildcardUseCase
}

func newFixture() fixture {
	store := memory.NewStore()
	return fixture{
		store:             store,
		create:            CreateTournamentUseCase{Tournaments: store, Clock: store, IDGenerator: store},
		open:              OpenRegistrationUseCase{Tournaments: store, Clock: store, IDGenerator: store},
		register:          RegisterCompetitorUseCase{Tournaments: store, Clock: store},
		addJudge:          AddJudgeUseCase{Tournaments: store, Clock: store, IDGenerator: store},
		start:             StartQualifyingUseCase{Tournaments: store, Clock: store, IDGenerator: store},
		score:             SubmitLapScoreUseCase{Tournaments: store, Clock: store},
		penalty:           SetLapPenaltyUseCase{Tournaments: store},
		advanceQualifying: AdvanceQualifyingUseCase{Tournaments: store, Clock: store},
		endQualifying:     EndQualifyingUseCase{Tournaments: store, Clock: store, IDGenerator: store},
		vote:              SubmitBattleVoteUseCase{Tournaments: store, Clock: store},
		advance:           AdvanceBattleUseCase{Tournaments: store, Clock: store, IDGenerator: store, IdempotencyTTL: time.Hour},
		override:          OverrideNextBattleUseCase{Tournaments: store, Clock: store, IDGenerator: store},
		wildcard:          AssignWildcardUseCase{Tournaments: store, Clock: store, IDGenerator: store},
	}
}

type event struct {
	tournamentID string
	competitors  []entities.Competitor
	judges       []string
}

// qualify creates a tournament, registers drivers and judges and starts
// qualifying. Drivers register in seed order.
func (f fixture) qualify(t *testing.T, cmd CreateTournamentCommand, drivers int, judges int) event {
	t.Helper()
	ctx := context.Background()
	if cmd.Name == "" {
		cmd.Name = "Summer Series Round 1"
	}
	if cmd.Region == "" {
		cmd.Region = "eu-west"
	}
	if cmd.QualifyingLaps == 0 {
		cmd.QualifyingLaps = 1
	}
	tournament, err := f.create.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	if _, err := f.open.Execute(ctx, tournament.TournamentID); err != nil {
		t.Fatalf("open registration: %v", err)
	}
	out := event{tournamentID: tournament.TournamentID}
	for i := 0; i < drivers; i++ {
		competitor, err := f.register.Execute(ctx, RegisterCompetitorCommand{
			TournamentID: tournament.TournamentID,
			DriverID:     fmt.Sprintf("driver-%d", i+1),
		})
		if err != nil {
			t.Fatalf("register driver %d: %v", i+1, err)
		}
		out.competitors = append(out.competitors, competitor)
	}
	for i := 0; i < judges; i++ {
		judge, err := f.addJudge.Execute(ctx, AddJudgeCommand{
			TournamentID: tournament.TournamentID,
			Name:         fmt.Sprintf("Judge %d", i+1),
		})
		if err != nil {
			t.Fatalf("add judge %d: %v", i+1, err)
		}
		out.judges = append(out.judges, judge.JudgeID)
	}
	if _, err := f.start.Execute(ctx, tournament.TournamentID); err != nil {
		t.Fatalf("start qualifying: %v", err)
	}
	return out
}

// scoreAll has every judge score every lap; earlier registrations score higher.
func (f fixture) scoreAll(t *testing.T, ev event) {
	t.Helper()
	ctx := context.Background()
	index := make(map[int64]int, len(ev.competitors))
	for i, competitor := range ev.competitors {
		index[competitor.CompetitorID] = i
	}
	aggregate := f.aggregate(t, ev.tournamentID)
	for _, lap := range aggregate.Laps {
		for _, judgeID := range ev.judges {
			_, err := f.score.Execute(ctx, SubmitLapScoreCommand{
				TournamentID: ev.tournamentID,
				JudgeID:      judgeID,
				LapID:        lap.LapID,
				Score:        float64(90 - 5*index[lap.CompetitorID]),
			})
			if err != nil {
				t.Fatalf("score lap %d: %v", lap.LapID, err)
			}
		}
	}
}

func (f fixture) aggregate(t *testing.T, tournamentID string) ports.TournamentAggregate {
	t.Helper()
	aggregate, err := f.store.GetTournamentAggregate(context.Background(), tournamentID)
	if err != nil {
		t.Fatalf("load tournament: %v", err)
	}
	return aggregate
}

func (f fixture) current(t *testing.T, tournamentID string) entities.Battle {
	t.Helper()
	aggregate := f.aggregate(t, tournamentID)
	if aggregate.Tournament.NextBattleID == nil {
		t.Fatalf("expected a current battle")
	}
	for _, battle := range aggregate.Battles {
		if battle.BattleID == *aggregate.Tournament.NextBattleID {
			return battle
		}
	}
	t.Fatalf("current battle %d missing", *aggregate.Tournament.NextBattleID)
	return entities.Battle{}
}

// decide has every judge vote for one side of the current battle and advances.
func (f fixture) decide(t *testing.T, ev event, left bool) AdvanceBattleResult {
	t.Helper()
	battle := f.current(t, ev.tournamentID)
	pick := battle.RightCompetitorID
	if left {
		pick = battle.LeftCompetitorID
	}
	f.castVotes(t, ev, battle.BattleID, pick)
	result, err := f.advance.Execute(context.Background(), AdvanceBattleCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("advance battle %d: %v", battle.BattleID, err)
	}
	return result
}

func (f fixture) castVotes(t *testing.T, ev event, battleID int64, pick *int64) {
	t.Helper()
	for _, judgeID := range ev.judges {
		_, err := f.vote.Execute(context.Background(), SubmitBattleVoteCommand{
			TournamentID: ev.tournamentID,
			JudgeID:      judgeID,
			BattleID:     battleID,
			CompetitorID: pick,
		})
		if err != nil {
			t.Fatalf("vote on battle %d: %v", battleID, err)
		}
	}
}

func (f fixture) outboxTypes(t *testing.T) map[string]int {
	t.Helper()
	pending, err := f.store.ListPendingOutbox(context.Background(), 1000)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	counts := make(map[string]int)
	for _, row := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &envelope); err != nil {
			t.Fatalf("decode outbox row: %v", err)
		}
		counts[envelope.EventType]++
	}
	return counts
}

func TestStandardTournamentRunsToCompletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 3)
	f.scoreAll(t, ev)

	ended, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	if ended.Tournament.State != entities.StateBattles || ended.BracketSize != 4 {
		t.Fatalf("expected battles with a 4 slot bracket, got %s size=%d", ended.Tournament.State, ended.BracketSize)
	}
	for i, entry := range ended.Ranking {
		if entry.CompetitorID != ev.competitors[i].CompetitorID {
			t.Fatalf("rank %d: expected competitor %d, got %d", i+1, ev.competitors[i].CompetitorID, entry.CompetitorID)
		}
	}

	c := ev.competitors
	opening := f.current(t, ev.tournamentID)
	if *opening.LeftCompetitorID != c[0].CompetitorID || *opening.RightCompetitorID != c[3].CompetitorID {
		t.Fatalf("expected seed 1 v seed 4 first, got %d v %d", *opening.LeftCompetitorID, *opening.RightCompetitorID)
	}

	f.decide(t, ev, true)  // c0 beats c3
	f.decide(t, ev, true)  // c1 beats c2
	playoff := f.current(t, ev.tournamentID)
	if playoff.Round != entities.RoundPlayoff {
		t.Fatalf("expected the playoff before the final, got round %d", playoff.Round)
	}
	f.decide(t, ev, true) // c3 beats c2 for third
	final := f.current(t, ev.tournamentID)
	if final.Round != entities.RoundGrandFinal || *final.LeftCompetitorID != c[0].CompetitorID || *final.RightCompetitorID != c[1].CompetitorID {
		t.Fatalf("expected final c0 v c1, got %+v", final)
	}
	last := f.decide(t, ev, true)
	if last.State != entities.StateEnd || last.NextBattleID != nil {
		t.Fatalf("expected tournament to end, got %+v", last)
	}

	aggregate := f.aggregate(t, ev.tournamentID)
	if aggregate.Tournament.State != entities.StateEnd || aggregate.Tournament.NextBattleID != nil {
		t.Fatalf("expected END with no next battle, got %+v", aggregate.Tournament)
	}
	for _, competitor := range aggregate.Competitors {
		if competitor.QualifyingPosition == nil {
			t.Fatalf("expected competitor %d to have a qualifying position", competitor.CompetitorID)
		}
	}
	events := f.outboxTypes(t)
	if events[EventTournamentComplete] != 1 || events[EventBattleResolved] != 4 {
		t.Fatalf("unexpected outbox events: %v", events)
	}

	if _, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID}); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after the end, got %v", err)
	}
}

func TestTieClearsVotesAndRequestsRevote(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 2)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}

	battle := f.current(t, ev.tournamentID)
	if _, err := f.vote.Execute(ctx, SubmitBattleVoteCommand{
		TournamentID: ev.tournamentID, JudgeID: ev.judges[0], BattleID: battle.BattleID, CompetitorID: battle.LeftCompetitorID,
	}); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID}); !errors.Is(err, domainerrors.ErrVotesIncomplete) {
		t.Fatalf("expected ErrVotesIncomplete, got %v", err)
	}
	if _, err := f.vote.Execute(ctx, SubmitBattleVoteCommand{
		TournamentID: ev.tournamentID, JudgeID: ev.judges[1], BattleID: battle.BattleID,
	}); err != nil {
		t.Fatalf("tie vote: %v", err)
	}

	result, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Outcome != AdvanceOutcomeRevote || result.LeftVotes != 1 || result.TieVotes != 1 {
		t.Fatalf("expected revote with 1 left and 1 tie vote, got %+v", result)
	}
	aggregate := f.aggregate(t, ev.tournamentID)
	if len(aggregate.Votes) != 0 {
		t.Fatalf("expected votes cleared, got %d", len(aggregate.Votes))
	}
	if *aggregate.Tournament.NextBattleID != battle.BattleID {
		t.Fatalf("expected the same battle to stay current")
	}
	if f.outboxTypes(t)[EventRevoteRequired] != 1 {
		t.Fatalf("expected a revote event")
	}
}

func TestVotesOnlyOnCurrentSeatedBattle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 1)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	current := f.current(t, ev.tournamentID)
	other := current.BattleID + 1

	_, err := f.vote.Execute(ctx, SubmitBattleVoteCommand{
		TournamentID: ev.tournamentID, JudgeID: ev.judges[0], BattleID: other, CompetitorID: entities.Int64Ptr(ev.competitors[1].CompetitorID),
	})
	if !errors.Is(err, domainerrors.ErrBattleNotCurrent) {
		t.Fatalf("expected ErrBattleNotCurrent, got %v", err)
	}
	_, err = f.vote.Execute(ctx, SubmitBattleVoteCommand{
		TournamentID: ev.tournamentID, JudgeID: ev.judges[0], BattleID: current.BattleID, CompetitorID: entities.Int64Ptr(ev.competitors[1].CompetitorID),
	})
	if !errors.Is(err, domainerrors.ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote for a competitor outside the battle, got %v", err)
	}
	_, err = f.vote.Execute(ctx, SubmitBattleVoteCommand{
		TournamentID: ev.tournamentID, JudgeID: "stranger", BattleID: current.BattleID,
	})
	if !errors.Is(err, domainerrors.ErrJudgeNotFound) {
		t.Fatalf("expected ErrJudgeNotFound, got %v", err)
	}
}

func TestByeBattleAutoResolvesWithoutVotes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard, FullInclusion: true}, 3, 1)
	f.scoreAll(t, ev)

	ended, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	if ended.ByeCount != 1 || len(ended.AutoResolved) != 1 {
		t.Fatalf("expected one bye auto-resolved, got byes=%d auto=%v", ended.ByeCount, ended.AutoResolved)
	}

	aggregate := f.aggregate(t, ev.tournamentID)
	if len(aggregate.Votes) != 0 {
		t.Fatalf("expected no votes, got %d", len(aggregate.Votes))
	}
	var byeBattle entities.Battle
	for _, battle := range aggregate.Battles {
		if battle.BattleID == ended.AutoResolved[0] {
			byeBattle = battle
		}
	}
	if byeBattle.WinnerID == nil || *byeBattle.WinnerID != ev.competitors[0].CompetitorID {
		t.Fatalf("expected top seed to win the bye, got %+v", byeBattle)
	}

	current := f.current(t, ev.tournamentID)
	if *current.LeftCompetitorID != ev.competitors[1].CompetitorID || *current.RightCompetitorID != ev.competitors[2].CompetitorID {
		t.Fatalf("expected seeds 2 and 3 to battle next")
	}

	// the bye loser drops into the playoff, which resolves on its own
	f.decide(t, ev, true)
	final := f.current(t, ev.tournamentID)
	if final.Round != entities.RoundGrandFinal {
		t.Fatalf("expected the playoff against a bye to be skipped, got round %d", final.Round)
	}
}

func TestAdvanceBattleReplaysIdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 1)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	battle := f.current(t, ev.tournamentID)
	f.castVotes(t, ev, battle.BattleID, battle.LeftCompetitorID)

	cmd := AdvanceBattleCommand{TournamentID: ev.tournamentID, IdempotencyKey: "advance-1"}
	first, err := f.advance.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	second, err := f.advance.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if !second.Replayed || second.BattleID != first.BattleID || *second.NextBattleID != *first.NextBattleID {
		t.Fatalf("expected replay of the first result, got %+v", second)
	}
	if next := f.current(t, ev.tournamentID); next.BattleID != *first.NextBattleID || next.Resolved() {
		t.Fatalf("expected the replay not to advance again")
	}

	other := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 1)
	f.scoreAll(t, other)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: other.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	_, err = f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: other.tournamentID, IdempotencyKey: "advance-1"})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
}

func TestOverrideNextBattleUndoesAndReplaysResult(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 1)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	first := f.current(t, ev.tournamentID)
	f.decide(t, ev, true)
	f.decide(t, ev, true)
	before := f.aggregate(t, ev.tournamentID)
	playoff := f.current(t, ev.tournamentID)

	var final entities.Battle
	for _, battle := range before.Battles {
		if battle.Round == entities.RoundGrandFinal {
			final = battle
		}
	}
	if _, err := f.override.Execute(ctx, OverrideNextBattleCommand{TournamentID: ev.tournamentID, BattleID: final.BattleID}); !errors.Is(err, domainerrors.ErrInvalidOverride) {
		t.Fatalf("expected ErrInvalidOverride for a future battle, got %v", err)
	}

	tournament, err := f.override.Execute(ctx, OverrideNextBattleCommand{TournamentID: ev.tournamentID, BattleID: first.BattleID})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if *tournament.NextBattleID != first.BattleID || tournament.State != entities.StateBattles {
		t.Fatalf("expected battle %d current again, got %+v", first.BattleID, tournament)
	}
	reopened := f.current(t, ev.tournamentID)
	if reopened.Resolved() {
		t.Fatalf("expected the overridden battle to be unresolved")
	}

	// votes were kept, so advancing restores the original result
	result, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("advance after override: %v", err)
	}
	if *result.WinnerID != *first.LeftCompetitorID || *result.NextBattleID != playoff.BattleID {
		t.Fatalf("expected the original winner and the playoff next, got %+v", result)
	}
	after := f.aggregate(t, ev.tournamentID)
	for i := range before.Battles {
		b, a := before.Battles[i], after.Battles[i]
		if !sameID(b.LeftCompetitorID, a.LeftCompetitorID) || !sameID(b.RightCompetitorID, a.RightCompetitorID) || !sameID(b.WinnerID, a.WinnerID) {
			t.Fatalf("battle %d differs after override and replay: %+v vs %+v", b.BattleID, b, a)
		}
	}

	f.decide(t, ev, true)
	_, err = f.override.Execute(ctx, OverrideNextBattleCommand{TournamentID: ev.tournamentID, BattleID: first.BattleID})
	if !errors.Is(err, domainerrors.ErrDownstreamResolved) {
		t.Fatalf("expected ErrDownstreamResolved once the playoff is decided, got %v", err)
	}
}

func TestEndQualifyingRequiresEveryLapUnlessForced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard, QualifyingLaps: 2}, 4, 1)

	_, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID})
	if !errors.Is(err, domainerrors.ErrQualifyingIncomplete) {
		t.Fatalf("expected ErrQualifyingIncomplete, got %v", err)
	}
	aggregate := f.aggregate(t, ev.tournamentID)
	if aggregate.Tournament.State != entities.StateQualifying || len(aggregate.Battles) != 0 {
		t.Fatalf("expected nothing written by the rejected end")
	}

	ended, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID, Force: true})
	if err != nil {
		t.Fatalf("forced end: %v", err)
	}
	if ended.Tournament.NextQualifyingLapID != nil || ended.Tournament.NextBattleID == nil {
		t.Fatalf("expected lap pointer cleared and a battle selected, got %+v", ended.Tournament)
	}
}

func TestLapScoresMoveNextLapPointer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard, QualifyingLaps: 2}, 4, 2)
	aggregate := f.aggregate(t, ev.tournamentID)
	first := *aggregate.Tournament.NextQualifyingLapID

	if _, err := f.score.Execute(ctx, SubmitLapScoreCommand{TournamentID: ev.tournamentID, JudgeID: ev.judges[0], LapID: first, Score: 101}); !errors.Is(err, domainerrors.ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore, got %v", err)
	}
	partial, err := f.score.Execute(ctx, SubmitLapScoreCommand{TournamentID: ev.tournamentID, JudgeID: ev.judges[0], LapID: first, Score: 70})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if partial.Complete || *partial.NextQualifyingLapID != first {
		t.Fatalf("expected lap incomplete after one of two judges, got %+v", partial)
	}
	if _, err := f.penalty.Execute(ctx, SetLapPenaltyCommand{TournamentID: ev.tournamentID, LapID: first, Penalty: 10}); err != nil {
		t.Fatalf("penalty: %v", err)
	}
	done, err := f.score.Execute(ctx, SubmitLapScoreCommand{TournamentID: ev.tournamentID, JudgeID: ev.judges[1], LapID: first, Score: 80})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !done.Complete || done.Total != 140 {
		t.Fatalf("expected complete lap totalling 140, got %+v", done)
	}
	if done.NextQualifyingLapID == nil || *done.NextQualifyingLapID == first {
		t.Fatalf("expected the pointer to move on, got %v", done.NextQualifyingLapID)
	}

	next, err := f.advanceQualifying.Execute(ctx, ev.tournamentID)
	if err != nil {
		t.Fatalf("advance qualifying: %v", err)
	}
	if *next != *done.NextQualifyingLapID {
		t.Fatalf("expected advance to agree with the score pointer")
	}
}

func TestStartQualifyingGuards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.create.Execute(ctx, CreateTournamentCommand{
		Name: "Night Cup", Region: "us-east", Format: entities.FormatStandard, QualifyingLaps: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.start.Execute(ctx, tournament.TournamentID); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from START, got %v", err)
	}
	if _, err := f.open.Execute(ctx, tournament.TournamentID); err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.register.Execute(ctx, RegisterCompetitorCommand{TournamentID: tournament.TournamentID, DriverID: fmt.Sprintf("d-%d", i)}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if _, err := f.register.Execute(ctx, RegisterCompetitorCommand{TournamentID: tournament.TournamentID, DriverID: "d-0"}); !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := f.start.Execute(ctx, tournament.TournamentID); !errors.Is(err, domainerrors.ErrInsufficientJudges) {
		t.Fatalf("expected ErrInsufficientJudges, got %v", err)
	}
	if _, err := f.addJudge.Execute(ctx, AddJudgeCommand{TournamentID: tournament.TournamentID, Name: "Judge"}); err != nil {
		t.Fatalf("add judge: %v", err)
	}
	if _, err := f.start.Execute(ctx, tournament.TournamentID); !errors.Is(err, domainerrors.ErrInsufficientCompetitors) {
		t.Fatalf("expected ErrInsufficientCompetitors, got %v", err)
	}
	if tournament.Region != "US-EAST" {
		t.Fatalf("expected normalized region, got %q", tournament.Region)
	}
}

func TestDriftWarsLadder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatDriftWars}, 3, 1)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	c := ev.competitors

	opening := f.current(t, ev.tournamentID)
	if *opening.LeftCompetitorID != c[1].CompetitorID || *opening.RightCompetitorID != c[2].CompetitorID {
		t.Fatalf("expected the two lowest qualifiers to open")
	}
	result := f.decide(t, ev, false) // c2 climbs
	if result.NextBattleID == nil {
		t.Fatalf("expected a ladder battle against the top qualifier")
	}
	climb := f.current(t, ev.tournamentID)
	if climb.Round != 2 || *climb.LeftCompetitorID != c[2].CompetitorID || *climb.RightCompetitorID != c[0].CompetitorID {
		t.Fatalf("expected c2 v c0 in round 2, got %+v", climb)
	}
	last := f.decide(t, ev, true)
	if last.State != entities.StateEnd {
		t.Fatalf("expected the ladder to finish, got %+v", last)
	}
	if n := len(f.aggregate(t, ev.tournamentID).Battles); n != 2 {
		t.Fatalf("expected 2 ladder battles, got %d", n)
	}
}

func TestAssignWildcardFillsReservedSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatWildcard, FullInclusion: true}, 3, 1)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	if _, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID}); !errors.Is(err, domainerrors.ErrBattleNotReady) {
		t.Fatalf("expected ErrBattleNotReady before the wildcard arrives, got %v", err)
	}

	entrant, err := f.wildcard.Execute(ctx, AssignWildcardCommand{TournamentID: ev.tournamentID, DriverID: "late-driver"})
	if err != nil {
		t.Fatalf("assign wildcard: %v", err)
	}
	current := f.current(t, ev.tournamentID)
	if *current.LeftCompetitorID != ev.competitors[0].CompetitorID || *current.RightCompetitorID != entrant.CompetitorID {
		t.Fatalf("expected top seed to face the wildcard, got %+v", current)
	}
	if _, err := f.wildcard.Execute(ctx, AssignWildcardCommand{TournamentID: ev.tournamentID, DriverID: "later-driver"}); !errors.Is(err, domainerrors.ErrWildcardUnavailable) {
		t.Fatalf("expected ErrWildcardUnavailable once filled, got %v", err)
	}
	result := f.decide(t, ev, false)
	if *result.WinnerID != entrant.CompetitorID {
		t.Fatalf("expected the wildcard to win, got %+v", result)
	}
}

func TestByeBattlesCannotBeReopenedOrVotedFor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard, FullInclusion: true}, 3, 1)
	f.scoreAll(t, ev)
	ended, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	byeBattleID := ended.AutoResolved[0]
	current := f.current(t, ev.tournamentID)

	_, err = f.override.Execute(ctx, OverrideNextBattleCommand{TournamentID: ev.tournamentID, BattleID: byeBattleID})
	if !errors.Is(err, domainerrors.ErrInvalidOverride) {
		t.Fatalf("expected ErrInvalidOverride for a bye battle, got %v", err)
	}
	aggregate := f.aggregate(t, ev.tournamentID)
	if *aggregate.Tournament.NextBattleID != current.BattleID {
		t.Fatalf("expected the rejected override to keep battle %d current", current.BattleID)
	}
	var byeID int64
	for _, competitor := range aggregate.Competitors {
		if competitor.IsBye {
			byeID = competitor.CompetitorID
		}
	}

	// a store written before bye battles were protected can still point at one
	err = f.store.WithinTournament(ctx, ev.tournamentID, func(ctx context.Context, tx ports.TournamentTx, aggregate ports.TournamentAggregate) error {
		tournament := aggregate.Tournament
		tournament.NextBattleID = entities.Int64Ptr(byeBattleID)
		return tx.SaveTournament(ctx, tournament)
	})
	if err != nil {
		t.Fatalf("point at bye battle: %v", err)
	}
	_, err = f.vote.Execute(ctx, SubmitBattleVoteCommand{
		TournamentID: ev.tournamentID, JudgeID: ev.judges[0], BattleID: byeBattleID, CompetitorID: entities.Int64Ptr(byeID),
	})
	if !errors.Is(err, domainerrors.ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote for the bye competitor, got %v", err)
	}
	if votes := votesForBattle(f.aggregate(t, ev.tournamentID).Votes, byeBattleID); len(votes) != 0 {
		t.Fatalf("expected no votes on the bye battle, got %d", len(votes))
	}
}

func TestOverrideDropsVotesOnBattlesItFed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatStandard}, 4, 1)
	f.scoreAll(t, ev)
	if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
		t.Fatalf("end qualifying: %v", err)
	}
	c := ev.competitors
	first := f.current(t, ev.tournamentID)
	f.decide(t, ev, true) // c0 beats c3
	f.decide(t, ev, true) // c1 beats c2
	playoff := f.current(t, ev.tournamentID)
	f.castVotes(t, ev, playoff.BattleID, entities.Int64Ptr(c[3].CompetitorID))

	if _, err := f.override.Execute(ctx, OverrideNextBattleCommand{TournamentID: ev.tournamentID, BattleID: first.BattleID}); err != nil {
		t.Fatalf("override: %v", err)
	}
	aggregate := f.aggregate(t, ev.tournamentID)
	if votes := votesForBattle(aggregate.Votes, playoff.BattleID); len(votes) != 0 {
		t.Fatalf("expected votes on the vacated playoff dropped, got %d", len(votes))
	}
	if votes := votesForBattle(aggregate.Votes, first.BattleID); len(votes) != 1 {
		t.Fatalf("expected votes on the reopened battle kept, got %d", len(votes))
	}

	f.castVotes(t, ev, first.BattleID, entities.Int64Ptr(c[3].CompetitorID))
	result, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID})
	if err != nil {
		t.Fatalf("advance reopened battle: %v", err)
	}
	if *result.WinnerID != c[3].CompetitorID || *result.NextBattleID != playoff.BattleID {
		t.Fatalf("expected c3 to win and the playoff next, got %+v", result)
	}
	if _, err := f.advance.Execute(ctx, AdvanceBattleCommand{TournamentID: ev.tournamentID}); !errors.Is(err, domainerrors.ErrVotesIncomplete) {
		t.Fatalf("expected the playoff to wait for fresh votes, got %v", err)
	}
}

func TestDoubleEliminationRunsToCompletion(t *testing.T) {
	cases := []struct {
		drivers       int
		fullInclusion bool
	}{
		{drivers: 4},
		{drivers: 5, fullInclusion: true},
		{drivers: 6, fullInclusion: true},
		{drivers: 6},
		{drivers: 8},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_drivers_full_%v", tc.drivers, tc.fullInclusion), func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			ev := f.qualify(t, CreateTournamentCommand{Format: entities.FormatDoubleElimination, FullInclusion: tc.fullInclusion}, tc.drivers, 2)
			f.scoreAll(t, ev)
			if _, err := f.endQualifying.Execute(ctx, EndQualifyingCommand{TournamentID: ev.tournamentID}); err != nil {
				t.Fatalf("end qualifying: %v", err)
			}

			for step := 0; ; step++ {
				if step > 64 {
					t.Fatalf("tournament did not end")
				}
				if f.aggregate(t, ev.tournamentID).Tournament.State == entities.StateEnd {
					break
				}
				f.decide(t, ev, step%3 != 0)
			}

			aggregate := f.aggregate(t, ev.tournamentID)
			if aggregate.Tournament.NextBattleID != nil {
				t.Fatalf("expected no next battle after the end")
			}
			isBye := byeLookup(aggregate.Competitors)
			for _, battle := range aggregate.Battles {
				if !battle.Resolved() {
					t.Fatalf("expected battle %d resolved", battle.BattleID)
				}
				left, right := isBye(*battle.LeftCompetitorID), isBye(*battle.RightCompetitorID)
				if isBye(*battle.WinnerID) && !(left && right) {
					t.Fatalf("expected no bye to beat a driver in battle %d", battle.BattleID)
				}
				holdsBye := left || right
				if votes := votesForBattle(aggregate.Votes, battle.BattleID); holdsBye && len(votes) != 0 {
					t.Fatalf("expected no votes on bye battle %d, got %d", battle.BattleID, len(votes))
				}
			}
			if events := f.outboxTypes(t); events[EventTournamentComplete] != 1 {
				t.Fatalf("expected one completion event, got %v", events)
			}
		})
	}
}
