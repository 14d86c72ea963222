package services

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"tandem/contexts/competition/tournament-engine/domain/entities"
	domainerrors "tandem/contexts/competition/tournament-engine/domain/errors"
)

var resolvedAt = time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC)

// fourDriverArena is a STANDARD bracket: 1 (101 v 104), 2 (102 v 103),
// 3 the final and 4 the playoff.
func fourDriverArena(t *testing.T) *BattleArena {
	t.Helper()
	plan := mustBuild(t, BracketInput{Format: entities.FormatStandard, Ranked: rankedIDs(4)})
	return NewBattleArena(materialize(plan))
}

func slots(t *testing.T, arena *BattleArena, battleID int64) (*int64, *int64) {
	t.Helper()
	battle, ok := arena.Battle(battleID)
	if !ok {
		t.Fatalf("battle %d missing", battleID)
	}
	return battle.LeftCompetitorID, battle.RightCompetitorID
}

func TestApplySeatsWinnerAndLoserForward(t *testing.T) {
	arena := fourDriverArena(t)
	if err := arena.Apply(1, 101, resolvedAt); err != nil {
		t.Fatalf("apply battle 1: %v", err)
	}
	if err := arena.Apply(2, 103, resolvedAt); err != nil {
		t.Fatalf("apply battle 2: %v", err)
	}

	left, right := slots(t, arena, 3)
	if *left != 101 || *right != 103 {
		t.Fatalf("expected final 101 v 103, got %d v %d", *left, *right)
	}
	left, right = slots(t, arena, 4)
	if *left != 104 || *right != 102 {
		t.Fatalf("expected playoff 104 v 102, got %d v %d", *left, *right)
	}

	next, ok := arena.NextPending()
	if !ok || next.BattleID != 4 {
		t.Fatalf("expected the playoff to run before the final, got %+v", next)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	arena := fourDriverArena(t)
	if err := arena.Apply(1, 101, resolvedAt); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if changed := arena.Changed(); len(changed) != 3 {
		t.Fatalf("expected battle 1 and both targets changed, got %d", len(changed))
	}
	before := arena.Ordered()

	if err := arena.Apply(1, 101, resolvedAt.Add(time.Hour)); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if changed := arena.Changed(); len(changed) != 0 {
		t.Fatalf("expected no changes on re-apply, got %d", len(changed))
	}
	if !reflect.DeepEqual(before, arena.Ordered()) {
		t.Fatalf("expected arena unchanged after re-apply")
	}
}

func TestApplyRejectsDifferentWinnerAndOutsiders(t *testing.T) {
	arena := fourDriverArena(t)
	if err := arena.Apply(1, 102, resolvedAt); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for competitor outside battle, got %v", err)
	}
	if err := arena.Apply(1, 101, resolvedAt); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := arena.Apply(1, 104, resolvedAt); !errors.Is(err, domainerrors.ErrBattleAlreadyResolved) {
		t.Fatalf("expected ErrBattleAlreadyResolved, got %v", err)
	}
	if err := arena.Apply(3, 101, resolvedAt); !errors.Is(err, domainerrors.ErrBattleNotReady) {
		t.Fatalf("expected ErrBattleNotReady for half-seated final, got %v", err)
	}
	if err := arena.Apply(99, 101, resolvedAt); !errors.Is(err, domainerrors.ErrBattleNotFound) {
		t.Fatalf("expected ErrBattleNotFound, got %v", err)
	}
}

func TestApplyFullTargetIsInvariantViolation(t *testing.T) {
	arena := NewBattleArena([]entities.Battle{
		{
			BattleID:           1,
			LeftCompetitorID:   entities.Int64Ptr(1),
			RightCompetitorID:  entities.Int64Ptr(2),
			WinnerNextBattleID: entities.Int64Ptr(2),
		},
		{
			BattleID:          2,
			Round:             2,
			LeftCompetitorID:  entities.Int64Ptr(3),
			RightCompetitorID: entities.Int64Ptr(4),
		},
	})
	err := arena.Apply(1, 1, resolvedAt)
	if !errors.Is(err, domainerrors.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestUndoRestoresArena(t *testing.T) {
	arena := fourDriverArena(t)
	original := arena.Ordered()

	if err := arena.Apply(1, 104, resolvedAt); err != nil {
		t.Fatalf("apply: %v", err)
	}
	vacated, err := arena.Undo(1)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !reflect.DeepEqual(vacated, []int64{3, 4}) {
		t.Fatalf("expected the final and the playoff vacated, got %v", vacated)
	}
	if !reflect.DeepEqual(original, arena.Ordered()) {
		t.Fatalf("expected undo to restore the arena")
	}

	if err := arena.Apply(2, 102, resolvedAt); err != nil {
		t.Fatalf("apply battle 2: %v", err)
	}
	if err := arena.Apply(1, 101, resolvedAt); err != nil {
		t.Fatalf("apply battle 1: %v", err)
	}
	resolved := arena.Ordered()
	if _, err := arena.Undo(2); err != nil {
		t.Fatalf("undo battle 2: %v", err)
	}
	left, right := slots(t, arena, 3)
	if left != nil || *right != 101 {
		t.Fatalf("expected only battle 2's competitor removed from the final, got %v v %v", left, right)
	}
	if err := arena.Apply(2, 102, resolvedAt); err != nil {
		t.Fatalf("re-apply battle 2: %v", err)
	}
	if !reflect.DeepEqual(resolved, arena.Ordered()) {
		t.Fatalf("expected re-applying the same winner to restore the arena")
	}
}

func TestUndoRejectsResolvedDownstream(t *testing.T) {
	arena := fourDriverArena(t)
	for _, step := range []struct{ battle, winner int64 }{{1, 101}, {2, 102}, {4, 104}} {
		if err := arena.Apply(step.battle, step.winner, resolvedAt); err != nil {
			t.Fatalf("apply battle %d: %v", step.battle, err)
		}
	}
	if _, err := arena.Undo(1); !errors.Is(err, domainerrors.ErrDownstreamResolved) {
		t.Fatalf("expected ErrDownstreamResolved, got %v", err)
	}
	battle, _ := arena.Battle(1)
	if !battle.Resolved() {
		t.Fatalf("expected rejected undo to leave battle resolved")
	}
}

func TestNextPendingRunsUpperBeforeLowerInSameRound(t *testing.T) {
	plan := mustBuild(t, BracketInput{Format: entities.FormatDoubleElimination, Ranked: rankedIDs(4)})
	arena := NewBattleArena(materialize(plan))
	if err := arena.Apply(1, 101, resolvedAt); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := arena.Apply(2, 102, resolvedAt); err != nil {
		t.Fatalf("apply: %v", err)
	}
	next, ok := arena.NextPending()
	if !ok || next.Bracket != entities.BracketUpper || next.Round != 2 {
		t.Fatalf("expected upper final next, got %+v", next)
	}
	if !next.Seated() {
		t.Fatalf("expected upper final seated")
	}
}
