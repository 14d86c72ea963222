package services

import (
	"errors"
	"math"
	"testing"
	"time"

	"tandem/contexts/competition/rating-engine/domain/entities"
	domainerrors "tandem/contexts/competition/rating-engine/domain/errors"
)

func near(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExchangeBetweenUnratedDrivers(t *testing.T) {
	kw, kl := KFactors(0, false)
	winner, loser := Exchange(entities.DefaultRating, entities.DefaultRating, kw, kl)
	if !near(winner, 1032) || !near(loser, 984) {
		t.Fatalf("expected 1032/984, got %v/%v", winner, loser)
	}
}

func TestKFactors(t *testing.T) {
	cases := []struct {
		counted int
		final   bool
		kw      float64
	}{
		{0, false, 64},
		{4, false, 64},
		{5, false, 32},
		{12, false, 32},
		{0, true, 128},
		{7, true, 64},
	}
	for _, tc := range cases {
		kw, kl := KFactors(tc.counted, tc.final)
		if kw != tc.kw || kl != 32 {
			t.Fatalf("counted=%d final=%v: expected kw=%v kl=32, got %v/%v", tc.counted, tc.final, tc.kw, kw, kl)
		}
	}
}

func TestExpectedScoreIsSymmetric(t *testing.T) {
	a := ExpectedScore(1200, 1000)
	b := ExpectedScore(1000, 1200)
	if !near(a+b, 1) || a <= 0.5 {
		t.Fatalf("expected favourite above 0.5 and sum 1, got %v and %v", a, b)
	}
}

func TestDecayPolicy(t *testing.T) {
	policy := DecayPolicy{Grace: 10 * 24 * time.Hour, PerDay: 2}
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := policy.Apply(1000, nil, last); got != 1000 {
		t.Fatalf("expected no decay without history, got %v", got)
	}
	if got := policy.Apply(1000, &last, last.Add(10*24*time.Hour)); got != 1000 {
		t.Fatalf("expected no decay inside grace, got %v", got)
	}
	if got := policy.Apply(1000, &last, last.Add(15*24*time.Hour+time.Hour)); got != 990 {
		t.Fatalf("expected 5 days of decay, got %v", got)
	}
	if got := policy.Apply(5, &last, last.Add(400*24*time.Hour)); got != 0 {
		t.Fatalf("expected floor at zero, got %v", got)
	}

	previous := 1000.0
	for days := 0; days < 60; days++ {
		got := policy.Apply(1000, &last, last.Add(time.Duration(days)*24*time.Hour))
		if got > previous {
			t.Fatalf("decay must not increase with time: day %d gave %v after %v", days, got, previous)
		}
		previous = got
	}
}

func TestLedgerUsesRunningRatings(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger("EU", DecayPolicy{})
	battles := []entities.RatedBattle{
		{BattleID: 2, WinnerDriverID: "a", LoserDriverID: "c", CreatedAt: base},
		{BattleID: 1, WinnerDriverID: "a", LoserDriverID: "b", CreatedAt: base},
	}
	SortBattles(battles)
	if battles[0].BattleID != 1 {
		t.Fatalf("expected id tie-break, got %d first", battles[0].BattleID)
	}

	first, err := ledger.Apply(battles[0])
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	second, err := ledger.Apply(battles[1])
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !near(first.Winner.After, 1032) || !near(second.Winner.Before, 1032) {
		t.Fatalf("expected the second step to start from 1032, got %v", second.Winner.Before)
	}
	if second.Winner.After-second.Winner.Before >= 32 {
		t.Fatalf("expected a smaller gain as favourite, got %v", second.Winner.After-second.Winner.Before)
	}
	a, _ := ledger.Rating("a")
	if a.CountedBattles != 2 || a.LastBattleAt == nil {
		t.Fatalf("expected two counted battles for a, got %+v", a)
	}
	if got := len(ledger.Ratings()); got != 3 {
		t.Fatalf("expected 3 drivers, got %d", got)
	}
}

func TestLedgerRejectsUnresolvableBattle(t *testing.T) {
	ledger := NewLedger("EU", DefaultDecayPolicy())
	_, err := ledger.Apply(entities.RatedBattle{BattleID: 9, WinnerDriverID: "a"})
	if !errors.Is(err, domainerrors.ErrUnratableBattle) {
		t.Fatalf("expected ErrUnratableBattle, got %v", err)
	}
	if len(ledger.Ratings()) != 0 {
		t.Fatalf("expected a skipped battle to leave no ratings")
	}
}
