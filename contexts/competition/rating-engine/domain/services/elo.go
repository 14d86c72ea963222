package services

import (
	"math"
	"time"
)

const (
	NewcomerBattles = 5
	NewcomerK       = 64.0
	StandardK       = 32.0
	LoserK          = 32.0
)

// ExpectedScore is the logistic Elo expectation of self against opp.
func ExpectedScore(self float64, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-self)/400))
}

// KFactors returns the winner and loser K for one battle. Winners speed up
// over their first counted battles and double in a final.
func KFactors(winnerCounted int, isFinal bool) (float64, float64) {
	kw := StandardK
	if winnerCounted < NewcomerBattles {
		kw = NewcomerK
	}
	if isFinal {
		kw *= 2
	}
	return kw, LoserK
}

// Exchange applies one result. The loser's change is scaled by the winner's
// surprise, so the loser can fall even when heavily favoured to lose.
func Exchange(winner float64, loser float64, kw float64, kl float64) (float64, float64) {
	expected := ExpectedScore(winner, loser)
	return winner + kw*(1-expected), loser + kl*(0-(1-expected))
}

// DecayPolicy takes PerDay points for every whole day of inactivity past
// Grace. The result never drops below zero.
type DecayPolicy struct {
	Grace  time.Duration
	PerDay float64
}

func DefaultDecayPolicy() DecayPolicy {
	return DecayPolicy{Grace: 60 * 24 * time.Hour, PerDay: 1}
}

func (p DecayPolicy) Apply(rating float64, lastBattleAt *time.Time, at time.Time) float64 {
	if lastBattleAt == nil || p.PerDay <= 0 {
		return rating
	}
	idle := at.Sub(*lastBattleAt) - p.Grace
	if idle <= 0 {
		return rating
	}
	days := math.Floor(idle.Hours() / 24)
	return math.Max(0, rating-days*p.PerDay)
}
