package entities

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultRating = 1000.0

// RatedBattle is one finished battle as the rating replay sees it. Loser is
// empty when the losing slot is a bye or cannot be resolved to a driver.
type RatedBattle struct {
	BattleID       int64
	TournamentID   string
	Region         string
	IsFinal        bool
	WinnerDriverID string
	LoserDriverID  string
	CreatedAt      time.Time
}

// RunningRating is a driver's rating part way through a replay.
type RunningRating struct {
	DriverID       string
	Region         string
	Value          float64
	CountedBattles int
	LastBattleAt   *time.Time
}

type RatingHistory struct {
	HistoryID    string
	DriverID     string
	Region       string
	BattleID     int64
	TournamentID string
	Before       float64
	Decayed      float64
	After        float64
	RecordedAt   time.Time
}

// DriverRating is the permanent per-region record written at batch end.
type DriverRating struct {
	DriverID     string
	Region       string
	Rating       float64
	TotalBattles int
	LastBattleAt *time.Time
	UpdatedAt    time.Time
}

type BatchReport struct {
	Region     string
	Processed  int
	Skipped    int
	Drivers    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// NormalizeRegion matches the region form stored on tournaments.
func NormalizeRegion(region string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(region))
}
