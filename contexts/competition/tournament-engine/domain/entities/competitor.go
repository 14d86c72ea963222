package entities

import "time"

type Competitor struct {
	CompetitorID       int64
	TournamentID       string
	DriverID           string
	IsBye              bool
	QualifyingPosition *int
	Number             int
	CreatedAt          time.Time
}

type Judge struct {
	JudgeID      string
	TournamentID string
	DriverID     string
	Name         string
	CreatedAt    time.Time
}

type Lap struct {
	LapID        int64
	TournamentID string
	CompetitorID int64
	Round        int
	Penalty      float64
	CreatedAt    time.Time
}

const (
	MinLapScore = 0
	MaxLapScore = 100
)

type LapScore struct {
	JudgeID   string
	LapID     int64
	Score     float64
	UpdatedAt time.Time
}

func ValidLapScore(score float64) bool {
	return score >= MinLapScore && score <= MaxLapScore
}
