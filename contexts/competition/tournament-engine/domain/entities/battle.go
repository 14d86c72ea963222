package entities

import "time"

// Sentinel rounds for battles outside the numbered elimination rounds. They
// sort after every regular round so the running order stays (round, bracket, id).
const (
	RoundPlayoff    = 1000
	RoundLowerFinal = 1001
	RoundGrandFinal = 1002
)

type Bracket int

const (
	BracketUpper Bracket = 1
	BracketLower Bracket = 2
)

func (b Bracket) String() string {
	switch b {
	case BracketUpper:
		return "UPPER"
	case BracketLower:
		return "LOWER"
	default:
		return "UNKNOWN"
	}
}

type Battle struct {
	BattleID           int64
	TournamentID       string
	Round              int
	Bracket            Bracket
	LeftCompetitorID   *int64
	RightCompetitorID  *int64
	WinnerID           *int64
	WinnerNextBattleID *int64
	LoserNextBattleID  *int64
	CreatedAt          time.Time
	ResolvedAt         *time.Time
}

func (b Battle) Resolved() bool {
	return b.WinnerID != nil
}

func (b Battle) Seated() bool {
	return b.LeftCompetitorID != nil && b.RightCompetitorID != nil
}

// Holds reports whether competitorID occupies either slot.
func (b Battle) Holds(competitorID int64) bool {
	return (b.LeftCompetitorID != nil && *b.LeftCompetitorID == competitorID) ||
		(b.RightCompetitorID != nil && *b.RightCompetitorID == competitorID)
}

// Opponent returns the competitor facing competitorID, if seated.
func (b Battle) Opponent(competitorID int64) (int64, bool) {
	switch {
	case b.LeftCompetitorID != nil && *b.LeftCompetitorID == competitorID:
		if b.RightCompetitorID == nil {
			return 0, false
		}
		return *b.RightCompetitorID, true
	case b.RightCompetitorID != nil && *b.RightCompetitorID == competitorID:
		if b.LeftCompetitorID == nil {
			return 0, false
		}
		return *b.LeftCompetitorID, true
	default:
		return 0, false
	}
}

// RunsBefore is the canonical running order: round asc, bracket asc, id asc.
func (b Battle) RunsBefore(other Battle) bool {
	if b.Round != other.Round {
		return b.Round < other.Round
	}
	if b.Bracket != other.Bracket {
		return b.Bracket < other.Bracket
	}
	return b.BattleID < other.BattleID
}

type VoteChoice string

const (
	VoteChoiceCompetitor VoteChoice = "COMPETITOR"
	VoteChoiceTie        VoteChoice = "TIE"
)

type BattleVote struct {
	JudgeID      string
	BattleID     int64
	Choice       VoteChoice
	CompetitorID *int64
	UpdatedAt    time.Time
}

func Int64Ptr(value int64) *int64 {
	return &value
}
