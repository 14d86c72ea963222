package entities

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Format string

const (
	FormatStandard          Format = "STANDARD"
	FormatDoubleElimination Format = "DOUBLE_ELIMINATION"
	FormatDriftWars         Format = "DRIFT_WARS"
	FormatWildcard          Format = "WILDCARD"
)

func (f Format) Valid() bool {
	switch f {
	case FormatStandard, FormatDoubleElimination, FormatDriftWars, FormatWildcard:
		return true
	default:
		return false
	}
}

// MinimumCompetitors is the smallest field the bracket builder accepts.
func (f Format) MinimumCompetitors(fullInclusion bool) int {
	if fullInclusion || f == FormatDriftWars {
		return 2
	}
	return 4
}

type State string

const (
	StateStart        State = "START"
	StateRegistration State = "REGISTRATION"
	StateQualifying   State = "QUALIFYING"
	StateBattles      State = "BATTLES"
	StateEnd          State = "END"
)

var stateOrder = map[State]int{
	StateStart:        0,
	StateRegistration: 1,
	StateQualifying:   2,
	StateBattles:      3,
	StateEnd:          4,
}

// CanTransition reports whether to is the direct successor of s. The only
// exception is BATTLES -> END being reachable from QUALIFYING when ending
// qualifying leaves no battle to run.
func (s State) CanTransition(to State) bool {
	from, ok := stateOrder[s]
	if !ok {
		return false
	}
	next, ok := stateOrder[to]
	if !ok {
		return false
	}
	if s == StateQualifying && to == StateEnd {
		return true
	}
	return next == from+1
}

type ScoreFormula string

const (
	ScoreFormulaCumulative ScoreFormula = "CUMULATIVE"
	ScoreFormulaAverage    ScoreFormula = "AVERAGE"
)

func (f ScoreFormula) Valid() bool {
	return f == ScoreFormulaCumulative || f == ScoreFormulaAverage
}

// Minimum is the floor applied to a lap total after the penalty.
func (f ScoreFormula) Minimum() float64 {
	return 0
}

// Numbering selects how competitor display numbers are assigned.
type Numbering string

const (
	NumberingNone       Numbering = "NONE"
	NumberingGlobal     Numbering = "GLOBAL"
	NumberingSequential Numbering = "SEQUENTIAL"
)

func (n Numbering) Valid() bool {
	switch n {
	case NumberingNone, NumberingGlobal, NumberingSequential:
		return true
	default:
		return false
	}
}

type Tournament struct {
	TournamentID        string
	Name                string
	Region              string
	Format              Format
	State               State
	QualifyingLaps      int
	ScoreFormula        ScoreFormula
	BracketSize         int
	FullInclusion       bool
	IsFinal             bool
	Numbering           Numbering
	NextQualifyingLapID *int64
	NextBattleID        *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (t Tournament) AcceptsEntries() bool {
	return t.State == StateStart || t.State == StateRegistration
}

// NormalizeRegion makes region codes comparable across tournaments and the
// rating tables, so "eu-west" and "EU-West" share one rating pool. A Caser
// keeps state, so each call gets its own.
func NormalizeRegion(region string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(region))
}
