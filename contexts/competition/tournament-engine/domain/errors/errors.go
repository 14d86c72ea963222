package errors

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid tournament input")
	ErrInvalidScore            = errors.New("lap score must be between 0 and 100")
	ErrInvalidVote             = errors.New("vote must select a seated competitor or a tie")
	ErrInsufficientCompetitors = errors.New("not enough competitors for this format")
	ErrInsufficientJudges      = errors.New("at least one judge is required")
	ErrInvalidTransition       = errors.New("tournament state does not allow this action")
	ErrQualifyingIncomplete    = errors.New("qualifying still has unscored laps")
	ErrVotesIncomplete         = errors.New("not every judge has voted")
	ErrBattleNotCurrent        = errors.New("battle is not the current battle")
	ErrBattleNotReady          = errors.New("battle does not have two competitors yet")
	ErrBattleAlreadyResolved   = errors.New("battle is already resolved")
	ErrDownstreamResolved      = errors.New("a battle fed by this battle is already resolved")
	ErrInvalidOverride         = errors.New("battle cannot become the next battle")
	ErrNoCurrentBattle         = errors.New("tournament has no current battle")
	ErrWildcardUnavailable     = errors.New("tournament has no open wildcard slot")
	ErrAlreadyRegistered       = errors.New("driver is already registered")
	ErrPositionAlreadyAssigned = errors.New("qualifying position is already assigned")
	ErrIdempotencyKeyRequired  = errors.New("idempotency key is required")
	ErrIdempotencyConflict     = errors.New("idempotency key conflict")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrCompetitorNotFound = errors.New("competitor not found")
	ErrLapNotFound        = errors.New("lap not found")
	ErrBattleNotFound     = errors.New("battle not found")
	ErrJudgeNotFound      = errors.New("judge not found")

	ErrConflict = errors.New("tournament write conflict")

	// ErrInvariantViolation marks states the engine must never reach. Callers
	// treat it as a bug, not as a recoverable outcome.
	ErrInvariantViolation = errors.New("tournament invariant violated")
)

var validationErrors = []error{
	ErrInvalidInput,
	ErrInvalidScore,
	ErrInvalidVote,
	ErrInsufficientCompetitors,
	ErrInsufficientJudges,
	ErrInvalidTransition,
	ErrQualifyingIncomplete,
	ErrVotesIncomplete,
	ErrBattleNotCurrent,
	ErrBattleNotReady,
	ErrBattleAlreadyResolved,
	ErrDownstreamResolved,
	ErrInvalidOverride,
	ErrNoCurrentBattle,
	ErrWildcardUnavailable,
	ErrAlreadyRegistered,
	ErrPositionAlreadyAssigned,
	ErrIdempotencyKeyRequired,
	ErrIdempotencyConflict,
}

var notFoundErrors = []error{
	ErrTournamentNotFound,
	ErrCompetitorNotFound,
	ErrLapNotFound,
	ErrBattleNotFound,
	ErrJudgeNotFound,
}

func IsValidation(err error) bool {
	return matchesAny(err, validationErrors)
}

func IsNotFound(err error) bool {
	return matchesAny(err, notFoundErrors)
}

func matchesAny(err error, targets []error) bool {
	if err == nil {
		return false
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
