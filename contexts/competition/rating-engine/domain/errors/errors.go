package errors

import "errors"

var (
	ErrInvalidRegion       = errors.New("region is required")
	ErrBatchAlreadyRunning = errors.New("a rating batch is already running for this region")
	ErrRatingNotFound      = errors.New("driver has no rating in this region")
	ErrUnratableBattle     = errors.New("battle has no resolvable winner and loser")
	ErrLeaseLost           = errors.New("rating batch lost its region lease")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRegion)
}
