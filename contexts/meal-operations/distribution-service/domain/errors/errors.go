package errors

import "errors"

var (
	ErrStudentNotFound      = errors.New("student not found")
	ErrDistributionNotFound = errors.New("meal distribution not found")
	ErrPastDistribution     = errors.New("cannot register for past meals")
	ErrNotServingNow        = errors.New("meal not currently being served")
	ErrInvalidRound         = errors.New("invalid round")
	ErrRoundAlreadyClaimed  = errors.New("already registered for this round")
	ErrRoundsExhausted      = errors.New("all allowed rounds already taken")
	ErrUnauthenticated      = errors.New("student identity is required")
)
