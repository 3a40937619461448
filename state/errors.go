package state

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState wraps every call made in the wrong lane phase.
	ErrInvalidState = errors.New("invalid state transition")

	ErrBettingClosed    = fmt.Errorf("%w: betting is closed", ErrInvalidState)
	ErrBetAlreadyPlaced = fmt.Errorf("%w: bet already placed on this lane", ErrInvalidState)
	ErrNoActiveBet      = fmt.Errorf("%w: no active bet to cash out", ErrInvalidState)
	ErrLaneBusy         = fmt.Errorf("%w: lane is still running", ErrInvalidState)

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("bet amount must be positive")
)
