package registry

import (
	"errors"

	"github.com/speedrun-hq/execregistry/pkg/escrow"
)

// Stable failure reasons. The string form is part of the registry's
// contract with callers and is surfaced verbatim through the API.
var (
	// ErrTooManyInputs re-exports the escrow bound so callers can match it
	// at the registry boundary.
	ErrTooManyInputs = escrow.ErrTooManyInputs

	ErrDelayTooSmall          = errors.New("DELAY_TOO_SMALL")
	ErrNotCreator             = errors.New("NOT_CREATOR")
	ErrUnlockAlreadyScheduled = errors.New("UNLOCK_ALREADY_SCHEDULED")

	ErrRequestNotFound   = errors.New("REQUEST_NOT_FOUND")
	ErrRequestClosed     = errors.New("REQUEST_CLOSED")
	ErrRequestSuperseded = errors.New("REQUEST_SUPERSEDED")
	ErrGasPriceNotHigher = errors.New("GAS_PRICE_NOT_HIGHER")
	ErrNoUnlockScheduled = errors.New("NO_UNLOCK_SCHEDULED")
	ErrUnlockNotElapsed  = errors.New("UNLOCK_NOT_ELAPSED")
	ErrUnlockPassed      = errors.New("UNLOCK_ALREADY_PASSED")
)
