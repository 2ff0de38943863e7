package domain

import "errors"

// Validation errors
var (
	ErrMissingSessionID  = errors.New("missing-session-id")
	ErrSessionMismatch   = errors.New("session-id-mismatch")
	ErrUnknownPlayer     = errors.New("unknown-player")
	ErrDuplicateCardID   = errors.New("duplicate-card-id")
	ErrMissingCardOwner  = errors.New("missing-card-owner")
	ErrDuplicatePlayerID = errors.New("duplicate-player-id")
	ErrInvalidPhase      = errors.New("invalid-phase")
	ErrInvalidGridSize   = errors.New("invalid-grid-size")
	ErrCellOutOfBounds   = errors.New("cell-out-of-bounds")
	ErrCellOccupied      = errors.New("cell-occupied")
	ErrInvalidZone       = errors.New("invalid-zone")
	ErrMissingCardID     = errors.New("missing-card-id")
)

// Phase machine errors
var (
	ErrGameNotStarted     = errors.New("game-not-started")
	ErrGameAlreadyStarted = errors.New("game-already-started")
	ErrPhaseBoundary      = errors.New("phase-boundary")
	ErrNoActivePlayer     = errors.New("no-active-player")
	ErrNoPlayers          = errors.New("no-players")
	ErrRoundInProgress    = errors.New("round-in-progress")
	ErrMatchOver          = errors.New("match-over")
)

// Authorization errors
var (
	ErrNotHost     = errors.New("not-host")
	ErrNotSeated   = errors.New("not-seated")
	ErrInvalidSeat = errors.New("invalid-seat")
)
