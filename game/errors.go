package game

import "errors"

var (
	ErrSessionNotFound = errors.New("session-not-found")
	ErrSessionFull     = errors.New("session-full")
	ErrInvalidToken    = errors.New("invalid-token")
	ErrAlreadySeated   = errors.New("already-seated")
	ErrRateLimited     = errors.New("rate-limited")
	ErrShuttingDown    = errors.New("shutting-down")
	ErrInvalidCount    = errors.New("invalid-count")
)
