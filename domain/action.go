package domain

import "time"

// Action is one accepted mutation, kept for the append-only log.
type Action struct {
	SessionID string    `json:"sessionId"`
	Revision  uint64    `json:"revision"`
	PlayerID  int       `json:"playerId"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}
