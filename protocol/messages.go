package protocol

import (
	"encoding/json"
	"fmt"

	"newavalon/domain"
)

type SubmitState struct {
	GameState    json.RawMessage `json:"gameState"`
	PlayerID     int             `json:"playerId,omitempty"`
	PlayerToken  string          `json:"playerToken,omitempty"`
	BaseRevision uint64          `json:"baseRevision"`
}

type Join struct {
	PlayerID    int    `json:"playerId,omitempty"`
	PlayerToken string `json:"playerToken,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

type JoinInvite struct {
	DisplayName string `json:"name,omitempty"`
}

type ForceSync struct {
	GameState json.RawMessage `json:"gameState"`
}

type SetPhase struct {
	Index int `json:"phaseIndex"`
}

type ToggleActivePlayer struct {
	PlayerID int `json:"playerId"`
}

// UpdatePlayer changes only the fields that are set.
type UpdatePlayer struct {
	PlayerID     int     `json:"playerId"`
	DisplayName  *string `json:"name,omitempty"`
	Color        *string `json:"color,omitempty"`
	Score        *int    `json:"score,omitempty"`
	SelectedDeck *string `json:"selectedDeck,omitempty"`
	AutoDraw     *bool   `json:"autoDrawEnabled,omitempty"`
	TeamID       *int    `json:"teamId,omitempty"`
}

type SetStandIns struct {
	Count int `json:"count"`
}

type MoveCard struct {
	CardID string          `json:"cardId"`
	From   domain.Location `json:"from"`
	To     domain.Location `json:"to"`
}

type Joined struct {
	SessionID string `json:"sessionId"`
	PlayerID  int    `json:"playerId"`
	Token     string `json:"playerToken,omitempty"`
	Spectator bool   `json:"spectator"`
}

type Error struct {
	Command string `json:"command"`
	Code    string `json:"code"`
}

type SessionSummary struct {
	ID         string `json:"id"`
	Players    int    `json:"players"`
	Humans     int    `json:"humans"`
	MaxPlayers int    `json:"maxPlayers"`
	Started    bool   `json:"started"`
}

type Sessions struct {
	Sessions []SessionSummary `json:"sessions"`
}

// Encode marshals payload as JSON and frames it.
func Encode(kind Kind, sessionID string, seq uint64, payload any) ([]byte, error) {
	e := Envelope{Kind: kind, SessionID: sessionID, Seq: seq}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		e.Payload = raw
	}
	return e.Marshal(), nil
}

// Decode unmarshals a JSON payload. An empty payload yields the zero value.
func Decode[T any](payload []byte) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return v, nil
}

func EncodeState(s domain.Session, seq uint64) ([]byte, error) {
	return Encode(KindState, s.ID, seq, s)
}

func EncodeError(sessionID string, seq uint64, cmd Kind, err error) []byte {
	data, _ := Encode(KindError, sessionID, seq, Error{Command: cmd.String(), Code: err.Error()})
	return data
}
