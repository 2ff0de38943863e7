package protocol

import (
	"encoding/json"
	"fmt"

	"newavalon/domain"
	"newavalon/reconcile"
)


func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

// Snapshot is a decoded client snapshot plus the keys it actually carried,
// so absent fields are never read as zero values.
type Snapshot struct {
	Session domain.Session
	Keys    map[string]bool
	Present map[int]reconcile.Presence
}

// DecodeSnapshot parses a full or partial client snapshot.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	if len(raw) == 0 {
		return Snapshot{}, domain.ErrMissingSessionID
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	var players []map[string]json.RawMessage
	if rp, ok := top["players"]; ok {
		if err := json.Unmarshal(rp, &players); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
	}

	keys := make(map[string]bool, len(top))
	for k := range top {
		keys[k] = true
	}
	present := make(map[int]reconcile.Presence, len(players))
	for i, fields := range players {
		if i >= len(s.Players) {
			break
		}
		present[s.Players[i].ID] = reconcile.Presence{
			Score:        has(fields, "score"),
			DisplayName:  has(fields, "name"),
			Color:        has(fields, "color"),
			Connectivity: has(fields, "isDisconnected"),
			AutoDraw:     has(fields, "autoDrawEnabled"),
			Hand:         has(fields, "hand"),
			Deck:         has(fields, "deck"),
			Discard:      has(fields, "discard"),
			BoardHistory: has(fields, "boardHistory"),
		}
	}
	return Snapshot{Session: s, Keys: keys, Present: present}, nil
}
