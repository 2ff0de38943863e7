package domain

import "slices"

// StatusType tags a card with a board effect.
type StatusType string

const (
	StatusSupport     StatusType = "Support"
	StatusThreat      StatusType = "Threat"
	StatusRevealed    StatusType = "Revealed"
	StatusShield      StatusType = "Shield"
	StatusStun        StatusType = "Stun"
	StatusReadySetup  StatusType = "ReadySetup"
	StatusReadyCommit StatusType = "ReadyCommit"
	StatusReadyDeploy StatusType = "ReadyDeploy"
)

// uniquePerAttributor lists the statuses a single player can apply only once per card.
var uniquePerAttributor = map[StatusType]bool{
	StatusSupport:  true,
	StatusThreat:   true,
	StatusRevealed: true,
	StatusShield:   true,
}

// Status is one applied tag, attributed to the player who applied it.
type Status struct {
	Type    StatusType `json:"type"`
	AddedBy int        `json:"addedByPlayerId"`
}

// Card is a single card instance. Ids are unique within a session.
type Card struct {
	ID              string   `json:"id"`
	BaseID          string   `json:"baseId,omitempty"`
	OwnerID         int      `json:"ownerId"`
	Power           int      `json:"power"`
	PowerModifier   int      `json:"powerModifier"`
	AuraBonus       int      `json:"bonusPower"`
	IsFaceDown      bool     `json:"isFaceDown"`
	EnteredThisTurn bool     `json:"enteredBoardThisTurn"`
	Statuses        []Status `json:"statuses"`
}

// Clone returns a copy that shares no memory with c.
func (c Card) Clone() Card {
	c.Statuses = slices.Clone(c.Statuses)
	return c
}

// AddStatus appends a status. Statuses in the unique-per-attributor set are
// ignored when the same attributor already applied them.
func (c *Card) AddStatus(t StatusType, addedBy int) {
	if uniquePerAttributor[t] && c.HasStatusBy(t, addedBy) {
		return
	}
	c.Statuses = append(c.Statuses, Status{Type: t, AddedBy: addedBy})
}

func (c *Card) HasStatus(t StatusType) bool {
	return slices.ContainsFunc(c.Statuses, func(s Status) bool { return s.Type == t })
}

func (c *Card) HasStatusBy(t StatusType, addedBy int) bool {
	return slices.ContainsFunc(c.Statuses, func(s Status) bool { return s.Type == t && s.AddedBy == addedBy })
}

// RemoveStatuses drops every status whose type is in types.
func (c *Card) RemoveStatuses(types ...StatusType) {
	c.Statuses = slices.DeleteFunc(c.Statuses, func(s Status) bool { return slices.Contains(types, s.Type) })
}

func (c *Card) IsStunned() bool {
	return c.HasStatus(StatusStun)
}

// ResetForPile clears every board-only property when a card leaves the board.
func (c *Card) ResetForPile() {
	c.Statuses = nil
	c.PowerModifier = 0
	c.AuraBonus = 0
	c.IsFaceDown = false
	c.EnteredThisTurn = false
}

// Equal reports whether two cards are identical, statuses compared in order.
func (c Card) Equal(o Card) bool {
	return c.ID == o.ID &&
		c.BaseID == o.BaseID &&
		c.OwnerID == o.OwnerID &&
		c.Power == o.Power &&
		c.PowerModifier == o.PowerModifier &&
		c.AuraBonus == o.AuraBonus &&
		c.IsFaceDown == o.IsFaceDown &&
		c.EnteredThisTurn == o.EnteredThisTurn &&
		slices.Equal(c.Statuses, o.Statuses)
}

// CloneCards deep-copies a pile.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}
