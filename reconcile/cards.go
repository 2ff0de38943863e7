package reconcile

import (
	"slices"

	"newavalon/domain"
	"newavalon/rules"
)

// Move relocates one card. From must still hold CardID when the move is
// applied; otherwise the move already happened and is ignored.
type Move struct {
	CardID string          `json:"cardId"`
	From   domain.Location `json:"from"`
	To     domain.Location `json:"to"`
}

func checkLocation(s *domain.Session, loc domain.Location) error {
	if !loc.Zone.Valid() {
		return domain.ErrInvalidZone
	}
	if loc.Zone == domain.ZoneBoard {
		if !domain.InBounds(loc.Row, loc.Col) {
			return domain.ErrCellOutOfBounds
		}
		return nil
	}
	if s.Player(loc.PlayerID) == nil {
		return domain.ErrUnknownPlayer
	}
	return nil
}

// MoveCard applies a move in place and reports whether the record changed.
func MoveCard(s *domain.Session, mv Move) (bool, error) {
	if s.ID == "" {
		return false, domain.ErrMissingSessionID
	}
	if mv.CardID == "" {
		return false, domain.ErrMissingCardID
	}
	if err := checkLocation(s, mv.From); err != nil {
		return false, err
	}
	if err := checkLocation(s, mv.To); err != nil {
		return false, err
	}
	if mv.To.Zone == domain.ZoneBoard && !domain.InActiveGrid(s.ActiveGridSize, mv.To.Row, mv.To.Col) {
		return false, domain.ErrCellOutOfBounds
	}

	card, ok := peek(s, mv.From, mv.CardID)
	if !ok {
		return false, nil
	}
	if mv.To.Zone == domain.ZoneBoard {
		if occupant := s.Board[mv.To.Row][mv.To.Col]; occupant != nil {
			if occupant.ID != mv.CardID {
				return false, domain.ErrCellOccupied
			}
			return false, nil
		}
	}

	take(s, mv.From, mv.CardID)
	fromBoard := mv.From.Zone == domain.ZoneBoard
	toBoard := mv.To.Zone == domain.ZoneBoard

	switch {
	case toBoard && !fromBoard:
		card.EnteredThisTurn = true
		if owner := s.Player(card.OwnerID); owner != nil && !slices.Contains(owner.BoardHistory, card.ID) {
			card.AddStatus(domain.StatusReadyDeploy, card.OwnerID)
			owner.BoardHistory = append(owner.BoardHistory, card.ID)
		}
	case fromBoard && !toBoard:
		card.ResetForPile()
	}

	if toBoard {
		s.Board[mv.To.Row][mv.To.Col] = &card
	} else {
		pile := s.Player(mv.To.PlayerID).Pile(mv.To.Zone)
		*pile = append(*pile, card)
	}

	if fromBoard || toBoard {
		s.Board = rules.RecomputeStatuses(*s)
	}
	return true, nil
}

func peek(s *domain.Session, loc domain.Location, cardID string) (domain.Card, bool) {
	if loc.Zone == domain.ZoneBoard {
		c := s.Board[loc.Row][loc.Col]
		if c == nil || c.ID != cardID {
			return domain.Card{}, false
		}
		return c.Clone(), true
	}
	pile := *s.Player(loc.PlayerID).Pile(loc.Zone)
	i := slices.IndexFunc(pile, func(c domain.Card) bool { return c.ID == cardID })
	if i < 0 {
		return domain.Card{}, false
	}
	return pile[i].Clone(), true
}

func take(s *domain.Session, loc domain.Location, cardID string) {
	if loc.Zone == domain.ZoneBoard {
		s.Board[loc.Row][loc.Col] = nil
		return
	}
	pile := s.Player(loc.PlayerID).Pile(loc.Zone)
	*pile = slices.DeleteFunc(*pile, func(c domain.Card) bool { return c.ID == cardID })
}
