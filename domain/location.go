package domain

type Zone string

const (
	ZoneHand    Zone = "hand"
	ZoneDeck    Zone = "deck"
	ZoneDiscard Zone = "discard"
	ZoneBoard   Zone = "board"
)

// Location addresses a card slot: a player pile or a board cell.
type Location struct {
	Zone     Zone `json:"zone"`
	PlayerID int  `json:"playerId,omitempty"`
	Row      int  `json:"row,omitempty"`
	Col      int  `json:"col,omitempty"`
}

func (z Zone) Valid() bool {
	switch z {
	case ZoneHand, ZoneDeck, ZoneDiscard, ZoneBoard:
		return true
	}
	return false
}

// Pile returns the player's list for a pile zone, or nil for the board.
func (p *Player) Pile(z Zone) *[]Card {
	switch z {
	case ZoneHand:
		return &p.Hand
	case ZoneDeck:
		return &p.Deck
	case ZoneDiscard:
		return &p.Discard
	}
	return nil
}

// FindCard reports where a card currently sits in the record.
func (s *Session) FindCard(cardID string) (Location, bool) {
	if r, c, ok := s.Board.Locate(cardID); ok {
		return Location{Zone: ZoneBoard, Row: r, Col: c}, true
	}
	for _, p := range s.Players {
		for _, z := range []Zone{ZoneHand, ZoneDeck, ZoneDiscard} {
			for _, card := range *p.Pile(z) {
				if card.ID == cardID {
					return Location{Zone: z, PlayerID: p.ID}, true
				}
			}
		}
	}
	return Location{}, false
}
