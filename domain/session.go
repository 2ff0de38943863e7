package domain

import (
	"fmt"
	"slices"
	"time"
)

type Player struct {
	ID              int        `json:"id"`
	DisplayName     string     `json:"name"`
	Color           string     `json:"color"`
	Score           int        `json:"score"`
	TeamID          int        `json:"teamId,omitempty"`
	SelectedDeck    string     `json:"selectedDeck,omitempty"`
	Hand            []Card     `json:"hand"`
	Deck            []Card     `json:"deck"`
	Discard         []Card     `json:"discard"`
	BoardHistory    []string   `json:"boardHistory"`
	IsStandIn       bool       `json:"isDummy"`
	IsDisconnected  bool       `json:"isDisconnected"`
	DisconnectedAt  *time.Time `json:"disconnectTimestamp,omitempty"`
	AutoDrawEnabled bool       `json:"autoDrawEnabled"`
	ReconnectToken  string     `json:"-"`
}

func (p Player) Clone() Player {
	p.Hand = CloneCards(p.Hand)
	p.Deck = CloneCards(p.Deck)
	p.Discard = CloneCards(p.Discard)
	p.BoardHistory = slices.Clone(p.BoardHistory)
	if p.DisconnectedAt != nil {
		t := *p.DisconnectedAt
		p.DisconnectedAt = &t
	}
	return p
}

// IsAlly reports whether two owners play on the same side.
func (s *Session) IsAlly(a, b int) bool {
	if a == b {
		return true
	}
	pa, pb := s.Player(a), s.Player(b)
	return pa != nil && pb != nil && pa.TeamID != 0 && pa.TeamID == pb.TeamID
}

// Session is the authoritative record of one game.
type Session struct {
	ID                string        `json:"gameId"`
	Players           []Player      `json:"players"`
	Board             Board         `json:"board"`
	ActiveGridSize    int           `json:"activeGridSize"`
	CurrentPhase      Phase         `json:"currentPhase"`
	ActivePlayerID    *int          `json:"activePlayerId"`
	StartingPlayerID  *int          `json:"startingPlayerId"`
	CurrentRound      int           `json:"currentRound"`
	TurnNumber        int           `json:"turnNumber"`
	RoundWinners      map[int][]int `json:"roundWinners"`
	GameWinnerID      *int          `json:"gameWinner"`
	IsRoundEndPending bool          `json:"isRoundEndModalOpen"`
	HostID            int           `json:"hostId"`
	IsGameStarted     bool          `json:"isGameStarted"`
	IsPrivate         bool          `json:"isPrivate"`
	Revision          uint64        `json:"revision"`
	TurnSeq           uint64        `json:"turnSeq"`
	Spectators        int           `json:"spectators"`
}

// NewSession returns an empty, not yet started record.
func NewSession(id string) Session {
	return Session{
		ID:             id,
		ActiveGridSize: DefaultGridSize,
		CurrentPhase:   PhaseSetup,
		CurrentRound:   1,
		TurnNumber:     1,
		RoundWinners:   map[int][]int{},
	}
}

func IntPtr(v int) *int {
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	return IntPtr(*p)
}

// Clone returns a deep copy. Nothing is shared with s.
func (s Session) Clone() Session {
	out := s
	if s.Players != nil {
		out.Players = make([]Player, len(s.Players))
		for i, p := range s.Players {
			out.Players[i] = p.Clone()
		}
	}
	out.Board = s.Board.Clone()
	out.ActivePlayerID = cloneIntPtr(s.ActivePlayerID)
	out.StartingPlayerID = cloneIntPtr(s.StartingPlayerID)
	out.GameWinnerID = cloneIntPtr(s.GameWinnerID)
	if s.RoundWinners != nil {
		out.RoundWinners = make(map[int][]int, len(s.RoundWinners))
		for round, ids := range s.RoundWinners {
			out.RoundWinners[round] = slices.Clone(ids)
		}
	}
	return out
}

// Player returns a pointer into s.Players, or nil.
func (s *Session) Player(id int) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *Session) PlayerIndex(id int) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

func (s *Session) IsActive(id int) bool {
	return s.ActivePlayerID != nil && *s.ActivePlayerID == id
}

func (s *Session) IsStarting(id int) bool {
	return s.StartingPlayerID != nil && *s.StartingPlayerID == id
}

// NextPlayerID allocates the next free seat id.
func (s *Session) NextPlayerID() int {
	hi := 0
	for _, p := range s.Players {
		hi = max(hi, p.ID)
	}
	return hi + 1
}

// SortedPlayerIDs returns seat ids in ascending order.
func (s *Session) SortedPlayerIDs() []int {
	ids := make([]int, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	slices.Sort(ids)
	return ids
}

// RemovePlayer deletes the seat and every board card it owns.
func (s *Session) RemovePlayer(id int) bool {
	idx := s.PlayerIndex(id)
	if idx < 0 {
		return false
	}
	s.Players = slices.Delete(s.Players, idx, idx+1)
	s.Board.RemoveOwnedBy(id)
	if s.IsActive(id) {
		s.ActivePlayerID = nil
	}
	return true
}

// Validate checks the structural invariants of a record.
func (s *Session) Validate() error {
	if s.ID == "" {
		return ErrMissingSessionID
	}
	if !s.CurrentPhase.Valid() {
		return ErrInvalidPhase
	}
	if !ValidGridSize(s.ActiveGridSize) {
		return ErrInvalidGridSize
	}

	seen := map[int]bool{}
	for _, p := range s.Players {
		if seen[p.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicatePlayerID, p.ID)
		}
		seen[p.ID] = true
	}

	ids := map[string]bool{}
	check := func(c *Card) error {
		if c.ID == "" {
			return ErrMissingCardID
		}
		if c.OwnerID == 0 {
			return fmt.Errorf("%w: %s", ErrMissingCardOwner, c.ID)
		}
		if ids[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateCardID, c.ID)
		}
		ids[c.ID] = true
		return nil
	}
	for _, p := range s.Players {
		for _, pile := range [][]Card{p.Hand, p.Deck, p.Discard} {
			for i := range pile {
				if err := check(&pile[i]); err != nil {
					return err
				}
			}
		}
	}
	for r := range s.Board {
		for _, c := range s.Board[r] {
			if c == nil {
				continue
			}
			if err := check(c); err != nil {
				return err
			}
		}
	}
	return nil
}
