package rules

import (
	"slices"

	"newavalon/domain"
)

type Config struct {
	FinalRound          int
	FinalRoundTurnLimit int
}

func DefaultConfig() Config {
	return Config{FinalRound: 3, FinalRoundTurnLimit: 5}
}

// SelectActivePlayer hands the turn to a player and runs the hidden draw
// step before settling in Setup.
func SelectActivePlayer(s *domain.Session, playerID int, cfg Config) error {
	if !s.IsGameStarted {
		return domain.ErrGameNotStarted
	}
	p := s.Player(playerID)
	if p == nil {
		return domain.ErrUnknownPlayer
	}

	s.ActivePlayerID = domain.IntPtr(playerID)
	if s.StartingPlayerID == nil {
		s.StartingPlayerID = domain.IntPtr(playerID)
	}
	s.CurrentPhase = domain.PhaseDraw
	s.TurnSeq++

	if len(p.Deck) > 0 && autoDraws(s, p) {
		p.Hand = append(p.Hand, p.Deck[0])
		p.Deck = slices.Delete(p.Deck, 0, 1)
	}
	grantReadyMarkers(s, playerID)

	s.CurrentPhase = domain.PhaseSetup
	EvaluateRound(s, cfg)
	return nil
}

// stand-ins follow the host's preference
func autoDraws(s *domain.Session, p *domain.Player) bool {
	if !p.IsStandIn {
		return p.AutoDrawEnabled
	}
	host := s.Player(s.HostID)
	return host != nil && host.AutoDrawEnabled
}

func grantReadyMarkers(s *domain.Session, playerID int) {
	s.Board.Each(func(_, _ int, card *domain.Card) {
		if card.OwnerID != playerID {
			return
		}
		for _, t := range []domain.StatusType{domain.StatusReadySetup, domain.StatusReadyCommit} {
			if !card.HasStatus(t) {
				card.AddStatus(t, playerID)
			}
		}
	})
}

func DeselectActivePlayer(s *domain.Session, cfg Config) {
	if s.ActivePlayerID == nil {
		return
	}
	if s.IsStarting(*s.ActivePlayerID) && s.CurrentPhase == domain.PhaseSetup {
		EvaluateRound(s, cfg)
	}
	s.ActivePlayerID = nil
}

func ToggleActivePlayer(s *domain.Session, playerID int, cfg Config) error {
	if !s.IsGameStarted {
		return domain.ErrGameNotStarted
	}
	if s.IsActive(playerID) {
		DeselectActivePlayer(s, cfg)
		return nil
	}
	return SelectActivePlayer(s, playerID, cfg)
}

func NextPhase(s *domain.Session, cfg Config) error {
	if !s.IsGameStarted {
		return domain.ErrGameNotStarted
	}
	switch s.CurrentPhase {
	case domain.PhaseScoring:
		return EndTurn(s, cfg)
	case domain.PhaseDraw:
		s.CurrentPhase = domain.PhaseSetup
		EvaluateRound(s, cfg)
	default:
		s.CurrentPhase++
	}
	return nil
}

func PrevPhase(s *domain.Session) error {
	if !s.IsGameStarted {
		return domain.ErrGameNotStarted
	}
	if s.CurrentPhase <= domain.PhaseSetup {
		return domain.ErrPhaseBoundary
	}
	s.CurrentPhase--
	return nil
}

// SetPhase jumps to a visible phase. Draw only happens when the turn passes
// to a new player, so index 0 is rejected.
func SetPhase(s *domain.Session, index int, cfg Config) error {
	if !s.IsGameStarted {
		return domain.ErrGameNotStarted
	}
	phase := domain.Phase(index)
	if !phase.Valid() || phase == domain.PhaseDraw {
		return domain.ErrInvalidPhase
	}
	s.CurrentPhase = phase
	if phase == domain.PhaseSetup {
		EvaluateRound(s, cfg)
	}
	return nil
}

// EndTurn closes the active player's turn and passes to the next seat in
// ascending id order.
func EndTurn(s *domain.Session, cfg Config) error {
	if s.ActivePlayerID == nil {
		return domain.ErrNoActivePlayer
	}
	ids := s.SortedPlayerIDs()
	if len(ids) == 0 {
		return domain.ErrNoPlayers
	}
	finishing := *s.ActivePlayerID

	s.Board.Each(func(_, _ int, card *domain.Card) {
		if card.OwnerID == finishing {
			card.RemoveStatuses(domain.StatusStun)
		}
		card.EnteredThisTurn = false
	})
	s.Board = RecomputeStatuses(*s)

	next := ids[0]
	for _, id := range ids {
		if id > finishing {
			next = id
			break
		}
	}
	if s.IsStarting(next) {
		s.TurnNumber++
	}
	return SelectActivePlayer(s, next, cfg)
}
