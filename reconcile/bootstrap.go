package reconcile

import (
	"newavalon/domain"
	"newavalon/rules"
)

func normalize(s *domain.Session) {
	if s.ActiveGridSize == 0 {
		s.ActiveGridSize = domain.DefaultGridSize
	}
	if s.CurrentRound < 1 {
		s.CurrentRound = 1
	}
	if s.TurnNumber < 1 {
		s.TurnNumber = 1
	}
	if s.RoundWinners == nil {
		s.RoundWinners = map[int][]int{}
	}
	if s.CurrentPhase == domain.PhaseDraw {
		s.CurrentPhase = domain.PhaseSetup
	}
	for i := range s.Players {
		s.Players[i].ReconnectToken = ""
	}
}

// Bootstrap builds the first server record of a session from a snapshot.
func Bootstrap(in Submission) (domain.Session, error) {
	s := in.Snapshot.Clone()
	normalize(&s)
	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}

	if s.Player(s.HostID) == nil || s.Player(s.HostID).IsStandIn {
		s.HostID = 0
		if p := s.Player(in.SubmitterID); p != nil && !p.IsStandIn {
			s.HostID = p.ID
		} else {
			for _, p := range s.Players {
				if !p.IsStandIn {
					s.HostID = p.ID
					break
				}
			}
		}
	}
	if s.ActivePlayerID != nil && s.Player(*s.ActivePlayerID) == nil {
		s.ActivePlayerID = nil
	}
	if s.StartingPlayerID != nil && s.Player(*s.StartingPlayerID) == nil {
		s.StartingPlayerID = nil
	}
	s.Revision = 0
	s.Spectators = 0
	s.Board = rules.RecomputeStatuses(s)
	return s, nil
}

// ForceSync replaces the record with the host's snapshot. Tokens, host and
// revision stay with the server; the turn sequence moves forward so every
// older snapshot counts as stale.
func ForceSync(prev *domain.Session, in Submission) (domain.Session, error) {
	if in.SubmitterID != prev.HostID {
		return domain.Session{}, domain.ErrNotHost
	}
	s := in.Snapshot.Clone()
	if s.ID == "" {
		return domain.Session{}, domain.ErrMissingSessionID
	}
	if s.ID != prev.ID {
		return domain.Session{}, domain.ErrSessionMismatch
	}
	normalize(&s)
	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}
	if s.Player(prev.HostID) == nil {
		return domain.Session{}, domain.ErrUnknownPlayer
	}

	for i := range s.Players {
		if p := prev.Player(s.Players[i].ID); p != nil {
			s.Players[i].ReconnectToken = p.ReconnectToken
		}
	}
	if s.ActivePlayerID != nil && s.Player(*s.ActivePlayerID) == nil {
		s.ActivePlayerID = nil
	}
	if s.StartingPlayerID != nil && s.Player(*s.StartingPlayerID) == nil {
		s.StartingPlayerID = nil
	}
	s.HostID = prev.HostID
	s.Revision = prev.Revision
	s.TurnSeq = max(prev.TurnSeq, s.TurnSeq) + 1
	s.Spectators = prev.Spectators
	s.Board = rules.RecomputeStatuses(s)
	return s, nil
}
