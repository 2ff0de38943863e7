package rules

import "newavalon/domain"

func RoundThreshold(round int) int {
	return 10 + 10*round
}

// EvaluateRound closes the current round when the starting player is back in
// Setup and a score reached the threshold, or the final round ran out of
// turns. It returns true when the round was closed by this call.
func EvaluateRound(s *domain.Session, cfg Config) bool {
	if s.IsRoundEndPending || s.GameWinnerID != nil || len(s.Players) == 0 {
		return false
	}
	if s.ActivePlayerID == nil || !s.IsStarting(*s.ActivePlayerID) || s.CurrentPhase != domain.PhaseSetup {
		return false
	}

	top := s.Players[0].Score
	for _, p := range s.Players[1:] {
		top = max(top, p.Score)
	}
	finalTurns := s.CurrentRound >= cfg.FinalRound && s.TurnNumber >= cfg.FinalRoundTurnLimit
	if top < RoundThreshold(s.CurrentRound) && !finalTurns {
		return false
	}

	var winners []int
	for _, p := range s.Players {
		if p.Score == top {
			winners = append(winners, p.ID)
		}
	}
	if s.RoundWinners == nil {
		s.RoundWinners = map[int][]int{}
	}
	s.RoundWinners[s.CurrentRound] = winners
	s.IsRoundEndPending = true
	s.GameWinnerID = matchWinner(s, cfg)
	return true
}

// matchWinner is the first seat with two round wins. Once the final round is
// over without one, the seat with the most wins takes the match.
func matchWinner(s *domain.Session, cfg Config) *int {
	wins := map[int]int{}
	for _, ids := range s.RoundWinners {
		for _, id := range ids {
			wins[id]++
		}
	}
	best, bestWins := 0, 0
	for _, p := range s.Players {
		if wins[p.ID] >= 2 {
			return domain.IntPtr(p.ID)
		}
		if wins[p.ID] > bestWins {
			best, bestWins = p.ID, wins[p.ID]
		}
	}
	if s.CurrentRound >= cfg.FinalRound && bestWins > 0 {
		return domain.IntPtr(best)
	}
	return nil
}

func StartNextRound(s *domain.Session, cfg Config) error {
	if !s.IsGameStarted {
		return domain.ErrGameNotStarted
	}
	if s.GameWinnerID != nil {
		return domain.ErrMatchOver
	}
	if !s.IsRoundEndPending {
		return domain.ErrRoundInProgress
	}
	if len(s.Players) == 0 {
		return domain.ErrNoPlayers
	}
	for i := range s.Players {
		s.Players[i].Score = 0
	}
	s.CurrentRound++
	s.IsRoundEndPending = false
	s.TurnNumber = 1
	s.StartingPlayerID = domain.IntPtr(startingSeat(s))
	return SelectActivePlayer(s, *s.StartingPlayerID, cfg)
}

func StartGame(s *domain.Session, cfg Config) error {
	if s.IsGameStarted {
		return domain.ErrGameAlreadyStarted
	}
	if len(s.Players) == 0 {
		return domain.ErrNoPlayers
	}
	s.IsGameStarted = true
	s.StartingPlayerID = domain.IntPtr(startingSeat(s))
	return SelectActivePlayer(s, *s.StartingPlayerID, cfg)
}

func startingSeat(s *domain.Session) int {
	if s.StartingPlayerID != nil && s.Player(*s.StartingPlayerID) != nil {
		return *s.StartingPlayerID
	}
	return s.SortedPlayerIDs()[0]
}
