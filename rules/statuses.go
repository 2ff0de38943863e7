package rules

import "newavalon/domain"

const (
	HeroBanner  = "hero-banner"
	HeroWarlord = "hero-warlord"
)

// up, down, left, right
var neighbourOffsets = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

type auraKey struct {
	hero  string
	isRow bool
	line  int
	owner int
}

// RecomputeStatuses derives Support, Threat and aura bonuses from the board
// layout. The input is not modified and running it twice gives the same board.
func RecomputeStatuses(s domain.Session) domain.Board {
	board := s.Board.Clone()
	size := s.ActiveGridSize
	if !domain.ValidGridSize(size) {
		size = domain.DefaultGridSize
	}

	board.Each(func(_, _ int, card *domain.Card) {
		card.RemoveStatuses(domain.StatusSupport, domain.StatusThreat)
		card.AuraBonus = 0
	})

	board.Each(func(row, col int, card *domain.Card) {
		if card.IsFaceDown {
			return
		}
		applyAdjacency(&s, &board, size, row, col, card)
	})

	applied := map[auraKey]bool{}
	board.Each(func(row, col int, card *domain.Card) {
		if card.IsFaceDown || card.IsStunned() {
			return
		}
		switch card.BaseID {
		case HeroBanner, HeroWarlord:
			applyAura(&s, &board, applied, row, col, card)
		}
	})

	return board
}

func inert(c *domain.Card) bool {
	return c == nil || c.IsFaceDown || c.IsStunned()
}

func applyAdjacency(s *domain.Session, board *domain.Board, size, row, col int, card *domain.Card) {
	allied := false
	counts := map[int]int{}
	var opponents []int

	for _, off := range neighbourOffsets {
		r, c := row+off[0], col+off[1]
		if !domain.InBounds(r, c) {
			continue
		}
		n := board[r][c]
		if inert(n) {
			continue
		}
		if s.IsAlly(card.OwnerID, n.OwnerID) {
			allied = true
			continue
		}
		if counts[n.OwnerID] == 0 {
			opponents = append(opponents, n.OwnerID)
		}
		counts[n.OwnerID]++
	}

	if allied {
		card.AddStatus(domain.StatusSupport, card.OwnerID)
	}

	threat := 0
	for _, o := range opponents {
		if counts[o] >= 2 {
			threat = o
			break
		}
	}
	if threat == 0 && len(opponents) > 0 && domain.OnActiveBorder(size, row, col) {
		threat = opponents[0]
	}
	if threat != 0 {
		card.AddStatus(domain.StatusThreat, threat)
	}
}

func applyAura(s *domain.Session, board *domain.Board, applied map[auraKey]bool, row, col int, hero *domain.Card) {
	for _, isRow := range []bool{true, false} {
		line := col
		if isRow {
			line = row
		}
		key := auraKey{hero: hero.BaseID, isRow: isRow, line: line, owner: hero.OwnerID}
		if applied[key] {
			continue
		}
		applied[key] = true

		for i := 0; i < domain.MaxGridSize; i++ {
			r, c := i, col
			if isRow {
				r, c = row, i
			}
			target := board[r][c]
			if target == nil || target.IsFaceDown || !s.IsAlly(hero.OwnerID, target.OwnerID) {
				continue
			}
			switch hero.BaseID {
			case HeroBanner:
				target.AddStatus(domain.StatusSupport, hero.OwnerID)
			case HeroWarlord:
				if target != hero {
					target.AuraBonus++
				}
			}
		}
	}
}
