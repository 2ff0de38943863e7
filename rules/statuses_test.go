package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newavalon/domain"
)

func boardSession(players ...int) domain.Session {
	s := domain.NewSession("s")
	for _, id := range players {
		s.Players = append(s.Players, domain.Player{ID: id})
	}
	return s
}

func unit(id string, owner int) *domain.Card {
	return &domain.Card{ID: id, OwnerID: owner}
}

func TestRecomputeStatuses_ThreatFromTwoNeighbours(t *testing.T) {
	t.Parallel()
	s := boardSession(1, 2)
	s.Board[2][2] = unit("p1", 1)
	s.Board[1][2] = unit("p2a", 2)
	s.Board[2][1] = unit("p2b", 2)

	b := RecomputeStatuses(s)

	assert.True(t, b[2][2].HasStatusBy(domain.StatusThreat, 2))
	assert.False(t, b[2][2].HasStatus(domain.StatusSupport))
	assert.False(t, b[1][2].HasStatus(domain.StatusThreat))
	assert.Nil(t, s.Board[2][2].Statuses, "input must not be modified")
}

func TestRecomputeStatuses_Adjacency(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		desc   string
		setup  func(s *domain.Session)
		assert func(t *testing.T, b domain.Board)
	}{
		{
			desc: "same owner neighbour grants support",
			setup: func(s *domain.Session) {
				s.Board[2][2] = unit("a", 1)
				s.Board[2][3] = unit("b", 1)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.True(t, b[2][2].HasStatusBy(domain.StatusSupport, 1))
				assert.True(t, b[2][3].HasStatusBy(domain.StatusSupport, 1))
			},
		},
		{
			desc: "team mate grants support",
			setup: func(s *domain.Session) {
				s.Players[0].TeamID = 7
				s.Players[1].TeamID = 7
				s.Board[2][2] = unit("a", 1)
				s.Board[2][3] = unit("b", 2)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.True(t, b[2][2].HasStatusBy(domain.StatusSupport, 1))
				assert.True(t, b[2][3].HasStatusBy(domain.StatusSupport, 2))
				assert.False(t, b[2][2].HasStatus(domain.StatusThreat))
			},
		},
		{
			desc: "single opponent inside the grid is harmless",
			setup: func(s *domain.Session) {
				s.Board[2][2] = unit("a", 1)
				s.Board[2][3] = unit("b", 2)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.Empty(t, b[2][2].Statuses)
			},
		},
		{
			desc: "border card with one opponent is threatened",
			setup: func(s *domain.Session) {
				s.Board[0][2] = unit("a", 1)
				s.Board[1][2] = unit("b", 2)
				s.Board[0][3] = unit("c", 3)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.Equal(t, []domain.Status{{Type: domain.StatusThreat, AddedBy: 2}}, b[0][2].Statuses)
			},
		},
		{
			desc: "stunned and face down neighbours are inert",
			setup: func(s *domain.Session) {
				s.Board[2][2] = unit("a", 1)
				s.Board[1][2] = &domain.Card{ID: "b", OwnerID: 2, IsFaceDown: true}
				s.Board[2][1] = &domain.Card{ID: "c", OwnerID: 2, Statuses: []domain.Status{{Type: domain.StatusStun, AddedBy: 1}}}
				s.Board[2][3] = &domain.Card{ID: "d", OwnerID: 1, IsFaceDown: true}
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.Empty(t, b[2][2].Statuses)
			},
		},
		{
			desc: "stale derived tags are stripped",
			setup: func(s *domain.Session) {
				c := unit("a", 1)
				c.Statuses = []domain.Status{{Type: domain.StatusSupport, AddedBy: 1}, {Type: domain.StatusShield, AddedBy: 2}}
				c.AuraBonus = 3
				s.Board[2][2] = c
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.Equal(t, []domain.Status{{Type: domain.StatusShield, AddedBy: 2}}, b[2][2].Statuses)
				assert.Zero(t, b[2][2].AuraBonus)
			},
		},
		{
			desc: "banner supports allies on its row and column",
			setup: func(s *domain.Session) {
				s.Board[3][3] = &domain.Card{ID: "h", BaseID: HeroBanner, OwnerID: 1}
				s.Board[3][0] = unit("row", 1)
				s.Board[5][3] = unit("col", 1)
				s.Board[0][3] = unit("enemy", 2)
				s.Board[5][5] = unit("off", 1)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.True(t, b[3][0].HasStatusBy(domain.StatusSupport, 1))
				assert.True(t, b[5][3].HasStatusBy(domain.StatusSupport, 1))
				assert.False(t, b[0][3].HasStatus(domain.StatusSupport))
				assert.False(t, b[5][5].HasStatus(domain.StatusSupport))
			},
		},
		{
			desc: "overlapping warlords on one line apply once",
			setup: func(s *domain.Session) {
				s.Board[1][0] = &domain.Card{ID: "w1", BaseID: HeroWarlord, OwnerID: 1}
				s.Board[1][4] = &domain.Card{ID: "w2", BaseID: HeroWarlord, OwnerID: 1}
				s.Board[1][2] = unit("ally", 1)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.Equal(t, 1, b[1][2].AuraBonus)
				assert.Equal(t, 0, b[1][0].AuraBonus)
				assert.Equal(t, 1, b[1][4].AuraBonus)
			},
		},
		{
			desc: "stunned hero has no aura",
			setup: func(s *domain.Session) {
				s.Board[1][0] = &domain.Card{ID: "w1", BaseID: HeroWarlord, OwnerID: 1, Statuses: []domain.Status{{Type: domain.StatusStun, AddedBy: 2}}}
				s.Board[1][3] = unit("ally", 1)
			},
			assert: func(t *testing.T, b domain.Board) {
				assert.Zero(t, b[1][3].AuraBonus)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := boardSession(1, 2, 3)
			tc.setup(&s)
			tc.assert(t, RecomputeStatuses(s))
		})
	}
}

func TestRecomputeStatuses_Idempotent(t *testing.T) {
	t.Parallel()
	s := boardSession(1, 2)
	s.Board[0][0] = unit("a", 1)
	s.Board[0][1] = unit("b", 2)
	s.Board[1][0] = unit("c", 2)
	s.Board[1][1] = &domain.Card{ID: "d", BaseID: HeroWarlord, OwnerID: 1}
	s.Board[3][1] = unit("e", 1)

	first := RecomputeStatuses(s)
	s.Board = first
	second := RecomputeStatuses(s)

	assert.True(t, first.Equal(&second))
}
