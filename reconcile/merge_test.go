package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newavalon/domain"
	"newavalon/rules"
)

func cards(owner int, ids ...string) []domain.Card {
	out := make([]domain.Card, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Card{ID: id, OwnerID: owner})
	}
	return out
}

func handIDs(p *domain.Player) []string {
	var ids []string
	for _, c := range p.Hand {
		ids = append(ids, c.ID)
	}
	return ids
}

// serverRecord: host 1 is active, 3 is a stand-in.
func serverRecord() domain.Session {
	s := domain.NewSession("room")
	s.HostID = 1
	s.IsGameStarted = true
	s.ActivePlayerID = domain.IntPtr(1)
	s.StartingPlayerID = domain.IntPtr(1)
	s.CurrentPhase = domain.PhaseMain
	s.Revision = 10
	s.TurnSeq = 3
	s.Players = []domain.Player{
		{ID: 1, DisplayName: "host", AutoDrawEnabled: true, Hand: cards(1, "h1"), Deck: cards(1, "d1", "d2"), ReconnectToken: "tok1"},
		{ID: 2, DisplayName: "guest", AutoDrawEnabled: true, Hand: cards(2, "g1"), Deck: cards(2, "e1", "e2"), ReconnectToken: "tok2"},
		{ID: 3, DisplayName: "bot", IsStandIn: true, Deck: cards(3, "s1")},
	}
	s.Board[2][2] = &domain.Card{ID: "b2", OwnerID: 2}
	return s
}

func submit(snap domain.Session, from int, base uint64) Submission {
	return Submission{Snapshot: snap, SubmitterID: from, BaseRevision: base}
}

func TestReconcile_Validation(t *testing.T) {
	t.Parallel()
	cfg := rules.DefaultConfig()
	prev := serverRecord()

	testCases := []struct {
		desc   string
		mutate func(s *domain.Session)
		from   int
		err    error
	}{
		{desc: "missing session id", mutate: func(s *domain.Session) { s.ID = "" }, from: 1, err: domain.ErrMissingSessionID},
		{desc: "other session", mutate: func(s *domain.Session) { s.ID = "other" }, from: 1, err: domain.ErrSessionMismatch},
		{desc: "bad phase", mutate: func(s *domain.Session) { s.CurrentPhase = 7 }, from: 1, err: domain.ErrInvalidPhase},
		{desc: "unknown submitter", mutate: func(s *domain.Session) {}, from: 9, err: domain.ErrUnknownPlayer},
		{
			desc: "draw for unknown player",
			mutate: func(s *domain.Session) {
				s.CurrentPhase = domain.PhaseDraw
				s.ActivePlayerID = domain.IntPtr(42)
			},
			from: 1, err: domain.ErrUnknownPlayer,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			snap := prev.Clone()
			tc.mutate(&snap)
			before := prev.Clone()
			_, _, err := Reconcile(&prev, submit(snap, tc.from, prev.Revision), cfg)
			assert.ErrorIs(t, err, tc.err)
			assert.Empty(t, cmp.Diff(before, prev), "prev must not change")
		})
	}
}

func TestReconcile_FreshSnapshotFromActivePlayer(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.Players[0].Hand = nil
	snap.Board[3][3] = &domain.Card{ID: "h1", OwnerID: 1}
	snap.Players[0].Score = 4
	snap.Players[1].Hand = nil
	snap.Players[1].Score = 2
	snap.CurrentPhase = domain.PhaseCommit

	out, res, err := Reconcile(&prev, submit(snap, 1, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, res.Fresh)
	assert.True(t, res.BoardChanged)
	assert.Equal(t, "h1", out.Board[3][3].ID)
	assert.Empty(t, out.Players[0].Hand)
	assert.Equal(t, []string{"g1"}, handIDs(&out.Players[1]), "other players' piles are preserved")
	assert.Equal(t, 2, out.Players[1].Score)
	assert.Equal(t, domain.PhaseCommit, out.CurrentPhase)
	assert.Equal(t, "tok2", out.Players[1].ReconnectToken)
	assert.Equal(t, uint64(10), out.Revision)
}

func TestReconcile_NonActiveSubmitterCannotMoveTheTurn(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.CurrentPhase = domain.PhaseScoring
	snap.ActivePlayerID = domain.IntPtr(2)
	snap.CurrentRound = 3
	snap.HostID = 2
	snap.Revision = 99

	out, _, err := Reconcile(&prev, submit(snap, 2, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseMain, out.CurrentPhase)
	assert.Equal(t, 1, *out.ActivePlayerID)
	assert.Equal(t, 1, out.CurrentRound)
	assert.Equal(t, 1, out.HostID)
	assert.Equal(t, uint64(10), out.Revision)
}

func TestReconcile_StaleBoardOnlyTouchesTrustedOwners(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.Board[2][2] = nil
	snap.Board[4][4] = &domain.Card{ID: "g1", OwnerID: 2}
	snap.Board[1][1] = &domain.Card{ID: "h1", OwnerID: 1}
	snap.Board[5][5] = &domain.Card{ID: "s1", OwnerID: 3}
	snap.Players[0].Hand = nil
	snap.Players[2].Deck = nil

	out, res, err := Reconcile(&prev, submit(snap, 1, prev.Revision-1), rules.DefaultConfig())
	require.NoError(t, err)

	assert.False(t, res.Fresh)
	require.NotNil(t, out.Board[2][2], "opponent card survives a stale removal")
	assert.Nil(t, out.Board[4][4])
	assert.Equal(t, "h1", out.Board[1][1].ID)
	assert.Equal(t, "s1", out.Board[5][5].ID, "stand-ins are driven by any client")
}

func TestReconcile_DrawRequest(t *testing.T) {
	t.Parallel()
	cfg := rules.DefaultConfig()
	prev := serverRecord()

	request := prev.Clone()
	request.CurrentPhase = domain.PhaseDraw
	request.ActivePlayerID = domain.IntPtr(2)
	request.Players[1].Hand = cards(2, "g1", "e1", "e2")
	request.Players[1].Deck = nil

	out, res, err := Reconcile(&prev, submit(request, 1, prev.Revision), cfg)
	require.NoError(t, err)

	assert.True(t, res.DrawPerformed)
	assert.Equal(t, []string{"g1", "e1"}, handIDs(&out.Players[1]), "exactly one card drawn by the server")
	assert.Len(t, out.Players[1].Deck, 1)
	assert.Equal(t, 2, *out.ActivePlayerID)
	assert.Equal(t, domain.PhaseSetup, out.CurrentPhase)
	assert.Equal(t, prev.TurnSeq+1, out.TurnSeq)

	t.Run("replayed request is a stale transition", func(t *testing.T) {
		next := out.Clone()
		next.Revision++
		again, res, err := Reconcile(&next, submit(request, 1, prev.Revision), cfg)
		require.NoError(t, err)

		assert.True(t, res.StaleTransition)
		assert.False(t, res.DrawPerformed)
		assert.Equal(t, []string{"g1", "e1"}, handIDs(&again.Players[1]))
		assert.Equal(t, next.TurnSeq, again.TurnSeq)
		assert.Equal(t, domain.PhaseSetup, again.CurrentPhase)
	})

	t.Run("stale transition does not regress piles", func(t *testing.T) {
		next := out.Clone()
		next.Revision++
		old := prev.Clone()
		old.CurrentPhase = domain.PhaseDraw
		old.ActivePlayerID = domain.IntPtr(1)
		old.Players[0].Hand = nil

		again, res, err := Reconcile(&next, submit(old, 1, prev.Revision), cfg)
		require.NoError(t, err)

		assert.True(t, res.StaleTransition)
		assert.Equal(t, 2, *again.ActivePlayerID)
		assert.Equal(t, []string{"h1"}, handIDs(&again.Players[0]))
	})
}

func TestReconcile_SameActivePlayerDrawIsNotReplayed(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.CurrentPhase = domain.PhaseDraw
	snap.ActivePlayerID = domain.IntPtr(1)

	out, res, err := Reconcile(&prev, submit(snap, 1, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	assert.False(t, res.DrawPerformed)
	assert.False(t, res.StaleTransition)
	assert.Equal(t, []string{"h1"}, handIDs(&out.Players[0]))
	assert.Len(t, out.Players[0].Deck, 2)
	assert.Equal(t, prev.TurnSeq, out.TurnSeq)
	assert.Equal(t, domain.PhaseMain, out.CurrentPhase, "draw is never stored as the phase")
}

func TestReconcile_IncomingPlayerKeepsDiscardAndHistory(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	request := prev.Clone()
	request.CurrentPhase = domain.PhaseDraw
	request.ActivePlayerID = domain.IntPtr(2)
	request.Board[2][2] = nil
	request.Players[1].Discard = cards(2, "b2")
	request.Players[1].BoardHistory = []string{"b2"}
	request.Players[1].Hand = nil
	request.Players[0].Hand = nil
	request.Players[0].Discard = cards(1, "h1")

	out, res, err := Reconcile(&prev, submit(request, 1, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	require.True(t, res.DrawPerformed)
	incoming := out.Player(2)
	assert.Equal(t, []string{"g1", "e1"}, handIDs(incoming), "hand and deck stay with the server")
	require.Len(t, incoming.Discard, 1)
	assert.Equal(t, "b2", incoming.Discard[0].ID)
	assert.Equal(t, []string{"b2"}, incoming.BoardHistory)
	assert.Nil(t, out.Board[2][2])

	outgoing := out.Player(1)
	assert.Equal(t, []string{"h1"}, handIDs(outgoing))
	assert.Empty(t, outgoing.Discard)
	assert.NoError(t, out.Validate())
}

func TestReconcile_PartialSnapshot(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	prev.IsPrivate = true
	prev.ActiveGridSize = 5

	snap := domain.Session{ID: "room", Players: []domain.Player{{ID: 1, Score: 3}}}
	in := submit(snap, 1, prev.Revision)
	in.Keys = map[string]bool{"gameId": true, "players": true}
	in.Present = map[int]Presence{1: {Score: true}}

	out, res, err := Reconcile(&prev, in, rules.DefaultConfig())
	require.NoError(t, err)

	assert.False(t, res.BoardChanged)
	require.NotNil(t, out.Board[2][2], "an absent board is not an empty one")
	assert.Equal(t, "b2", out.Board[2][2].ID)
	assert.True(t, out.IsGameStarted)
	assert.True(t, out.IsPrivate)
	assert.Equal(t, 5, out.ActiveGridSize)
	assert.Equal(t, domain.PhaseMain, out.CurrentPhase)
	assert.Equal(t, 3, out.Players[0].Score)
	assert.Equal(t, []string{"h1"}, handIDs(&out.Players[0]))
	assert.Equal(t, []string{"g1"}, handIDs(&out.Players[1]))
}

func TestReconcile_HostFieldsNeedAFreshSnapshot(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.IsGameStarted = false
	snap.IsPrivate = true

	testCases := []struct {
		desc    string
		base    uint64
		turnSeq uint64
		started bool
	}{
		{desc: "stale revision", base: prev.Revision - 1, turnSeq: prev.TurnSeq, started: true},
		{desc: "earlier turn", base: prev.Revision, turnSeq: prev.TurnSeq - 1, started: true},
		{desc: "fresh", base: prev.Revision, turnSeq: prev.TurnSeq, started: false},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := snap.Clone()
			s.TurnSeq = tc.turnSeq
			out, _, err := Reconcile(&prev, submit(s, 1, tc.base), rules.DefaultConfig())
			require.NoError(t, err)
			assert.Equal(t, tc.started, out.IsGameStarted)
			assert.Equal(t, !tc.started, out.IsPrivate)
		})
	}
}

func TestReconcile_ScoreSnapshotClosesRound(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	prev.CurrentPhase = domain.PhaseSetup
	snap := prev.Clone()
	snap.Players[0].Score = 20

	in := submit(snap, 2, prev.Revision)
	out, res, err := Reconcile(&prev, in, rules.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, res.RoundClosed)
	assert.True(t, out.IsRoundEndPending)
	assert.Equal(t, []int{1}, out.RoundWinners[1])
	assert.Nil(t, out.GameWinnerID)
}

func TestReconcile_RoundLatchIsKept(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	prev.IsRoundEndPending = true
	prev.RoundWinners[1] = []int{2}
	prev.GameWinnerID = domain.IntPtr(2)

	snap := prev.Clone()
	snap.IsRoundEndPending = false
	snap.RoundWinners = map[int][]int{}
	snap.GameWinnerID = nil

	out, _, err := Reconcile(&prev, submit(snap, 1, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, out.IsRoundEndPending)
	assert.Equal(t, []int{2}, out.RoundWinners[1])
	assert.Equal(t, 2, *out.GameWinnerID)
}

func TestReconcile_Presence(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.Players[1].Score = 0
	snap.Players[1].DisplayName = ""
	snap.Players[1].Color = "red"

	in := submit(snap, 1, prev.Revision)
	in.Present = map[int]Presence{2: {Color: true}}
	prev.Players[1].Score = 7

	out, _, err := Reconcile(&prev, in, rules.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 7, out.Players[1].Score)
	assert.Equal(t, "guest", out.Players[1].DisplayName)
	assert.Equal(t, "red", out.Players[1].Color)
}

func TestReconcile_RepairUntrustedPile(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	prev.Board[0][0] = &domain.Card{ID: "mine", OwnerID: 1, Statuses: []domain.Status{{Type: domain.StatusStun, AddedBy: 2}}}
	snap := prev.Clone()
	snap.Board[0][0] = nil
	snap.Players[1].Discard = cards(1, "mine")

	out, res, err := Reconcile(&prev, submit(snap, 1, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"mine"}, res.Repaired)
	require.Len(t, out.Players[1].Discard, 1)
	assert.Equal(t, "mine", out.Players[1].Discard[0].ID)
	assert.Nil(t, out.Board[0][0])
}

func TestReconcile_DedupeFavoursServerLocation(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.Players[0].Hand = append(snap.Players[0].Hand, domain.Card{ID: "b2", OwnerID: 2})

	out, res, err := Reconcile(&prev, submit(snap, 1, prev.Revision-2), rules.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"b2"}, res.Deduplicated)
	assert.Equal(t, []string{"h1"}, handIDs(&out.Players[0]))
	require.NotNil(t, out.Board[2][2])
	assert.NoError(t, out.Validate())
}

func TestReconcile_RecomputesStatusesOnBoardChange(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.Board[1][2] = &domain.Card{ID: "h1", OwnerID: 1}
	snap.Board[2][1] = &domain.Card{ID: "d1", OwnerID: 1}
	snap.Players[0].Hand = nil
	snap.Players[0].Deck = cards(1, "d2")

	out, _, err := Reconcile(&prev, submit(snap, 1, prev.Revision), rules.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, out.Board[2][2].HasStatusBy(domain.StatusThreat, 1))
}

func TestBootstrap(t *testing.T) {
	t.Parallel()
	snap := domain.Session{
		ID: "new",
		Players: []domain.Player{
			{ID: 1, IsStandIn: true},
			{ID: 2, ReconnectToken: "leak"},
		},
	}
	snap.Board[1][1] = &domain.Card{ID: "a", OwnerID: 2}
	snap.Board[1][2] = &domain.Card{ID: "b", OwnerID: 2}

	out, res, err := Reconcile(nil, submit(snap, 0, 0), rules.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, res.Fresh)
	assert.Equal(t, domain.DefaultGridSize, out.ActiveGridSize)
	assert.Equal(t, 1, out.CurrentRound)
	assert.Equal(t, 1, out.TurnNumber)
	assert.Equal(t, 2, out.HostID, "stand-ins never host")
	assert.Empty(t, out.Players[1].ReconnectToken)
	assert.True(t, out.Board[1][1].HasStatus(domain.StatusSupport))

	_, _, err = Reconcile(nil, submit(domain.Session{}, 0, 0), rules.DefaultConfig())
	assert.ErrorIs(t, err, domain.ErrMissingSessionID)
}

func TestForceSync(t *testing.T) {
	t.Parallel()
	prev := serverRecord()
	snap := prev.Clone()
	snap.Players = snap.Players[:2]
	snap.Players[0].ReconnectToken = ""
	snap.HostID = 2
	snap.Revision = 1
	snap.Board[2][2] = nil

	_, err := ForceSync(&prev, submit(snap, 2, 0))
	assert.ErrorIs(t, err, domain.ErrNotHost)

	out, err := ForceSync(&prev, submit(snap, 1, 0))
	require.NoError(t, err)

	assert.Len(t, out.Players, 2)
	assert.Equal(t, "tok1", out.Players[0].ReconnectToken)
	assert.Equal(t, 1, out.HostID)
	assert.Equal(t, prev.Revision, out.Revision)
	assert.Equal(t, prev.TurnSeq+1, out.TurnSeq)
	assert.Nil(t, out.Board[2][2])
}
