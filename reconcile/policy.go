package reconcile

import (
	"slices"

	"newavalon/domain"
)

// Policy says how a field of an incoming snapshot relates to the server record.
type Policy int

const (
	// AlwaysFromSnapshot takes the value whenever the snapshot carries it.
	AlwaysFromSnapshot Policy = iota
	// FromSnapshotIfTrusted takes the value only when the submitter is trusted for it.
	FromSnapshotIfTrusted
	// NeverFromSnapshot keeps the server value.
	NeverFromSnapshot
	// KeepWhileSet keeps a set server value; an unset one follows FromSnapshotIfTrusted.
	KeepWhileSet
)

func (p Policy) String() string {
	switch p {
	case AlwaysFromSnapshot:
		return "always"
	case FromSnapshotIfTrusted:
		return "if-trusted"
	case NeverFromSnapshot:
		return "never"
	case KeepWhileSet:
		return "keep-while-set"
	}
	return "unknown"
}

// Trust is the submitter credential a FromSnapshotIfTrusted field requires.
type Trust int

const (
	TrustNone Trust = iota
	// TrustTurn: active player or host, same turn sequence, no turn transition.
	TrustTurn
	// TrustHostTurn: host, same turn sequence, no turn transition.
	TrustHostTurn
	// TrustHost: host.
	TrustHost
)

// name is the snapshot key the field is read from.
type sessionField struct {
	name   string
	policy Policy
	trust  Trust
	isSet  func(s *domain.Session) bool
	take   func(dst, snap *domain.Session)
}

var sessionFields = []sessionField{
	{
		name: "currentPhase", policy: FromSnapshotIfTrusted, trust: TrustTurn,
		take: func(dst, snap *domain.Session) {
			if snap.CurrentPhase != domain.PhaseDraw {
				dst.CurrentPhase = snap.CurrentPhase
			}
		},
	},
	{
		name: "activePlayerId", policy: FromSnapshotIfTrusted, trust: TrustTurn,
		take: func(dst, snap *domain.Session) {
			if snap.ActivePlayerID == nil || dst.Player(*snap.ActivePlayerID) != nil {
				dst.ActivePlayerID = clonePtr(snap.ActivePlayerID)
			}
		},
	},
	{
		name: "startingPlayerId", policy: FromSnapshotIfTrusted, trust: TrustHostTurn,
		take: func(dst, snap *domain.Session) {
			if snap.StartingPlayerID != nil && dst.Player(*snap.StartingPlayerID) != nil {
				dst.StartingPlayerID = clonePtr(snap.StartingPlayerID)
			}
		},
	},
	{
		name: "currentRound", policy: FromSnapshotIfTrusted, trust: TrustHostTurn,
		take: func(dst, snap *domain.Session) {
			if snap.CurrentRound > 0 {
				dst.CurrentRound = snap.CurrentRound
			}
		},
	},
	{
		name: "turnNumber", policy: FromSnapshotIfTrusted, trust: TrustHostTurn,
		take: func(dst, snap *domain.Session) {
			if snap.TurnNumber > 0 {
				dst.TurnNumber = snap.TurnNumber
			}
		},
	},
	{
		name: "isGameStarted", policy: FromSnapshotIfTrusted, trust: TrustHost,
		take: func(dst, snap *domain.Session) { dst.IsGameStarted = snap.IsGameStarted },
	},
	{
		name: "activeGridSize", policy: FromSnapshotIfTrusted, trust: TrustHost,
		take: func(dst, snap *domain.Session) {
			if domain.ValidGridSize(snap.ActiveGridSize) {
				dst.ActiveGridSize = snap.ActiveGridSize
			}
		},
	},
	{
		name: "isPrivate", policy: FromSnapshotIfTrusted, trust: TrustHost,
		take: func(dst, snap *domain.Session) { dst.IsPrivate = snap.IsPrivate },
	},
	{
		name: "isRoundEndModalOpen", policy: KeepWhileSet, trust: TrustHost,
		isSet: func(s *domain.Session) bool { return s.IsRoundEndPending },
		take:  func(dst, snap *domain.Session) { dst.IsRoundEndPending = snap.IsRoundEndPending },
	},
	{
		name: "gameWinner", policy: KeepWhileSet, trust: TrustHost,
		isSet: func(s *domain.Session) bool { return s.GameWinnerID != nil },
		take:  func(dst, snap *domain.Session) { dst.GameWinnerID = clonePtr(snap.GameWinnerID) },
	},
	{
		// rounds already recorded on the server are kept, new ones may be added
		name: "roundWinners", policy: KeepWhileSet, trust: TrustHost,
		isSet: func(s *domain.Session) bool { return false },
		take: func(dst, snap *domain.Session) {
			if dst.RoundWinners == nil {
				dst.RoundWinners = map[int][]int{}
			}
			for round, ids := range snap.RoundWinners {
				if _, ok := dst.RoundWinners[round]; !ok {
					dst.RoundWinners[round] = slices.Clone(ids)
				}
			}
		},
	},
	{name: "hostId", policy: NeverFromSnapshot},
	{name: "revision", policy: NeverFromSnapshot},
	{name: "turnSeq", policy: NeverFromSnapshot},
	{name: "players", policy: NeverFromSnapshot},
	{name: "spectators", policy: NeverFromSnapshot},
}

type playerField struct {
	name    string
	policy  Policy
	present func(p Presence) bool
	take    func(dst, snap *domain.Player)
	// incoming fields are also taken for the player a turn transition hands
	// the turn to.
	incoming bool
}

// Piles are FromSnapshotIfTrusted; the trust test is per player, see pileTrusted.
var playerFields = []playerField{
	{
		name: "score", policy: AlwaysFromSnapshot,
		present: func(p Presence) bool { return p.Score },
		take:    func(dst, snap *domain.Player) { dst.Score = snap.Score },
	},
	{
		name: "name", policy: AlwaysFromSnapshot,
		present: func(p Presence) bool { return p.DisplayName },
		take:    func(dst, snap *domain.Player) { dst.DisplayName = snap.DisplayName },
	},
	{
		name: "color", policy: AlwaysFromSnapshot,
		present: func(p Presence) bool { return p.Color },
		take:    func(dst, snap *domain.Player) { dst.Color = snap.Color },
	},
	{
		name: "connectivity", policy: AlwaysFromSnapshot,
		present: func(p Presence) bool { return p.Connectivity },
		take: func(dst, snap *domain.Player) {
			dst.IsDisconnected = snap.IsDisconnected
			dst.DisconnectedAt = nil
			if snap.IsDisconnected && snap.DisconnectedAt != nil {
				t := *snap.DisconnectedAt
				dst.DisconnectedAt = &t
			}
		},
	},
	{
		name: "autoDrawEnabled", policy: AlwaysFromSnapshot,
		present: func(p Presence) bool { return p.AutoDraw },
		take:    func(dst, snap *domain.Player) { dst.AutoDrawEnabled = snap.AutoDrawEnabled },
	},
	{
		name: "hand", policy: FromSnapshotIfTrusted,
		present: func(p Presence) bool { return p.Hand },
		take:    func(dst, snap *domain.Player) { dst.Hand = domain.CloneCards(snap.Hand) },
	},
	{
		name: "deck", policy: FromSnapshotIfTrusted,
		present: func(p Presence) bool { return p.Deck },
		take:    func(dst, snap *domain.Player) { dst.Deck = domain.CloneCards(snap.Deck) },
	},
	{
		name: "discard", policy: FromSnapshotIfTrusted, incoming: true,
		present: func(p Presence) bool { return p.Discard },
		take:    func(dst, snap *domain.Player) { dst.Discard = domain.CloneCards(snap.Discard) },
	},
	{
		name: "boardHistory", policy: FromSnapshotIfTrusted, incoming: true,
		present: func(p Presence) bool { return p.BoardHistory },
		take:    func(dst, snap *domain.Player) { dst.BoardHistory = slices.Clone(snap.BoardHistory) },
	},
	{name: "teamId", policy: NeverFromSnapshot},
	{name: "selectedDeck", policy: NeverFromSnapshot},
	{name: "isStandIn", policy: NeverFromSnapshot},
	{name: "reconnectToken", policy: NeverFromSnapshot},
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	return domain.IntPtr(*p)
}
