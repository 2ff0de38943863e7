package reconcile

import (
	"cmp"
	"slices"

	"newavalon/domain"
	"newavalon/rules"
)

// Presence records which player fields a snapshot actually carried.
type Presence struct {
	Score        bool
	DisplayName  bool
	Color        bool
	Connectivity bool
	AutoDraw     bool
	Hand         bool
	Deck         bool
	Discard      bool
	BoardHistory bool
}

func FullPresence() Presence {
	return Presence{
		Score: true, DisplayName: true, Color: true, Connectivity: true, AutoDraw: true,
		Hand: true, Deck: true, Discard: true, BoardHistory: true,
	}
}

func (p Presence) pile(z domain.Zone) bool {
	switch z {
	case domain.ZoneHand:
		return p.Hand
	case domain.ZoneDeck:
		return p.Deck
	case domain.ZoneDiscard:
		return p.Discard
	}
	return false
}

// Submission is a client snapshot together with who sent it and which
// server revision it was built on.
type Submission struct {
	Snapshot     domain.Session
	SubmitterID  int
	BaseRevision uint64
	// Players missing from Present are treated as fully present.
	Present map[int]Presence
	// Keys lists the top-level keys the snapshot carried. Nil means all of them.
	Keys map[string]bool
}

func (in Submission) carried(key string) bool {
	return in.Keys == nil || in.Keys[key]
}

func (in Submission) presence(playerID int) Presence {
	if p, ok := in.Present[playerID]; ok {
		return p
	}
	return FullPresence()
}

type Result struct {
	Fresh           bool
	DrawPerformed   bool
	StaleTransition bool
	BoardChanged    bool
	RoundClosed     bool
	Repaired        []string
	Deduplicated    []string
}

type merger struct {
	prev       *domain.Session
	snap       *domain.Session
	in         Submission
	transition bool
	drawTarget int
	res        Result
}

// Reconcile merges a submission into the server record and returns the new
// record. prev is never modified. A nil prev bootstraps the session.
func Reconcile(prev *domain.Session, in Submission, cfg rules.Config) (domain.Session, Result, error) {
	if prev == nil {
		s, err := Bootstrap(in)
		if err != nil {
			return domain.Session{}, Result{}, err
		}
		return s, Result{Fresh: true, BoardChanged: true}, nil
	}

	snap := in.Snapshot.Clone()
	switch {
	case snap.ID == "":
		return domain.Session{}, Result{}, domain.ErrMissingSessionID
	case snap.ID != prev.ID:
		return domain.Session{}, Result{}, domain.ErrSessionMismatch
	case !snap.CurrentPhase.Valid():
		return domain.Session{}, Result{}, domain.ErrInvalidPhase
	case prev.Player(in.SubmitterID) == nil:
		return domain.Session{}, Result{}, domain.ErrUnknownPlayer
	}

	m := &merger{prev: prev, snap: &snap, in: in}
	m.res.Fresh = in.BaseRevision == prev.Revision

	// A draw request from an earlier turn is a stale transition. One for the
	// player already holding the turn is a same-turn update; that player's
	// draw has been done.
	if in.carried("currentPhase") && snap.CurrentPhase == domain.PhaseDraw {
		if snap.ActivePlayerID == nil || prev.Player(*snap.ActivePlayerID) == nil {
			return domain.Session{}, Result{}, domain.ErrUnknownPlayer
		}
		switch {
		case snap.TurnSeq < prev.TurnSeq:
			m.transition = true
			m.res.StaleTransition = true
		case !prev.IsActive(*snap.ActivePlayerID):
			m.drawTarget = *snap.ActivePlayerID
			m.transition = true
		}
	}

	out := prev.Clone()
	m.mergeBoard(&out)
	m.mergePlayers(&out)
	m.mergeSessionFields(&out)
	if m.res.Fresh {
		m.repair(&out)
	}
	m.dedupe(&out)

	if m.transition && !m.res.StaleTransition {
		if err := rules.SelectActivePlayer(&out, m.drawTarget, cfg); err != nil {
			return domain.Session{}, Result{}, err
		}
		m.res.DrawPerformed = true
	}

	m.res.BoardChanged = !out.Board.Equal(&prev.Board)
	if m.res.BoardChanged {
		out.Board = rules.RecomputeStatuses(out)
	}
	rules.EvaluateRound(&out, cfg)
	m.res.RoundClosed = out.IsRoundEndPending && !prev.IsRoundEndPending
	return out, m.res, nil
}

func (m *merger) trusted(t Trust) bool {
	host := m.in.SubmitterID == m.prev.HostID
	sameTurn := !m.transition && m.snap.TurnSeq == m.prev.TurnSeq
	switch t {
	case TrustTurn:
		return sameTurn && (host || m.prev.IsActive(m.in.SubmitterID))
	case TrustHostTurn:
		return sameTurn && host
	case TrustHost:
		return host && sameTurn && m.res.Fresh
	}
	return false
}

// ownerTrusted: the submitter speaks for itself, for stand-ins, and for the
// active player while the snapshot is from the current turn.
func (m *merger) ownerTrusted(playerID int) bool {
	if playerID == m.in.SubmitterID {
		return true
	}
	if m.prev.IsActive(playerID) && m.snap.TurnSeq == m.prev.TurnSeq {
		return true
	}
	p := m.prev.Player(playerID)
	return p != nil && p.IsStandIn
}

func (m *merger) pileTrusted(playerID int) bool {
	return !m.transition && m.ownerTrusted(playerID)
}

// incoming is the player a live turn transition hands the turn to.
func (m *merger) incoming(playerID int) bool {
	return m.transition && !m.res.StaleTransition && playerID == m.drawTarget
}

func (m *merger) mergeSessionFields(out *domain.Session) {
	for _, f := range sessionFields {
		if !m.in.carried(f.name) {
			continue
		}
		switch f.policy {
		case AlwaysFromSnapshot:
			f.take(out, m.snap)
		case FromSnapshotIfTrusted:
			if m.trusted(f.trust) {
				f.take(out, m.snap)
			}
		case KeepWhileSet:
			if !f.isSet(m.prev) && m.trusted(f.trust) {
				f.take(out, m.snap)
			}
		}
	}
}

func (m *merger) mergePlayers(out *domain.Session) {
	for i := range out.Players {
		dst := &out.Players[i]
		src := m.snap.Player(dst.ID)
		if src == nil {
			continue
		}
		pr := m.in.presence(dst.ID)
		for _, f := range playerFields {
			if f.present == nil || !f.present(pr) {
				continue
			}
			switch f.policy {
			case AlwaysFromSnapshot:
				f.take(dst, src)
			case FromSnapshotIfTrusted:
				if m.pileTrusted(dst.ID) || (f.incoming && m.incoming(dst.ID)) {
					f.take(dst, src)
				}
			}
		}
	}
}

// mergeBoard takes a fresh board wholesale. A stale one may only touch cells
// whose old and new occupants are owned by players the submitter speaks for.
func (m *merger) mergeBoard(out *domain.Session) {
	if m.res.StaleTransition || !m.in.carried("board") {
		return
	}
	if m.res.Fresh {
		out.Board = m.snap.Board.Clone()
		return
	}
	for r := range out.Board {
		for c := range out.Board[r] {
			old, neu := m.prev.Board[r][c], m.snap.Board[r][c]
			if sameCard(old, neu) {
				continue
			}
			if old != nil && !m.ownerTrusted(old.OwnerID) {
				continue
			}
			if neu != nil && !m.ownerTrusted(neu.OwnerID) {
				continue
			}
			if neu == nil {
				out.Board[r][c] = nil
				continue
			}
			cp := neu.Clone()
			out.Board[r][c] = &cp
		}
	}
}

func sameCard(a, b *domain.Card) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

var pileZones = []domain.Zone{domain.ZoneHand, domain.ZoneDeck, domain.ZoneDiscard}

func cardIDs(s *domain.Session) map[string]bool {
	ids := map[string]bool{}
	s.Board.Each(func(_, _ int, card *domain.Card) { ids[card.ID] = true })
	for _, p := range s.Players {
		for _, z := range pileZones {
			for _, card := range *p.Pile(z) {
				ids[card.ID] = true
			}
		}
	}
	return ids
}

// repair appends cards the sender placed into piles it is not trusted for,
// when they would otherwise vanish from the record.
func (m *merger) repair(out *domain.Session) {
	present := cardIDs(out)
	for i := range out.Players {
		dst := &out.Players[i]
		src := m.snap.Player(dst.ID)
		if src == nil {
			continue
		}
		pr := m.in.presence(dst.ID)
		for _, z := range pileZones {
			if !pr.pile(z) {
				continue
			}
			if m.pileTrusted(dst.ID) || (z == domain.ZoneDiscard && m.incoming(dst.ID)) {
				continue
			}
			pile := dst.Pile(z)
			for _, card := range *src.Pile(z) {
				if card.ID == "" || present[card.ID] {
					continue
				}
				card = card.Clone()
				card.ResetForPile()
				card.OwnerID = cmp.Or(card.OwnerID, dst.ID)
				*pile = append(*pile, card)
				present[card.ID] = true
				m.res.Repaired = append(m.res.Repaired, card.ID)
			}
		}
	}
}

type slot struct {
	loc   domain.Location
	index int
}

// dedupe keeps one copy of every card, preferring the location the server
// record had it at.
func (m *merger) dedupe(out *domain.Session) {
	seen := map[string][]slot{}
	var order []string
	note := func(id string, s slot) {
		if _, ok := seen[id]; !ok {
			order = append(order, id)
		}
		seen[id] = append(seen[id], s)
	}
	out.Board.Each(func(r, c int, card *domain.Card) {
		note(card.ID, slot{loc: domain.Location{Zone: domain.ZoneBoard, Row: r, Col: c}})
	})
	for _, p := range out.Players {
		for _, z := range pileZones {
			for i, card := range *p.Pile(z) {
				note(card.ID, slot{loc: domain.Location{Zone: z, PlayerID: p.ID}, index: i})
			}
		}
	}

	drop := map[slot]bool{}
	for _, id := range order {
		slots := seen[id]
		if len(slots) < 2 {
			continue
		}
		keep := 0
		if loc, ok := m.prev.FindCard(id); ok {
			if i := slices.IndexFunc(slots, func(s slot) bool { return s.loc == loc }); i >= 0 {
				keep = i
			}
		}
		for i, s := range slots {
			if i != keep {
				drop[s] = true
			}
		}
		m.res.Deduplicated = append(m.res.Deduplicated, id)
	}
	if len(drop) == 0 {
		return
	}

	for r := range out.Board {
		for c := range out.Board[r] {
			if drop[slot{loc: domain.Location{Zone: domain.ZoneBoard, Row: r, Col: c}}] {
				out.Board[r][c] = nil
			}
		}
	}
	for pi := range out.Players {
		p := &out.Players[pi]
		for _, z := range pileZones {
			pile := p.Pile(z)
			kept := (*pile)[:0]
			for i, card := range *pile {
				if !drop[slot{loc: domain.Location{Zone: z, PlayerID: p.ID}, index: i}] {
					kept = append(kept, card)
				}
			}
			*pile = kept
		}
	}
}
