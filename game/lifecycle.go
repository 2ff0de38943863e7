package game

import (
	"cmp"
	"slices"
	"time"

	"newavalon/domain"
	"newavalon/rules"
)

type timerKind int

const (
	timerGrace timerKind = iota
	timerRemoval
	timerInactivity
	timerEmpty
)

func (k timerKind) String() string {
	switch k {
	case timerGrace:
		return "grace"
	case timerRemoval:
		return "removal"
	case timerInactivity:
		return "inactivity"
	case timerEmpty:
		return "empty"
	}
	return "unknown"
}

// timerKey identifies a deadline; playerID is 0 for session-wide timers.
type timerKey struct {
	kind     timerKind
	playerID int
}

func (r *room) cancelTimer(kind timerKind, playerID int) {
	delete(r.timers, timerKey{kind: kind, playerID: playerID})
}

func (r *room) handleTick(now time.Time) {
	var due []timerKey
	for k, deadline := range r.timers {
		if !now.Before(deadline) {
			due = append(due, k)
		}
	}
	slices.SortFunc(due, func(a, b timerKey) int {
		return cmp.Or(cmp.Compare(a.kind, b.kind), cmp.Compare(a.playerID, b.playerID))
	})

	for _, k := range due {
		if _, ok := r.timers[k]; !ok {
			continue
		}
		delete(r.timers, k)
		r.fire(k, now)
		if r.closed() {
			return
		}
	}
}

func (r *room) closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *room) fire(k timerKey, now time.Time) {
	r.log.Debug().Str("timer", k.kind.String()).Int("player", k.playerID).Msg("timer fired")
	switch k.kind {
	case timerGrace:
		r.markDisconnected(k.playerID, now)
	case timerRemoval:
		r.removeAfterTimeout(k.playerID)
	case timerInactivity:
		r.teardown("inactive")
	case timerEmpty:
		if !r.hasConnectedHumans() {
			r.teardown("empty")
		}
	}
}

func (r *room) hasConnectedHumans() bool {
	return len(r.seats) > 0
}

func (r *room) scheduleEmptyCheck() {
	if r.hasConnectedHumans() {
		r.cancelTimer(timerEmpty, 0)
		return
	}
	key := timerKey{kind: timerEmpty}
	if _, ok := r.timers[key]; !ok {
		r.timers[key] = r.now().Add(r.cfg.EmptyTimeout)
	}
}

func (r *room) seatOf(c Client) int {
	if b, ok := r.conns[c.ID()]; ok {
		return b.playerID
	}
	return 0
}

// bindSeat attaches a connection to a seat. An earlier connection on the same
// seat is superseded and closed; its later close is ignored.
func (r *room) bindSeat(c Client, playerID int) (string, error) {
	p := r.session.Player(playerID)
	if p == nil {
		return "", domain.ErrUnknownPlayer
	}
	if p.IsStandIn {
		return "", domain.ErrInvalidSeat
	}
	if b, ok := r.conns[c.ID()]; ok && b.playerID != 0 && b.playerID != playerID {
		return "", ErrAlreadySeated
	}

	if p.ReconnectToken == "" {
		token, err := r.tokens.Issue(r.id, playerID)
		if err != nil {
			return "", err
		}
		p.ReconnectToken = token
	}

	if oldID, ok := r.seats[playerID]; ok && oldID != c.ID() {
		if old, ok := r.conns[oldID]; ok {
			delete(r.conns, oldID)
			old.client.Close("superseded")
			r.log.Info().Int("player", playerID).Str("conn", oldID).Msg("connection superseded")
		}
	}

	r.conns[c.ID()] = &binding{client: c, playerID: playerID}
	r.seats[playerID] = c.ID()
	p.IsDisconnected = false
	p.DisconnectedAt = nil
	if r.session.Player(r.session.HostID) == nil {
		r.session.HostID = playerID
	}
	r.cancelTimer(timerGrace, playerID)
	r.cancelTimer(timerRemoval, playerID)
	r.cancelTimer(timerEmpty, 0)
	return p.ReconnectToken, nil
}

// reconnect binds a connection to the seat a token was issued for. The token
// must be the one the seat currently holds.
func (r *room) reconnect(c Client, token string) (int, error) {
	sessionID, playerID, err := r.tokens.Verify(token)
	if err != nil || sessionID != r.id {
		return 0, ErrInvalidToken
	}
	p := r.session.Player(playerID)
	if p == nil || p.ReconnectToken != token {
		return 0, ErrInvalidToken
	}
	if _, err := r.bindSeat(c, playerID); err != nil {
		return 0, err
	}
	r.log.Info().Int("player", playerID).Str("conn", c.ID()).Msg("player reconnected")
	return playerID, nil
}

func (r *room) attachSpectator(c Client) {
	if _, ok := r.conns[c.ID()]; !ok {
		r.conns[c.ID()] = &binding{client: c}
	}
}

func (r *room) detach(c Client) {
	b, ok := r.conns[c.ID()]
	if !ok {
		return
	}
	delete(r.conns, c.ID())
	if b.playerID != 0 && r.seats[b.playerID] == c.ID() {
		delete(r.seats, b.playerID)
	}
}

// handleLeave runs when a connection closes. A seated player enters the
// grace period; the removal timer runs alongside it.
func (r *room) handleLeave(c Client) {
	b, ok := r.conns[c.ID()]
	if !ok {
		return
	}
	r.detach(c)
	if b.playerID != 0 && r.session != nil && r.session.Player(b.playerID) != nil {
		now := r.now()
		r.timers[timerKey{kind: timerGrace, playerID: b.playerID}] = now.Add(r.cfg.GracePeriod)
		r.timers[timerKey{kind: timerRemoval, playerID: b.playerID}] = now.Add(r.cfg.RemovalTimeout)
		r.log.Info().Int("player", b.playerID).Str("conn", c.ID()).Msg("player connection closed")
	}
	r.scheduleEmptyCheck()
}

func (r *room) markDisconnected(playerID int, now time.Time) {
	if r.session == nil {
		return
	}
	p := r.session.Player(playerID)
	if p == nil || r.seats[playerID] != "" {
		return
	}
	p.IsDisconnected = true
	t := now
	p.DisconnectedAt = &t
	r.commitSystem(playerID, "disconnected", "")
}

func (r *room) removeAfterTimeout(playerID int) {
	if r.session == nil || r.session.Player(playerID) == nil || r.seats[playerID] != "" {
		return
	}
	r.cancelTimer(timerGrace, playerID)

	next := r.session.Clone()
	switch r.cfg.Policy {
	case PolicyStandIn:
		p := next.Player(playerID)
		p.IsStandIn = true
		p.ReconnectToken = ""
		p.IsDisconnected = false
		p.DisconnectedAt = nil
	default:
		r.dropSeat(&next, playerID)
	}
	if next.HostID == playerID {
		next.HostID = r.nextHost(&next, playerID)
	}
	r.session = &next
	r.log.Info().Int("player", playerID).Str("policy", string(r.cfg.Policy)).Msg("disconnected player timed out")
	r.commitSystem(playerID, "removed", string(r.cfg.Policy))
}

// dropSeat removes a player for good. A turn it held is reset to Setup with
// no active player, and the host moves on.
func (r *room) dropSeat(s *domain.Session, playerID int) {
	wasActive := s.IsActive(playerID)
	s.RemovePlayer(playerID)
	s.Board = rules.RecomputeStatuses(*s)
	if wasActive {
		s.CurrentPhase = domain.PhaseSetup
	}
	if s.HostID == playerID {
		s.HostID = r.nextHost(s, playerID)
	}
}

// nextHost picks the next connected human seat after the leaving one. It
// returns 0 when there is none; the next human to bind a seat takes over.
func (r *room) nextHost(s *domain.Session, leaving int) int {
	ids := s.SortedPlayerIDs()
	start := slices.IndexFunc(ids, func(id int) bool { return id > leaving })
	if start < 0 {
		start = 0
	}
	ordered := append(slices.Clone(ids[start:]), ids[:start]...)

	for _, id := range ordered {
		if id == leaving {
			continue
		}
		p := s.Player(id)
		if p.IsStandIn || p.IsDisconnected || r.seats[id] == "" {
			continue
		}
		return id
	}
	return 0
}
