package game

import (
	"cmp"
	"fmt"
	"slices"

	"newavalon/domain"
	"newavalon/protocol"
	"newavalon/reconcile"
	"newavalon/rules"
)

var seatColors = []string{"blue", "red", "green", "yellow", "purple", "orange", "pink", "teal"}

func (r *room) handleCommand(c Client, env protocol.Envelope) {
	if env.SessionID != r.id {
		r.reject(c, env, domain.ErrSessionMismatch)
		return
	}
	if r.session == nil && env.Kind != protocol.KindSubmitState {
		r.reject(c, env, ErrSessionNotFound)
		return
	}

	var err error
	switch env.Kind {
	case protocol.KindSubmitState:
		err = r.handleSubmitState(c, env)
	case protocol.KindJoin:
		err = r.handleJoin(c, env)
	case protocol.KindJoinInvite:
		err = r.handleJoinInvite(c, env)
	case protocol.KindExit:
		err = r.handleExit(c, env)
	case protocol.KindForceSync:
		err = r.handleForceSync(c, env)
	case protocol.KindNextPhase, protocol.KindPrevPhase, protocol.KindSetPhase,
		protocol.KindToggleActivePlayer, protocol.KindStartGame, protocol.KindStartNextRound:
		err = r.handleTurnCommand(c, env)
	case protocol.KindUpdatePlayer:
		err = r.handleUpdatePlayer(c, env)
	case protocol.KindSetStandIns:
		err = r.handleSetStandIns(c, env)
	case protocol.KindMoveCard:
		err = r.handleMoveCard(c, env)
	default:
		err = protocol.ErrUnknownKind
	}
	if err != nil {
		r.reject(c, env, err)
	}
}

func (r *room) seated(c Client) (int, error) {
	seat := r.seatOf(c)
	if seat == 0 {
		return 0, domain.ErrNotSeated
	}
	return seat, nil
}

func (r *room) hostOnly(c Client) (int, error) {
	seat, err := r.seated(c)
	if err != nil {
		return 0, err
	}
	if seat != r.session.HostID {
		return 0, domain.ErrNotHost
	}
	return seat, nil
}

func (r *room) joined(c Client, seq uint64, playerID int, token string) {
	r.send(c, protocol.KindJoined, seq, protocol.Joined{
		SessionID: r.id,
		PlayerID:  playerID,
		Token:     token,
		Spectator: playerID == 0,
	})
}

func (r *room) handleSubmitState(c Client, env protocol.Envelope) error {
	msg, err := protocol.Decode[protocol.SubmitState](env.Payload)
	if err != nil {
		return err
	}
	snap, err := protocol.DecodeSnapshot(msg.GameState)
	if err != nil {
		return err
	}

	if r.session == nil {
		return r.bootstrap(c, env, msg, snap.Session)
	}

	seat := r.seatOf(c)
	reconnected := false
	if seat == 0 && msg.PlayerToken != "" {
		if seat, err = r.reconnect(c, msg.PlayerToken); err != nil {
			return err
		}
		reconnected = true
	}
	if seat == 0 {
		return domain.ErrNotSeated
	}

	next, res, err := reconcile.Reconcile(r.session, reconcile.Submission{
		Snapshot:     snap.Session,
		SubmitterID:  seat,
		BaseRevision: msg.BaseRevision,
		Present:      snap.Present,
		Keys:         snap.Keys,
	}, r.cfg.Rules)
	if err != nil {
		// the reconnect stands even when the snapshot does not
		if reconnected {
			r.commit(seat, env.Kind, "reconnect")
		}
		return err
	}
	if len(res.Repaired) > 0 || len(res.Deduplicated) > 0 || res.StaleTransition {
		r.log.Info().
			Int("player", seat).
			Strs("repaired", res.Repaired).
			Strs("deduplicated", res.Deduplicated).
			Bool("staleTransition", res.StaleTransition).
			Msg("snapshot repaired during merge")
	}
	r.session = &next
	r.commit(seat, env.Kind, fmt.Sprintf("base=%d draw=%t", msg.BaseRevision, res.DrawPerformed))
	return nil
}

func (r *room) bootstrap(c Client, env protocol.Envelope, msg protocol.SubmitState, snap domain.Session) error {
	if snap.ID != "" && snap.ID != r.id {
		return domain.ErrSessionMismatch
	}
	s, err := reconcile.Bootstrap(reconcile.Submission{Snapshot: snap, SubmitterID: msg.PlayerID})
	if err != nil {
		return err
	}
	r.session = &s

	seat := msg.PlayerID
	if p := s.Player(seat); p == nil || p.IsStandIn {
		seat = s.HostID
	}
	token := ""
	if seat != 0 {
		if token, err = r.bindSeat(c, seat); err != nil {
			return err
		}
	} else {
		r.attachSpectator(c)
	}
	r.log.Info().Int("host", s.HostID).Int("players", len(s.Players)).Msg("session bootstrapped")
	r.commit(seat, env.Kind, "bootstrap")
	r.joined(c, env.Seq, seat, token)
	return nil
}

func (r *room) handleJoin(c Client, env protocol.Envelope) error {
	msg, err := protocol.Decode[protocol.Join](env.Payload)
	if err != nil {
		return err
	}

	if msg.PlayerToken != "" {
		seat, err := r.reconnect(c, msg.PlayerToken)
		if err == nil {
			r.commit(seat, env.Kind, "reconnect")
			r.joined(c, env.Seq, seat, msg.PlayerToken)
			return nil
		}
		if r.session.IsGameStarted {
			return err
		}
	}
	if r.session.IsGameStarted {
		return domain.ErrGameAlreadyStarted
	}
	if r.seatOf(c) != 0 {
		return ErrAlreadySeated
	}

	seat := r.claimableSeat(msg.PlayerID)
	if seat == 0 {
		if len(r.session.Players) >= r.cfg.MaxPlayers {
			return ErrSessionFull
		}
		seat = r.addSeat(msg.DisplayName, false)
	}
	token, err := r.bindSeat(c, seat)
	if err != nil {
		return err
	}
	r.commit(seat, env.Kind, "")
	r.joined(c, env.Seq, seat, token)
	return nil
}

// claimableSeat returns a human seat nobody holds a token for, preferring the
// requested one.
func (r *room) claimableSeat(wanted int) int {
	free := func(p *domain.Player) bool {
		return p != nil && !p.IsStandIn && p.ReconnectToken == "" && r.seats[p.ID] == ""
	}
	if free(r.session.Player(wanted)) {
		return wanted
	}
	for i := range r.session.Players {
		if p := &r.session.Players[i]; free(p) {
			return p.ID
		}
	}
	return 0
}

func (r *room) addSeat(name string, standIn bool) int {
	id := r.session.NextPlayerID()
	if name == "" {
		name = fmt.Sprintf("Player %d", id)
		if standIn {
			name = fmt.Sprintf("Dummy %d", id)
		}
	}
	r.session.Players = append(r.session.Players, domain.Player{
		ID:              id,
		DisplayName:     name,
		Color:           r.freeColor(),
		IsStandIn:       standIn,
		AutoDrawEnabled: true,
	})
	return id
}

func (r *room) freeColor() string {
	for _, color := range seatColors {
		if !slices.ContainsFunc(r.session.Players, func(p domain.Player) bool { return p.Color == color }) {
			return color
		}
	}
	return seatColors[len(r.session.Players)%len(seatColors)]
}

func (r *room) handleJoinInvite(c Client, env protocol.Envelope) error {
	msg, err := protocol.Decode[protocol.JoinInvite](env.Payload)
	if err != nil {
		return err
	}
	if r.seatOf(c) != 0 {
		return ErrAlreadySeated
	}
	if r.session.IsGameStarted || len(r.session.Players) >= r.cfg.MaxPlayers {
		r.attachSpectator(c)
		r.commit(0, env.Kind, "spectator")
		r.joined(c, env.Seq, 0, "")
		return nil
	}

	seat := r.addSeat(msg.DisplayName, false)
	token, err := r.bindSeat(c, seat)
	if err != nil {
		return err
	}
	r.commit(seat, env.Kind, "")
	r.joined(c, env.Seq, seat, token)
	return nil
}

func (r *room) handleExit(c Client, env protocol.Envelope) error {
	seat := r.seatOf(c)
	r.detach(c)
	if seat == 0 {
		r.commit(0, env.Kind, "spectator")
		return nil
	}

	next := r.session.Clone()
	r.dropSeat(&next, seat)
	r.session = &next
	r.cancelTimer(timerGrace, seat)
	r.cancelTimer(timerRemoval, seat)
	r.scheduleEmptyCheck()
	r.commit(seat, env.Kind, "")
	return nil
}

func (r *room) handleForceSync(c Client, env protocol.Envelope) error {
	seat, err := r.hostOnly(c)
	if err != nil {
		return err
	}
	msg, err := protocol.Decode[protocol.ForceSync](env.Payload)
	if err != nil {
		return err
	}
	snap, err := protocol.DecodeSnapshot(msg.GameState)
	if err != nil {
		return err
	}
	next, err := reconcile.ForceSync(r.session, reconcile.Submission{Snapshot: snap.Session, SubmitterID: seat})
	if err != nil {
		return err
	}
	r.session = &next

	// seats that no longer exist fall back to spectating
	for playerID, connID := range r.seats {
		if next.Player(playerID) != nil {
			continue
		}
		delete(r.seats, playerID)
		if b, ok := r.conns[connID]; ok {
			b.playerID = 0
		}
	}
	for k := range r.timers {
		if k.playerID != 0 && next.Player(k.playerID) == nil {
			delete(r.timers, k)
		}
	}
	r.commit(seat, env.Kind, "")
	return nil
}

func (r *room) handleTurnCommand(c Client, env protocol.Envelope) error {
	seat, err := r.seated(c)
	if err != nil {
		return err
	}
	next := r.session.Clone()
	cfg := r.cfg.Rules

	switch env.Kind {
	case protocol.KindNextPhase:
		err = rules.NextPhase(&next, cfg)
	case protocol.KindPrevPhase:
		err = rules.PrevPhase(&next)
	case protocol.KindSetPhase:
		var msg protocol.SetPhase
		if msg, err = protocol.Decode[protocol.SetPhase](env.Payload); err == nil {
			err = rules.SetPhase(&next, msg.Index, cfg)
		}
	case protocol.KindToggleActivePlayer:
		var msg protocol.ToggleActivePlayer
		if msg, err = protocol.Decode[protocol.ToggleActivePlayer](env.Payload); err == nil {
			err = rules.ToggleActivePlayer(&next, cmp.Or(msg.PlayerID, seat), cfg)
		}
	case protocol.KindStartGame:
		if seat != next.HostID {
			return domain.ErrNotHost
		}
		err = rules.StartGame(&next, cfg)
	case protocol.KindStartNextRound:
		if seat != next.HostID {
			return domain.ErrNotHost
		}
		err = rules.StartNextRound(&next, cfg)
	}
	if err != nil {
		return err
	}
	r.session = &next
	r.commit(seat, env.Kind, next.CurrentPhase.String())
	return nil
}

func (r *room) handleUpdatePlayer(c Client, env protocol.Envelope) error {
	seat, err := r.seated(c)
	if err != nil {
		return err
	}
	msg, err := protocol.Decode[protocol.UpdatePlayer](env.Payload)
	if err != nil {
		return err
	}
	target := cmp.Or(msg.PlayerID, seat)
	if target != seat && seat != r.session.HostID {
		return domain.ErrNotHost
	}

	next := r.session.Clone()
	p := next.Player(target)
	if p == nil {
		return domain.ErrUnknownPlayer
	}
	if msg.DisplayName != nil {
		p.DisplayName = *msg.DisplayName
	}
	if msg.Color != nil {
		p.Color = *msg.Color
	}
	if msg.Score != nil {
		p.Score = *msg.Score
		rules.EvaluateRound(&next, r.cfg.Rules)
	}
	if msg.AutoDraw != nil {
		p.AutoDrawEnabled = *msg.AutoDraw
	}
	if msg.SelectedDeck != nil {
		if next.IsGameStarted {
			return domain.ErrGameAlreadyStarted
		}
		deck, err := r.decks.Build(*msg.SelectedDeck, target)
		if err != nil {
			return err
		}
		p.SelectedDeck = *msg.SelectedDeck
		p.Deck = deck
	}
	if msg.TeamID != nil {
		p.TeamID = *msg.TeamID
		next.Board = rules.RecomputeStatuses(next)
	}
	r.session = &next
	r.commit(seat, env.Kind, fmt.Sprintf("player=%d", target))
	return nil
}

func (r *room) handleSetStandIns(c Client, env protocol.Envelope) error {
	seat, err := r.hostOnly(c)
	if err != nil {
		return err
	}
	if r.session.IsGameStarted {
		return domain.ErrGameAlreadyStarted
	}
	msg, err := protocol.Decode[protocol.SetStandIns](env.Payload)
	if err != nil {
		return err
	}

	var standIns, humans []int
	for _, p := range r.session.Players {
		if p.IsStandIn {
			standIns = append(standIns, p.ID)
		} else {
			humans = append(humans, p.ID)
		}
	}
	if msg.Count < 0 || len(humans)+msg.Count > r.cfg.MaxPlayers {
		return ErrInvalidCount
	}

	next := r.session.Clone()
	r.session = &next
	// addSeat works on r.session, which is now next
	for len(standIns) > msg.Count {
		last := standIns[len(standIns)-1]
		next.RemovePlayer(last)
		standIns = standIns[:len(standIns)-1]
	}
	for len(standIns) < msg.Count {
		standIns = append(standIns, r.addSeat("", true))
	}
	next.Board = rules.RecomputeStatuses(next)
	r.commit(seat, env.Kind, fmt.Sprintf("count=%d", msg.Count))
	return nil
}

func (r *room) handleMoveCard(c Client, env protocol.Envelope) error {
	seat, err := r.seated(c)
	if err != nil {
		return err
	}
	msg, err := protocol.Decode[protocol.MoveCard](env.Payload)
	if err != nil {
		return err
	}
	next := r.session.Clone()
	changed, err := reconcile.MoveCard(&next, reconcile.Move{CardID: msg.CardID, From: msg.From, To: msg.To})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	r.session = &next
	r.commit(seat, env.Kind, msg.CardID)
	return nil
}
