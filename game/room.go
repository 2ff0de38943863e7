package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"newavalon/domain"
	"newavalon/protocol"
)

type eventKind int

const (
	eventCommand eventKind = iota
	eventLeave
)

type roomEvent struct {
	kind eventKind
	from Client
	env  protocol.Envelope
}

// binding is a live connection; playerID 0 marks a spectator.
type binding struct {
	client   Client
	playerID int
}

type RoomDeps struct {
	Tokens   TokenIssuer
	Decks    DeckSource
	Recorder ActionRecorder
	Now      func() time.Time
}

type room struct {
	id       string
	cfg      RoomConfig
	parent   Lobby
	tokens   TokenIssuer
	decks    DeckSource
	recorder ActionRecorder
	now      func() time.Time
	log      zerolog.Logger

	session *domain.Session
	conns   map[string]*binding
	seats   map[int]string
	timers  map[timerKey]time.Time

	inbox     chan roomEvent
	ticks     chan time.Time
	pings     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewRoom(id string, parent Lobby, cfg RoomConfig, deps RoomDeps) *room {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	r := &room{
		id:       id,
		cfg:      cfg,
		parent:   parent,
		tokens:   deps.Tokens,
		decks:    deps.Decks,
		recorder: deps.Recorder,
		now:      now,
		log:      log.With().Str("session", id).Logger(),
		conns:    map[string]*binding{},
		seats:    map[int]string{},
		timers:   map[timerKey]time.Time{},
		inbox:    make(chan roomEvent, 1024),
		ticks:    make(chan time.Time, 24),
		pings:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	t := now()
	r.timers[timerKey{kind: timerInactivity}] = t.Add(cfg.InactivityTimeout)
	r.timers[timerKey{kind: timerEmpty}] = t.Add(cfg.EmptyTimeout)
	return r
}

func NewRoomFactory(cfg RoomConfig, deps RoomDeps) RoomFactory {
	return func(id string, parent Lobby) Room {
		return NewRoom(id, parent, cfg, deps)
	}
}

func (r *room) ID() string {
	return r.id
}

// Enqueue hands an event to the room. It fails once the room is closed.
func (r *room) Enqueue(ev roomEvent) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *room) Tick(now time.Time) {
	select {
	case r.ticks <- now:
	default:
	}
}

func (r *room) PingClients() {
	select {
	case r.pings <- struct{}{}:
	default:
	}
}

func (r *room) CloseAndRelease() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *room) GameLoop() {
	defer r.release()

	for {
		select {
		case <-r.done:
			return
		case ev := <-r.inbox:
			r.safely(func() { r.handleEvent(ev) })
		case now := <-r.ticks:
			r.safely(func() { r.handleTick(now) })
		case <-r.pings:
			for _, b := range r.conns {
				b.client.Ping()
			}
		}
	}
}

func (r *room) safely(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("recovered from panic in session handler")
		}
	}()
	fn()
}

func (r *room) release() {
	for id, b := range r.conns {
		b.client.Close("session-closed")
		delete(r.conns, id)
	}
	clear(r.seats)
	clear(r.timers)
}

func (r *room) handleEvent(ev roomEvent) {
	switch ev.kind {
	case eventCommand:
		r.handleCommand(ev.from, ev.env)
	case eventLeave:
		r.handleLeave(ev.from)
	}
}

// teardown closes the room; the lobby drops it from the registry.
func (r *room) teardown(reason string) {
	r.log.Info().Str("reason", reason).Msg("tearing down session")
	r.CloseAndRelease()
	r.parent.RemoveRoom(r)
}

func (r *room) description() roomDescription {
	d := roomDescription{id: r.id, maxPlayers: r.cfg.MaxPlayers}
	if r.session == nil {
		return d
	}
	d.ready = true
	d.private = r.session.IsPrivate
	d.started = r.session.IsGameStarted
	d.players = len(r.session.Players)
	for _, p := range r.session.Players {
		if !p.IsStandIn {
			d.humans++
		}
	}
	return d
}

func (r *room) publishDescription() {
	r.parent.RequestUpdateDescription(r.description())
}

func (r *room) spectatorCount() int {
	n := 0
	for _, b := range r.conns {
		if b.playerID == 0 {
			n++
		}
	}
	return n
}

// commit finalises an accepted mutation: new revision, log entry and a full
// state broadcast.
func (r *room) commit(playerID int, kind protocol.Kind, detail string) {
	r.commitSystem(playerID, kind.String(), detail)
	r.timers[timerKey{kind: timerInactivity}] = r.now().Add(r.cfg.InactivityTimeout)
}

// commitSystem is commit without counting as activity.
func (r *room) commitSystem(playerID int, kind, detail string) {
	r.session.Revision++
	r.session.Spectators = r.spectatorCount()
	if r.recorder != nil {
		r.recorder.Record(domain.Action{
			SessionID: r.id,
			Revision:  r.session.Revision,
			PlayerID:  playerID,
			Kind:      kind,
			Detail:    detail,
			At:        r.now(),
		})
	}
	r.broadcastState()
	r.publishDescription()
}

func (r *room) broadcastState() {
	data, err := protocol.EncodeState(*r.session, 0)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to encode state")
		return
	}
	var slow []Client
	for _, b := range r.conns {
		if !b.client.Send(data) {
			slow = append(slow, b.client)
		}
	}
	for _, c := range slow {
		r.log.Warn().Str("conn", c.ID()).Msg("dropping slow connection")
		r.handleLeave(c)
		c.Close("slow-consumer")
	}
}

func (r *room) send(c Client, kind protocol.Kind, seq uint64, payload any) {
	data, err := protocol.Encode(kind, r.id, seq, payload)
	if err != nil {
		r.log.Error().Err(err).Str("kind", kind.String()).Msg("failed to encode packet")
		return
	}
	c.Send(data)
}

func (r *room) reject(c Client, env protocol.Envelope, err error) {
	r.log.Debug().Str("conn", c.ID()).Str("cmd", env.Kind.String()).Err(err).Msg("command rejected")
	c.Send(protocol.EncodeError(r.id, env.Seq, env.Kind, err))
}
