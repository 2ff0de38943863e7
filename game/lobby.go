package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"newavalon/protocol"
)

type roomDescription struct {
	id         string
	private    bool
	ready      bool
	players    int
	humans     int
	maxPlayers int
	started    bool
}

type routeRequest struct {
	sessionID string
	create    bool
	resp      chan routeResponse
}

type routeResponse struct {
	room Room
	err  error
}

type lobby struct {
	rooms                map[string]Room
	pubRoomsDescriptions map[string]roomDescription
	routeReqs            chan routeRequest
	removeRoomChan       chan Room
	pubGamesReq          chan chan []roomDescription
	roomDescUpdate       chan roomDescription
	shutdownReq          chan struct{}
	stopped              chan struct{}
	newRoom              RoomFactory
	tickerCreator        PeriodicTickerChannelCreator
	wg                   *sync.WaitGroup
}

func NewLobby(newRoom RoomFactory, tickerCreator PeriodicTickerChannelCreator, wg *sync.WaitGroup) *lobby {
	return &lobby{
		rooms:                map[string]Room{},
		pubRoomsDescriptions: map[string]roomDescription{},
		routeReqs:            make(chan routeRequest, 256),
		removeRoomChan:       make(chan Room, 32),
		pubGamesReq:          make(chan chan []roomDescription, 256),
		roomDescUpdate:       make(chan roomDescription, 256),
		shutdownReq:          make(chan struct{}),
		stopped:              make(chan struct{}),
		newRoom:              newRoom,
		tickerCreator:        tickerCreator,
		wg:                   wg,
	}
}

func (l *lobby) RequestUpdateDescription(desc roomDescription) {
	select {
	case l.roomDescUpdate <- desc:
	default:
	}
}

func (l *lobby) RemoveRoom(r Room) {
	select {
	case l.removeRoomChan <- r:
	case <-l.stopped:
	}
}

// Route returns the room for a session id. With create set, a missing room
// is created and started.
func (l *lobby) Route(ctx context.Context, sessionID string, create bool) (Room, error) {
	req := routeRequest{sessionID: sessionID, create: create, resp: make(chan routeResponse, 1)}
	select {
	case l.routeReqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.stopped:
		return nil, ErrShuttingDown
	}
	select {
	case resp := <-req.resp:
		return resp.room, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.stopped:
		return nil, ErrShuttingDown
	}
}

func (l *lobby) PublicSessions(ctx context.Context) []protocol.SessionSummary {
	respChan := make(chan []roomDescription, 1)
	select {
	case l.pubGamesReq <- respChan:
	case <-ctx.Done():
		return nil
	case <-l.stopped:
		return nil
	}
	var descs []roomDescription
	select {
	case descs = <-respChan:
	case <-ctx.Done():
		return nil
	case <-l.stopped:
		return nil
	}

	out := make([]protocol.SessionSummary, 0, len(descs))
	for _, d := range descs {
		out = append(out, protocol.SessionSummary{
			ID:         d.id,
			Players:    d.players,
			Humans:     d.humans,
			MaxPlayers: d.maxPlayers,
			Started:    d.started,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown tears down every room and stops the actor.
func (l *lobby) Shutdown(ctx context.Context) {
	select {
	case l.shutdownReq <- struct{}{}:
	case <-l.stopped:
	case <-ctx.Done():
	}
}

func (l *lobby) LobbyActor(started chan struct{}) {
	ticker := l.tickerCreator.Create(time.Second)
	pingTicker := l.tickerCreator.Create(time.Second * 30)

	close(started)

	for {
		select {
		case now := <-ticker:
			for _, r := range l.rooms {
				r.Tick(now)
			}
		case <-pingTicker:
			for _, r := range l.rooms {
				r.PingClients()
			}

		case req := <-l.routeReqs:
			l.handleRoute(req)

		case room := <-l.removeRoomChan:
			l.handleRemoveRoom(room)

		case desc := <-l.roomDescUpdate:
			l.handleDescriptionUpdate(desc)

		case pubGamesReq := <-l.pubGamesReq:
			l.handleGetPublicRoomsDescription(pubGamesReq)

		case <-l.shutdownReq:
			l.handleShutdown()
			return
		}
	}
}

func (l *lobby) handleRoute(req routeRequest) {
	if r, ok := l.rooms[req.sessionID]; ok {
		req.resp <- routeResponse{room: r}
		return
	}
	if !req.create {
		req.resp <- routeResponse{err: ErrSessionNotFound}
		return
	}

	r := l.newRoom(req.sessionID, l)
	l.rooms[req.sessionID] = r
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		r.GameLoop()
	}()
	log.Info().Str("session", req.sessionID).Msg("session created")
	req.resp <- routeResponse{room: r}
}

func (l *lobby) handleRemoveRoom(r Room) {
	id := r.ID()
	if current, ok := l.rooms[id]; ok && current == r {
		delete(l.rooms, id)
		delete(l.pubRoomsDescriptions, id)
		log.Info().Str("session", id).Msg("session removed")
	}
	r.CloseAndRelease()
}

func (l *lobby) handleDescriptionUpdate(desc roomDescription) {
	if _, ok := l.rooms[desc.id]; !ok {
		return
	}
	if desc.private || !desc.ready {
		delete(l.pubRoomsDescriptions, desc.id)
		return
	}
	l.pubRoomsDescriptions[desc.id] = desc
}

func (l *lobby) handleGetPublicRoomsDescription(req chan []roomDescription) {
	x := make([]roomDescription, 0, len(l.pubRoomsDescriptions))
	for _, description := range l.pubRoomsDescriptions {
		x = append(x, description)
	}

	req <- x
}

func (l *lobby) handleShutdown() {
	for id, r := range l.rooms {
		r.CloseAndRelease()
		delete(l.rooms, id)
	}
	clear(l.pubRoomsDescriptions)
	close(l.stopped)
	log.Info().Msg("lobby stopped")
}
