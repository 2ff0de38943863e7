package game

import (
	"context"
	"time"

	"newavalon/domain"
	"newavalon/protocol"
)

type NetworkSession interface {
	Close(errCode string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type UniqueIdGenerator interface {
	Generate() string
}

type PeriodicTickerChannelCreator interface {
	Create(duration time.Duration) <-chan time.Time
}

// TokenIssuer signs and checks reconnection tokens.
type TokenIssuer interface {
	Issue(sessionID string, playerID int) (string, error)
	Verify(token string) (sessionID string, playerID int, err error)
}

type DeckSource interface {
	Build(deckID string, ownerID int) ([]domain.Card, error)
}

type ActionRecorder interface {
	Record(a domain.Action)
}

// Client is one connection as seen by a room.
type Client interface {
	ID() string
	Send(data []byte) bool
	Ping()
	Close(errCode string)
}

type Room interface {
	ID() string
	Enqueue(ev roomEvent) bool
	Tick(now time.Time)
	PingClients()
	GameLoop()
	CloseAndRelease()
}

type Lobby interface {
	RequestUpdateDescription(desc roomDescription)
	RemoveRoom(r Room)
}

// Router resolves the room a command is addressed to.
type Router interface {
	Route(ctx context.Context, sessionID string, create bool) (Room, error)
	PublicSessions(ctx context.Context) []protocol.SessionSummary
}

type RoomFactory func(id string, parent Lobby) Room
