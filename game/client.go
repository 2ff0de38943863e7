package game

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"newavalon/domain"
	"newavalon/protocol"
)

type client struct {
	id          string
	socket      NetworkSession
	rateLimiter *rate.Limiter
	outbox      chan []byte
	pingChan    chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

func NewClient(id string, socket NetworkSession, limiter *rate.Limiter) *client {
	return &client{
		id:          id,
		socket:      socket,
		rateLimiter: limiter,
		outbox:      make(chan []byte, 256),
		pingChan:    make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func (c *client) ID() string {
	return c.id
}

// Send queues data without blocking. It reports false when the buffer is full
// or the client is closed.
func (c *client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *client) Ping() {
	select {
	case c.pingChan <- struct{}{}:
	default:
	}
}

func (c *client) Close(errCode string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.socket.Close(errCode)
	})
}

func (c *client) sendError(seq uint64, kind protocol.Kind, err error) {
	c.Send(protocol.EncodeError("", seq, kind, err))
}

// ReadPump decodes frames and forwards them to the addressed room. When the
// socket closes, the current room is told through the same inbox, after the
// last command.
func (c *client) ReadPump(ctx context.Context, router Router) {
	var current Room
	defer func() {
		if current != nil {
			current.Enqueue(roomEvent{kind: eventLeave, from: c})
		}
		c.Close("")
	}()

	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}

		env, err := protocol.UnmarshalEnvelope(data)
		if err != nil {
			c.sendError(0, 0, err)
			continue
		}
		if !c.rateLimiter.Allow() {
			c.sendError(env.Seq, env.Kind, ErrRateLimited)
			continue
		}
		if !env.Kind.Inbound() {
			c.sendError(env.Seq, env.Kind, protocol.ErrUnknownKind)
			continue
		}

		if env.Kind == protocol.KindListSessions {
			data, err := protocol.Encode(protocol.KindSessions, "", env.Seq, protocol.Sessions{Sessions: router.PublicSessions(ctx)})
			if err == nil {
				c.Send(data)
			}
			continue
		}
		if env.SessionID == "" {
			c.sendError(env.Seq, env.Kind, domain.ErrMissingSessionID)
			continue
		}

		if current != nil && current.ID() != env.SessionID {
			current.Enqueue(roomEvent{kind: eventLeave, from: c})
			current = nil
		}
		ev := roomEvent{kind: eventCommand, from: c, env: env}
		if current != nil && current.Enqueue(ev) {
			continue
		}

		current, err = router.Route(ctx, env.SessionID, env.Kind == protocol.KindSubmitState)
		if err != nil {
			c.sendError(env.Seq, env.Kind, err)
			current = nil
			continue
		}
		if !current.Enqueue(ev) {
			c.sendError(env.Seq, env.Kind, ErrSessionNotFound)
			current = nil
		}
	}
}

func (c *client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outbox:
			if err := c.socket.Write(data); err != nil {
				log.Debug().Str("conn", c.id).Err(err).Msg("write failed")
				c.Close("")
				return
			}
		case <-c.pingChan:
			if err := c.socket.Ping(); err != nil {
				c.Close("")
				return
			}
		}
	}
}
