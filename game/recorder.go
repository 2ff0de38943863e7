package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"newavalon/domain"
)

type ActionAppender interface {
	AppendAction(ctx context.Context, a domain.Action) error
}

// actionLog writes actions from a bounded queue on its own goroutine. Actions
// are dropped when the queue is full so rooms never wait on the database.
type actionLog struct {
	repo  ActionAppender
	queue chan domain.Action
}

func NewActionLog(repo ActionAppender, size int) *actionLog {
	return &actionLog{repo: repo, queue: make(chan domain.Action, size)}
}

func (a *actionLog) Record(action domain.Action) {
	select {
	case a.queue <- action:
	default:
		log.Warn().Str("session", action.SessionID).Uint64("revision", action.Revision).Msg("action log full, dropping entry")
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (a *actionLog) Run(ctx context.Context) {
	for {
		select {
		case action := <-a.queue:
			a.write(action)
		case <-ctx.Done():
			for {
				select {
				case action := <-a.queue:
					a.write(action)
				default:
					return
				}
			}
		}
	}
}

func (a *actionLog) write(action domain.Action) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.repo.AppendAction(ctx, action); err != nil {
		log.Error().Err(err).Str("session", action.SessionID).Msg("failed to append action")
	}
}

type discardActions struct{}

func (discardActions) Record(domain.Action) {}

func NewDiscardActions() ActionRecorder {
	return discardActions{}
}
