package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"newavalon/domain"
)

var (
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
	ErrDuplicateAction      = errors.New("duplicate-action")
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (repo *PostgresRepo) Close() {
	repo.pool.Close()
}

func wrap(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", UnexpectedDatabaseError, err)
	}
}

func (repo *PostgresRepo) AppendAction(ctx context.Context, a domain.Action) error {
	_, err := repo.pool.Exec(ctx,
		"INSERT INTO session_actions(session_id, revision, player_id, kind, detail, created_at) VALUES($1, $2, $3, $4, $5, $6)",
		a.SessionID, int64(a.Revision), a.PlayerID, a.Kind, a.Detail, a.At,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAction
		}
		return wrap(err)
	}
	return nil
}

// ActionsForSession returns the latest actions of a session, newest first.
func (repo *PostgresRepo) ActionsForSession(ctx context.Context, sessionID string, limit int) ([]domain.Action, error) {
	rows, err := repo.pool.Query(ctx,
		"SELECT session_id, revision, player_id, kind, detail, created_at FROM session_actions WHERE session_id = $1 ORDER BY revision DESC LIMIT $2",
		sessionID, limit,
	)
	if err != nil {
		return nil, wrap(err)
	}

	actions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Action, error) {
		var a domain.Action
		var revision int64
		err := row.Scan(&a.SessionID, &revision, &a.PlayerID, &a.Kind, &a.Detail, &a.At)
		a.Revision = uint64(revision)
		return a, err
	})
	if err != nil {
		return nil, wrap(err)
	}
	return actions, nil
}
