package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pools and transactions. Repositories
// run against either, so the same code serves plain and transactional calls.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles all repositories behind one data source and provides
// transactional execution. Task transitions must write the task row and the
// region's slot row in one unit; WithinTx is what makes that atomic.
type Store interface {
	Users() UserRepository
	Requesters() RequesterRepository
	Certifiers() CertifierRepository
	Tasks() TaskRepository
	Slots() SlotRepository

	// WithinTx runs fn against repositories bound to a single transaction.
	// If fn returns an error nothing is committed. Transient serialization
	// failures are retried a bounded number of times.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

const maxTxAttempts = 3

type postgresStore struct {
	pool *pgxpool.Pool
	q    Querier
}

// NewPostgresStore returns a Store backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, q: pool}
}

func (s *postgresStore) Users() UserRepository           { return &userRepository{q: s.q} }
func (s *postgresStore) Requesters() RequesterRepository { return &requesterRepository{q: s.q} }
func (s *postgresStore) Certifiers() CertifierRepository { return &certifierRepository{q: s.q} }
func (s *postgresStore) Tasks() TaskRepository           { return &taskRepository{q: s.q} }
func (s *postgresStore) Slots() SlotRepository           { return &slotRepository{q: s.q} }

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// already transaction-bound; join the enclosing transaction
		return fn(s)
	}

	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (s *postgresStore) runTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&postgresStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isRetryableTxError matches serialization failures and deadlocks, which are
// safe to retry because nothing was committed.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
