package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a repository method can run
// inside a caller-owned transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TxRunner executes fn with transaction-scoped repositories. The
// transaction commits only if fn returns nil.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ScheduleRepository, BookingRequestRepository) error) error
}

type PGTxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &PGTxRunner{pool: pool}
}

func (r *PGTxRunner) RunInTx(ctx context.Context, fn func(ScheduleRepository, BookingRequestRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(NewScheduleRepository(tx), NewBookingRequestRepository(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ TxRunner = (*PGTxRunner)(nil)
