package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ querier = (*pgxpool.Pool)(nil)
	_ querier = (pgx.Tx)(nil)
)

func NewPGStore(db *pgxpool.Pool, lockTimeout time.Duration) *Store {
	audit := NewAuditLog(db)
	return &Store{
		Spots:    NewSpotRepository(db),
		Windows:  NewWindowRepository(db, lockTimeout),
		Bookings: NewBookingRepository(db, audit, lockTimeout),
		Audit:    audit,
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

// notFoundOr maps pgx.ErrNoRows to domain.ErrNotFound and anything else to a
// storage failure.
func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return storageErr(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func beginLocked(ctx context.Context, db *pgxpool.Pool, lockTimeout time.Duration) (pgx.Tx, error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	if lockTimeout > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return nil, storageErr("set lock_timeout", err)
		}
	}
	return tx, nil
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}
