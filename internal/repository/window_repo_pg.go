package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const windowColumns = `id, spot_id, start_time, end_time, booked, created_at`

type PGWindowRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewWindowRepository(db *pgxpool.Pool, lockTimeout time.Duration) WindowRepository {
	return &PGWindowRepository{db: db, lockTimeout: lockTimeout}
}

// Insert locks the parent spot row so that concurrent inserts for the same spot
// see each other's windows before the overlap check.
func (r *PGWindowRepository) Insert(ctx context.Context, spotID int64, build WindowInsertFunc) (*domain.Window, error) {
	tx, err := beginLocked(ctx, r.db, r.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	spot, err := getSpot(ctx, tx, spotID, true)
	if err != nil {
		return nil, err
	}
	existing, err := listWindows(ctx, tx, spotID)
	if err != nil {
		return nil, err
	}

	w, err := build(spot, existing)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `INSERT INTO availability_windows (spot_id, start_time, end_time, booked)
		VALUES ($1, $2, $3, false)
		RETURNING id, created_at`, spotID, w.StartTime, w.EndTime).Scan(&w.ID, &w.CreatedAt); err != nil {
		return nil, storageErr("insert window", err)
	}
	w.SpotID = spotID
	w.Booked = false

	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *PGWindowRepository) Delete(ctx context.Context, id int64, check WindowDeleteFunc) (*domain.Window, error) {
	tx, err := beginLocked(ctx, r.db, r.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := lockWindow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	spot, err := getSpot(ctx, tx, w.SpotID, false)
	if err != nil {
		return nil, err
	}
	if err := check(spot, w); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE id=$1`, id); err != nil {
		return nil, storageErr("delete window", err)
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *PGWindowRepository) GetByID(ctx context.Context, id int64) (*domain.Window, error) {
	row := r.db.QueryRow(ctx, `SELECT `+windowColumns+` FROM availability_windows WHERE id=$1`, id)
	w, err := scanWindow(row)
	if err != nil {
		return nil, notFoundOr("get window", err)
	}
	return w, nil
}

func (r *PGWindowRepository) ListBySpot(ctx context.Context, spotID int64) ([]domain.Window, error) {
	return listWindows(ctx, r.db, spotID)
}

func lockWindow(ctx context.Context, q querier, id int64) (*domain.Window, error) {
	row := q.QueryRow(ctx, `SELECT `+windowColumns+` FROM availability_windows WHERE id=$1 FOR UPDATE`, id)
	w, err := scanWindow(row)
	if err != nil {
		return nil, notFoundOr("lock window", err)
	}
	return w, nil
}

func listWindows(ctx context.Context, q querier, spotID int64) ([]domain.Window, error) {
	rows, err := q.Query(ctx, `SELECT `+windowColumns+` FROM availability_windows WHERE spot_id=$1 ORDER BY start_time`, spotID)
	if err != nil {
		return nil, storageErr("list windows", err)
	}
	defer rows.Close()

	windows := make([]domain.Window, 0)
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, storageErr("scan window", err)
		}
		windows = append(windows, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list windows", err)
	}
	return windows, nil
}

func scanWindow(row pgx.Row) (*domain.Window, error) {
	var w domain.Window
	if err := row.Scan(&w.ID, &w.SpotID, &w.StartTime, &w.EndTime, &w.Booked, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.StartTime = w.StartTime.UTC()
	w.EndTime = w.EndTime.UTC()
	return &w, nil
}

var _ WindowRepository = (*PGWindowRepository)(nil)
