package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `b.id, b.window_id, b.spot_id, b.renter_id, b.status, b.total_amount_cents, b.booked_at, b.updated_at`

type PGBookingRepository struct {
	db          *pgxpool.Pool
	audit       *PGAuditLog
	lockTimeout time.Duration
}

func NewBookingRepository(db *pgxpool.Pool, audit *PGAuditLog, lockTimeout time.Duration) BookingRepository {
	return &PGBookingRepository{db: db, audit: audit, lockTimeout: lockTimeout}
}

// Claim holds the window row lock (SELECT ... FOR UPDATE) from the booked check
// until the booking row, the booked flag and the audit entry are committed.
func (r *PGBookingRepository) Claim(ctx context.Context, windowID int64, at time.Time, decide ClaimFunc) (*Mutation, error) {
	tx, err := beginLocked(ctx, r.db, r.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := lockWindow(ctx, tx, windowID)
	if err != nil {
		return nil, err
	}
	spot, err := getSpot(ctx, tx, w.SpotID, false)
	if err != nil {
		return nil, err
	}

	b, err := decide(w, spot)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `INSERT INTO bookings (window_id, spot_id, renter_id, status, total_amount_cents, booked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, updated_at`,
		b.WindowID, b.SpotID, b.RenterID, string(b.Status), b.TotalAmount.Cents(), b.BookedAt).
		Scan(&b.ID, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyBooked
		}
		return nil, storageErr("insert booking", err)
	}

	if err := setBooked(ctx, tx, w.ID, true); err != nil {
		return nil, err
	}
	w.Booked = true

	entry := domain.NewBookingLogEntry(b, w, spot, at)
	if err := r.audit.append(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return &Mutation{Booking: b, Window: w, Entry: entry}, nil
}

func (r *PGBookingRepository) Transition(ctx context.Context, bookingID int64, at time.Time, decide TransitionFunc) (*Mutation, error) {
	tx, err := beginLocked(ctx, r.db, r.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, w, spot, err := r.lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	held := b.HoldsWindow()
	next, err := decide(b, w, spot)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=$2 WHERE id=$3 RETURNING updated_at`,
		string(next), at, b.ID).Scan(&b.UpdatedAt); err != nil {
		return nil, storageErr("update booking status", err)
	}
	b.Status = next

	if next == domain.BookingStatusCancelled && held && w.Booked {
		if err := setBooked(ctx, tx, w.ID, false); err != nil {
			return nil, err
		}
		w.Booked = false
	}

	entry := domain.NewBookingLogEntry(b, w, spot, at)
	if err := r.audit.append(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return &Mutation{Booking: b, Window: w, Entry: entry}, nil
}

// Delete removes the booking row and frees its window. The audit entry keeps
// the booking's last status.
func (r *PGBookingRepository) Delete(ctx context.Context, bookingID int64, at time.Time) (*Mutation, error) {
	tx, err := beginLocked(ctx, r.db, r.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, w, spot, err := r.lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, b.ID); err != nil {
		return nil, storageErr("delete booking", err)
	}
	if b.HoldsWindow() && w.Booked {
		if err := setBooked(ctx, tx, w.ID, false); err != nil {
			return nil, err
		}
		w.Booked = false
	}

	entry := domain.NewBookingLogEntry(b, w, spot, at)
	if err := r.audit.append(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return &Mutation{Booking: b, Window: w, Entry: entry}, nil
}

// lockBooking locks the window first and the booking second, the same order
// Claim uses, so transitions and claims on one window never deadlock. A
// booking that released its window is still locked when the window row has
// since been deleted.
func (r *PGBookingRepository) lockBooking(ctx context.Context, tx pgx.Tx, bookingID int64) (*domain.Booking, *domain.Window, *domain.ParkingSpot, error) {
	var windowID int64
	if err := tx.QueryRow(ctx, `SELECT window_id FROM bookings WHERE id=$1`, bookingID).Scan(&windowID); err != nil {
		return nil, nil, nil, notFoundOr("find booking", err)
	}
	w, windowErr := lockWindow(ctx, tx, windowID)
	if windowErr != nil && !errors.Is(windowErr, domain.ErrNotFound) {
		return nil, nil, nil, windowErr
	}
	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id=$1 FOR UPDATE`, bookingID)
	b, err := scanBooking(row)
	if err != nil {
		return nil, nil, nil, notFoundOr("lock booking", err)
	}
	if windowErr != nil {
		if b.HoldsWindow() {
			return nil, nil, nil, windowErr
		}
		last, err := r.audit.last(ctx, tx, b.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		w = removedWindow(b, last)
	}
	spot, err := getSpot(ctx, tx, b.SpotID, false)
	if err != nil {
		return nil, nil, nil, err
	}
	return b, w, spot, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id=$1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFoundOr("get booking", err)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByRenter(ctx context.Context, renterID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.renter_id=$1 ORDER BY b.booked_at DESC`, renterID)
}

func (r *PGBookingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b
		JOIN parking_spots s ON s.id = b.spot_id
		WHERE s.owner_id=$1 ORDER BY b.booked_at DESC`, ownerID)
}

func (r *PGBookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.status=$1 ORDER BY b.booked_at DESC`, string(status))
}

func (r *PGBookingRepository) ListConfirmedEndedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b
		JOIN availability_windows w ON w.id = b.window_id
		WHERE b.status=$1 AND w.end_time < $2
		ORDER BY w.end_time`, string(domain.BookingStatusConfirmed), deadline)
}

func (r *PGBookingRepository) list(ctx context.Context, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr("scan booking", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list bookings", err)
	}
	return bookings, nil
}

func setBooked(ctx context.Context, tx pgx.Tx, windowID int64, booked bool) error {
	if _, err := tx.Exec(ctx, `UPDATE availability_windows SET booked=$1 WHERE id=$2`, booked, windowID); err != nil {
		return storageErr("update window booked", err)
	}
	return nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var status string
	var amount int64
	if err := row.Scan(&b.ID, &b.WindowID, &b.SpotID, &b.RenterID, &status, &amount, &b.BookedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	b.TotalAmount = domain.Money(amount)
	b.BookedAt = b.BookedAt.UTC()
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
