package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGAuditLog is the append-only booking_logs table. Appends only happen
// inside booking transactions; see PGBookingRepository.
type PGAuditLog struct {
	db *pgxpool.Pool
}

func NewAuditLog(db *pgxpool.Pool) *PGAuditLog {
	return &PGAuditLog{db: db}
}

func (l *PGAuditLog) append(ctx context.Context, q querier, e *domain.BookingLogEntry) error {
	err := q.QueryRow(ctx, `INSERT INTO booking_logs
		(event_id, booking_id, spot_id, owner_id, renter_id, start_time, end_time, duration_hours, total_amount_cents, status, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		e.EventID, e.BookingID, e.SpotID, e.OwnerID, e.RenterID, e.StartTime, e.EndTime,
		e.DurationHours, e.TotalAmount.Cents(), string(e.Status), e.LoggedAt).Scan(&e.ID)
	if err != nil {
		return storageErr("append booking log", err)
	}
	return nil
}

const logColumns = `id, event_id, booking_id, spot_id, owner_id, renter_id, start_time, end_time,
	duration_hours, total_amount_cents, status, logged_at`

// last returns the newest entry of a booking, or nil when it has none.
func (l *PGAuditLog) last(ctx context.Context, q querier, bookingID int64) (*domain.BookingLogEntry, error) {
	row := q.QueryRow(ctx, `SELECT `+logColumns+` FROM booking_logs WHERE booking_id=$1 ORDER BY id DESC LIMIT 1`, bookingID)
	e, err := scanLogEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read booking log", err)
	}
	return e, nil
}

func (l *PGAuditLog) ListByBooking(ctx context.Context, bookingID int64) ([]domain.BookingLogEntry, error) {
	rows, err := l.db.Query(ctx, `SELECT `+logColumns+` FROM booking_logs WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, storageErr("list booking logs", err)
	}
	defer rows.Close()

	entries := make([]domain.BookingLogEntry, 0)
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, storageErr("scan booking log", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list booking logs", err)
	}
	return entries, nil
}

func scanLogEntry(row pgx.Row) (*domain.BookingLogEntry, error) {
	var e domain.BookingLogEntry
	var amount int64
	var status string
	if err := row.Scan(&e.ID, &e.EventID, &e.BookingID, &e.SpotID, &e.OwnerID, &e.RenterID, &e.StartTime, &e.EndTime,
		&e.DurationHours, &amount, &status, &e.LoggedAt); err != nil {
		return nil, err
	}
	e.TotalAmount = domain.Money(amount)
	e.Status = domain.BookingStatus(status)
	return &e, nil
}

var _ AuditLog = (*PGAuditLog)(nil)
