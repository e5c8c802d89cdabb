package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
)

// WindowInsertFunc validates a new window against the spot and its existing
// windows while the spot is locked, and returns the window to insert.
type WindowInsertFunc func(spot *domain.ParkingSpot, existing []domain.Window) (*domain.Window, error)

// WindowDeleteFunc vetoes a delete while the window row is locked.
type WindowDeleteFunc func(spot *domain.ParkingSpot, w *domain.Window) error

// ClaimFunc decides, under the window lock, which booking claims the window.
type ClaimFunc func(w *domain.Window, spot *domain.ParkingSpot) (*domain.Booking, error)

// TransitionFunc returns the next status for a locked booking. For a booking
// that no longer holds its window the window may already be deleted; w is then
// rebuilt by removedWindow.
type TransitionFunc func(b *domain.Booking, w *domain.Window, spot *domain.ParkingSpot) (domain.BookingStatus, error)

// Mutation is the committed result of a booking write together with the audit
// entry appended in the same transaction.
type Mutation struct {
	Booking *domain.Booking
	Window  *domain.Window
	Entry   *domain.BookingLogEntry
}

// removedWindow stands in for the deleted window of a booking that released
// it. Times come from the booking's latest log entry when there is one.
func removedWindow(b *domain.Booking, last *domain.BookingLogEntry) *domain.Window {
	w := &domain.Window{ID: b.WindowID, SpotID: b.SpotID}
	if last != nil {
		w.StartTime, w.EndTime = last.StartTime, last.EndTime
	}
	return w
}

type SpotRepository interface {
	Create(ctx context.Context, spot *domain.ParkingSpot) error
	GetByID(ctx context.Context, id int64) (*domain.ParkingSpot, error)
}

type WindowRepository interface {
	Insert(ctx context.Context, spotID int64, build WindowInsertFunc) (*domain.Window, error)
	Delete(ctx context.Context, id int64, check WindowDeleteFunc) (*domain.Window, error)
	GetByID(ctx context.Context, id int64) (*domain.Window, error)
	ListBySpot(ctx context.Context, spotID int64) ([]domain.Window, error)
}

type BookingRepository interface {
	Claim(ctx context.Context, windowID int64, at time.Time, decide ClaimFunc) (*Mutation, error)
	Transition(ctx context.Context, bookingID int64, at time.Time, decide TransitionFunc) (*Mutation, error)
	Delete(ctx context.Context, bookingID int64, at time.Time) (*Mutation, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByRenter(ctx context.Context, renterID int64) ([]domain.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error)
	ListConfirmedEndedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type AuditLog interface {
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.BookingLogEntry, error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Spots    SpotRepository
	Windows  WindowRepository
	Bookings BookingRepository
	Audit    AuditLog
}
