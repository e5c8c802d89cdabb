package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingLogEntry is an append-only snapshot written with every booking mutation.
type BookingLogEntry struct {
	ID            int64
	EventID       string
	BookingID     int64
	SpotID        int64
	OwnerID       int64
	RenterID      int64
	StartTime     time.Time
	EndTime       time.Time
	DurationHours int64
	TotalAmount   Money
	Status        BookingStatus
	LoggedAt      time.Time
}

func NewBookingLogEntry(b *Booking, w *Window, spot *ParkingSpot, loggedAt time.Time) *BookingLogEntry {
	return &BookingLogEntry{
		EventID:       uuid.NewString(),
		BookingID:     b.ID,
		SpotID:        b.SpotID,
		OwnerID:       spot.OwnerID,
		RenterID:      b.RenterID,
		StartTime:     w.StartTime,
		EndTime:       w.EndTime,
		DurationHours: w.Hours(),
		TotalAmount:   b.TotalAmount,
		Status:        b.Status,
		LoggedAt:      loggedAt,
	}
}
