package events

import (
	"strconv"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
)

const (
	TypeBookingCreated   = "booking_created"
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingCancelled = "booking_cancelled"
	TypeBookingCompleted = "booking_completed"
	TypeBookingDeleted   = "booking_deleted"
	TypeStatusChanged    = "booking_status_changed"
)

// BookingEvent is published after a booking mutation commits. EventID is the
// audit entry's id, so consumers can drop redeliveries.
type BookingEvent struct {
	Type          string    `json:"type"`
	EventID       string    `json:"event_id"`
	BookingID     int64     `json:"booking_id"`
	WindowID      int64     `json:"window_id"`
	SpotID        int64     `json:"spot_id"`
	OwnerID       int64     `json:"owner_id"`
	RenterID      int64     `json:"renter_id"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationHours int64     `json:"duration_hours"`
	TotalAmount   string    `json:"total_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, windowID int64, e *domain.BookingLogEntry) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		EventID:       e.EventID,
		BookingID:     e.BookingID,
		WindowID:      windowID,
		SpotID:        e.SpotID,
		OwnerID:       e.OwnerID,
		RenterID:      e.RenterID,
		Status:        string(e.Status),
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		DurationHours: e.DurationHours,
		TotalAmount:   e.TotalAmount.String(),
		OccurredAt:    e.LoggedAt,
	}
}

// TypeForStatus names the event emitted when a booking enters status.
func TypeForStatus(status domain.BookingStatus) string {
	switch status {
	case domain.BookingStatusConfirmed:
		return TypeBookingConfirmed
	case domain.BookingStatusCancelled:
		return TypeBookingCancelled
	case domain.BookingStatusCompleted:
		return TypeBookingCompleted
	default:
		return TypeStatusChanged
	}
}

// Key is the partition key: all events of one booking share it.
func (e BookingEvent) Key() string {
	return strconv.FormatInt(e.BookingID, 10)
}
