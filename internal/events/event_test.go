package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingEvent(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	entry := &domain.BookingLogEntry{
		EventID:       "4b3c1f0e-0000-4000-8000-000000000001",
		BookingID:     11,
		SpotID:        3,
		OwnerID:       1,
		RenterID:      2,
		StartTime:     start,
		EndTime:       start.Add(3 * time.Hour),
		DurationHours: 3,
		TotalAmount:   4500,
		Status:        domain.BookingStatusConfirmed,
		LoggedAt:      start.Add(-time.Hour),
	}

	ev := NewBookingEvent(TypeBookingCreated, 7, entry)
	assert.Equal(t, "11", ev.Key())
	assert.Equal(t, entry.EventID, ev.EventID)
	assert.Equal(t, int64(7), ev.WindowID)
	assert.Equal(t, "45.00", ev.TotalAmount)
	assert.Equal(t, "confirmed", ev.Status)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_amount":"45.00"`)
	assert.Contains(t, string(data), `"type":"booking_created"`)
}

func TestTypeForStatus(t *testing.T) {
	assert.Equal(t, TypeBookingConfirmed, TypeForStatus(domain.BookingStatusConfirmed))
	assert.Equal(t, TypeBookingCancelled, TypeForStatus(domain.BookingStatusCancelled))
	assert.Equal(t, TypeBookingCompleted, TypeForStatus(domain.BookingStatusCompleted))
	assert.Equal(t, TypeStatusChanged, TypeForStatus(domain.BookingStatusPending))
}
