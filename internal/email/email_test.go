package email

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/parkus/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	var lines []string
	s := NewSender()
	s.out = func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	ev := events.BookingEvent{
		Type:        events.TypeBookingCreated,
		EventID:     "e-1",
		BookingID:   9,
		SpotID:      3,
		OwnerID:     1,
		RenterID:    2,
		StartTime:   time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		TotalAmount: "45.00",
	}

	sent, err := s.Send(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, lines, 2)
	assert.Equal(t, "send email to user 2: booking #9 for spot 3 at 2026-05-01 10:00 confirmed, total 45.00", lines[0])

	// redelivery
	sent, err = s.Send(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Len(t, lines, 2)
}

func TestSender_SendCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSender().Send(ctx, events.BookingEvent{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubject(t *testing.T) {
	assert.Contains(t, Subject(events.BookingEvent{Type: events.TypeBookingCancelled, BookingID: 1}), "cancelled")
	assert.Contains(t, Subject(events.BookingEvent{Type: events.TypeBookingDeleted, BookingID: 1}), "administrator")
	assert.Equal(t, "booking #4 is now pending", Subject(events.BookingEvent{Type: events.TypeStatusChanged, BookingID: 4, Status: "pending"}))
}
