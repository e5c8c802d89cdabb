package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWindow(t *testing.T, store *Store, start time.Time) (*domain.ParkingSpot, *domain.Window) {
	t.Helper()
	ctx := context.Background()

	spot := &domain.ParkingSpot{OwnerID: 1, Title: "A1", PricePerHour: 1500}
	require.NoError(t, store.Spots.Create(ctx, spot))

	w, err := store.Windows.Insert(ctx, spot.ID, func(_ *domain.ParkingSpot, _ []domain.Window) (*domain.Window, error) {
		return &domain.Window{StartTime: start, EndTime: start.Add(3 * time.Hour)}, nil
	})
	require.NoError(t, err)
	return spot, w
}

func claimAs(renterID int64, at time.Time) ClaimFunc {
	return func(w *domain.Window, spot *domain.ParkingSpot) (*domain.Booking, error) {
		if w.Booked {
			return nil, domain.ErrAlreadyBooked
		}
		return &domain.Booking{
			WindowID:    w.ID,
			SpotID:      spot.ID,
			RenterID:    renterID,
			Status:      domain.BookingStatusPending,
			TotalAmount: spot.PricePerHour.Mul(w.Hours()),
			BookedAt:    at,
		}, nil
	}
}

func TestMemoryStore_ClaimOnce(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()
	_, w := seedWindow(t, store, now.Add(time.Hour))

	const renters = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 1; i <= renters; i++ {
		wg.Add(1)
		go func(renter int64) {
			defer wg.Done()
			_, err := store.Bookings.Claim(context.Background(), w.ID, now, claimAs(renter, now))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, domain.ErrAlreadyBooked) {
				rejected++
			}
		}(int64(i + 100))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, renters-1, rejected)

	got, err := store.Windows.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, got.Booked)
}

func TestMemoryStore_ClaimWritesAuditEntry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()
	spot, w := seedWindow(t, store, now.Add(time.Hour))

	m, err := store.Bookings.Claim(context.Background(), w.ID, now, claimAs(7, now))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(4500), m.Booking.TotalAmount)
	assert.Equal(t, "45.00", m.Booking.TotalAmount.String())

	entries, err := store.Audit.ListByBooking(context.Background(), m.Booking.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, spot.OwnerID, entries[0].OwnerID)
	assert.Equal(t, int64(3), entries[0].DurationHours)
	assert.Equal(t, domain.BookingStatusPending, entries[0].Status)
	assert.NotEmpty(t, entries[0].EventID)
}

func TestMemoryStore_CancelFreesWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	_, w := seedWindow(t, store, now.Add(time.Hour))

	m, err := store.Bookings.Claim(ctx, w.ID, now, claimAs(7, now))
	require.NoError(t, err)

	m, err = store.Bookings.Transition(ctx, m.Booking.ID, now, func(_ *domain.Booking, _ *domain.Window, _ *domain.ParkingSpot) (domain.BookingStatus, error) {
		return domain.BookingStatusCancelled, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, m.Booking.Status)
	assert.False(t, m.Window.Booked)

	// the window can be claimed again
	_, err = store.Bookings.Claim(ctx, w.ID, now, claimAs(8, now))
	require.NoError(t, err)

	entries, err := store.Audit.ListByBooking(ctx, m.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemoryStore_TransitionRejectedLeavesState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	_, w := seedWindow(t, store, now.Add(time.Hour))

	m, err := store.Bookings.Claim(ctx, w.ID, now, claimAs(7, now))
	require.NoError(t, err)

	_, err = store.Bookings.Transition(ctx, m.Booking.ID, now, func(_ *domain.Booking, _ *domain.Window, _ *domain.ParkingSpot) (domain.BookingStatus, error) {
		return "", domain.ErrInvalidTransition
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	b, err := store.Bookings.GetByID(ctx, m.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	entries, err := store.Audit.ListByBooking(ctx, m.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoryStore_DeleteBooking(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	_, w := seedWindow(t, store, now.Add(time.Hour))

	m, err := store.Bookings.Claim(ctx, w.ID, now, claimAs(7, now))
	require.NoError(t, err)

	_, err = store.Bookings.Delete(ctx, m.Booking.ID, now)
	require.NoError(t, err)

	_, err = store.Bookings.GetByID(ctx, m.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := store.Windows.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, got.Booked)

	_, err = store.Bookings.Delete(ctx, m.Booking.ID, now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_Lists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	spot, w1 := seedWindow(t, store, now.Add(-4*time.Hour))
	w2, err := store.Windows.Insert(ctx, spot.ID, func(_ *domain.ParkingSpot, existing []domain.Window) (*domain.Window, error) {
		assert.Len(t, existing, 1)
		return &domain.Window{StartTime: now.Add(5 * time.Hour), EndTime: now.Add(6 * time.Hour)}, nil
	})
	require.NoError(t, err)

	past, err := store.Bookings.Claim(ctx, w1.ID, now, claimAs(7, now))
	require.NoError(t, err)
	_, err = store.Bookings.Transition(ctx, past.Booking.ID, now, func(_ *domain.Booking, _ *domain.Window, _ *domain.ParkingSpot) (domain.BookingStatus, error) {
		return domain.BookingStatusConfirmed, nil
	})
	require.NoError(t, err)
	future, err := store.Bookings.Claim(ctx, w2.ID, now, claimAs(8, now))
	require.NoError(t, err)

	byRenter, err := store.Bookings.ListByRenter(ctx, 7)
	require.NoError(t, err)
	require.Len(t, byRenter, 1)
	assert.Equal(t, past.Booking.ID, byRenter[0].ID)

	byOwner, err := store.Bookings.ListByOwner(ctx, spot.OwnerID)
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)
	assert.Equal(t, future.Booking.ID, byOwner[0].ID)

	pending, err := store.Bookings.ListByStatus(ctx, domain.BookingStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	ended, err := store.Bookings.ListConfirmedEndedBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, past.Booking.ID, ended[0].ID)

	windows, err := store.Windows.ListBySpot(ctx, spot.ID)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, w1.ID, windows[0].ID)
}

func TestMemoryStore_DeleteWindowVeto(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, w := seedWindow(t, store, time.Now().Add(time.Hour))

	_, err := store.Windows.Delete(ctx, w.ID, func(_ *domain.ParkingSpot, _ *domain.Window) error {
		return domain.ErrForbidden
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = store.Windows.Delete(ctx, w.ID, func(_ *domain.ParkingSpot, _ *domain.Window) error { return nil })
	require.NoError(t, err)

	_, err = store.Windows.GetByID(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Bookings.GetByID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
