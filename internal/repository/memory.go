package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
)

// keyedMutex hands out one mutex per id. The outer mutex only guards the map,
// so waiting on one id never blocks callers working on another.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// memoryState backs the in-memory repositories. mu guards the maps and is only
// held for the duration of a read or write, never across a decision callback.
type memoryState struct {
	mu       sync.RWMutex
	spots    map[int64]domain.ParkingSpot
	windows  map[int64]domain.Window
	bookings map[int64]domain.Booking
	logs     []domain.BookingLogEntry

	nextSpot, nextWindow, nextBooking, nextLog int64

	spotLocks   keyedMutex
	windowLocks keyedMutex
}

// NewMemoryStore returns repositories that keep everything in process memory.
// Claims are linearizable per window id, window inserts per spot id.
func NewMemoryStore() *Store {
	st := &memoryState{
		spots:    make(map[int64]domain.ParkingSpot),
		windows:  make(map[int64]domain.Window),
		bookings: make(map[int64]domain.Booking),
	}
	return &Store{
		Spots:    &MemorySpotRepository{st: st},
		Windows:  &MemoryWindowRepository{st: st},
		Bookings: &MemoryBookingRepository{st: st},
		Audit:    &MemoryAuditLog{st: st},
	}
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return storageErr(op, err)
	}
	return nil
}

func (st *memoryState) spot(id int64) (*domain.ParkingSpot, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.spots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (st *memoryState) window(id int64) (*domain.Window, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	w, ok := st.windows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (st *memoryState) booking(id int64) (*domain.Booking, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	b, ok := st.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (st *memoryState) lastLog(bookingID int64) *domain.BookingLogEntry {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for i := len(st.logs) - 1; i >= 0; i-- {
		if st.logs[i].BookingID == bookingID {
			e := st.logs[i]
			return &e
		}
	}
	return nil
}

func (st *memoryState) appendLog(e *domain.BookingLogEntry) {
	st.nextLog++
	e.ID = st.nextLog
	st.logs = append(st.logs, *e)
}

type MemorySpotRepository struct{ st *memoryState }

func (r *MemorySpotRepository) Create(ctx context.Context, spot *domain.ParkingSpot) error {
	if err := checkCtx(ctx, "insert spot"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.nextSpot++
	spot.ID = r.st.nextSpot
	if spot.CreatedAt.IsZero() {
		spot.CreatedAt = time.Now().UTC()
	}
	r.st.spots[spot.ID] = *spot
	return nil
}

func (r *MemorySpotRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingSpot, error) {
	if err := checkCtx(ctx, "get spot"); err != nil {
		return nil, err
	}
	return r.st.spot(id)
}

type MemoryWindowRepository struct{ st *memoryState }

func (r *MemoryWindowRepository) Insert(ctx context.Context, spotID int64, build WindowInsertFunc) (*domain.Window, error) {
	if err := checkCtx(ctx, "insert window"); err != nil {
		return nil, err
	}
	unlock := r.st.spotLocks.lock(spotID)
	defer unlock()

	spot, err := r.st.spot(spotID)
	if err != nil {
		return nil, err
	}
	existing := r.listBySpot(spotID)

	w, err := build(spot, existing)
	if err != nil {
		return nil, err
	}

	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.nextWindow++
	w.ID = r.st.nextWindow
	w.SpotID = spotID
	w.Booked = false
	w.CreatedAt = time.Now().UTC()
	r.st.windows[w.ID] = *w
	return w, nil
}

// Delete takes the spot lock before the window lock, the same order Insert
// uses, so a delete never races an overlap check.
func (r *MemoryWindowRepository) Delete(ctx context.Context, id int64, check WindowDeleteFunc) (*domain.Window, error) {
	if err := checkCtx(ctx, "delete window"); err != nil {
		return nil, err
	}
	w, err := r.st.window(id)
	if err != nil {
		return nil, err
	}
	unlockSpot := r.st.spotLocks.lock(w.SpotID)
	defer unlockSpot()
	unlockWindow := r.st.windowLocks.lock(id)
	defer unlockWindow()

	w, err = r.st.window(id)
	if err != nil {
		return nil, err
	}
	spot, err := r.st.spot(w.SpotID)
	if err != nil {
		return nil, err
	}
	if err := check(spot, w); err != nil {
		return nil, err
	}

	r.st.mu.Lock()
	delete(r.st.windows, id)
	r.st.mu.Unlock()
	return w, nil
}

func (r *MemoryWindowRepository) GetByID(ctx context.Context, id int64) (*domain.Window, error) {
	if err := checkCtx(ctx, "get window"); err != nil {
		return nil, err
	}
	return r.st.window(id)
}

func (r *MemoryWindowRepository) ListBySpot(ctx context.Context, spotID int64) ([]domain.Window, error) {
	if err := checkCtx(ctx, "list windows"); err != nil {
		return nil, err
	}
	return r.listBySpot(spotID), nil
}

func (r *MemoryWindowRepository) listBySpot(spotID int64) []domain.Window {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	out := make([]domain.Window, 0)
	for _, w := range r.st.windows {
		if w.SpotID == spotID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

type MemoryBookingRepository struct{ st *memoryState }

func (r *MemoryBookingRepository) Claim(ctx context.Context, windowID int64, at time.Time, decide ClaimFunc) (*Mutation, error) {
	if err := checkCtx(ctx, "claim window"); err != nil {
		return nil, err
	}
	unlock := r.st.windowLocks.lock(windowID)
	defer unlock()

	w, err := r.st.window(windowID)
	if err != nil {
		return nil, err
	}
	spot, err := r.st.spot(w.SpotID)
	if err != nil {
		return nil, err
	}

	b, err := decide(w, spot)
	if err != nil {
		return nil, err
	}

	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.bookings {
		if existing.WindowID == windowID && existing.Status != domain.BookingStatusCancelled {
			return nil, domain.ErrAlreadyBooked
		}
	}
	r.st.nextBooking++
	b.ID = r.st.nextBooking
	b.UpdatedAt = b.BookedAt
	r.st.bookings[b.ID] = *b

	w.Booked = true
	r.st.windows[w.ID] = *w

	entry := domain.NewBookingLogEntry(b, w, spot, at)
	r.st.appendLog(entry)
	return &Mutation{Booking: b, Window: w, Entry: entry}, nil
}

func (r *MemoryBookingRepository) Transition(ctx context.Context, bookingID int64, at time.Time, decide TransitionFunc) (*Mutation, error) {
	if err := checkCtx(ctx, "transition booking"); err != nil {
		return nil, err
	}
	b, w, spot, unlock, err := r.lockBooking(bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	held := b.HoldsWindow()
	next, err := decide(b, w, spot)
	if err != nil {
		return nil, err
	}

	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b.Status = next
	b.UpdatedAt = at
	r.st.bookings[b.ID] = *b
	if next == domain.BookingStatusCancelled && held && w.Booked {
		w.Booked = false
		r.st.windows[w.ID] = *w
	}

	entry := domain.NewBookingLogEntry(b, w, spot, at)
	r.st.appendLog(entry)
	return &Mutation{Booking: b, Window: w, Entry: entry}, nil
}

func (r *MemoryBookingRepository) Delete(ctx context.Context, bookingID int64, at time.Time) (*Mutation, error) {
	if err := checkCtx(ctx, "delete booking"); err != nil {
		return nil, err
	}
	b, w, spot, unlock, err := r.lockBooking(bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.bookings, b.ID)
	if b.HoldsWindow() && w.Booked {
		w.Booked = false
		r.st.windows[w.ID] = *w
	}

	entry := domain.NewBookingLogEntry(b, w, spot, at)
	r.st.appendLog(entry)
	return &Mutation{Booking: b, Window: w, Entry: entry}, nil
}

// lockBooking serializes on the booking's window id, which also serializes all
// operations on the booking itself. The id stays lockable after the window is
// deleted.
func (r *MemoryBookingRepository) lockBooking(bookingID int64) (*domain.Booking, *domain.Window, *domain.ParkingSpot, func(), error) {
	b, err := r.st.booking(bookingID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	unlock := r.st.windowLocks.lock(b.WindowID)

	b, err = r.st.booking(bookingID)
	if err == nil {
		var w *domain.Window
		if w, err = r.bookingWindow(b); err == nil {
			var spot *domain.ParkingSpot
			if spot, err = r.st.spot(b.SpotID); err == nil {
				return b, w, spot, unlock, nil
			}
		}
	}
	unlock()
	return nil, nil, nil, nil, err
}

// bookingWindow tolerates a deleted window only when the booking released it;
// a window is never deleted while booked.
func (r *MemoryBookingRepository) bookingWindow(b *domain.Booking) (*domain.Window, error) {
	w, err := r.st.window(b.WindowID)
	if errors.Is(err, domain.ErrNotFound) && !b.HoldsWindow() {
		return removedWindow(b, r.st.lastLog(b.ID)), nil
	}
	return w, err
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	if err := checkCtx(ctx, "get booking"); err != nil {
		return nil, err
	}
	return r.st.booking(id)
}

func (r *MemoryBookingRepository) ListByRenter(ctx context.Context, renterID int64) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool { return b.RenterID == renterID })
}

func (r *MemoryBookingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool {
		s, ok := r.st.spots[b.SpotID]
		return ok && s.OwnerID == ownerID
	})
}

func (r *MemoryBookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool { return b.Status == status })
}

func (r *MemoryBookingRepository) ListConfirmedEndedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	return r.filter(ctx, func(b domain.Booking) bool {
		w, ok := r.st.windows[b.WindowID]
		return ok && b.Status == domain.BookingStatusConfirmed && w.EndTime.Before(deadline)
	})
}

// filter runs keep with the state read-locked.
func (r *MemoryBookingRepository) filter(ctx context.Context, keep func(domain.Booking) bool) ([]domain.Booking, error) {
	if err := checkCtx(ctx, "list bookings"); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range r.st.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type MemoryAuditLog struct{ st *memoryState }

func (l *MemoryAuditLog) ListByBooking(ctx context.Context, bookingID int64) ([]domain.BookingLogEntry, error) {
	if err := checkCtx(ctx, "list booking logs"); err != nil {
		return nil, err
	}
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()
	out := make([]domain.BookingLogEntry, 0)
	for _, e := range l.st.logs {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	_ SpotRepository    = (*MemorySpotRepository)(nil)
	_ WindowRepository  = (*MemoryWindowRepository)(nil)
	_ BookingRepository = (*MemoryBookingRepository)(nil)
	_ AuditLog          = (*MemoryAuditLog)(nil)
)
