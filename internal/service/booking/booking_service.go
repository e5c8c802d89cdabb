package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Domenick1991/parkus/internal/clock"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/events"
	"github.com/Domenick1991/parkus/internal/metrics"
	"github.com/Domenick1991/parkus/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, windowID, renterID int64, actor domain.Actor) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID int64, status domain.BookingStatus, actor domain.Actor) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, bookingID int64, actor domain.Actor) error
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookingsByRenter(ctx context.Context, renterID int64) ([]domain.Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error)
	ListBookingsByStatus(ctx context.Context, status string) ([]domain.Booking, error)
	BookingHistory(ctx context.Context, bookingID int64) ([]domain.BookingLogEntry, error)
	CompleteElapsedBookings(ctx context.Context) ([]domain.Booking, error)
}

// Cache is the part of the availability cache the engine keeps fresh.
type Cache interface {
	InvalidateSpot(ctx context.Context, spotID int64) error
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	audit              repository.AuditLog
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	publishRetries     int
	clock              clock.Clock
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

// WithProducer enables event publishing to topic after every committed mutation.
func WithProducer(producer Producer, topic string, retries int) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = topic
		s.publishRetries = retries
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

func NewBookingService(bookings repository.BookingRepository, audit repository.AuditLog, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		bookings:       bookings,
		audit:          audit,
		publishRetries: 1,
		clock:          clock.Real{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking claims the window for renterID. The booked check, the booking
// insert, the booked flag and the audit entry commit together under the window
// lock, so of many concurrent calls for one window exactly one succeeds and the
// rest get domain.ErrAlreadyBooked.
func (s *BookingService) CreateBooking(ctx context.Context, windowID, renterID int64, actor domain.Actor) (*domain.Booking, error) {
	if actor.ID != renterID && !actor.IsPrivileged() {
		return nil, domain.ErrForbidden
	}

	started := time.Now()
	now := s.clock.Now()
	m, err := s.bookings.Claim(ctx, windowID, now, func(w *domain.Window, spot *domain.ParkingSpot) (*domain.Booking, error) {
		if w.Booked {
			return nil, domain.ErrAlreadyBooked
		}
		if w.StartTime.Before(now) {
			return nil, domain.ErrPastWindow
		}
		if w.EndTime.Before(w.StartTime) {
			return nil, domain.ErrInvalidWindow
		}
		hours := w.Hours()
		if hours <= 0 {
			return nil, domain.ErrInvalidDuration
		}
		return &domain.Booking{
			WindowID:    w.ID,
			SpotID:      spot.ID,
			RenterID:    renterID,
			Status:      domain.BookingStatusConfirmed,
			TotalAmount: spot.PricePerHour.Mul(hours),
			BookedAt:    now,
		}, nil
	})
	metrics.ObserveClaim(claimOutcome(err), time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	log.Printf("booking: window %d claimed by renter %d as booking %d (%s)", windowID, renterID, m.Booking.ID, m.Booking.TotalAmount)
	s.afterCommit(ctx, events.TypeBookingCreated, m)
	return m.Booking, nil
}

// UpdateStatus moves a booking along the state machine on behalf of the spot
// owner or a privileged actor.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID int64, status domain.BookingStatus, actor domain.Actor) (*domain.Booking, error) {
	m, err := s.bookings.Transition(ctx, bookingID, s.clock.Now(), func(b *domain.Booking, _ *domain.Window, spot *domain.ParkingSpot) (domain.BookingStatus, error) {
		if !status.Valid() {
			return "", domain.ErrInvalidStatus
		}
		if spot.OwnerID != actor.ID && !actor.IsPrivileged() {
			return "", domain.ErrForbidden
		}
		if !b.Status.CanTransitionTo(status) {
			return "", domain.ErrInvalidTransition
		}
		return status, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, events.TypeForStatus(status), m)
	return m.Booking, nil
}

// CancelBooking cancels on behalf of the renter or the spot owner while the
// window has not started. Privileged actors skip the timing and state checks.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.Booking, error) {
	now := s.clock.Now()
	m, err := s.bookings.Transition(ctx, bookingID, now, func(b *domain.Booking, w *domain.Window, spot *domain.ParkingSpot) (domain.BookingStatus, error) {
		if actor.IsPrivileged() {
			return domain.BookingStatusCancelled, nil
		}
		if actor.ID != b.RenterID && actor.ID != spot.OwnerID {
			return "", domain.ErrForbidden
		}
		if !w.StartTime.After(now) {
			return "", domain.ErrTooLateToCancel
		}
		if !b.Status.Cancellable() {
			return "", domain.ErrInvalidState
		}
		return domain.BookingStatusCancelled, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("booking: booking %d cancelled by actor %d (%s)", bookingID, actor.ID, actor.Role)
	s.afterCommit(ctx, events.TypeBookingCancelled, m)
	return m.Booking, nil
}

// DeleteBooking is administrative cleanup: the row goes away, the window is
// freed and the audit log keeps the booking's last status.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID int64, actor domain.Actor) error {
	if !actor.IsPrivileged() {
		return domain.ErrForbidden
	}
	m, err := s.bookings.Delete(ctx, bookingID, s.clock.Now())
	if err != nil {
		return err
	}

	log.Printf("booking: booking %d deleted by actor %d", bookingID, actor.ID)
	s.afterCommit(ctx, events.TypeBookingDeleted, m)
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) ListBookingsByRenter(ctx context.Context, renterID int64) ([]domain.Booking, error) {
	return s.bookings.ListByRenter(ctx, renterID)
}

func (s *BookingService) ListBookingsByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	return s.bookings.ListByOwner(ctx, ownerID)
}

func (s *BookingService) ListBookingsByStatus(ctx context.Context, status string) ([]domain.Booking, error) {
	st, err := domain.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListByStatus(ctx, st)
}

// BookingHistory returns the audit entries of a booking in append order. It
// still answers for deleted bookings.
func (s *BookingService) BookingHistory(ctx context.Context, bookingID int64) ([]domain.BookingLogEntry, error) {
	entries, err := s.audit.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}
	return entries, nil
}

// CompleteElapsedBookings moves confirmed bookings whose window has ended to
// completed. Bookings changed concurrently since the listing are skipped.
func (s *BookingService) CompleteElapsedBookings(ctx context.Context) ([]domain.Booking, error) {
	now := s.clock.Now()
	elapsed, err := s.bookings.ListConfirmedEndedBefore(ctx, now)
	if err != nil {
		return nil, err
	}

	completed := make([]domain.Booking, 0, len(elapsed))
	for _, b := range elapsed {
		m, err := s.bookings.Transition(ctx, b.ID, now, func(cur *domain.Booking, _ *domain.Window, _ *domain.ParkingSpot) (domain.BookingStatus, error) {
			if !cur.Status.CanTransitionTo(domain.BookingStatusCompleted) {
				return "", domain.ErrInvalidTransition
			}
			return domain.BookingStatusCompleted, nil
		})
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) && !errors.Is(err, domain.ErrNotFound) {
				log.Printf("booking: complete booking %d: %v", b.ID, err)
			}
			continue
		}
		s.afterCommit(ctx, events.TypeBookingCompleted, m)
		completed = append(completed, *m.Booking)
	}
	return completed, nil
}

// afterCommit runs the side effects of a committed mutation. None of them can
// undo it: failures are logged.
func (s *BookingService) afterCommit(ctx context.Context, eventType string, m *repository.Mutation) {
	metrics.IncTransition(string(m.Booking.Status))

	if s.cache != nil {
		if err := s.cache.InvalidateSpot(ctx, m.Booking.SpotID); err != nil {
			log.Printf("booking: cache invalidate for spot %d: %v", m.Booking.SpotID, err)
		}
	}

	if err := s.publish(ctx, events.NewBookingEvent(eventType, m.Window.ID, m.Entry)); err != nil {
		metrics.IncPublishFailure()
		log.Printf("WARNING: failed to publish %s event for booking %d: %v", eventType, m.Booking.ID, err)
	}
}

func (s *BookingService) publish(ctx context.Context, event events.BookingEvent) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	if err := s.producer.PublishWithRetry(ctx, s.bookingTopic, event.Key(), event, s.publishRetries); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.PublishWithRetry(ctx, s.notificationsTopic, event.Key(), event, s.publishRetries)
	}
	return nil
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, domain.ErrAlreadyBooked):
		return metrics.OutcomeConflict
	case errors.Is(err, domain.ErrStorageUnavailable):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

var _ BookingUseCase = (*BookingService)(nil)
