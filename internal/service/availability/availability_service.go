package availability

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/parkus/internal/clock"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/metrics"
	"github.com/Domenick1991/parkus/internal/repository"
)

type AvailabilityUseCase interface {
	CreateSpot(ctx context.Context, input CreateSpotInput, actor domain.Actor) (*domain.ParkingSpot, error)
	GetSpot(ctx context.Context, id int64) (*domain.ParkingSpot, error)
	CreateWindow(ctx context.Context, spotID int64, start, end time.Time, actor domain.Actor) (*domain.Window, error)
	DeleteWindow(ctx context.Context, windowID int64, actor domain.Actor) error
	GetWindow(ctx context.Context, id int64) (*domain.Window, error)
	ListWindowsBySpot(ctx context.Context, spotID int64) ([]domain.Window, error)
	ListAvailableWindowsBySpot(ctx context.Context, spotID int64) ([]domain.Window, error)
}

// Cache holds the available windows of a spot. A nil slice from
// GetAvailableWindows is a miss; the version it returns goes back into
// SetAvailableWindows, which must drop the write if InvalidateSpot ran since.
type Cache interface {
	GetAvailableWindows(ctx context.Context, spotID int64) ([]domain.Window, int64, error)
	SetAvailableWindows(ctx context.Context, spotID, version int64, windows []domain.Window) error
	InvalidateSpot(ctx context.Context, spotID int64) error
}

type CreateSpotInput struct {
	OwnerID      int64  `json:"owner_id"`
	Title        string `json:"title"`
	Location     string `json:"location"`
	PricePerHour string `json:"price_per_hour"`
}

type AvailabilityService struct {
	spots   repository.SpotRepository
	windows repository.WindowRepository
	cache   Cache
	clock   clock.Clock
}

type AvailabilityServiceOption func(*AvailabilityService)

func WithCache(cache Cache) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		s.cache = cache
	}
}

func WithClock(c clock.Clock) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		s.clock = c
	}
}

func NewAvailabilityService(spots repository.SpotRepository, windows repository.WindowRepository, opts ...AvailabilityServiceOption) *AvailabilityService {
	s := &AvailabilityService{
		spots:   spots,
		windows: windows,
		clock:   clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSpot publishes a spot owned by the actor. Privileged actors may create
// spots on behalf of another owner.
func (s *AvailabilityService) CreateSpot(ctx context.Context, input CreateSpotInput, actor domain.Actor) (*domain.ParkingSpot, error) {
	ownerID := input.OwnerID
	switch {
	case actor.IsPrivileged():
		if ownerID == 0 {
			ownerID = actor.ID
		}
	case !actor.CanOwnSpots():
		return nil, domain.ErrForbidden
	case ownerID != 0 && ownerID != actor.ID:
		return nil, domain.ErrForbidden
	default:
		ownerID = actor.ID
	}

	price, err := domain.ParseMoney(input.PricePerHour)
	if err != nil {
		return nil, domain.ErrInvalidSpot
	}
	spot := &domain.ParkingSpot{
		OwnerID:      ownerID,
		Title:        input.Title,
		Location:     input.Location,
		PricePerHour: price,
		CreatedAt:    s.clock.Now(),
	}
	if err := spot.Validate(); err != nil {
		return nil, err
	}
	if err := s.spots.Create(ctx, spot); err != nil {
		return nil, err
	}
	return spot, nil
}

func (s *AvailabilityService) GetSpot(ctx context.Context, id int64) (*domain.ParkingSpot, error) {
	return s.spots.GetByID(ctx, id)
}

// CreateWindow validates and inserts under the spot lock, so two overlapping
// creates on one spot cannot both pass the overlap check.
func (s *AvailabilityService) CreateWindow(ctx context.Context, spotID int64, start, end time.Time, actor domain.Actor) (*domain.Window, error) {
	now := s.clock.Now()
	start, end = start.UTC(), end.UTC()

	w, err := s.windows.Insert(ctx, spotID, func(spot *domain.ParkingSpot, existing []domain.Window) (*domain.Window, error) {
		if spot.OwnerID != actor.ID && !actor.IsPrivileged() {
			return nil, domain.ErrForbidden
		}
		if !end.After(start) || start.Before(now) {
			return nil, domain.ErrInvalidWindow
		}
		for i := range existing {
			if existing[i].Overlaps(start, end) {
				return nil, domain.ErrWindowOverlap
			}
		}
		return &domain.Window{SpotID: spot.ID, StartTime: start, EndTime: end}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncWindowCreated()
	s.invalidate(ctx, spotID)
	return w, nil
}

func (s *AvailabilityService) DeleteWindow(ctx context.Context, windowID int64, actor domain.Actor) error {
	w, err := s.windows.Delete(ctx, windowID, func(spot *domain.ParkingSpot, w *domain.Window) error {
		if spot.OwnerID != actor.ID && !actor.IsPrivileged() {
			return domain.ErrForbidden
		}
		if w.Booked {
			return domain.ErrWindowBooked
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, w.SpotID)
	return nil
}

func (s *AvailabilityService) GetWindow(ctx context.Context, id int64) (*domain.Window, error) {
	return s.windows.GetByID(ctx, id)
}

func (s *AvailabilityService) ListWindowsBySpot(ctx context.Context, spotID int64) ([]domain.Window, error) {
	if _, err := s.spots.GetByID(ctx, spotID); err != nil {
		return nil, err
	}
	return s.windows.ListBySpot(ctx, spotID)
}

// ListAvailableWindowsBySpot returns unbooked windows starting after now.
// Cached entries are filtered again, since a cached window may have started
// since it was stored. A miss fills the cache at the version seen before the
// store read; a failed cache read skips the fill.
func (s *AvailabilityService) ListAvailableWindowsBySpot(ctx context.Context, spotID int64) ([]domain.Window, error) {
	now := s.clock.Now()

	fill := false
	var version int64
	if s.cache != nil {
		cached, v, err := s.cache.GetAvailableWindows(ctx, spotID)
		switch {
		case err != nil:
			log.Printf("availability: cache read for spot %d: %v", spotID, err)
		case cached != nil:
			return filterAvailable(cached, now), nil
		default:
			fill, version = true, v
		}
	}

	all, err := s.ListWindowsBySpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	available := filterAvailable(all, now)

	if fill {
		if err := s.cache.SetAvailableWindows(ctx, spotID, version, available); err != nil {
			log.Printf("availability: cache write for spot %d: %v", spotID, err)
		}
	}
	return available, nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, spotID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSpot(ctx, spotID); err != nil {
		log.Printf("availability: cache invalidate for spot %d: %v", spotID, err)
	}
}

func filterAvailable(windows []domain.Window, now time.Time) []domain.Window {
	out := make([]domain.Window, 0, len(windows))
	for i := range windows {
		if windows[i].IsAvailable(now) {
			out = append(out, windows[i])
		}
	}
	return out
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
