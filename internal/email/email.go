package email

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Domenick1991/parkus/internal/events"
)

// Sender turns booking events into notifications for the renter and the spot
// owner. Delivery is a log line; redelivered events are skipped by EventID.
type Sender struct {
	mu   sync.Mutex
	seen map[string]struct{}
	out  func(format string, args ...any)
}

func NewSender() *Sender {
	return &Sender{seen: make(map[string]struct{}), out: log.Printf}
}

// Send reports whether a notification went out.
func (s *Sender) Send(ctx context.Context, event events.BookingEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if event.EventID != "" {
		s.mu.Lock()
		_, dup := s.seen[event.EventID]
		s.seen[event.EventID] = struct{}{}
		s.mu.Unlock()
		if dup {
			return false, nil
		}
	}

	subject := Subject(event)
	s.out("send email to user %d: %s", event.RenterID, subject)
	if event.OwnerID != 0 && event.OwnerID != event.RenterID {
		s.out("send email to user %d: %s", event.OwnerID, subject)
	}
	return true, nil
}

func Subject(event events.BookingEvent) string {
	when := event.StartTime.Format("2006-01-02 15:04")
	switch event.Type {
	case events.TypeBookingCreated:
		return fmt.Sprintf("booking #%d for spot %d at %s confirmed, total %s", event.BookingID, event.SpotID, when, event.TotalAmount)
	case events.TypeBookingCancelled:
		return fmt.Sprintf("booking #%d for spot %d at %s cancelled", event.BookingID, event.SpotID, when)
	case events.TypeBookingCompleted:
		return fmt.Sprintf("booking #%d for spot %d completed", event.BookingID, event.SpotID)
	case events.TypeBookingDeleted:
		return fmt.Sprintf("booking #%d for spot %d removed by an administrator", event.BookingID, event.SpotID)
	default:
		return fmt.Sprintf("booking #%d is now %s", event.BookingID, event.Status)
	}
}
