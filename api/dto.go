package api

import (
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
)

type spotResponse struct {
	ID           int64  `json:"id"`
	OwnerID      int64  `json:"owner_id"`
	Title        string `json:"title"`
	Location     string `json:"location"`
	PricePerHour string `json:"price_per_hour"`
	CreatedAt    string `json:"created_at"`
}

type windowResponse struct {
	ID        int64  `json:"id"`
	SpotID    int64  `json:"spot_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Booked    bool   `json:"booked"`
}

type bookingResponse struct {
	ID          int64  `json:"id"`
	WindowID    int64  `json:"window_id"`
	SpotID      int64  `json:"spot_id"`
	RenterID    int64  `json:"renter_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	BookedAt    string `json:"booked_at"`
}

type logEntryResponse struct {
	ID            int64  `json:"id"`
	EventID       string `json:"event_id"`
	BookingID     int64  `json:"booking_id"`
	Status        string `json:"status"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	DurationHours int64  `json:"duration_hours"`
	TotalAmount   string `json:"total_amount"`
	LoggedAt      string `json:"logged_at"`
}

func toSpotResponse(s *domain.ParkingSpot) spotResponse {
	return spotResponse{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Title:        s.Title,
		Location:     s.Location,
		PricePerHour: s.PricePerHour.String(),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}

func toWindowResponse(w *domain.Window) windowResponse {
	return windowResponse{
		ID:        w.ID,
		SpotID:    w.SpotID,
		StartTime: w.StartTime.Format(time.RFC3339),
		EndTime:   w.EndTime.Format(time.RFC3339),
		Booked:    w.Booked,
	}
}

func toWindowResponses(windows []domain.Window) []windowResponse {
	out := make([]windowResponse, 0, len(windows))
	for i := range windows {
		out = append(out, toWindowResponse(&windows[i]))
	}
	return out
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		WindowID:    b.WindowID,
		SpotID:      b.SpotID,
		RenterID:    b.RenterID,
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount.String(),
		BookedAt:    b.BookedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

func toLogEntryResponses(entries []domain.BookingLogEntry) []logEntryResponse {
	out := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryResponse{
			ID:            e.ID,
			EventID:       e.EventID,
			BookingID:     e.BookingID,
			Status:        string(e.Status),
			StartTime:     e.StartTime.Format(time.RFC3339),
			EndTime:       e.EndTime.Format(time.RFC3339),
			DurationHours: e.DurationHours,
			TotalAmount:   e.TotalAmount.String(),
			LoggedAt:      e.LoggedAt.Format(time.RFC3339),
		})
	}
	return out
}
