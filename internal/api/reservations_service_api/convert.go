package reservations_service_api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func BookingToMap(b *domain.Booking) map[string]interface{} {
	return map[string]interface{}{
		"id":           strconv.FormatInt(b.ID, 10),
		"window_id":    strconv.FormatInt(b.WindowID, 10),
		"spot_id":      strconv.FormatInt(b.SpotID, 10),
		"renter_id":    strconv.FormatInt(b.RenterID, 10),
		"status":       string(b.Status),
		"total_amount": b.TotalAmount.String(),
		"booked_at":    b.BookedAt.Format(time.RFC3339),
	}
}

func WindowToMap(w *domain.Window) map[string]interface{} {
	return map[string]interface{}{
		"id":         strconv.FormatInt(w.ID, 10),
		"spot_id":    strconv.FormatInt(w.SpotID, 10),
		"start_time": w.StartTime.Format(time.RFC3339),
		"end_time":   w.EndTime.Format(time.RFC3339),
		"booked":     w.Booked,
	}
}

func LogEntryToMap(e *domain.BookingLogEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":             strconv.FormatInt(e.ID, 10),
		"event_id":       e.EventID,
		"booking_id":     strconv.FormatInt(e.BookingID, 10),
		"spot_id":        strconv.FormatInt(e.SpotID, 10),
		"owner_id":       strconv.FormatInt(e.OwnerID, 10),
		"renter_id":      strconv.FormatInt(e.RenterID, 10),
		"start_time":     e.StartTime.Format(time.RFC3339),
		"end_time":       e.EndTime.Format(time.RFC3339),
		"duration_hours": strconv.FormatInt(e.DurationHours, 10),
		"total_amount":   e.TotalAmount.String(),
		"status":         string(e.Status),
		"logged_at":      e.LoggedAt.Format(time.RFC3339),
	}
}

func BookingToStruct(b *domain.Booking) (*structpb.Struct, error) {
	return structpb.NewStruct(BookingToMap(b))
}

func WindowToStruct(w *domain.Window) (*structpb.Struct, error) {
	return structpb.NewStruct(WindowToMap(w))
}

func BookingsToStruct(bookings []domain.Booking) (*structpb.Struct, error) {
	items := make([]interface{}, 0, len(bookings))
	for i := range bookings {
		items = append(items, BookingToMap(&bookings[i]))
	}
	return structpb.NewStruct(map[string]interface{}{"bookings": items})
}

func WindowsToStruct(windows []domain.Window) (*structpb.Struct, error) {
	items := make([]interface{}, 0, len(windows))
	for i := range windows {
		items = append(items, WindowToMap(&windows[i]))
	}
	return structpb.NewStruct(map[string]interface{}{"windows": items})
}

func LogEntriesToStruct(entries []domain.BookingLogEntry) (*structpb.Struct, error) {
	items := make([]interface{}, 0, len(entries))
	for i := range entries {
		items = append(items, LogEntryToMap(&entries[i]))
	}
	return structpb.NewStruct(map[string]interface{}{"entries": items})
}

// Int64Field accepts ids as JSON numbers or decimal strings, the way protojson
// renders int64.
func Int64Field(in *structpb.Struct, name string) (int64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != float64(int64(n)) {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		return n, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
}

func StringField(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func TimeField(in *structpb.Struct, name string) (time.Time, error) {
	s, err := StringField(in, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be an RFC 3339 timestamp", name))
	}
	return t, nil
}
