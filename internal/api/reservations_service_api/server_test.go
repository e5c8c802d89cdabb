package reservations_service_api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Domenick1991/parkus/internal/clock"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/repository"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	conn *grpc.ClientConn
	spot *domain.ParkingSpot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := repository.NewMemoryStore()
	fake := clock.NewFake(now)
	avail := availability.NewAvailabilityService(store.Spots, store.Windows, availability.WithClock(fake))
	bookings := booking.NewBookingService(store.Bookings, store.Audit, booking.WithClock(fake))

	spot, err := avail.CreateSpot(context.Background(), availability.CreateSpotInput{Title: "A1", PricePerHour: "15.00"}, domain.Actor{ID: 1, Role: domain.RoleUser})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryErrorInterceptor))
	RegisterReservationsServiceServer(srv, NewServer(avail, bookings))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{conn: conn, spot: spot}
}

func (h *harness) call(t *testing.T, actorID, role, method string, in map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)

	ctx := context.Background()
	if actorID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, ActorIDKey, actorID, ActorRoleKey, role)
	}
	out := new(structpb.Struct)
	err = h.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func TestServer_BookingFlow(t *testing.T) {
	h := newHarness(t)

	win, err := h.call(t, "1", "user", "CreateWindow", map[string]interface{}{
		"spot_id":    h.spot.ID,
		"start_time": now.Add(2 * time.Hour).Format(time.RFC3339),
		"end_time":   now.Add(5 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	windowID := win.GetFields()["id"].GetStringValue()
	assert.False(t, win.GetFields()["booked"].GetBoolValue())

	created, err := h.call(t, "2", "user", "CreateBooking", map[string]interface{}{"window_id": windowID})
	require.NoError(t, err)
	assert.Equal(t, "45.00", created.GetFields()["total_amount"].GetStringValue())
	assert.Equal(t, "confirmed", created.GetFields()["status"].GetStringValue())
	assert.Equal(t, "2", created.GetFields()["renter_id"].GetStringValue())

	_, err = h.call(t, "3", "user", "CreateBooking", map[string]interface{}{"window_id": windowID})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	bookingID := created.GetFields()["id"].GetStringValue()
	cancelled, err := h.call(t, "2", "user", "CancelBooking", map[string]interface{}{"booking_id": bookingID})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.GetFields()["status"].GetStringValue())

	available, err := h.call(t, "", "", "ListAvailableWindows", map[string]interface{}{"spot_id": h.spot.ID})
	require.NoError(t, err)
	assert.Len(t, available.GetFields()["windows"].GetListValue().GetValues(), 1)

	byRenter, err := h.call(t, "", "", "ListBookingsByRenter", map[string]interface{}{"renter_id": "2"})
	require.NoError(t, err)
	assert.Len(t, byRenter.GetFields()["bookings"].GetListValue().GetValues(), 1)
}

func TestServer_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.call(t, "", "", "CreateBooking", map[string]interface{}{"window_id": 1})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.call(t, "2", "user", "CreateBooking", map[string]interface{}{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.call(t, "2", "user", "CreateBooking", map[string]interface{}{"window_id": 404})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.call(t, "2", "user", "CreateWindow", map[string]interface{}{
		"spot_id":    h.spot.ID,
		"start_time": now.Add(time.Hour).Format(time.RFC3339),
		"end_time":   now.Add(2 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.call(t, "1", "user", "CreateWindow", map[string]interface{}{
		"spot_id":    h.spot.ID,
		"start_time": "tomorrow",
		"end_time":   now.Add(2 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.call(t, "", "", "GetBooking", map[string]interface{}{"booking_id": 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestInt64Field(t *testing.T) {
	in, err := structpb.NewStruct(map[string]interface{}{"a": 12, "b": "34", "c": true})
	require.NoError(t, err)

	a, err := Int64Field(in, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(12), a)

	b, err := Int64Field(in, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(34), b)

	_, err = Int64Field(in, "c")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = Int64Field(in, "missing")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
