package admin_gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/parkus/internal/clock"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/repository"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now    = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	owner  = domain.Actor{ID: 1, Role: domain.RoleUser}
	renter = domain.Actor{ID: 2, Role: domain.RoleUser}
	admin  = domain.Actor{ID: 99, Role: domain.RoleAdmin}
)

// actorHeader stands in for token parsing: the test sets X-Test-Actor to "admin" or "user".
func actorHeader(r *http.Request) (domain.Actor, error) {
	switch r.Header.Get("X-Test-Actor") {
	case "admin":
		return admin, nil
	case "user":
		return renter, nil
	default:
		return domain.Actor{}, errors.New("no token")
	}
}

type env struct {
	gw       *Gateway
	clock    *clock.Fake
	windowID int64
	booking  *domain.Booking
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	fake := clock.NewFake(now)
	avail := availability.NewAvailabilityService(store.Spots, store.Windows, availability.WithClock(fake))
	bookings := booking.NewBookingService(store.Bookings, store.Audit, booking.WithClock(fake))

	spot, err := avail.CreateSpot(ctx, availability.CreateSpotInput{PricePerHour: "10"}, owner)
	require.NoError(t, err)
	w, err := avail.CreateWindow(ctx, spot.ID, now.Add(time.Hour), now.Add(3*time.Hour), owner)
	require.NoError(t, err)
	b, err := bookings.CreateBooking(ctx, w.ID, renter.ID, renter)
	require.NoError(t, err)

	gw, err := NewGateway(bookings, avail, actorHeader)
	require.NoError(t, err)
	return &env{gw: gw, clock: fake, windowID: w.ID, booking: b}
}

func (e *env) do(method, path, actor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if actor != "" {
		req.Header.Set("X-Test-Actor", actor)
	}
	rec := httptest.NewRecorder()
	e.gw.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGateway_ListByStatus(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/admin/v1/bookings?status=confirmed", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["bookings"], 1)

	rec = e.do(http.MethodGet, "/admin/v1/bookings?status=archived", "admin")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "invalid status")
}

func TestGateway_RequiresAdmin(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/admin/v1/bookings?status=confirmed", "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/admin/v1/bookings?status=confirmed", "user").Code)
}

func TestGateway_PrivilegedCancelAfterStart(t *testing.T) {
	e := newEnv(t)
	e.clock.Advance(2 * time.Hour)

	rec := e.do(http.MethodPost, "/admin/v1/bookings/1/cancel", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	rec = e.do(http.MethodGet, "/admin/v1/bookings/1/history", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["entries"], 2)
}

func TestGateway_DeleteWindowAndBooking(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodDelete, "/admin/v1/windows/1", "admin")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodDelete, "/admin/v1/bookings/1", "admin")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodDelete, "/admin/v1/bookings/1", "admin")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodDelete, "/admin/v1/windows/1", "admin")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodDelete, "/admin/v1/windows/abc", "admin")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_CompleteSweep(t *testing.T) {
	e := newEnv(t)
	e.clock.Advance(4 * time.Hour)

	rec := e.do(http.MethodPost, "/admin/v1/sweeps/complete", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	completed := decode(t, rec)["bookings"].([]interface{})
	require.Len(t, completed, 1)
	assert.Equal(t, "completed", completed[0].(map[string]interface{})["status"])
}
