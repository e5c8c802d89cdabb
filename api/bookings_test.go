package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, windowID, renterID int64, actor domain.Actor) (*domain.Booking, error) {
	args := m.Called(ctx, windowID, renterID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UpdateStatus(ctx context.Context, bookingID int64, status domain.BookingStatus, actor domain.Actor) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, status, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) DeleteBooking(ctx context.Context, bookingID int64, actor domain.Actor) error {
	args := m.Called(ctx, bookingID, actor)
	return args.Error(0)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookingsByRenter(ctx context.Context, renterID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, renterID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookingsByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookingsByStatus(ctx context.Context, status string) ([]domain.Booking, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) BookingHistory(ctx context.Context, bookingID int64) ([]domain.BookingLogEntry, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.BookingLogEntry), args.Error(1)
}

func (m *MockBookingUseCase) CompleteElapsedBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

var (
	testRenter = domain.Actor{ID: 2, Role: domain.RoleUser}
	testAdmin  = domain.Actor{ID: 99, Role: domain.RoleAdmin}
)

func newTestContext(method, target string, body any, actor domain.Actor) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(actorKey, actor)
	return c, w
}

func sampleBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:          1,
		WindowID:    10,
		SpotID:      5,
		RenterID:    testRenter.ID,
		Status:      status,
		TotalAmount: 4500,
		BookedAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/bookings", gin.H{"window_id": 10}, testRenter)

	mockService.On("CreateBooking", c.Request.Context(), int64(10), testRenter.ID, testRenter).
		Return(sampleBooking(domain.BookingStatusConfirmed), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "45.00", response.TotalAmount)
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_createForRenter(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/bookings", gin.H{"window_id": 10, "renter_id": 2}, testAdmin)

	mockService.On("CreateBooking", c.Request.Context(), int64(10), int64(2), testAdmin).
		Return(sampleBooking(domain.BookingStatusConfirmed), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_createErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"already booked", domain.ErrAlreadyBooked, http.StatusConflict},
		{"past window", domain.ErrPastWindow, http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"storage", domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)

			c, w := newTestContext("POST", "/bookings", gin.H{"window_id": 10}, testRenter)
			mockService.On("CreateBooking", mock.Anything, int64(10), testRenter.ID, testRenter).Return(nil, tt.err)

			handler.create(c)

			assert.Equal(t, tt.code, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_createBadBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/bookings", gin.H{"renter_id": 2}, testRenter)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingHandler_updateStatus(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("PUT", "/bookings/1/status", gin.H{"status": "completed"}, testAdmin)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	mockService.On("UpdateStatus", c.Request.Context(), int64(1), domain.BookingStatusCompleted, testAdmin).
		Return(sampleBooking(domain.BookingStatusCompleted), nil)

	handler.updateStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusCompleted), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/bookings/1/cancel", nil, testRenter)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	mockService.On("CancelBooking", c.Request.Context(), int64(1), testRenter).
		Return(sampleBooking(domain.BookingStatusCancelled), nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusCancelled), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancelTooLate(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/bookings/1/cancel", nil, testRenter)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	mockService.On("CancelBooking", mock.Anything, int64(1), testRenter).Return(nil, domain.ErrTooLateToCancel)

	handler.cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too late to cancel")
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/bookings/abc", nil, testRenter)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext("GET", "/bookings/1", nil, testRenter)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	mockService.On("GetBooking", mock.Anything, int64(1)).Return(sampleBooking(domain.BookingStatusConfirmed), nil)

	handler.get(c)
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_list(t *testing.T) {
	bookings := []domain.Booking{*sampleBooking(domain.BookingStatusConfirmed)}

	t.Run("renter by default", func(t *testing.T) {
		mockService := &MockBookingUseCase{}
		handler := NewBookingHandler(mockService)
		c, w := newTestContext("GET", "/bookings", nil, testRenter)
		mockService.On("ListBookingsByRenter", mock.Anything, testRenter.ID).Return(bookings, nil)

		handler.list(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response []bookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("owner", func(t *testing.T) {
		mockService := &MockBookingUseCase{}
		handler := NewBookingHandler(mockService)
		c, w := newTestContext("GET", "/bookings?role=owner", nil, testRenter)
		mockService.On("ListBookingsByOwner", mock.Anything, testRenter.ID).Return([]domain.Booking{}, nil)

		handler.list(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("other user forbidden", func(t *testing.T) {
		mockService := &MockBookingUseCase{}
		handler := NewBookingHandler(mockService)
		c, w := newTestContext("GET", "/bookings?user_id=7", nil, testRenter)

		handler.list(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin looks up other user", func(t *testing.T) {
		mockService := &MockBookingUseCase{}
		handler := NewBookingHandler(mockService)
		c, w := newTestContext("GET", "/bookings?user_id=7", nil, testAdmin)
		mockService.On("ListBookingsByRenter", mock.Anything, int64(7)).Return(bookings, nil)

		handler.list(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("bad role", func(t *testing.T) {
		mockService := &MockBookingUseCase{}
		handler := NewBookingHandler(mockService)
		c, w := newTestContext("GET", "/bookings?role=pilot", nil, testRenter)

		handler.list(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBookingHandler_history(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/bookings/1/history", nil, testRenter)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	entries := []domain.BookingLogEntry{{
		ID:            1,
		EventID:       "e-1",
		BookingID:     1,
		Status:        domain.BookingStatusConfirmed,
		DurationHours: 3,
		TotalAmount:   4500,
	}}
	mockService.On("BookingHistory", mock.Anything, int64(1)).Return(entries, nil)

	handler.history(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []logEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, int64(3), response[0].DurationHours)
	assert.Equal(t, "45.00", response[0].TotalAmount)
}
