package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	WindowID int64 `json:"window_id" binding:"required"`
	RenterID int64 `json:"renter_id"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/history", h.history)
	router.PUT("/:id/status", h.updateStatus)
	router.POST("/:id/cancel", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	actor := actorFrom(c)
	renterID := req.RenterID
	if renterID == 0 {
		renterID = actor.ID
	}

	b, err := h.service.CreateBooking(c.Request.Context(), req.WindowID, renterID, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

// list returns the actor's bookings as renter, or as spot owner with
// ?role=owner. Privileged actors may pass ?user_id= to look at someone else.
func (h *BookingHandler) list(c *gin.Context) {
	actor := actorFrom(c)
	userID := actor.ID
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid user_id")
			return
		}
		if id != actor.ID && !actor.IsPrivileged() {
			writeError(c, domain.ErrForbidden)
			return
		}
		userID = id
	}

	var (
		bookings []domain.Booking
		err      error
	)
	switch c.DefaultQuery("role", "renter") {
	case "renter":
		bookings, err = h.service.ListBookingsByRenter(c.Request.Context(), userID)
	case "owner":
		bookings, err = h.service.ListBookingsByOwner(c.Request.Context(), userID)
	default:
		badRequest(c, "role must be renter or owner")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) history(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.BookingHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLogEntryResponses(entries))
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), id, domain.BookingStatus(req.Status), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.CancelBooking(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}
