package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/gin-gonic/gin"
)

// SpotHandler serves spots and the windows published on them.
type SpotHandler struct {
	service availability.AvailabilityUseCase
}

type createSpotRequest struct {
	OwnerID      int64  `json:"owner_id"`
	Title        string `json:"title" binding:"required"`
	Location     string `json:"location"`
	PricePerHour string `json:"price_per_hour" binding:"required"`
}

type createWindowRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

func NewSpotHandler(service availability.AvailabilityUseCase) *SpotHandler {
	return &SpotHandler{service: service}
}

func (h *SpotHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.POST("/:id/windows", h.createWindow)
	router.GET("/:id/windows", h.listWindows)
	router.GET("/:id/windows/available", h.listAvailable)
}

func (h *SpotHandler) create(c *gin.Context) {
	var req createSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	spot, err := h.service.CreateSpot(c.Request.Context(), availability.CreateSpotInput{
		OwnerID:      req.OwnerID,
		Title:        req.Title,
		Location:     req.Location,
		PricePerHour: req.PricePerHour,
	}, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSpotResponse(spot))
}

func (h *SpotHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	spot, err := h.service.GetSpot(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSpotResponse(spot))
}

func (h *SpotHandler) createWindow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	w, err := h.service.CreateWindow(c.Request.Context(), id, req.StartTime, req.EndTime, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWindowResponse(w))
}

func (h *SpotHandler) listWindows(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	windows, err := h.service.ListWindowsBySpot(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWindowResponses(windows))
}

func (h *SpotHandler) listAvailable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	windows, err := h.service.ListAvailableWindowsBySpot(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWindowResponses(windows))
}
