package api

import (
	"net/http"

	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/gin-gonic/gin"
)

type WindowHandler struct {
	service availability.AvailabilityUseCase
}

func NewWindowHandler(service availability.AvailabilityUseCase) *WindowHandler {
	return &WindowHandler{service: service}
}

func (h *WindowHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.delete)
}

func (h *WindowHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	w, err := h.service.GetWindow(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWindowResponse(w))
}

func (h *WindowHandler) delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteWindow(c.Request.Context(), id, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
