package api

import (
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/gin-gonic/gin"
)

const BasePath = "/api/v1"

// NewRouter builds the public REST engine. Every route requires an actor.
func NewRouter(auth Authenticator, avail availability.AvailabilityUseCase, bookings booking.BookingUseCase) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	v1 := router.Group(BasePath, RequireActor(auth))
	NewSpotHandler(avail).Register(v1.Group("/spots"))
	NewWindowHandler(avail).Register(v1.Group("/windows"))
	NewBookingHandler(bookings).Register(v1.Group("/bookings"))
	return router
}
