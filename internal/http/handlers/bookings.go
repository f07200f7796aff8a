package handlers

import (
	"net/http"

	"tms/internal/repositories"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in services.BookingRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	b, err := bookingService(c).Create(c.Request.Context(), p.UserID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "seat booked", b)
}

// GET /api/bookings/me
func MyBookings(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := repositories.BookingRepository{}.ListByStudent(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// DELETE /api/bookings/:id
func CancelBooking(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := bookingService(c).Cancel(c.Request.Context(), p.UserID, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "booking cancelled", gin.H{"id": id})
}
