package handlers

import (
	"net/http"
	"time"

	"tms/internal/domain/models"
	"tms/internal/repositories"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/schedules?route_id=&from=YYYY-MM-DD&to=YYYY-MM-DD
func ListSchedules(c *gin.Context) {
	routeID, ok := queryID(c, "route_id")
	if !ok {
		return
	}
	from, to, err := services.DateRange(c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	list, err := repositories.ScheduleRepository{}.ListRange(c.Request.Context(), routeID, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// GET /api/schedules/availability?route_id=&from=&to=
func ScheduleAvailability(c *gin.Context) {
	routeID, ok := queryID(c, "route_id")
	if !ok {
		return
	}
	list, err := bookingService(c).Availability(c.Request.Context(), routeID, c.Query("from"), c.Query("to"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// POST /api/schedules
func CreateSchedule(c *gin.Context) {
	var in models.Schedule
	if !BindJSONOrError(c, &in) {
		return
	}
	in.ID = 0
	in.BookedSeats = 0
	if in.Status == "" {
		in.Status = "scheduled"
	}
	sch, err := bookingService(c).CreateSchedule(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "schedule created", sch)
}

// GET /api/schedules/:id/bookings
func ScheduleManifest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := bookingService(c).Manifest(c.Request.Context(), p, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// GET /api/admin/booking-settings
func GetBookingSettings(c *gin.Context) {
	s, err := repositories.SettingsRepository{}.BookingSettings(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, s)
}

// PUT /api/admin/booking-settings
func UpdateBookingSettings(c *gin.Context) {
	var in models.BookingSettings
	if !BindJSONOrError(c, &in) {
		return
	}
	s, err := bookingService(c).UpdateSettings(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "booking settings saved", s)
}
