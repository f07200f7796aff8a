package handlers

import (
	"net/http"
	"time"

	"tms/internal/domain/models"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/gin-gonic/gin"
)

type driverSchedule struct {
	models.Schedule
	Passengers int `json:"passengers"`
}

// GET /api/drivers/me
func MyDriverProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	d, err := repositories.DriverRepository{}.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := gin.H{"driver": d}
	if d.AssignedRouteID != nil {
		if rt, err := (repositories.RouteRepository{}).GetByID(c.Request.Context(), *d.AssignedRouteID); err == nil {
			out["route"] = rt
		}
	}
	respondOK(c, http.StatusOK, out)
}

// GET /api/drivers/me/schedules
func MyDriverSchedules(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	list, err := repositories.ScheduleRepository{}.ForDriver(ctx, p.UserID, utils.StartOfDay(time.Now()), 30)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	bookings := repositories.BookingRepository{}
	out := make([]driverSchedule, 0, len(list))
	for _, s := range list {
		manifest, err := bookings.ListBySchedule(ctx, s.ID)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		active := 0
		for _, b := range manifest {
			if b.Status != models.BookingCancelled {
				active++
			}
		}
		out = append(out, driverSchedule{Schedule: s, Passengers: active})
	}
	respondOK(c, http.StatusOK, out)
}

// GET /api/drivers
func ListDrivers(c *gin.Context) {
	list, err := repositories.DriverRepository{}.List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}
