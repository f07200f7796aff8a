package handlers

import (
	"log"
	"net/http"
	"strconv"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/http/middleware"
	"tms/internal/repositories"

	"github.com/gin-gonic/gin"
)

// POST /api/location/driver
func UpdateDriverLocation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in models.LocationFix
	if !BindJSONOrError(c, &in) {
		return
	}
	live, err := locationService(c).UpdateDriver(c.Request.Context(), p.UserID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, live)
}

// POST /api/location/student
func UpdateStudentLocation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in models.LocationFix
	if !BindJSONOrError(c, &in) {
		return
	}
	if err := locationService(c).UpdateStudent(c.Request.Context(), p.UserID, in); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "location updated", nil)
}

type sharingRequest struct {
	Enabled *bool `json:"enabled"`
}

// PUT /api/location/sharing
func SetLocationSharing(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in sharingRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	if in.Enabled == nil {
		RespondDomainError(c, domain.ValidationError{Field: "enabled", Msg: "required"})
		return
	}
	if err := locationService(c).SetSharing(c.Request.Context(), p, *in.Enabled); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"location_sharing_enabled": *in.Enabled})
}

// GET /api/location/routes/:id
func RouteLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	live, err := locationService(c).ForRoute(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, live)
}

// GET /api/location/drivers/:id/history?limit=
func DriverLocationHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	points, err := locationService(c).History(c.Request.Context(), id, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, points)
}

// GET /api/location/routes/:id/live (websocket)
func LiveRouteLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	hub := current().Hub
	if hub == nil {
		RespondError(c, http.StatusServiceUnavailable, "live tracking is not enabled", nil)
		return
	}

	// The stream starts with the last known position when there is one.
	var initial any
	live, err := locationService(c).ForRoute(c.Request.Context(), id)
	switch {
	case err == nil:
		initial = live
	case domain.IsNotFound(err):
		if _, rerr := (repositories.RouteRepository{}).GetByID(c.Request.Context(), id); rerr != nil {
			RespondDomainError(c, rerr)
			return
		}
	default:
		RespondDomainError(c, err)
		return
	}

	if err := hub.Serve(c.Writer, c.Request, id, initial); err != nil {
		log.Printf("[WS] route=%d request_id=%s upgrade failed: %v", id, middleware.GetRequestID(c), err)
	}
}
