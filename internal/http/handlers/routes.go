package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/geo"
	"tms/internal/http/middleware"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/gin-gonic/gin"
)

var routeStatuses = map[string]bool{"active": true, "inactive": true, "maintenance": true}

func validClock(s string) bool {
	_, err := utils.CombineDateClock(time.Now(), s)
	return err == nil
}

// GET /api/routes (staff may pass ?all=true to include inactive routes)
func ListRoutes(c *gin.Context) {
	activeOnly := true
	if p, ok := middleware.GetPrincipal(c); ok && domain.IsStaffRole(p.Role) && c.Query("all") == "true" {
		activeOnly = false
	}
	routes, err := repositories.RouteRepository{}.List(c.Request.Context(), activeOnly)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, routes)
}

// GET /api/routes/:id
func GetRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	repo := repositories.RouteRepository{}
	rt, err := repo.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if rt.Stops, err = repo.Stops(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rt)
}

// semester_fee may arrive as 12500 or "Rs. 12,500".
type routeRequest struct {
	models.Route
	SemesterFee utils.Rupees `json:"semester_fee"`
}

type routeUpdateRequest struct {
	repositories.RouteUpdate
	SemesterFee *utils.Rupees `json:"semester_fee"`
}

// POST /api/routes
func CreateRoute(c *gin.Context) {
	var req routeRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in := req.Route
	in.SemesterFee = int64(req.SemesterFee)
	in.RouteNumber = strings.ToUpper(strings.TrimSpace(in.RouteNumber))
	in.RouteName = utils.NormalizeSpace(in.RouteName)
	in.StartLocation = utils.NormalizeSpace(in.StartLocation)
	in.EndLocation = utils.NormalizeSpace(in.EndLocation)
	if err := validateRoute(in); err != nil {
		RespondDomainError(c, err)
		return
	}

	repo := repositories.RouteRepository{}
	id, err := repo.Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	rt, err := repo.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "route", "create", fmt.Sprintf("id=%d number=%s", id, in.RouteNumber))
	respondMessage(c, http.StatusCreated, "route created", rt)
}

func validateRoute(in models.Route) error {
	switch {
	case in.RouteNumber == "":
		return domain.ValidationError{Field: "route_number", Msg: "required"}
	case in.RouteName == "":
		return domain.ValidationError{Field: "route_name", Msg: "required"}
	case in.StartLocation == "" || in.EndLocation == "":
		return domain.ValidationError{Field: "start_location/end_location", Msg: "required"}
	case !validClock(in.DepartureTime):
		return domain.ValidationError{Field: "departure_time", Msg: "expected HH:MM"}
	case in.ArrivalTime != "" && !validClock(in.ArrivalTime):
		return domain.ValidationError{Field: "arrival_time", Msg: "expected HH:MM"}
	case in.TotalCapacity <= 0:
		return domain.ValidationError{Field: "total_capacity", Msg: "must be positive"}
	case in.SemesterFee < 0:
		return domain.ValidationError{Field: "semester_fee", Msg: "must not be negative"}
	case in.DistanceKM < 0:
		return domain.ValidationError{Field: "distance_km", Msg: "must not be negative"}
	case in.Status != "" && !routeStatuses[in.Status]:
		return domain.ValidationError{Field: "status", Msg: "must be active, inactive or maintenance"}
	}
	return nil
}

// PUT /api/routes/:id (only provided keys change)
func UpdateRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req routeUpdateRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in := req.RouteUpdate
	if req.SemesterFee != nil {
		fee := int64(*req.SemesterFee)
		in.SemesterFee = &fee
	}
	var verr error
	switch {
	case in.RouteName != nil && utils.NormalizeSpace(*in.RouteName) == "":
		verr = domain.ValidationError{Field: "route_name", Msg: "must not be empty"}
	case in.DepartureTime != nil && !validClock(*in.DepartureTime):
		verr = domain.ValidationError{Field: "departure_time", Msg: "expected HH:MM"}
	case in.ArrivalTime != nil && *in.ArrivalTime != "" && !validClock(*in.ArrivalTime):
		verr = domain.ValidationError{Field: "arrival_time", Msg: "expected HH:MM"}
	case in.TotalCapacity != nil && *in.TotalCapacity <= 0:
		verr = domain.ValidationError{Field: "total_capacity", Msg: "must be positive"}
	case in.SemesterFee != nil && *in.SemesterFee < 0:
		verr = domain.ValidationError{Field: "semester_fee", Msg: "must not be negative"}
	case in.Status != nil && !routeStatuses[*in.Status]:
		verr = domain.ValidationError{Field: "status", Msg: "must be active, inactive or maintenance"}
	}
	if verr != nil {
		RespondDomainError(c, verr)
		return
	}

	repo := repositories.RouteRepository{}
	if err := repo.Update(c.Request.Context(), id, in); err != nil {
		RespondDomainError(c, err)
		return
	}
	rt, err := repo.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "route", "update", fmt.Sprintf("id=%d", id))
	respondMessage(c, http.StatusOK, "route updated", rt)
}

// POST /api/routes/:id/stops
func AddRouteStop(c *gin.Context) {
	routeID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in models.RouteStop
	if !BindJSONOrError(c, &in) {
		return
	}
	in.RouteID = routeID
	in.StopName = utils.NormalizeSpace(in.StopName)
	switch {
	case in.StopName == "":
		RespondDomainError(c, domain.ValidationError{Field: "stop_name", Msg: "required"})
		return
	case in.SequenceOrder <= 0:
		RespondDomainError(c, domain.ValidationError{Field: "sequence_order", Msg: "must be positive"})
		return
	case in.StopTime != "" && !validClock(in.StopTime):
		RespondDomainError(c, domain.ValidationError{Field: "stop_time", Msg: "expected HH:MM"})
		return
	case (in.Latitude == nil) != (in.Longitude == nil):
		RespondDomainError(c, domain.ValidationError{Field: "latitude/longitude", Msg: "provide both or neither"})
		return
	case in.HasCoordinates() && !geo.IsValidLatLon(*in.Latitude, *in.Longitude):
		RespondDomainError(c, domain.ValidationError{Field: "latitude/longitude", Msg: "coordinates out of range"})
		return
	}

	repo := repositories.RouteRepository{}
	if _, err := repo.GetByID(c.Request.Context(), routeID); err != nil {
		RespondDomainError(c, err)
		return
	}
	id, err := repo.AddStop(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	in.ID = id
	utils.LogEvent(middleware.GetRequestID(c), "route", "add_stop", fmt.Sprintf("route_id=%d stop_id=%d", routeID, id))
	respondMessage(c, http.StatusCreated, "stop added", in)
}
