package handlers

import (
	"net/http"

	"tms/internal/repositories"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

var grievanceStatuses = map[string]bool{
	"": true, "open": true, "in_progress": true, "resolved": true, "closed": true,
}

// POST /api/grievances
func CreateGrievance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in services.GrievanceRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	g, err := grievanceService(c).Submit(c.Request.Context(), p.UserID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "grievance submitted", g)
}

// GET /api/grievances/me
func MyGrievances(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := repositories.GrievanceRepository{}.List(c.Request.Context(), p.UserID, c.Query("status"), queryPagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// GET /api/grievances?status=
func ListGrievances(c *gin.Context) {
	status := c.Query("status")
	if !grievanceStatuses[status] {
		RespondError(c, http.StatusBadRequest, "invalid status filter", nil)
		return
	}
	list, err := repositories.GrievanceRepository{}.List(c.Request.Context(), 0, status, queryPagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// GET /api/grievances/:id
func GetGrievance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	g, err := grievanceService(c).Get(c.Request.Context(), p, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, g)
}

type grievanceMessageRequest struct {
	Message string `json:"message"`
}

// POST /api/grievances/:id/messages
func AddGrievanceMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in grievanceMessageRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	m, err := grievanceService(c).AddMessage(c.Request.Context(), p, id, in.Message)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "message added", m)
}

// PUT /api/grievances/:id/status
func ChangeGrievanceStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.StatusChange
	if !BindJSONOrError(c, &in) {
		return
	}
	g, err := grievanceService(c).ChangeStatus(c.Request.Context(), p.UserID, id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "grievance updated", g)
}
