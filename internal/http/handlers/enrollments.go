package handlers

import (
	"net/http"
	"strings"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/repositories"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

var enrollmentStatuses = map[string]bool{
	models.EnrollmentPending:  true,
	models.EnrollmentApproved: true,
	models.EnrollmentRejected: true,
}

// POST /api/enrollments
func CreateEnrollment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in services.EnrollmentRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	e, err := enrollmentService(c).Request(c.Request.Context(), p.UserID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "enrollment request submitted", e)
}

// GET /api/enrollments/me
func MyEnrollments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := repositories.EnrollmentRepository{}.ListByStudent(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// GET /api/enrollments?status=pending&page=1&limit=50
func ListEnrollments(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !enrollmentStatuses[status] {
		RespondDomainError(c, domain.ValidationError{Field: "status", Msg: "unknown status"})
		return
	}
	list, err := repositories.EnrollmentRepository{}.List(c.Request.Context(), status, queryPagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// PUT /api/enrollments/:id/approve
func ApproveEnrollment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	e, err := enrollmentService(c).Approve(c.Request.Context(), id, p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "enrollment approved", e)
}

// PUT /api/enrollments/:id/reject
func RejectEnrollment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if !BindJSONOrError(c, &in) {
		return
	}
	e, err := enrollmentService(c).Reject(c.Request.Context(), id, p.UserID, in.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "enrollment rejected", e)
}
