package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/http/middleware"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/students/me
func GetMyStudentProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	st, err := repositories.StudentRepository{}.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, st)
}

// PUT /api/students/me (only provided keys change)
func UpdateMyStudentProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in models.StudentProfileUpdate
	if !BindJSONOrError(c, &in) {
		return
	}
	for field, v := range map[string]*string{"phone": in.Phone, "emergency_contact_phone": in.EmergencyContactPhone} {
		if v != nil && strings.TrimSpace(*v) != "" && !utils.ValidPhone(*v) {
			RespondDomainError(c, domain.ValidationError{Field: field, Msg: "invalid mobile number"})
			return
		}
	}
	if in.Address != nil && len(*in.Address) > 500 {
		RespondDomainError(c, domain.ValidationError{Field: "address", Msg: "at most 500 characters"})
		return
	}

	repo := repositories.StudentRepository{}
	if err := repo.UpdateProfile(c.Request.Context(), p.UserID, in); err != nil {
		RespondDomainError(c, err)
		return
	}
	st, err := repo.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "student", "update_profile", fmt.Sprintf("student_id=%d", p.UserID))
	respondMessage(c, http.StatusOK, "profile updated", st)
}
