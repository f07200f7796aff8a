package handlers

import (
	"net/http"

	"tms/internal/domain"
	"tms/internal/repositories"

	"github.com/gin-gonic/gin"
)

type loginPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func Login(c *gin.Context) { login(c, repositories.AccountStudent) }

// POST /api/auth/driver/login
func DriverLogin(c *gin.Context) { login(c, repositories.AccountDriver) }

// POST /api/auth/staff/login
func StaffLogin(c *gin.Context) { login(c, repositories.AccountStaff) }

func login(c *gin.Context, kind repositories.AccountKind) {
	var in loginPayload
	if !BindJSONOrError(c, &in) {
		return
	}
	sess, err := authService(c).Login(c.Request.Context(), kind, in.Email, in.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, sess)
}

// POST /api/auth/mock-login
func MockLogin(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required"`
	}
	if !BindJSONOrError(c, &in) {
		return
	}
	sess, err := authService(c).MockLogin(c.Request.Context(), in.Email)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, sess)
}

// GET /api/auth/oauth/authorize
func OAuthAuthorize(c *gin.Context) {
	url, state, err := oauthService(c).Authorize()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"authorization_url": url, "state": state})
}

// POST /api/auth/oauth/callback
func OAuthCallback(c *gin.Context) {
	var in struct {
		Code  string `json:"code" binding:"required"`
		State string `json:"state"`
	}
	if !BindJSONOrError(c, &in) {
		return
	}
	sess, err := oauthService(c).Callback(c.Request.Context(), in.Code)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, sess)
}

// GET /api/auth/me
func Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var (
		profile any
		err     error
	)
	switch p.Role {
	case domain.RoleStudent:
		profile, err = repositories.StudentRepository{}.GetByID(c.Request.Context(), p.UserID)
	case domain.RoleDriver:
		profile, err = repositories.DriverRepository{}.GetByID(c.Request.Context(), p.UserID)
	}
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": p, "profile": profile})
}

// POST /api/auth/logout; tokens are stateless so the client just drops it.
func Logout(c *gin.Context) {
	respondMessage(c, http.StatusOK, "logged out", nil)
}
