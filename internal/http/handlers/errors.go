package handlers

import (
	"log"
	"net/http"

	"tms/internal/domain"
	"tms/internal/http/middleware"
	"tms/internal/report"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsUpstream(err):
		log.Printf("[HTTP] request_id=%s upstream error: %v", middleware.GetRequestID(c), err)
		report.ReportError(err)
		respondError(c, http.StatusBadGateway, "upstream_error", err.Error(), nil)
	case domain.IsInternal(err):
		log.Printf("[HTTP] request_id=%s internal error: %v", middleware.GetRequestID(c), err)
		report.ReportError(err)
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	default:
		log.Printf("[HTTP] request_id=%s unexpected error: %v", middleware.GetRequestID(c), err)
		report.ReportError(err)
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
