package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"tms/internal/clients/parentapp"
	"tms/internal/domain"

	"github.com/gin-gonic/gin"
)

// GET /api/directory/students?q=
func SearchDirectoryStudents(c *gin.Context) {
	q, client, ok := directoryQuery(c)
	if !ok {
		return
	}
	out, err := client.SearchStudents(c.Request.Context(), q)
	if err != nil {
		RespondDomainError(c, directoryError(err))
		return
	}
	respondOK(c, http.StatusOK, out)
}

// GET /api/directory/staff?q=
func SearchDirectoryStaff(c *gin.Context) {
	q, client, ok := directoryQuery(c)
	if !ok {
		return
	}
	out, err := client.SearchStaff(c.Request.Context(), q)
	if err != nil {
		RespondDomainError(c, directoryError(err))
		return
	}
	respondOK(c, http.StatusOK, out)
}

func directoryQuery(c *gin.Context) (string, *parentapp.Client, bool) {
	q := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(q) < 2 {
		RespondDomainError(c, domain.ValidationError{Field: "q", Msg: "at least 2 characters"})
		return "", nil, false
	}
	client := current().ParentApp
	if !client.Configured() {
		RespondDomainError(c, domain.InternalError{Msg: "parent app is not configured"})
		return "", nil, false
	}
	return q, client, true
}

// a rejected API key is our misconfiguration, not the caller's
func directoryError(err error) error {
	if domain.IsUnauthorized(err) {
		return domain.UpstreamError{Service: "parent app", Err: err}
	}
	return err
}
