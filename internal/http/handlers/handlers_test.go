package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tms/internal/domain"
	"tms/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRoute() models.Route {
	return models.Route{
		RouteNumber:   "R4",
		RouteName:     "Erode North",
		StartLocation: "Erode",
		EndLocation:   "Campus",
		DepartureTime: "07:30",
		ArrivalTime:   "09:00",
		TotalCapacity: 40,
		SemesterFee:   12500,
	}
}

func TestValidateRoute(t *testing.T) {
	assert.NoError(t, validateRoute(validRoute()))

	cases := map[string]func(*models.Route){
		"route_number":   func(r *models.Route) { r.RouteNumber = "" },
		"departure_time": func(r *models.Route) { r.DepartureTime = "7:30am" },
		"arrival_time":   func(r *models.Route) { r.ArrivalTime = "25:00" },
		"total_capacity": func(r *models.Route) { r.TotalCapacity = 0 },
		"semester_fee":   func(r *models.Route) { r.SemesterFee = -1 },
		"status":         func(r *models.Route) { r.Status = "paused" },
	}
	for field, mutate := range cases {
		rt := validRoute()
		mutate(&rt)
		err := validateRoute(rt)
		var verr domain.ValidationError
		require.True(t, errors.As(err, &verr), field)
		assert.Equal(t, field, verr.Field)
	}
}

func TestNormalizeVehicle(t *testing.T) {
	v := models.Vehicle{RegistrationNumber: " tn 33  ab 1234 ", Capacity: 52}
	require.NoError(t, normalizeVehicle(&v))
	assert.Equal(t, "TN 33 AB 1234", v.RegistrationNumber)
	assert.Equal(t, "diesel", v.FuelType)
	assert.Equal(t, "active", v.Status)

	bad := "31-12-2025"
	v = models.Vehicle{RegistrationNumber: "TN33", Capacity: 52, InsuranceExpiry: &bad}
	assert.True(t, domain.IsValidation(normalizeVehicle(&v)))

	v = models.Vehicle{RegistrationNumber: "TN33", Capacity: 52, FuelType: "steam"}
	assert.True(t, domain.IsValidation(normalizeVehicle(&v)))
}

func TestRespondDomainErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ValidationError{Field: "x", Msg: "bad"}, http.StatusBadRequest, "validation_error"},
		{domain.UnauthorizedError{}, http.StatusUnauthorized, "unauthorized"},
		{domain.ForbiddenError{}, http.StatusForbidden, "forbidden"},
		{domain.NotFoundError{Resource: "route"}, http.StatusNotFound, "not_found"},
		{domain.ConflictError{Resource: "booking"}, http.StatusConflict, "conflict"},
		{domain.UpstreamError{Service: "parent app", Status: 500}, http.StatusBadGateway, "upstream_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		RespondDomainError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), `"code":"`+tc.code+`"`)
	}
}

func TestQueryPaginationClamps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0&limit=1000", nil)
	p := queryPagination(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 200, p.PageSize)
}
