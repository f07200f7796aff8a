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

var (
	vehicleStatuses = map[string]bool{"active": true, "maintenance": true, "retired": true}
	fuelTypes       = map[string]bool{"diesel": true, "petrol": true, "cng": true, "electric": true}
)

// GET /api/vehicles?q=&page=&limit=
func ListVehicles(c *gin.Context) {
	list, err := repositories.VehicleRepository{}.List(c.Request.Context(), strings.TrimSpace(c.Query("q")), queryPagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func normalizeVehicle(v *models.Vehicle) error {
	v.RegistrationNumber = strings.ToUpper(utils.NormalizeSpace(v.RegistrationNumber))
	v.Model = utils.NormalizeSpace(v.Model)
	v.FuelType = strings.ToLower(strings.TrimSpace(v.FuelType))
	if v.FuelType == "" {
		v.FuelType = "diesel"
	}
	if v.Status == "" {
		v.Status = "active"
	}
	switch {
	case v.RegistrationNumber == "":
		return domain.ValidationError{Field: "registration_number", Msg: "required"}
	case v.Capacity <= 0:
		return domain.ValidationError{Field: "capacity", Msg: "must be positive"}
	case !fuelTypes[v.FuelType]:
		return domain.ValidationError{Field: "fuel_type", Msg: "must be diesel, petrol, cng or electric"}
	case !vehicleStatuses[v.Status]:
		return domain.ValidationError{Field: "status", Msg: "must be active, maintenance or retired"}
	}
	for field, d := range map[string]*string{"insurance_expiry": v.InsuranceExpiry, "fitness_expiry": v.FitnessExpiry} {
		if d == nil || *d == "" {
			continue
		}
		if _, err := utils.ParseDate(*d); err != nil {
			return domain.ValidationError{Field: field, Msg: "expected YYYY-MM-DD"}
		}
	}
	return nil
}

// POST /api/vehicles
func CreateVehicle(c *gin.Context) {
	var in models.Vehicle
	if !BindJSONOrError(c, &in) {
		return
	}
	if err := normalizeVehicle(&in); err != nil {
		RespondDomainError(c, err)
		return
	}
	id, err := repositories.VehicleRepository{}.Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	in.ID = id
	utils.LogEvent(middleware.GetRequestID(c), "vehicle", "create", fmt.Sprintf("id=%d reg=%s", id, in.RegistrationNumber))
	respondMessage(c, http.StatusCreated, "vehicle created", in)
}

// PUT /api/vehicles/:id
func UpdateVehicle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in models.Vehicle
	if !BindJSONOrError(c, &in) {
		return
	}
	if err := normalizeVehicle(&in); err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := (repositories.VehicleRepository{}).Update(c.Request.Context(), id, in); err != nil {
		RespondDomainError(c, err)
		return
	}
	in.ID = id
	utils.LogEvent(middleware.GetRequestID(c), "vehicle", "update", fmt.Sprintf("id=%d", id))
	respondMessage(c, http.StatusOK, "vehicle updated", in)
}
