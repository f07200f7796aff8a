package models

import "time"

type Route struct {
	ID            int64      `json:"id"`
	RouteNumber   string     `json:"route_number"`
	RouteName     string     `json:"route_name"`
	StartLocation string     `json:"start_location"`
	EndLocation   string     `json:"end_location"`
	DepartureTime string     `json:"departure_time"`
	ArrivalTime   string     `json:"arrival_time"`
	DistanceKM    float64    `json:"distance_km"`
	TotalCapacity int        `json:"total_capacity"`
	SemesterFee   int64      `json:"semester_fee"`
	Status        string     `json:"status"`
	DriverID      *int64     `json:"driver_id"`
	VehicleID     *int64     `json:"vehicle_id"`
	DriverName    string     `json:"driver_name,omitempty"`
	VehicleNumber string     `json:"vehicle_number,omitempty"`
	CurrentLat    *float64   `json:"current_latitude,omitempty"`
	CurrentLng    *float64   `json:"current_longitude,omitempty"`
	LastGPSUpdate *time.Time `json:"last_gps_update,omitempty"`

	Stops []RouteStop `json:"stops,omitempty"`
}

type RouteStop struct {
	ID            int64    `json:"id"`
	RouteID       int64    `json:"route_id"`
	StopName      string   `json:"stop_name"`
	StopTime      string   `json:"stop_time"`
	SequenceOrder int      `json:"sequence_order"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	IsMajorStop   bool     `json:"is_major_stop"`
}

// HasCoordinates reports whether the stop can take part in distance math.
func (s RouteStop) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

type Vehicle struct {
	ID                 int64   `json:"id"`
	RegistrationNumber string  `json:"registration_number"`
	Model              string  `json:"model"`
	Capacity           int     `json:"capacity"`
	FuelType           string  `json:"fuel_type"`
	Status             string  `json:"status"`
	InsuranceExpiry    *string `json:"insurance_expiry"`
	FitnessExpiry      *string `json:"fitness_expiry"`
}
