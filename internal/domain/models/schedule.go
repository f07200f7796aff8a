package models

import "time"

type Schedule struct {
	ID            int64     `json:"id"`
	RouteID       int64     `json:"route_id"`
	ScheduleDate  time.Time `json:"-"`
	Date          string    `json:"schedule_date"`
	DepartureTime string    `json:"departure_time"`
	ArrivalTime   string    `json:"arrival_time"`
	TotalSeats    int       `json:"total_seats"`
	BookedSeats   int       `json:"booked_seats"`
	Status        string    `json:"status"`
	DriverID      *int64    `json:"driver_id"`
	VehicleID     *int64    `json:"vehicle_id"`
	RouteName     string    `json:"route_name,omitempty"`
	RouteNumber   string    `json:"route_number,omitempty"`
}

// AvailableSeats never goes below zero.
func (s Schedule) AvailableSeats() int {
	if s.BookedSeats >= s.TotalSeats {
		return 0
	}
	return s.TotalSeats - s.BookedSeats
}

// ScheduleAvailability is a schedule annotated with the booking window verdict.
type ScheduleAvailability struct {
	Schedule
	AvailableSeats int        `json:"available_seats"`
	BookingOpen    bool       `json:"booking_open"`
	ClosedReason   string     `json:"closed_reason,omitempty"`
	OpensAt        *time.Time `json:"opens_at,omitempty"`
	ClosesAt       *time.Time `json:"closes_at,omitempty"`
}

// BookingSettings is the single admin-controlled booking window row.
type BookingSettings struct {
	Enabled           bool `json:"enabled"`
	OpenDaysAhead     int  `json:"open_days_ahead"`
	CutoffHoursBefore int  `json:"cutoff_hours_before"`
}

// DefaultBookingSettings applies when no settings row exists.
func DefaultBookingSettings() BookingSettings {
	return BookingSettings{Enabled: true, OpenDaysAhead: 7, CutoffHoursBefore: 12}
}
