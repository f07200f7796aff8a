package models

import "time"

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

type Booking struct {
	ID            int64      `json:"id"`
	StudentID     int64      `json:"student_id"`
	ScheduleID    int64      `json:"schedule_id"`
	RouteID       int64      `json:"route_id"`
	TripDate      string     `json:"trip_date"`
	SeatNumber    string     `json:"seat_number"`
	BoardingStop  string     `json:"boarding_stop"`
	Status        string     `json:"status"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	DepartureTime string     `json:"departure_time,omitempty"`
	RouteName     string     `json:"route_name,omitempty"`
	StudentName   string     `json:"student_name,omitempty"`
	StudentPhone  string     `json:"student_phone,omitempty"`
}

// Enrollment is a transport enrollment request.
type Enrollment struct {
	ID                 int64      `json:"id"`
	StudentID          int64      `json:"student_id"`
	RouteID            int64      `json:"route_id"`
	StopID             *int64     `json:"stop_id"`
	PreferredStartDate *string    `json:"preferred_start_date"`
	Status             string     `json:"status"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	ReviewedBy         *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	StudentName        string     `json:"student_name,omitempty"`
	RouteName          string     `json:"route_name,omitempty"`
}

const (
	EnrollmentPending  = "pending"
	EnrollmentApproved = "approved"
	EnrollmentRejected = "rejected"
)
