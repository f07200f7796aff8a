package models

import "time"

// Student is a row of students. PasswordHash never leaves the service.
type Student struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	RollNumber            string     `json:"roll_number"`
	Phone                 string     `json:"phone"`
	Address               string     `json:"address"`
	EmergencyContactName  string     `json:"emergency_contact_name"`
	EmergencyContactPhone string     `json:"emergency_contact_phone"`
	PasswordHash          string     `json:"-"`
	AuthSource            string     `json:"auth_source"`
	ExternalID            string     `json:"external_id,omitempty"`
	TransportStatus       string     `json:"transport_status"`
	AllocatedRouteID      *int64     `json:"allocated_route_id"`
	BoardingStopID        *int64     `json:"boarding_stop_id"`
	LocationSharing       bool       `json:"location_sharing_enabled"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// StudentProfileUpdate supports PATCH-style updates via key presence.
type StudentProfileUpdate struct {
	Phone                 *string `json:"phone"`
	Address               *string `json:"address"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
}

// Driver is a row of drivers.
type Driver struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	LicenseNumber   string     `json:"license_number"`
	PasswordHash    string     `json:"-"`
	Status          string     `json:"status"`
	AssignedRouteID *int64     `json:"assigned_route_id"`
	LocationSharing bool       `json:"location_sharing_enabled"`
	CurrentLat      *float64   `json:"current_latitude"`
	CurrentLng      *float64   `json:"current_longitude"`
	LocationAt      *time.Time `json:"location_timestamp"`
}

// StaffMember is an administrative account.
type StaffMember struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Status       string `json:"status"`
}

// Credential is the login view shared by students, drivers and staff.
type Credential struct {
	ID             int64
	Name           string
	Email          string
	Role           string
	Status         string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
}

// Locked reports whether the account is locked at now.
func (c Credential) Locked(now time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(now)
}
