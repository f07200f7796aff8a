package models

import "time"

const (
	AudienceAll           = "all"
	AudienceStudents      = "students"
	AudienceDrivers       = "drivers"
	AudienceSpecificRoute = "specific_route"
	AudienceSpecificUser  = "specific_user"
)

type Notification struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Type           string     `json:"type"`
	Category       string     `json:"category"`
	TargetAudience string     `json:"target_audience"`
	TargetRouteID  *int64     `json:"target_route_id,omitempty"`
	TargetUserID   *int64     `json:"target_user_id,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      *int64     `json:"created_by,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Read           bool       `json:"read"`
}

type PushSubscription struct {
	ID       int64  `json:"id"`
	UserType string `json:"user_type"`
	UserID   int64  `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}
