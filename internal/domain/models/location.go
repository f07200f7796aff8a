package models

import "time"

// LocationFix is one GPS reading reported by a browser.
type LocationFix struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
}

// TrackingPoint is a row of location_tracking.
type TrackingPoint struct {
	ID          int64     `json:"id"`
	SubjectType string    `json:"subject_type"`
	SubjectID   int64     `json:"subject_id"`
	RouteID     *int64    `json:"route_id,omitempty"`
	LocationFix
	RecordedAt time.Time `json:"recorded_at"`
}
