package models

import "time"

const (
	GrievanceOpen       = "open"
	GrievanceInProgress = "in_progress"
	GrievanceResolved   = "resolved"
	GrievanceClosed     = "closed"
)

type Grievance struct {
	ID             int64                    `json:"id"`
	TicketNumber   string                   `json:"ticket_number"`
	StudentID      int64                    `json:"student_id"`
	RouteID        *int64                   `json:"route_id"`
	Category       string                   `json:"category"`
	Priority       string                   `json:"priority"`
	Subject        string                   `json:"subject"`
	Description    string                   `json:"description"`
	Status         string                   `json:"status"`
	Resolution     string                   `json:"resolution,omitempty"`
	ResolvedAt     *time.Time               `json:"resolved_at,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Communications []GrievanceCommunication `json:"communications,omitempty"`
}

type GrievanceCommunication struct {
	ID          int64     `json:"id"`
	GrievanceID int64     `json:"grievance_id"`
	SenderType  string    `json:"sender_type"`
	SenderID    int64     `json:"sender_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
