package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/google/uuid"
)

var (
	grievanceCategories = map[string]bool{"complaint": true, "suggestion": true, "compliment": true, "inquiry": true}
	grievancePriorities = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}

	grievanceTransitions = map[string][]string{
		models.GrievanceOpen:       {models.GrievanceInProgress, models.GrievanceResolved, models.GrievanceClosed},
		models.GrievanceInProgress: {models.GrievanceResolved, models.GrievanceClosed},
		models.GrievanceResolved:   {models.GrievanceClosed, models.GrievanceInProgress},
	}
)

// CanTransition reports whether a grievance may move from -> to.
func CanTransition(from, to string) bool {
	for _, next := range grievanceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type GrievanceService struct {
	Grievances    repositories.GrievanceRepository
	Notifications NotificationService
	Now           func() time.Time
	RequestID     string
}

func (s GrievanceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type GrievanceRequest struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	RouteID     *int64 `json:"route_id"`
}

// TicketNumber is GRV-YYYYMMDD-XXXXXX.
func TicketNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("GRV-%s-%s", at.Format("20060102"), suffix)
}

func (s GrievanceService) Submit(ctx context.Context, studentID int64, in GrievanceRequest) (models.Grievance, error) {
	g := models.Grievance{
		StudentID:   studentID,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Priority:    strings.ToLower(strings.TrimSpace(in.Priority)),
		Subject:     utils.NormalizeSpace(in.Subject),
		Description: strings.TrimSpace(in.Description),
		RouteID:     in.RouteID,
	}
	if !grievanceCategories[g.Category] {
		return g, domain.ValidationError{Field: "category", Msg: "must be complaint, suggestion, compliment or inquiry"}
	}
	if g.Priority == "" {
		g.Priority = "medium"
	}
	if !grievancePriorities[g.Priority] {
		return g, domain.ValidationError{Field: "priority", Msg: "must be low, medium, high or urgent"}
	}
	if g.Subject == "" {
		return g, domain.ValidationError{Field: "subject", Msg: "required"}
	}
	if utf8.RuneCountInString(g.Subject) > 200 {
		return g, domain.ValidationError{Field: "subject", Msg: "at most 200 characters"}
	}
	if utf8.RuneCountInString(g.Description) < 10 {
		return g, domain.ValidationError{Field: "description", Msg: "at least 10 characters"}
	}

	var (
		id  int64
		err error
	)
	for attempt := 0; attempt < 3; attempt++ {
		g.TicketNumber = TicketNumber(s.now())
		id, err = s.Grievances.Create(ctx, g)
		if err == nil || !domain.IsConflict(err) {
			break
		}
	}
	if err != nil {
		return g, err
	}
	utils.LogEvent(s.RequestID, "grievance", "submit", fmt.Sprintf("id=%d ticket=%s", id, g.TicketNumber))
	return s.Grievances.GetByID(ctx, id)
}

// Get returns the grievance with its thread; students only see their own.
func (s GrievanceService) Get(ctx context.Context, p domain.Principal, id int64) (models.Grievance, error) {
	g, err := s.Grievances.GetByID(ctx, id)
	if err != nil {
		return g, err
	}
	if !domain.IsStaffRole(p.Role) && g.StudentID != p.UserID {
		return models.Grievance{}, domain.ForbiddenError{Msg: "grievance belongs to another student"}
	}
	g.Communications, err = s.Grievances.Messages(ctx, id)
	return g, err
}

func (s GrievanceService) AddMessage(ctx context.Context, p domain.Principal, id int64, message string) (models.GrievanceCommunication, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.GrievanceCommunication{}, domain.ValidationError{Field: "message", Msg: "required"}
	}
	g, err := s.Grievances.GetByID(ctx, id)
	if err != nil {
		return models.GrievanceCommunication{}, err
	}
	staff := domain.IsStaffRole(p.Role)
	if !staff && g.StudentID != p.UserID {
		return models.GrievanceCommunication{}, domain.ForbiddenError{Msg: "grievance belongs to another student"}
	}
	if g.Status == models.GrievanceClosed {
		return models.GrievanceCommunication{}, domain.ConflictError{Resource: "grievance", Msg: "grievance is closed"}
	}

	m := models.GrievanceCommunication{GrievanceID: id, SenderType: p.UserType(), SenderID: p.UserID, Message: message}
	m.ID, err = s.Grievances.AddMessage(ctx, m)
	if err != nil {
		return m, err
	}
	m.CreatedAt = s.now()

	if staff {
		studentID := g.StudentID
		s.Notifications.Notify(ctx, models.Notification{
			Title:          "New reply on " + g.TicketNumber,
			Message:        utils.Truncate(message, 180),
			Category:       "grievance",
			TargetAudience: models.AudienceSpecificUser,
			TargetUserID:   &studentID,
			CreatedBy:      &p.UserID,
		})
	}
	return m, nil
}

type StatusChange struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
}

// ChangeStatus applies a staff transition and notifies the student.
func (s GrievanceService) ChangeStatus(ctx context.Context, staffID, id int64, in StatusChange) (models.Grievance, error) {
	to := strings.TrimSpace(in.Status)
	resolution := strings.TrimSpace(in.Resolution)
	g, err := s.Grievances.GetByID(ctx, id)
	if err != nil {
		return g, err
	}
	if !CanTransition(g.Status, to) {
		return g, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("cannot move from %s to %s", g.Status, to)}
	}
	var resolvedAt *time.Time
	if to == models.GrievanceResolved {
		if resolution == "" {
			return g, domain.ValidationError{Field: "resolution", Msg: "required when resolving"}
		}
		now := s.now()
		resolvedAt = &now
	}

	ok, err := s.Grievances.UpdateStatus(ctx, id, g.Status, to, resolution, resolvedAt)
	if err != nil {
		return g, err
	}
	if !ok {
		return g, domain.ConflictError{Resource: "grievance", Msg: "status changed concurrently, reload and retry"}
	}
	utils.LogEvent(s.RequestID, "grievance", "status", fmt.Sprintf("id=%d %s->%s by=%d", id, g.Status, to, staffID))

	studentID := g.StudentID
	msg := fmt.Sprintf("Your ticket %s is now %s.", g.TicketNumber, strings.ReplaceAll(to, "_", " "))
	if resolution != "" {
		msg += " " + utils.Truncate(resolution, 160)
	}
	s.Notifications.Notify(ctx, models.Notification{
		Title:          "Grievance update",
		Message:        msg,
		Category:       "grievance",
		TargetAudience: models.AudienceSpecificUser,
		TargetUserID:   &studentID,
		CreatedBy:      &staffID,
	})
	return s.Grievances.GetByID(ctx, id)
}
