package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intconfig "tms/internal/config"
	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/repositories"
	"tms/internal/utils"
)

type EnrollmentService struct {
	DB            *sql.DB
	Enrollments   repositories.EnrollmentRepository
	Students      repositories.StudentRepository
	Routes        repositories.RouteRepository
	Notifications NotificationService
	Now           func() time.Time
	RequestID     string
}

func (s EnrollmentService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s EnrollmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type EnrollmentRequest struct {
	RouteID            int64  `json:"route_id"`
	StopID             *int64 `json:"stop_id"`
	PreferredStartDate string `json:"preferred_start_date"`
}

// Request files a transport enrollment for the student.
func (s EnrollmentService) Request(ctx context.Context, studentID int64, in EnrollmentRequest) (models.Enrollment, error) {
	if in.RouteID <= 0 {
		return models.Enrollment{}, domain.ValidationError{Field: "route_id", Msg: "required"}
	}
	open, err := s.Enrollments.OpenExists(ctx, studentID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if open {
		return models.Enrollment{}, domain.ConflictError{Resource: "enrollment", Msg: "an enrollment request is already pending or approved"}
	}

	route, err := s.Routes.GetByID(ctx, in.RouteID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if route.Status != "active" {
		return models.Enrollment{}, domain.ValidationError{Field: "route_id", Msg: "route is not active"}
	}
	if in.StopID != nil && *in.StopID > 0 {
		if _, err := s.Routes.StopOnRoute(ctx, in.RouteID, *in.StopID); err != nil {
			if domain.IsNotFound(err) {
				return models.Enrollment{}, domain.ValidationError{Field: "stop_id", Msg: "stop does not belong to route"}
			}
			return models.Enrollment{}, err
		}
	}

	e := models.Enrollment{StudentID: studentID, RouteID: in.RouteID, StopID: in.StopID, Status: models.EnrollmentPending}
	if d := strings.TrimSpace(in.PreferredStartDate); d != "" {
		start, err := utils.ParseDate(d)
		if err != nil {
			return models.Enrollment{}, domain.ValidationError{Field: "preferred_start_date", Msg: "expected YYYY-MM-DD"}
		}
		if start.Before(utils.StartOfDay(s.now())) {
			return models.Enrollment{}, domain.ValidationError{Field: "preferred_start_date", Msg: "must not be in the past"}
		}
		formatted := utils.FormatDate(start)
		e.PreferredStartDate = &formatted
	}

	id, err := s.Enrollments.Create(ctx, e)
	if err != nil {
		return models.Enrollment{}, err
	}
	utils.LogEvent(s.RequestID, "enrollment", "request", fmt.Sprintf("id=%d student_id=%d route_id=%d", id, studentID, in.RouteID))
	return s.Enrollments.GetByID(ctx, id)
}

// Approve allocates the route to the student and notifies them.
func (s EnrollmentService) Approve(ctx context.Context, id, reviewerID int64) (models.Enrollment, error) {
	e, err := s.Enrollments.GetByID(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	if e.Status != models.EnrollmentPending {
		return models.Enrollment{}, domain.ConflictError{Resource: "enrollment", Msg: "enrollment already " + e.Status}
	}

	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return models.Enrollment{}, err
	}
	defer tx.Rollback()

	ok, err := s.Enrollments.Review(ctx, tx, id, models.EnrollmentApproved, "", reviewerID, s.now())
	if err != nil {
		return models.Enrollment{}, err
	}
	if !ok {
		return models.Enrollment{}, domain.ConflictError{Resource: "enrollment", Msg: "enrollment already reviewed"}
	}
	if err := s.Students.AllocateRoute(ctx, tx, e.StudentID, e.RouteID, e.StopID); err != nil {
		return models.Enrollment{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Enrollment{}, err
	}
	utils.LogEvent(s.RequestID, "enrollment", "approve", fmt.Sprintf("id=%d reviewer=%d", id, reviewerID))

	studentID := e.StudentID
	s.Notifications.Notify(ctx, models.Notification{
		Title:          "Transport enrollment approved",
		Message:        fmt.Sprintf("Your enrollment on %s has been approved.", utils.NormalizeSpace(e.RouteName)),
		Type:           "success",
		Category:       "enrollment",
		TargetAudience: models.AudienceSpecificUser,
		TargetUserID:   &studentID,
		CreatedBy:      &reviewerID,
	})
	return s.Enrollments.GetByID(ctx, id)
}

func (s EnrollmentService) Reject(ctx context.Context, id, reviewerID int64, reason string) (models.Enrollment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Enrollment{}, domain.ValidationError{Field: "reason", Msg: "required"}
	}
	e, err := s.Enrollments.GetByID(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	ok, err := s.Enrollments.Review(ctx, nil, id, models.EnrollmentRejected, reason, reviewerID, s.now())
	if err != nil {
		return models.Enrollment{}, err
	}
	if !ok {
		return models.Enrollment{}, domain.ConflictError{Resource: "enrollment", Msg: "enrollment already " + e.Status}
	}
	utils.LogEvent(s.RequestID, "enrollment", "reject", fmt.Sprintf("id=%d reviewer=%d", id, reviewerID))

	studentID := e.StudentID
	s.Notifications.Notify(ctx, models.Notification{
		Title:          "Transport enrollment rejected",
		Message:        "Your enrollment request was rejected: " + reason,
		Type:           "warning",
		Category:       "enrollment",
		TargetAudience: models.AudienceSpecificUser,
		TargetUserID:   &studentID,
		CreatedBy:      &reviewerID,
	})
	return s.Enrollments.GetByID(ctx, id)
}
