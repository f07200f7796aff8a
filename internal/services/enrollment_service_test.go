package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tms/internal/domain"
	"tms/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func newEnrollmentService(t *testing.T) (EnrollmentService, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return EnrollmentService{
		DB:          db,
		Enrollments: repositories.EnrollmentRepository{DB: db},
		Students:    repositories.StudentRepository{DB: db},
		Routes:      repositories.RouteRepository{DB: db},
		Now:         fixedNow(time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local)),
	}, mock
}

func TestEnrollmentRequestRejectsDuplicate(t *testing.T) {
	svc, mock := newEnrollmentService(t)
	mock.ExpectQuery("FROM transport_enrollments").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	_, err := svc.Request(context.Background(), 1, EnrollmentRequest{RouteID: 4})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestEnrollmentRequestRejectsInactiveRoute(t *testing.T) {
	svc, mock := newEnrollmentService(t)
	mock.ExpectQuery("FROM transport_enrollments").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("FROM routes r").WithArgs(int64(4)).WillReturnRows(routeRow(4, 12500, "inactive"))

	_, err := svc.Request(context.Background(), 1, EnrollmentRequest{RouteID: 4})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnrollmentRequestRejectsForeignStop(t *testing.T) {
	svc, mock := newEnrollmentService(t)
	stop := int64(77)
	mock.ExpectQuery("FROM transport_enrollments").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("FROM routes r").WillReturnRows(routeRow(4, 12500, "active"))
	mock.ExpectQuery("FROM route_stops").WithArgs(int64(77), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Request(context.Background(), 1, EnrollmentRequest{RouteID: 4, StopID: &stop})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnrollmentRequestRejectsPastStartDate(t *testing.T) {
	svc, mock := newEnrollmentService(t)
	mock.ExpectQuery("FROM transport_enrollments").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("FROM routes r").WillReturnRows(routeRow(4, 12500, "active"))

	_, err := svc.Request(context.Background(), 1, EnrollmentRequest{RouteID: 4, PreferredStartDate: "2025-03-10"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnrollmentRejectNeedsReason(t *testing.T) {
	svc, _ := newEnrollmentService(t)
	if _, err := svc.Reject(context.Background(), 3, 2, "  "); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

var enrollmentCols = []string{"id", "student_id", "route_id", "stop_id", "preferred_start_date", "status",
	"rejection_reason", "reviewed_by", "reviewed_at", "created_at", "student_name", "route_name"}

func enrollmentRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(enrollmentCols).AddRow(id, int64(1), int64(4), int64(12), nil, status,
		"", nil, nil, time.Now(), "Priya", "Erode North")
}

func TestEnrollmentApproveAllocatesRouteInSameTx(t *testing.T) {
	svc, mock := newEnrollmentService(t)
	svc.Notifications = NotificationService{Notifications: repositories.NotificationRepository{DB: svc.DB}}

	mock.ExpectQuery("FROM transport_enrollments e").WithArgs(int64(8)).WillReturnRows(enrollmentRow(8, "pending"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transport_enrollments").
		WithArgs("approved", "", int64(9), sqlmock.AnyArg(), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students").WithArgs(int64(4), int64(12), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("FROM transport_enrollments e").WithArgs(int64(8)).WillReturnRows(enrollmentRow(8, "approved"))

	e, err := svc.Approve(context.Background(), 8, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != "approved" {
		t.Fatalf("status = %q", e.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnrollmentApproveRollsBackWhenAllocationFails(t *testing.T) {
	svc, mock := newEnrollmentService(t)

	mock.ExpectQuery("FROM transport_enrollments e").WithArgs(int64(8)).WillReturnRows(enrollmentRow(8, "pending"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transport_enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	if _, err := svc.Approve(context.Background(), 8, 9); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnrollmentApproveTwiceConflicts(t *testing.T) {
	svc, mock := newEnrollmentService(t)
	mock.ExpectQuery("FROM transport_enrollments e").WithArgs(int64(8)).WillReturnRows(enrollmentRow(8, "approved"))

	if _, err := svc.Approve(context.Background(), 8, 9); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
