package services

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"tms/internal/domain"
	"tms/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func newGrievanceService(t *testing.T) (GrievanceService, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return GrievanceService{
		Grievances:    repositories.GrievanceRepository{DB: db},
		Notifications: NotificationService{Notifications: repositories.NotificationRepository{DB: db}},
		Now:           fixedNow(time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local)),
	}, mock
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"open", "in_progress", true},
		{"open", "resolved", true},
		{"in_progress", "resolved", true},
		{"resolved", "in_progress", true},
		{"resolved", "closed", true},
		{"closed", "open", false},
		{"closed", "in_progress", false},
		{"in_progress", "open", false},
		{"open", "open", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTicketNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^GRV-20250311-[0-9A-F]{6}$`)
	got := TicketNumber(time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local))
	if !re.MatchString(got) {
		t.Fatalf("unexpected ticket number %q", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newGrievanceService(t)
	cases := map[string]GrievanceRequest{
		"category":    {Category: "rant", Subject: "Bus", Description: "late again and again"},
		"priority":    {Category: "complaint", Priority: "critical", Subject: "Bus", Description: "late again and again"},
		"subject":     {Category: "complaint", Subject: "   ", Description: "late again and again"},
		"long":        {Category: "complaint", Subject: strings.Repeat("x", 201), Description: "late again and again"},
		"description": {Category: "complaint", Subject: "Bus", Description: "late"},
	}
	for name, in := range cases {
		if _, err := svc.Submit(context.Background(), 1, in); !domain.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestSubmitRetriesTicketCollision(t *testing.T) {
	svc, mock := newGrievanceService(t)

	mock.ExpectExec("INSERT INTO grievances").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectExec("INSERT INTO grievances").
		WithArgs(sqlmock.AnyArg(), int64(1), nil, "complaint", "medium", "Bus late", "Bus was 40 minutes late").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("FROM grievances").WithArgs(int64(7)).WillReturnRows(grievanceRow(7, "open"))

	g, err := svc.Submit(context.Background(), 1, GrievanceRequest{Category: "Complaint", Subject: "Bus  late", Description: "Bus was 40 minutes late"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.ID != 7 || g.Status != "open" {
		t.Fatalf("unexpected grievance: %+v", g)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveRequiresResolution(t *testing.T) {
	svc, mock := newGrievanceService(t)
	mock.ExpectQuery("FROM grievances").WithArgs(int64(7)).WillReturnRows(grievanceRow(7, "in_progress"))

	_, err := svc.ChangeStatus(context.Background(), 2, 7, StatusChange{Status: "resolved"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveNotifiesStudent(t *testing.T) {
	svc, mock := newGrievanceService(t)
	mock.ExpectQuery("FROM grievances").WithArgs(int64(7)).WillReturnRows(grievanceRow(7, "in_progress"))
	mock.ExpectExec("UPDATE grievances").
		WithArgs("resolved", "Driver counselled", notNil{}, int64(7), "in_progress").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("FROM grievances").WithArgs(int64(7)).WillReturnRows(grievanceRow(7, "resolved"))

	g, err := svc.ChangeStatus(context.Background(), 2, 7, StatusChange{Status: "resolved", Resolution: "Driver counselled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Status != "resolved" {
		t.Fatalf("unexpected status %q", g.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClosedGrievanceRejectsMessages(t *testing.T) {
	svc, mock := newGrievanceService(t)
	mock.ExpectQuery("FROM grievances").WithArgs(int64(7)).WillReturnRows(grievanceRow(7, "closed"))

	_, err := svc.AddMessage(context.Background(), domain.Principal{UserID: 1, Role: domain.RoleStudent}, 7, "any update?")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestForeignGrievanceHidden(t *testing.T) {
	svc, mock := newGrievanceService(t)
	mock.ExpectQuery("FROM grievances").WithArgs(int64(7)).WillReturnRows(grievanceRow(7, "open"))

	_, err := svc.Get(context.Background(), domain.Principal{UserID: 2, Role: domain.RoleStudent}, 7)
	if !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
