package services

import (
	"context"
	"testing"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestWindowFor(t *testing.T) {
	settings := models.BookingSettings{Enabled: true, OpenDaysAhead: 7, CutoffHoursBefore: 12}
	sch := models.Schedule{ScheduleDate: day(2025, 3, 12), DepartureTime: "07:30", Status: "scheduled"}

	tests := []struct {
		name     string
		settings models.BookingSettings
		status   string
		now      time.Time
		open     bool
		reason   string
	}{
		{"open", settings, "scheduled", time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local), true, ""},
		{"first day of window", settings, "scheduled", day(2025, 3, 5), true, ""},
		{"before window", settings, "scheduled", day(2025, 3, 4), false, "booking not open yet"},
		{"at cutoff", settings, "scheduled", time.Date(2025, 3, 11, 19, 30, 0, 0, time.Local), false, "booking closed"},
		{"disabled", models.BookingSettings{OpenDaysAhead: 7, CutoffHoursBefore: 12}, "scheduled", day(2025, 3, 10), false, "booking is disabled"},
		{"cancelled trip", settings, "cancelled", day(2025, 3, 10), false, "trip is cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sch
			s.Status = tt.status
			w := WindowFor(tt.settings, s, tt.now)
			if w.Open != tt.open || w.Reason != tt.reason {
				t.Fatalf("got open=%v reason=%q, want open=%v reason=%q", w.Open, w.Reason, tt.open, tt.reason)
			}
		})
	}
}

func TestWindowForInvalidClock(t *testing.T) {
	w := WindowFor(models.DefaultBookingSettings(), models.Schedule{ScheduleDate: day(2025, 3, 12), DepartureTime: "7.30", Status: "scheduled"}, day(2025, 3, 11))
	if w.Open || w.Reason == "" {
		t.Fatalf("expected closed window for invalid clock, got %+v", w)
	}
}

func TestDateRange(t *testing.T) {
	now := time.Date(2025, 3, 11, 15, 0, 0, 0, time.Local)

	from, to, err := DateRange("", "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !from.Equal(day(2025, 3, 11)) || !to.Equal(day(2025, 3, 18)) {
		t.Fatalf("default range = %v..%v", from, to)
	}

	if _, _, err := DateRange("2025-03-10", "2025-03-01", now); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
	if _, _, err := DateRange("2025-03-01", "2025-05-01", now); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for long range, got %v", err)
	}
	if _, _, err := DateRange("11/03/2025", "", now); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}
}

func newBookingService(t *testing.T, now time.Time) (BookingService, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return BookingService{
		DB:        db,
		Bookings:  repositories.BookingRepository{DB: db},
		Schedules: repositories.ScheduleRepository{DB: db},
		Settings:  repositories.SettingsRepository{DB: db},
		Students:  repositories.StudentRepository{DB: db},
		Routes:    repositories.RouteRepository{DB: db},
		Now:       fixedNow(now),
	}, mock
}

func scheduleRow(booked, total int) *sqlmock.Rows {
	return sqlmock.NewRows(scheduleCols).AddRow(int64(10), int64(4), day(2025, 3, 12), "07:30", "09:00",
		total, booked, "scheduled", nil, nil, "Erode North", "R4")
}

func TestBookingCreateAssignsNextFreeSeat(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM students WHERE id").WithArgs(int64(1)).WillReturnRows(studentRow(1, int64(4)))
	mock.ExpectQuery("FROM booking_settings").
		WillReturnRows(sqlmock.NewRows([]string{"enabled", "open_days_ahead", "cutoff_hours_before"}).AddRow(true, 7, 12))
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(10)).WillReturnRows(scheduleRow(1, 40))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WithArgs(int64(1), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT seat_number FROM bookings").WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("1"))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(int64(1), int64(10), int64(4), "2025-03-12", "2", "Main Gate").
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec("UPDATE schedules SET booked_seats").WithArgs(1, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM bookings b").WithArgs(int64(55)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(int64(55), int64(1), int64(10), int64(4), day(2025, 3, 12),
			"2", "Main Gate", "confirmed", nil, time.Now(), "07:30", "Erode North", "Priya", ""))

	b, err := svc.Create(context.Background(), 1, BookingRequest{ScheduleID: 10, BoardingStop: "  Main   Gate "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID != 55 || b.SeatNumber != "2" || b.TripDate != "2025-03-12" {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCreateFullTripConflicts(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM students WHERE id").WillReturnRows(studentRow(1, int64(4)))
	mock.ExpectQuery("FROM booking_settings").
		WillReturnRows(sqlmock.NewRows([]string{"enabled", "open_days_ahead", "cutoff_hours_before"}).AddRow(true, 7, 12))
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(scheduleRow(40, 40))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 1, BookingRequest{ScheduleID: 10})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCreateRejectsOtherRoute(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM students WHERE id").WillReturnRows(studentRow(1, int64(9)))
	mock.ExpectQuery("FROM booking_settings").WillReturnRows(sqlmock.NewRows([]string{"enabled"}))
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(scheduleRow(0, 40))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 1, BookingRequest{ScheduleID: 10})
	if !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateSettingsBounds(t *testing.T) {
	svc, _ := newBookingService(t, time.Now())
	if _, err := svc.UpdateSettings(context.Background(), models.BookingSettings{OpenDaysAhead: 91}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateSettings(context.Background(), models.BookingSettings{CutoffHoursBefore: -1}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNextFreeSeat(t *testing.T) {
	if got := nextFreeSeat(map[string]bool{"1": true, "3": true}, 4); got != "2" {
		t.Fatalf("got %q", got)
	}
	if got := nextFreeSeat(map[string]bool{"1": true, "2": true}, 2); got != "" {
		t.Fatalf("expected no seat, got %q", got)
	}
}

func bookingRow(id, studentID int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(id, studentID, int64(10), int64(4), day(2025, 3, 12),
		"2", "Main Gate", status, nil, time.Now(), "07:30", "Erode North", "Priya", "")
}

func expectSettings(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM booking_settings").
		WillReturnRows(sqlmock.NewRows([]string{"enabled", "open_days_ahead", "cutoff_hours_before"}).AddRow(true, 7, 12))
}

func TestBookingCreateDuplicateConflicts(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM students WHERE id").WillReturnRows(studentRow(1, int64(4)))
	expectSettings(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(scheduleRow(3, 40))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WithArgs(int64(1), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), 1, BookingRequest{ScheduleID: 10})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCancelReleasesSeat(t *testing.T) {
	now := time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local)
	svc, mock := newBookingService(t, now)

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(55)).WillReturnRows(bookingRow(55, 1, "confirmed"))
	expectSettings(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(10)).WillReturnRows(scheduleRow(5, 40))
	mock.ExpectExec("UPDATE bookings SET status = 'cancelled'").WithArgs(now, int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedules SET booked_seats").WithArgs(-1, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.Cancel(context.Background(), 1, 55); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCancelOtherStudentForbidden(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(55)).WillReturnRows(bookingRow(55, 2, "confirmed"))

	if err := svc.Cancel(context.Background(), 1, 55); !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCancelAfterCutoffRejected(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 20, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(55)).WillReturnRows(bookingRow(55, 1, "confirmed"))
	expectSettings(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(10)).WillReturnRows(scheduleRow(5, 40))
	mock.ExpectRollback()

	if err := svc.Cancel(context.Background(), 1, 55); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCancelTwiceConflicts(t *testing.T) {
	svc, mock := newBookingService(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local))

	mock.ExpectQuery("FROM bookings b").WithArgs(int64(55)).WillReturnRows(bookingRow(55, 1, "cancelled"))

	if err := svc.Cancel(context.Background(), 1, 55); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
