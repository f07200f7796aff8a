package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestRouteRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM routes r").WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := RouteRepository{DB: db}.GetByID(context.Background(), 9)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRouteRepositoryStopsKeepsNullCoordinates(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM route_stops").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "route_id", "stop_name", "stop_time", "sequence_order", "latitude", "longitude", "is_major_stop"}).
			AddRow(int64(1), int64(3), "Gate", "07:30", 1, 11.1, 77.1, true).
			AddRow(int64(2), int64(3), "Market", "07:45", 2, nil, nil, false))

	stops, err := RouteRepository{DB: db}.Stops(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(stops))
	}
	if !stops[0].HasCoordinates() || stops[1].HasCoordinates() {
		t.Fatalf("coordinate presence not preserved: %+v", stops)
	}
}

func TestScheduleRepositoryListRangeFormatsDate(t *testing.T) {
	db, mock := newMock(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("FROM schedules s").WithArgs("2025-03-10", "2025-03-12", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "route_id", "schedule_date", "departure_time", "arrival_time",
			"total_seats", "booked_seats", "status", "driver_id", "vehicle_id", "route_name", "route_number"}).
			AddRow(int64(1), int64(4), day, "07:30", "09:00", 40, 12, "scheduled", nil, nil, "North", "R4"))

	out, err := ScheduleRepository{DB: db}.ListRange(context.Background(), 4, day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Date != "2025-03-10" {
		t.Fatalf("unexpected schedules: %+v", out)
	}
	if out[0].AvailableSeats() != 28 {
		t.Fatalf("available seats = %d, want 28", out[0].AvailableSeats())
	}
}

func TestSettingsRepositoryDefaultsWhenMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM booking_settings").WillReturnError(sql.ErrNoRows)

	s, err := SettingsRepository{DB: db}.BookingSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != models.DefaultBookingSettings() {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestBookingRepositoryCancelOnlyConfirmed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET status = 'cancelled'").
		WithArgs(sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := BookingRepository{DB: db}.Cancel(context.Background(), nil, 5, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("cancel should report false when no confirmed row matched")
	}
}

func TestBookingRepositoryTakenSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT seat_number FROM bookings").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("1").AddRow("3"))

	taken, err := BookingRepository{DB: db}.TakenSeats(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !taken["1"] || taken["2"] || !taken["3"] {
		t.Fatalf("unexpected taken seats: %v", taken)
	}
}

func TestPaymentRepositoryMarkConfirmedIsConditional(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`WHERE id = \? AND status IN \('pending', 'failed', 'expired'\)`).
		WithArgs("pay_1", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id = \? AND status IN \('pending', 'failed', 'expired'\)`).
		WithArgs("pay_1", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := PaymentRepository{DB: db}
	first, err := repo.MarkConfirmed(context.Background(), nil, 7, "pay_1", time.Now())
	if err != nil || !first {
		t.Fatalf("first confirm: ok=%v err=%v", first, err)
	}
	second, err := repo.MarkConfirmed(context.Background(), nil, 7, "pay_1", time.Now())
	if err != nil || second {
		t.Fatalf("second confirm should be a no-op: ok=%v err=%v", second, err)
	}
}

func TestAccountRepositoryStaffUsesRoleColumn(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id, name, email, role, COALESCE\\(status,''\\)").WithArgs("ops@jkkn.ac.in").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "status", "password_hash", "failed_login_attempts", "locked_until"}).
			AddRow(int64(1), "Ops", "ops@jkkn.ac.in", "admin", "active", "hash", 0, nil))

	c, err := AccountRepository{DB: db}.FindCredential(context.Background(), AccountStaff, "ops@jkkn.ac.in")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Role != "admin" || c.LockedUntil != nil {
		t.Fatalf("unexpected credential: %+v", c)
	}
}

func TestAccountRepositoryRejectsUnknownKind(t *testing.T) {
	db, _ := newMock(t)
	if _, err := (AccountRepository{DB: db}).FindCredential(context.Background(), AccountKind("users"), "a@b.c"); err == nil {
		t.Fatalf("expected error for unknown account kind")
	}
}

func TestNotificationRepositoryMarkReadUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	err := NotificationRepository{DB: db}.MarkRead(context.Background(), 4, "student", 1)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNotificationRepositorySubscriptionsForRoute(t *testing.T) {
	db, mock := newMock(t)
	route := int64(6)
	mock.ExpectQuery("allocated_route_id = \\?").WithArgs(route, route).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_type", "user_id", "endpoint", "p256dh", "auth"}).
			AddRow(int64(1), "student", int64(10), "https://push.example/1", "k", "a"))

	subs, err := NotificationRepository{DB: db}.SubscriptionsFor(context.Background(), models.Notification{
		TargetAudience: models.AudienceSpecificRoute,
		TargetRouteID:  &route,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs) != 1 || subs[0].UserID != 10 {
		t.Fatalf("unexpected subscriptions: %+v", subs)
	}
}

func TestEnrollmentRepositoryReviewOnlyPending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE transport_enrollments").
		WithArgs(models.EnrollmentApproved, "", int64(2), sqlmock.AnyArg(), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := EnrollmentRepository{DB: db}.Review(context.Background(), nil, 11, models.EnrollmentApproved, "", 2, time.Now())
	if err != nil || !ok {
		t.Fatalf("review: ok=%v err=%v", ok, err)
	}
}
