package services

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

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

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type notNil struct{}

func (notNil) Match(v driver.Value) bool { return v != nil }

var studentCols = []string{"id", "name", "email", "roll_number", "phone", "address", "emergency_contact_name",
	"emergency_contact_phone", "auth_source", "external_id", "transport_status", "allocated_route_id",
	"boarding_stop_id", "location_sharing_enabled", "last_login_at", "created_at"}

func studentRow(id int64, routeID any) *sqlmock.Rows {
	return sqlmock.NewRows(studentCols).AddRow(id, "Priya", "priya@jkkn.ac.in", "21CS001", "+919876543210", "",
		"", "", "oauth", "ext-1", "active", routeID, nil, true, nil, time.Now())
}

var routeCols = []string{"id", "route_number", "route_name", "start_location", "end_location", "departure_time",
	"arrival_time", "distance_km", "total_capacity", "semester_fee", "status", "driver_id", "vehicle_id",
	"driver_name", "vehicle_number", "current_latitude", "current_longitude", "last_gps_update"}

func routeRow(id int64, fee int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(routeCols).AddRow(id, "R4", "Erode North", "Erode", "Campus", "07:30", "09:00",
		32.5, 40, fee, status, int64(3), nil, "Kumar", "", nil, nil, nil)
}

var scheduleCols = []string{"id", "route_id", "schedule_date", "departure_time", "arrival_time", "total_seats",
	"booked_seats", "status", "driver_id", "vehicle_id", "route_name", "route_number"}

var bookingCols = []string{"id", "student_id", "schedule_id", "route_id", "trip_date", "seat_number",
	"boarding_stop", "status", "cancelled_at", "created_at", "departure_time", "route_name", "student_name", "student_phone"}

var paymentCols = []string{"id", "student_id", "route_id", "academic_year", "semester", "amount", "currency",
	"status", "gateway_order_id", "gateway_payment_id", "failure_reason", "paid_at", "created_at"}

func paymentRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(paymentCols).AddRow(id, int64(1), int64(4), "2025-26", "1", int64(1250000), "INR",
		status, "order_1", "", "", nil, time.Now())
}

var grievanceCols = []string{"id", "ticket_number", "student_id", "route_id", "category", "priority", "subject",
	"description", "status", "resolution", "resolved_at", "created_at", "updated_at"}

func grievanceRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(grievanceCols).AddRow(id, "GRV-20250311-ABC123", int64(1), nil, "complaint", "high",
		"Bus late", "Bus was 40 minutes late", status, "", nil, time.Now(), time.Now())
}
