package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/utils"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB { return pick(r.DB) }

const bookingSelect = `
	SELECT b.id, b.student_id, b.schedule_id, b.route_id, b.trip_date, b.seat_number, b.boarding_stop,
	       b.status, b.cancelled_at, b.created_at,
	       COALESCE(s.departure_time,''), COALESCE(r.route_name,''),
	       COALESCE(st.name,''), COALESCE(st.phone,'')
	FROM bookings b
	LEFT JOIN schedules s ON s.id = b.schedule_id
	LEFT JOIN routes r ON r.id = b.route_id
	LEFT JOIN students st ON st.id = b.student_id`

func scanBooking(row scanner) (models.Booking, error) {
	var (
		b         models.Booking
		tripDate  time.Time
		cancelled sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.StudentID, &b.ScheduleID, &b.RouteID, &tripDate, &b.SeatNumber, &b.BoardingStop,
		&b.Status, &cancelled, &b.CreatedAt,
		&b.DepartureTime, &b.RouteName, &b.StudentName, &b.StudentPhone); err != nil {
		return models.Booking{}, err
	}
	b.TripDate = utils.FormatDate(tripDate)
	b.CancelledAt = timePtr(cancelled)
	return b, nil
}

// ActiveExists reports whether the student already holds a confirmed seat on the schedule.
func (r BookingRepository) ActiveExists(ctx context.Context, q DBTX, studentID, scheduleID int64) (bool, error) {
	if q == nil {
		q = r.db()
	}
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE student_id = ? AND schedule_id = ? AND status = 'confirmed'`, studentID, scheduleID).Scan(&n)
	return n > 0, err
}

// TakenSeats returns seat numbers held by confirmed bookings on the schedule.
func (r BookingRepository) TakenSeats(ctx context.Context, q DBTX, scheduleID int64) (map[string]bool, error) {
	if q == nil {
		q = r.db()
	}
	rows, err := q.QueryContext(ctx, `
		SELECT seat_number FROM bookings WHERE schedule_id = ? AND status = 'confirmed'`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		out[seat] = true
	}
	return out, rows.Err()
}

func (r BookingRepository) Insert(ctx context.Context, q DBTX, b models.Booking) (int64, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO bookings (student_id, schedule_id, route_id, trip_date, seat_number, boarding_stop, status)
		VALUES (?, ?, ?, ?, ?, ?, 'confirmed')`,
		b.StudentID, b.ScheduleID, b.RouteID, b.TripDate, b.SeatNumber, b.BoardingStop)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r BookingRepository) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	b, err := scanBooking(r.db().QueryRowContext(ctx, bookingSelect+` WHERE b.id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	return b, err
}

func (r BookingRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Booking, error) {
	return r.list(ctx, bookingSelect+` WHERE b.student_id = ? ORDER BY b.trip_date DESC, b.id DESC`, studentID)
}

// ListBySchedule is the boarding manifest: confirmed bookings ordered by seat.
func (r BookingRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.Booking, error) {
	return r.list(ctx, bookingSelect+` WHERE b.schedule_id = ? AND b.status = 'confirmed' ORDER BY CAST(b.seat_number AS UNSIGNED) ASC`, scheduleID)
}

func (r BookingRepository) list(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Cancel flips a confirmed booking to cancelled; false when it was not confirmed.
func (r BookingRepository) Cancel(ctx context.Context, q DBTX, id int64, at time.Time) (bool, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		UPDATE bookings SET status = 'cancelled', cancelled_at = ?
		WHERE id = ? AND status = 'confirmed'`, at, id)
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}
