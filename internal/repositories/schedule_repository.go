package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "tms/internal/db"
	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/utils"
)

type ScheduleRepository struct {
	DB *sql.DB
}

func (r ScheduleRepository) db() *sql.DB { return pick(r.DB) }

const scheduleSelect = `
	SELECT s.id, s.route_id, s.schedule_date, s.departure_time, COALESCE(s.arrival_time,''),
	       s.total_seats, s.booked_seats, s.status, s.driver_id, s.vehicle_id,
	       COALESCE(r.route_name,''), COALESCE(r.route_number,'')
	FROM schedules s
	LEFT JOIN routes r ON r.id = s.route_id`

func scanSchedule(row scanner) (models.Schedule, error) {
	var (
		s               models.Schedule
		driver, vehicle sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.RouteID, &s.ScheduleDate, &s.DepartureTime, &s.ArrivalTime,
		&s.TotalSeats, &s.BookedSeats, &s.Status, &driver, &vehicle,
		&s.RouteName, &s.RouteNumber); err != nil {
		return models.Schedule{}, err
	}
	s.Date = utils.FormatDate(s.ScheduleDate)
	s.DriverID = int64Ptr(driver)
	s.VehicleID = int64Ptr(vehicle)
	return s, nil
}

// ListRange returns schedules dated from..to (inclusive); routeID 0 means all routes.
func (r ScheduleRepository) ListRange(ctx context.Context, routeID int64, from, to time.Time) ([]models.Schedule, error) {
	query := scheduleSelect + ` WHERE s.schedule_date BETWEEN ? AND ?`
	args := []any{utils.FormatDate(from), utils.FormatDate(to)}
	if routeID > 0 {
		query += ` AND s.route_id = ?`
		args = append(args, routeID)
	}
	query += ` ORDER BY s.schedule_date ASC, s.departure_time ASC`

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r ScheduleRepository) GetByID(ctx context.Context, id int64) (models.Schedule, error) {
	s, err := scanSchedule(r.db().QueryRowContext(ctx, scheduleSelect+` WHERE s.id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Schedule{}, domain.NotFoundError{Resource: "schedule", Err: err}
	}
	return s, err
}

// GetForUpdate locks the schedule row for the rest of tx.
func (r ScheduleRepository) GetForUpdate(ctx context.Context, tx DBTX, id int64) (models.Schedule, error) {
	s, err := scanSchedule(tx.QueryRowContext(ctx, scheduleSelect+` WHERE s.id = ? LIMIT 1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Schedule{}, domain.NotFoundError{Resource: "schedule", Err: err}
	}
	return s, err
}

func (r ScheduleRepository) Create(ctx context.Context, s models.Schedule) (int64, error) {
	status := s.Status
	if status == "" {
		status = "scheduled"
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO schedules (route_id, schedule_date, departure_time, arrival_time, total_seats, booked_seats, status, driver_id, vehicle_id)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		s.RouteID, utils.FormatDate(s.ScheduleDate), s.DepartureTime, s.ArrivalTime, s.TotalSeats, status,
		nullableInt64(s.DriverID), nullableInt64(s.VehicleID))
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "schedule", Msg: "route already has a trip at that date and time", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

// AdjustBookedSeats adds delta to booked_seats, never going below zero.
func (r ScheduleRepository) AdjustBookedSeats(ctx context.Context, tx DBTX, id int64, delta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE schedules SET booked_seats = GREATEST(booked_seats + ?, 0) WHERE id = ?`, delta, id)
	return err
}

// ForDriver returns the driver's schedules from today onwards.
func (r ScheduleRepository) ForDriver(ctx context.Context, driverID int64, from time.Time, limit int) ([]models.Schedule, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db().QueryContext(ctx, scheduleSelect+`
		WHERE (s.driver_id = ? OR (s.driver_id IS NULL AND r.driver_id = ?))
		  AND s.schedule_date >= ?
		ORDER BY s.schedule_date ASC, s.departure_time ASC
		LIMIT ?`, driverID, driverID, utils.FormatDate(from), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
