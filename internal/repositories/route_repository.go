package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "tms/internal/db"
	"tms/internal/domain"
	"tms/internal/domain/models"
)

type RouteRepository struct {
	DB *sql.DB
}

func (r RouteRepository) db() *sql.DB { return pick(r.DB) }

const routeSelect = `
	SELECT r.id, r.route_number, r.route_name, r.start_location, r.end_location,
	       r.departure_time, r.arrival_time, r.distance_km, r.total_capacity, r.semester_fee,
	       r.status, r.driver_id, r.vehicle_id,
	       COALESCE(d.name,''), COALESCE(v.registration_number,''),
	       r.current_latitude, r.current_longitude, r.last_gps_update
	FROM routes r
	LEFT JOIN drivers d ON d.id = r.driver_id
	LEFT JOIN vehicles v ON v.id = r.vehicle_id`

func scanRoute(row scanner) (models.Route, error) {
	var (
		rt              models.Route
		driver, vehicle sql.NullInt64
		lat, lng        sql.NullFloat64
		gpsAt           sql.NullTime
	)
	if err := row.Scan(
		&rt.ID, &rt.RouteNumber, &rt.RouteName, &rt.StartLocation, &rt.EndLocation,
		&rt.DepartureTime, &rt.ArrivalTime, &rt.DistanceKM, &rt.TotalCapacity, &rt.SemesterFee,
		&rt.Status, &driver, &vehicle,
		&rt.DriverName, &rt.VehicleNumber,
		&lat, &lng, &gpsAt,
	); err != nil {
		return models.Route{}, err
	}
	rt.DriverID = int64Ptr(driver)
	rt.VehicleID = int64Ptr(vehicle)
	rt.CurrentLat = floatPtr(lat)
	rt.CurrentLng = floatPtr(lng)
	rt.LastGPSUpdate = timePtr(gpsAt)
	return rt, nil
}

// List returns routes ordered by route number; activeOnly filters status='active'.
func (r RouteRepository) List(ctx context.Context, activeOnly bool) ([]models.Route, error) {
	query := routeSelect
	if activeOnly {
		query += ` WHERE r.status = 'active'`
	}
	query += ` ORDER BY r.route_number ASC`

	rows, err := r.db().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Route{}
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r RouteRepository) GetByID(ctx context.Context, id int64) (models.Route, error) {
	rt, err := scanRoute(r.db().QueryRowContext(ctx, routeSelect+` WHERE r.id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Route{}, domain.NotFoundError{Resource: "route", Err: err}
	}
	return rt, err
}

// Stops returns the route's stops in sequence order.
func (r RouteRepository) Stops(ctx context.Context, routeID int64) ([]models.RouteStop, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, route_id, stop_name, COALESCE(stop_time,''), sequence_order, latitude, longitude, is_major_stop
		FROM route_stops
		WHERE route_id = ?
		ORDER BY sequence_order ASC`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RouteStop{}
	for rows.Next() {
		var (
			s        models.RouteStop
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.RouteID, &s.StopName, &s.StopTime, &s.SequenceOrder, &lat, &lng, &s.IsMajorStop); err != nil {
			return nil, err
		}
		s.Latitude = floatPtr(lat)
		s.Longitude = floatPtr(lng)
		out = append(out, s)
	}
	return out, rows.Err()
}

// StopOnRoute loads a stop and checks it belongs to routeID.
func (r RouteRepository) StopOnRoute(ctx context.Context, routeID, stopID int64) (models.RouteStop, error) {
	var (
		s        models.RouteStop
		lat, lng sql.NullFloat64
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, route_id, stop_name, COALESCE(stop_time,''), sequence_order, latitude, longitude, is_major_stop
		FROM route_stops
		WHERE id = ? AND route_id = ?
		LIMIT 1`, stopID, routeID).Scan(&s.ID, &s.RouteID, &s.StopName, &s.StopTime, &s.SequenceOrder, &lat, &lng, &s.IsMajorStop)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RouteStop{}, domain.NotFoundError{Resource: "stop", Err: err}
	}
	if err != nil {
		return models.RouteStop{}, err
	}
	s.Latitude = floatPtr(lat)
	s.Longitude = floatPtr(lng)
	return s, nil
}

func (r RouteRepository) Create(ctx context.Context, rt models.Route) (int64, error) {
	status := rt.Status
	if status == "" {
		status = "active"
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO routes (route_number, route_name, start_location, end_location, departure_time, arrival_time,
		                    distance_km, total_capacity, semester_fee, status, driver_id, vehicle_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.RouteNumber, rt.RouteName, rt.StartLocation, rt.EndLocation, rt.DepartureTime, rt.ArrivalTime,
		rt.DistanceKM, rt.TotalCapacity, rt.SemesterFee, status, nullableInt64(rt.DriverID), nullableInt64(rt.VehicleID))
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "route", Msg: "route number already exists", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

// RouteUpdate supports PATCH-style updates via key presence.
type RouteUpdate struct {
	RouteName     *string  `json:"route_name"`
	DepartureTime *string  `json:"departure_time"`
	ArrivalTime   *string  `json:"arrival_time"`
	TotalCapacity *int     `json:"total_capacity"`
	SemesterFee   *int64   `json:"semester_fee"`
	Status        *string  `json:"status"`
	DriverID      *int64   `json:"driver_id"`
	VehicleID     *int64   `json:"vehicle_id"`
	DistanceKM    *float64 `json:"distance_km"`
}

func (r RouteRepository) Update(ctx context.Context, id int64, upd RouteUpdate) error {
	sets := []string{}
	args := []any{}
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.RouteName != nil {
		set("route_name", strings.TrimSpace(*upd.RouteName))
	}
	if upd.DepartureTime != nil {
		set("departure_time", *upd.DepartureTime)
	}
	if upd.ArrivalTime != nil {
		set("arrival_time", *upd.ArrivalTime)
	}
	if upd.TotalCapacity != nil {
		set("total_capacity", *upd.TotalCapacity)
	}
	if upd.SemesterFee != nil {
		set("semester_fee", *upd.SemesterFee)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.DriverID != nil {
		set("driver_id", nullableInt64(upd.DriverID))
	}
	if upd.VehicleID != nil {
		set("vehicle_id", nullableInt64(upd.VehicleID))
	}
	if upd.DistanceKM != nil {
		set("distance_km", *upd.DistanceKM)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db().ExecContext(ctx, `UPDATE routes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r RouteRepository) AddStop(ctx context.Context, s models.RouteStop) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO route_stops (route_id, stop_name, stop_time, sequence_order, latitude, longitude, is_major_stop)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.RouteID, s.StopName, s.StopTime, s.SequenceOrder, nullableFloat(s.Latitude), nullableFloat(s.Longitude), s.IsMajorStop)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "stop", Msg: "sequence order already used on this route", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateGPS mirrors the latest bus position onto the route row.
func (r RouteRepository) UpdateGPS(ctx context.Context, routeID int64, lat, lng float64, at time.Time) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE routes SET current_latitude = ?, current_longitude = ?, last_gps_update = ? WHERE id = ?`,
		lat, lng, at, routeID)
	return err
}
