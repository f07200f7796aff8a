package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
)

type DriverRepository struct {
	DB *sql.DB
}

func (r DriverRepository) db() *sql.DB { return pick(r.DB) }

const driverSelect = `
	SELECT id, name, email, COALESCE(phone,''), COALESCE(license_number,''), status,
	       assigned_route_id, location_sharing_enabled, current_latitude, current_longitude, location_timestamp
	FROM drivers`

func scanDriver(row scanner) (models.Driver, error) {
	var (
		d        models.Driver
		route    sql.NullInt64
		lat, lng sql.NullFloat64
		at       sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LicenseNumber, &d.Status,
		&route, &d.LocationSharing, &lat, &lng, &at); err != nil {
		return models.Driver{}, err
	}
	d.AssignedRouteID = int64Ptr(route)
	d.CurrentLat = floatPtr(lat)
	d.CurrentLng = floatPtr(lng)
	d.LocationAt = timePtr(at)
	return d, nil
}

func (r DriverRepository) GetByID(ctx context.Context, id int64) (models.Driver, error) {
	d, err := scanDriver(r.db().QueryRowContext(ctx, driverSelect+` WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Driver{}, domain.NotFoundError{Resource: "driver", Err: err}
	}
	return d, err
}

// ForRoute returns the driver currently assigned to routeID.
func (r DriverRepository) ForRoute(ctx context.Context, routeID int64) (models.Driver, error) {
	d, err := scanDriver(r.db().QueryRowContext(ctx, driverSelect+`
		WHERE id = (SELECT driver_id FROM routes WHERE id = ?)
		   OR assigned_route_id = ?
		ORDER BY location_timestamp DESC
		LIMIT 1`, routeID, routeID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Driver{}, domain.NotFoundError{Resource: "driver", Err: err}
	}
	return d, err
}

func (r DriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	rows, err := r.db().QueryContext(ctx, driverSelect+` ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r DriverRepository) SetLocationSharing(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db().ExecContext(ctx, `UPDATE drivers SET location_sharing_enabled = ? WHERE id = ?`, enabled, id)
	return err
}

func (r DriverRepository) UpdatePosition(ctx context.Context, id int64, fix models.LocationFix, at time.Time) error {
	res, err := r.db().ExecContext(ctx, `
		UPDATE drivers
		SET current_latitude = ?, current_longitude = ?, location_accuracy = ?, location_timestamp = ?
		WHERE id = ?`, fix.Latitude, fix.Longitude, nullableFloat(fix.Accuracy), at, id)
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return domain.NotFoundError{Resource: "driver"}
	}
	return nil
}
