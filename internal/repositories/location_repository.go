package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tms/internal/domain/models"
)

// LocationRepository stores the GPS history trail.
type LocationRepository struct {
	DB *sql.DB
}

func (r LocationRepository) db() *sql.DB { return pick(r.DB) }

func (r LocationRepository) Insert(ctx context.Context, p models.TrackingPoint) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO location_tracking (subject_type, subject_id, route_id, latitude, longitude, accuracy, speed, heading, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SubjectType, p.SubjectID, nullableInt64(p.RouteID), p.Latitude, p.Longitude,
		nullableFloat(p.Accuracy), nullableFloat(p.Speed), nullableFloat(p.Heading), p.RecordedAt)
	return err
}

// History returns the newest points for a subject first.
func (r LocationRepository) History(ctx context.Context, subjectType string, subjectID int64, limit int) ([]models.TrackingPoint, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, subject_type, subject_id, route_id, latitude, longitude, accuracy, speed, heading, recorded_at
		FROM location_tracking
		WHERE subject_type = ? AND subject_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, subjectType, subjectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TrackingPoint{}
	for rows.Next() {
		var (
			p                     models.TrackingPoint
			route                 sql.NullInt64
			accuracy, speed, head sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.SubjectType, &p.SubjectID, &route, &p.Latitude, &p.Longitude,
			&accuracy, &speed, &head, &p.RecordedAt); err != nil {
			return nil, err
		}
		p.RouteID = int64Ptr(route)
		p.Accuracy = floatPtr(accuracy)
		p.Speed = floatPtr(speed)
		p.Heading = floatPtr(head)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestSpeed returns the most recent reported speed (m/s) for a driver recorded at or after since.
func (r LocationRepository) LatestSpeed(ctx context.Context, driverID int64, since time.Time) (*float64, error) {
	var speed sql.NullFloat64
	err := r.db().QueryRowContext(ctx, `
		SELECT speed FROM location_tracking
		WHERE subject_type = 'driver' AND subject_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`, driverID, since).Scan(&speed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return floatPtr(speed), nil
}
