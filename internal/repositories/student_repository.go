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

type StudentRepository struct {
	DB *sql.DB
}

func (r StudentRepository) db() *sql.DB { return pick(r.DB) }

const studentColumns = `
	id, name, email, COALESCE(roll_number,''), COALESCE(phone,''), COALESCE(address,''),
	COALESCE(emergency_contact_name,''), COALESCE(emergency_contact_phone,''),
	COALESCE(auth_source,''), COALESCE(external_id,''), COALESCE(transport_status,''),
	allocated_route_id, boarding_stop_id, location_sharing_enabled, last_login_at, created_at`

func scanStudent(row scanner) (models.Student, error) {
	var (
		s           models.Student
		route, stop sql.NullInt64
		lastLogin   sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &s.RollNumber, &s.Phone, &s.Address,
		&s.EmergencyContactName, &s.EmergencyContactPhone,
		&s.AuthSource, &s.ExternalID, &s.TransportStatus,
		&route, &stop, &s.LocationSharing, &lastLogin, &s.CreatedAt,
	)
	if err != nil {
		return models.Student{}, err
	}
	s.AllocatedRouteID = int64Ptr(route)
	s.BoardingStopID = int64Ptr(stop)
	s.LastLoginAt = timePtr(lastLogin)
	return s, nil
}

func (r StudentRepository) GetByID(ctx context.Context, id int64) (models.Student, error) {
	s, err := scanStudent(r.db().QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Student{}, domain.NotFoundError{Resource: "student", Err: err}
	}
	return s, err
}

func (r StudentRepository) GetByEmail(ctx context.Context, email string) (models.Student, error) {
	s, err := scanStudent(r.db().QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE email = ? LIMIT 1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Student{}, domain.NotFoundError{Resource: "student", Err: err}
	}
	return s, err
}

// ParentAppIdentity is what an OAuth login knows about a student.
type ParentAppIdentity struct {
	ExternalID string
	Email      string
	Name       string
	RollNumber string
	Phone      string
}

// UpsertFromParentApp creates the student on first OAuth login and refreshes identity fields afterwards.
func (r StudentRepository) UpsertFromParentApp(ctx context.Context, in ParentAppIdentity) (int64, error) {
	db := r.db()

	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM students WHERE email = ? LIMIT 1`, in.Email).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	if id > 0 {
		_, err = db.ExecContext(ctx, `
			UPDATE students
			SET name = COALESCE(NULLIF(?, ''), name),
			    roll_number = COALESCE(NULLIF(?, ''), roll_number),
			    phone = COALESCE(NULLIF(?, ''), phone),
			    external_id = ?, auth_source = 'oauth'
			WHERE id = ?`, in.Name, in.RollNumber, in.Phone, in.ExternalID, id)
		return id, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Email
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO students (name, email, roll_number, phone, external_id, auth_source, transport_status)
		VALUES (?, ?, ?, ?, ?, 'oauth', 'inactive')`, name, in.Email, in.RollNumber, in.Phone, in.ExternalID)
	if err != nil {
		// a concurrent first login may have inserted the row
		if intdb.IsDuplicateKey(err) {
			err = db.QueryRowContext(ctx, `SELECT id FROM students WHERE email = ? LIMIT 1`, in.Email).Scan(&id)
			return id, err
		}
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateProfile applies only the provided fields.
func (r StudentRepository) UpdateProfile(ctx context.Context, id int64, upd models.StudentProfileUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, strings.TrimSpace(*v))
		}
	}
	add("phone", upd.Phone)
	add("address", upd.Address)
	add("emergency_contact_name", upd.EmergencyContactName)
	add("emergency_contact_phone", upd.EmergencyContactPhone)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db().ExecContext(ctx, `UPDATE students SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
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

// AllocateRoute activates transport for the student on route/stop.
func (r StudentRepository) AllocateRoute(ctx context.Context, q DBTX, studentID, routeID int64, stopID *int64) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE students
		SET allocated_route_id = ?, boarding_stop_id = ?, transport_status = 'active'
		WHERE id = ?`, routeID, nullableInt64(stopID), studentID)
	return err
}

func (r StudentRepository) SetLocationSharing(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db().ExecContext(ctx, `UPDATE students SET location_sharing_enabled = ? WHERE id = ?`, enabled, id)
	return err
}

func (r StudentRepository) UpdatePosition(ctx context.Context, id int64, fix models.LocationFix, at time.Time) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE students
		SET current_latitude = ?, current_longitude = ?, location_timestamp = ?
		WHERE id = ?`, fix.Latitude, fix.Longitude, at, id)
	return err
}
