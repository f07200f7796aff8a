package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
)

// AccountKind selects the table a login is checked against.
type AccountKind string

const (
	AccountStudent AccountKind = "students"
	AccountDriver  AccountKind = "drivers"
	AccountStaff   AccountKind = "staff"
)

func (k AccountKind) valid() bool {
	return k == AccountStudent || k == AccountDriver || k == AccountStaff
}

// AccountRepository holds the login bookkeeping shared by students, drivers and staff.
type AccountRepository struct {
	DB *sql.DB
}

func (r AccountRepository) db() *sql.DB { return pick(r.DB) }

// FindCredential loads the login view for email.
func (r AccountRepository) FindCredential(ctx context.Context, kind AccountKind, email string) (models.Credential, error) {
	if !kind.valid() {
		return models.Credential{}, fmt.Errorf("unknown account kind %q", kind)
	}

	role := "'" + domain.RoleStudent + "'"
	status := "COALESCE(transport_status,'')"
	switch kind {
	case AccountDriver:
		role = "'" + domain.RoleDriver + "'"
		status = "COALESCE(status,'')"
	case AccountStaff:
		role = "role"
		status = "COALESCE(status,'')"
	}

	query := `
		SELECT id, name, email, ` + role + `, ` + status + `,
		       COALESCE(password_hash,''), failed_login_attempts, locked_until
		FROM ` + string(kind) + `
		WHERE email = ?
		LIMIT 1`

	var (
		c      models.Credential
		locked sql.NullTime
	)
	err := r.db().QueryRowContext(ctx, query, email).Scan(
		&c.ID, &c.Name, &c.Email, &c.Role, &c.Status, &c.PasswordHash, &c.FailedAttempts, &locked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Credential{}, domain.NotFoundError{Resource: "account", Err: err}
		}
		return models.Credential{}, err
	}
	c.LockedUntil = timePtr(locked)
	return c, nil
}

// RecordFailedLogin bumps the counter and sets locked_until when lockUntil is non-nil.
// A lockout that expired before now restarts the count at 1.
func (r AccountRepository) RecordFailedLogin(ctx context.Context, kind AccountKind, id int64, now time.Time, lockUntil *time.Time) error {
	if !kind.valid() {
		return fmt.Errorf("unknown account kind %q", kind)
	}
	_, err := r.db().ExecContext(ctx, `
		UPDATE `+string(kind)+`
		SET failed_login_attempts = IF(locked_until IS NOT NULL AND locked_until <= ?, 1, failed_login_attempts + 1),
		    locked_until = IF(? IS NOT NULL, ?, IF(locked_until <= ?, NULL, locked_until))
		WHERE id = ?`, now, nullableTime(lockUntil), nullableTime(lockUntil), now, id)
	return err
}

// RecordSuccessfulLogin clears the lockout state.
func (r AccountRepository) RecordSuccessfulLogin(ctx context.Context, kind AccountKind, id int64, at time.Time) error {
	if !kind.valid() {
		return fmt.Errorf("unknown account kind %q", kind)
	}
	_, err := r.db().ExecContext(ctx, `
		UPDATE `+string(kind)+`
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = ?
		WHERE id = ?`, at, id)
	return err
}
