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

type EnrollmentRepository struct {
	DB *sql.DB
}

func (r EnrollmentRepository) db() *sql.DB { return pick(r.DB) }

const enrollmentSelect = `
	SELECT e.id, e.student_id, e.route_id, e.stop_id, e.preferred_start_date, e.status,
	       COALESCE(e.rejection_reason,''), e.reviewed_by, e.reviewed_at, e.created_at,
	       COALESCE(s.name,''), COALESCE(r.route_name,'')
	FROM transport_enrollments e
	LEFT JOIN students s ON s.id = e.student_id
	LEFT JOIN routes r ON r.id = e.route_id`

func scanEnrollment(row scanner) (models.Enrollment, error) {
	var (
		e                models.Enrollment
		stop, reviewedBy sql.NullInt64
		start, reviewed  sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.StudentID, &e.RouteID, &stop, &start, &e.Status,
		&e.RejectionReason, &reviewedBy, &reviewed, &e.CreatedAt,
		&e.StudentName, &e.RouteName); err != nil {
		return models.Enrollment{}, err
	}
	e.StopID = int64Ptr(stop)
	e.ReviewedBy = int64Ptr(reviewedBy)
	e.ReviewedAt = timePtr(reviewed)
	if start.Valid {
		d := utils.FormatDate(start.Time)
		e.PreferredStartDate = &d
	}
	return e, nil
}

// OpenExists reports whether the student already has a pending or approved request.
func (r EnrollmentRepository) OpenExists(ctx context.Context, studentID int64) (bool, error) {
	var n int
	err := r.db().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transport_enrollments WHERE student_id = ? AND status IN ('pending','approved')`, studentID).Scan(&n)
	return n > 0, err
}

func (r EnrollmentRepository) Create(ctx context.Context, e models.Enrollment) (int64, error) {
	var start any
	if e.PreferredStartDate != nil && *e.PreferredStartDate != "" {
		start = *e.PreferredStartDate
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO transport_enrollments (student_id, route_id, stop_id, preferred_start_date, status)
		VALUES (?, ?, ?, ?, 'pending')`, e.StudentID, e.RouteID, nullableInt64(e.StopID), start)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r EnrollmentRepository) GetByID(ctx context.Context, id int64) (models.Enrollment, error) {
	e, err := scanEnrollment(r.db().QueryRowContext(ctx, enrollmentSelect+` WHERE e.id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Enrollment{}, domain.NotFoundError{Resource: "enrollment", Err: err}
	}
	return e, err
}

func (r EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	return r.list(ctx, enrollmentSelect+` WHERE e.student_id = ? ORDER BY e.id DESC`, studentID)
}

// List returns enrollments filtered by status ("" for all), newest first.
func (r EnrollmentRepository) List(ctx context.Context, status string, page domain.Pagination) ([]models.Enrollment, error) {
	page = page.Normalize(50, 200)
	if status == "" {
		return r.list(ctx, enrollmentSelect+` ORDER BY e.id DESC LIMIT ? OFFSET ?`, page.PageSize, page.Offset())
	}
	return r.list(ctx, enrollmentSelect+` WHERE e.status = ? ORDER BY e.id DESC LIMIT ? OFFSET ?`, status, page.PageSize, page.Offset())
}

func (r EnrollmentRepository) list(ctx context.Context, query string, args ...any) ([]models.Enrollment, error) {
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Review moves a pending enrollment to status; false when it was no longer pending.
func (r EnrollmentRepository) Review(ctx context.Context, q DBTX, id int64, status, reason string, reviewer int64, at time.Time) (bool, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		UPDATE transport_enrollments
		SET status = ?, rejection_reason = ?, reviewed_by = ?, reviewed_at = ?
		WHERE id = ? AND status = 'pending'`, status, reason, reviewer, at, id)
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}
