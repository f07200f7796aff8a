package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "tms/internal/db"
	"tms/internal/domain"
	"tms/internal/domain/models"
)

type GrievanceRepository struct {
	DB *sql.DB
}

func (r GrievanceRepository) db() *sql.DB { return pick(r.DB) }

const grievanceSelect = `
	SELECT id, ticket_number, student_id, route_id, category, priority, subject, description,
	       status, COALESCE(resolution,''), resolved_at, created_at, updated_at
	FROM grievances`

func scanGrievance(row scanner) (models.Grievance, error) {
	var (
		g        models.Grievance
		route    sql.NullInt64
		resolved sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.TicketNumber, &g.StudentID, &route, &g.Category, &g.Priority, &g.Subject, &g.Description,
		&g.Status, &g.Resolution, &resolved, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return models.Grievance{}, err
	}
	g.RouteID = int64Ptr(route)
	g.ResolvedAt = timePtr(resolved)
	return g, nil
}

func (r GrievanceRepository) Create(ctx context.Context, g models.Grievance) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO grievances (ticket_number, student_id, route_id, category, priority, subject, description, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'open')`,
		g.TicketNumber, g.StudentID, nullableInt64(g.RouteID), g.Category, g.Priority, g.Subject, g.Description)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "grievance", Msg: "ticket number collision", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r GrievanceRepository) GetByID(ctx context.Context, id int64) (models.Grievance, error) {
	g, err := scanGrievance(r.db().QueryRowContext(ctx, grievanceSelect+` WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Grievance{}, domain.NotFoundError{Resource: "grievance", Err: err}
	}
	return g, err
}

// List filters by student (0 for all) and status ("" for all), newest first.
func (r GrievanceRepository) List(ctx context.Context, studentID int64, status string, page domain.Pagination) ([]models.Grievance, error) {
	query := grievanceSelect + ` WHERE 1=1`
	args := []any{}
	if studentID > 0 {
		query += ` AND student_id = ?`
		args = append(args, studentID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	page = page.Normalize(50, 200)
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Grievance{}
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateStatus moves the grievance from `from` to `to`; false when the status changed underneath.
func (r GrievanceRepository) UpdateStatus(ctx context.Context, id int64, from, to, resolution string, resolvedAt *time.Time) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE grievances
		SET status = ?, resolution = COALESCE(NULLIF(?, ''), resolution), resolved_at = COALESCE(?, resolved_at)
		WHERE id = ? AND status = ?`, to, resolution, nullableTime(resolvedAt), id, from)
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}

func (r GrievanceRepository) AddMessage(ctx context.Context, m models.GrievanceCommunication) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO grievance_communications (grievance_id, sender_type, sender_id, message)
		VALUES (?, ?, ?, ?)`, m.GrievanceID, m.SenderType, m.SenderID, m.Message)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r GrievanceRepository) Messages(ctx context.Context, grievanceID int64) ([]models.GrievanceCommunication, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, grievance_id, sender_type, sender_id, message, created_at
		FROM grievance_communications
		WHERE grievance_id = ?
		ORDER BY id ASC`, grievanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.GrievanceCommunication{}
	for rows.Next() {
		var m models.GrievanceCommunication
		if err := rows.Scan(&m.ID, &m.GrievanceID, &m.SenderType, &m.SenderID, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
