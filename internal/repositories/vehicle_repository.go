package repositories

import (
	"context"
	"database/sql"
	"strings"

	intdb "tms/internal/db"
	"tms/internal/domain"
	"tms/internal/domain/models"
)

type VehicleRepository struct {
	DB *sql.DB
}

func (r VehicleRepository) db() *sql.DB { return pick(r.DB) }

// List supports ?q= search on registration number/model with paging.
func (r VehicleRepository) List(ctx context.Context, q string, page domain.Pagination) ([]models.Vehicle, error) {
	query := `
		SELECT id, registration_number, COALESCE(model,''), capacity, fuel_type, status,
		       CASE WHEN insurance_expiry IS NULL THEN NULL ELSE DATE_FORMAT(insurance_expiry, '%Y-%m-%d') END,
		       CASE WHEN fitness_expiry IS NULL THEN NULL ELSE DATE_FORMAT(fitness_expiry, '%Y-%m-%d') END
		FROM vehicles`
	args := []any{}
	if q = strings.TrimSpace(q); q != "" {
		query += ` WHERE (registration_number LIKE ? OR model LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	page = page.Normalize(50, 200)
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		var (
			v                  models.Vehicle
			insurance, fitness sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.RegistrationNumber, &v.Model, &v.Capacity, &v.FuelType, &v.Status, &insurance, &fitness); err != nil {
			return nil, err
		}
		if insurance.Valid {
			v.InsuranceExpiry = &insurance.String
		}
		if fitness.Valid {
			v.FitnessExpiry = &fitness.String
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r VehicleRepository) Create(ctx context.Context, v models.Vehicle) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO vehicles (registration_number, model, capacity, fuel_type, status, insurance_expiry, fitness_expiry)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.RegistrationNumber, v.Model, v.Capacity, v.FuelType, v.Status, stringPtrArg(v.InsuranceExpiry), stringPtrArg(v.FitnessExpiry))
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "vehicle", Msg: "registration number already exists", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r VehicleRepository) Update(ctx context.Context, id int64, v models.Vehicle) error {
	res, err := r.db().ExecContext(ctx, `
		UPDATE vehicles
		SET registration_number = ?, model = ?, capacity = ?, fuel_type = ?, status = ?, insurance_expiry = ?, fitness_expiry = ?
		WHERE id = ?`,
		v.RegistrationNumber, v.Model, v.Capacity, v.FuelType, v.Status, stringPtrArg(v.InsuranceExpiry), stringPtrArg(v.FitnessExpiry), id)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "vehicle", Msg: "registration number already exists", Err: err}
		}
		return err
	}
	if affected(res) == 0 {
		var exists int
		if err := r.db().QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return domain.NotFoundError{Resource: "vehicle"}
		}
	}
	return nil
}

func stringPtrArg(p *string) any {
	if p == nil {
		return nil
	}
	return intdb.NullIfEmpty(strings.TrimSpace(*p))
}
