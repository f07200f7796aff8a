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

type PaymentRepository struct {
	DB *sql.DB
}

func (r PaymentRepository) db() *sql.DB { return pick(r.DB) }

const paymentSelect = `
	SELECT id, student_id, route_id, academic_year, semester, amount, currency, status,
	       gateway_order_id, COALESCE(gateway_payment_id,''), COALESCE(failure_reason,''), paid_at, created_at
	FROM semester_payments`

func scanPayment(row scanner) (models.SemesterPayment, error) {
	var (
		p      models.SemesterPayment
		paidAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.StudentID, &p.RouteID, &p.AcademicYear, &p.Semester, &p.Amount, &p.Currency, &p.Status,
		&p.GatewayOrderID, &p.GatewayPaymentID, &p.FailureReason, &paidAt, &p.CreatedAt); err != nil {
		return models.SemesterPayment{}, err
	}
	p.PaidAt = timePtr(paidAt)
	return p, nil
}

// ConfirmedExists reports whether the student already paid for the semester.
func (r PaymentRepository) ConfirmedExists(ctx context.Context, studentID int64, academicYear, semester string) (bool, error) {
	var n int
	err := r.db().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM semester_payments
		WHERE student_id = ? AND academic_year = ? AND semester = ? AND status = 'confirmed'`,
		studentID, academicYear, semester).Scan(&n)
	return n > 0, err
}

func (r PaymentRepository) CreatePending(ctx context.Context, p models.SemesterPayment) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO semester_payments (student_id, route_id, academic_year, semester, amount, currency, status, gateway_order_id)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`,
		p.StudentID, p.RouteID, p.AcademicYear, p.Semester, p.Amount, p.Currency, p.GatewayOrderID)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "payment", Msg: "order already recorded", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r PaymentRepository) GetByID(ctx context.Context, id int64) (models.SemesterPayment, error) {
	p, err := scanPayment(r.db().QueryRowContext(ctx, paymentSelect+` WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SemesterPayment{}, domain.NotFoundError{Resource: "payment", Err: err}
	}
	return p, err
}

func (r PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (models.SemesterPayment, error) {
	p, err := scanPayment(r.db().QueryRowContext(ctx, paymentSelect+` WHERE gateway_order_id = ? LIMIT 1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SemesterPayment{}, domain.NotFoundError{Resource: "payment", Err: err}
	}
	return p, err
}

func (r PaymentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.SemesterPayment, error) {
	rows, err := r.db().QueryContext(ctx, paymentSelect+` WHERE student_id = ? ORDER BY id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SemesterPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkConfirmed settles a pending, failed or expired payment; false when it was already confirmed.
func (r PaymentRepository) MarkConfirmed(ctx context.Context, q DBTX, id int64, paymentID string, at time.Time) (bool, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		UPDATE semester_payments
		SET status = 'confirmed', gateway_payment_id = ?, paid_at = ?, failure_reason = ''
		WHERE id = ? AND status IN ('pending', 'failed', 'expired')`, paymentID, at, id)
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}

// MarkFailed closes a pending payment with reason; false when it was already final.
func (r PaymentRepository) MarkFailed(ctx context.Context, id int64, paymentID, reason string) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE semester_payments
		SET status = 'failed', gateway_payment_id = ?, failure_reason = ?
		WHERE id = ? AND status = 'pending'`, paymentID, reason, id)
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}

// ExpireStale marks pending payments created before cutoff as expired.
func (r PaymentRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE semester_payments SET status = 'expired'
		WHERE status = 'pending' AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return affected(res), nil
}

// CreateReceipt inserts the receipt for paymentID unless one exists and returns its id.
func (r PaymentRepository) CreateReceipt(ctx context.Context, q DBTX, paymentID int64, number string, at time.Time) (int64, error) {
	if q == nil {
		q = r.db()
	}
	if _, err := q.ExecContext(ctx, `
		INSERT IGNORE INTO payment_receipts (payment_id, receipt_number, issued_at) VALUES (?, ?, ?)`,
		paymentID, number, at); err != nil {
		return 0, err
	}
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM payment_receipts WHERE payment_id = ? LIMIT 1`, paymentID).Scan(&id)
	return id, err
}

const receiptSelect = `
	SELECT rc.id, rc.payment_id, rc.receipt_number, rc.issued_at,
	       p.student_id, COALESCE(s.name,''), COALESCE(s.roll_number,''),
	       COALESCE(r.route_number,''), COALESCE(r.route_name,''),
	       p.academic_year, p.semester, p.amount, p.currency, COALESCE(p.gateway_payment_id,'')
	FROM payment_receipts rc
	JOIN semester_payments p ON p.id = rc.payment_id
	LEFT JOIN students s ON s.id = p.student_id
	LEFT JOIN routes r ON r.id = p.route_id`

func scanReceipt(row scanner) (models.PaymentReceipt, error) {
	var rc models.PaymentReceipt
	err := row.Scan(&rc.ID, &rc.PaymentID, &rc.ReceiptNumber, &rc.IssuedAt,
		&rc.StudentID, &rc.StudentName, &rc.RollNumber,
		&rc.RouteNumber, &rc.RouteName,
		&rc.AcademicYear, &rc.Semester, &rc.Amount, &rc.Currency, &rc.PaymentRef)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentReceipt{}, domain.NotFoundError{Resource: "receipt", Err: err}
	}
	return rc, err
}

func (r PaymentRepository) ReceiptByID(ctx context.Context, id int64) (models.PaymentReceipt, error) {
	return scanReceipt(r.db().QueryRowContext(ctx, receiptSelect+` WHERE rc.id = ? LIMIT 1`, id))
}

func (r PaymentRepository) ReceiptByPayment(ctx context.Context, paymentID int64) (models.PaymentReceipt, error) {
	return scanReceipt(r.db().QueryRowContext(ctx, receiptSelect+` WHERE rc.payment_id = ? LIMIT 1`, paymentID))
}
