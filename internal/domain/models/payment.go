package models

import "time"

const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
	PaymentExpired   = "expired"
)

// SemesterPayment is one transport fee payment attempt for a semester.
type SemesterPayment struct {
	ID               int64      `json:"id"`
	StudentID        int64      `json:"student_id"`
	RouteID          int64      `json:"route_id"`
	AcademicYear     string     `json:"academic_year"`
	Semester         string     `json:"semester"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	GatewayOrderID   string     `json:"gateway_order_id"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Final reports whether the payment can no longer change status.
func (p SemesterPayment) Final() bool {
	return p.Status != PaymentPending
}

type PaymentReceipt struct {
	ID            int64     `json:"id"`
	PaymentID     int64     `json:"payment_id"`
	ReceiptNumber string    `json:"receipt_number"`
	IssuedAt      time.Time `json:"issued_at"`

	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	RollNumber   string `json:"roll_number"`
	RouteNumber  string `json:"route_number"`
	RouteName    string `json:"route_name"`
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PaymentRef   string `json:"payment_reference"`
}
