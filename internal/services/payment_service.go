package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tms/internal/clients/gateway"
	intconfig "tms/internal/config"
	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/metrics"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/google/uuid"
)

var academicYearPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

var semesters = map[string]bool{"1": true, "2": true}

// PaymentService drives the semester fee lifecycle: pending -> confirmed|failed|expired.
type PaymentService struct {
	DB            *sql.DB
	Payments      repositories.PaymentRepository
	Routes        repositories.RouteRepository
	Students      repositories.StudentRepository
	Gateway       *gateway.Client
	Notifications NotificationService
	Now           func() time.Time
	RequestID     string
}

func (s PaymentService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type OrderRequest struct {
	RouteID      int64  `json:"route_id"`
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`
}

type OrderResult struct {
	PaymentID int64  `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id"`
}

// CreateOrder opens a gateway order for the route's semester fee.
func (s PaymentService) CreateOrder(ctx context.Context, studentID int64, in OrderRequest) (OrderResult, error) {
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)
	in.Semester = strings.TrimSpace(in.Semester)
	if in.RouteID <= 0 {
		return OrderResult{}, domain.ValidationError{Field: "route_id", Msg: "required"}
	}
	if !academicYearPattern.MatchString(in.AcademicYear) {
		return OrderResult{}, domain.ValidationError{Field: "academic_year", Msg: "expected YYYY-YY"}
	}
	if !semesters[in.Semester] {
		return OrderResult{}, domain.ValidationError{Field: "semester", Msg: "expected 1 or 2"}
	}

	route, err := s.Routes.GetByID(ctx, in.RouteID)
	if err != nil {
		return OrderResult{}, err
	}
	if route.SemesterFee <= 0 {
		return OrderResult{}, domain.ValidationError{Field: "route_id", Msg: "route has no semester fee configured"}
	}
	paid, err := s.Payments.ConfirmedExists(ctx, studentID, in.AcademicYear, in.Semester)
	if err != nil {
		return OrderResult{}, err
	}
	if paid {
		return OrderResult{}, domain.ConflictError{Resource: "payment", Msg: "semester fee already paid"}
	}

	amount := utils.ToPaise(route.SemesterFee)
	receipt := "TMS-" + strings.ToUpper(uuid.NewString()[:12])
	order, err := s.Gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
		Notes: map[string]string{
			"student_id":    fmt.Sprint(studentID),
			"route_id":      fmt.Sprint(in.RouteID),
			"academic_year": in.AcademicYear,
			"semester":      in.Semester,
		},
	})
	if err != nil {
		utils.LogEvent(s.RequestID, "payment", "order_error", err.Error())
		return OrderResult{}, err
	}

	id, err := s.Payments.CreatePending(ctx, models.SemesterPayment{
		StudentID:      studentID,
		RouteID:        in.RouteID,
		AcademicYear:   in.AcademicYear,
		Semester:       in.Semester,
		Amount:         amount,
		Currency:       order.Currency,
		GatewayOrderID: order.ID,
	})
	if err != nil {
		return OrderResult{}, err
	}
	metrics.PaymentTransitions.WithLabelValues("order", models.PaymentPending).Inc()
	utils.LogEvent(s.RequestID, "payment", "order", fmt.Sprintf("payment_id=%d order_id=%s amount=%d", id, order.ID, amount))
	return OrderResult{PaymentID: id, OrderID: order.ID, Amount: amount, Currency: order.Currency, KeyID: s.Gateway.KeyID()}, nil
}

type VerifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Verify checks the checkout signature the browser received from the gateway.
func (s PaymentService) Verify(ctx context.Context, studentID int64, in VerifyRequest) (models.SemesterPayment, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return models.SemesterPayment{}, domain.ValidationError{Msg: "order_id, payment_id and signature are required"}
	}
	p, err := s.Payments.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		return models.SemesterPayment{}, err
	}
	if p.StudentID != studentID {
		return models.SemesterPayment{}, domain.ForbiddenError{Msg: "payment belongs to another student"}
	}

	if !s.Gateway.VerifyPaymentSignature(in.OrderID, in.PaymentID, in.Signature) {
		// the row stays open for the webhook or a retried checkout
		utils.LogEvent(s.RequestID, "payment", "verify_rejected", fmt.Sprintf("payment_id=%d", p.ID))
		return models.SemesterPayment{}, domain.ValidationError{Field: "signature", Msg: "payment signature is invalid"}
	}
	if _, err := s.confirm(ctx, p, in.PaymentID, "verify"); err != nil {
		return models.SemesterPayment{}, err
	}
	return s.Payments.GetByID(ctx, p.ID)
}

type WebhookResult struct {
	Event     string `json:"event"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Changed   bool   `json:"changed"`
	PaymentID int64  `json:"payment_id"`
}

// HandleWebhook authenticates and applies a gateway event; replays are no-ops.
func (s PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !s.Gateway.VerifyWebhookSignature(body, signature) {
		return WebhookResult{}, domain.UnauthorizedError{Msg: "invalid webhook signature"}
	}
	ev, err := gateway.ParseWebhook(body)
	if err != nil {
		return WebhookResult{}, domain.ValidationError{Field: "body", Msg: err.Error()}
	}
	res := WebhookResult{Event: ev.Event, OrderID: ev.OrderID()}
	if !ev.Captured() && !ev.Failed() {
		utils.LogEvent(s.RequestID, "payment", "webhook_ignored", "event="+ev.Event)
		return res, nil
	}
	if res.OrderID == "" {
		return res, domain.ValidationError{Field: "order_id", Msg: "missing in webhook payload"}
	}

	p, err := s.Payments.GetByOrderID(ctx, res.OrderID)
	if err != nil {
		return res, err
	}
	res.PaymentID = p.ID
	res.Status = p.Status
	// a capture may follow a failed attempt or the sweeper's expiry on the same order
	if p.Status == models.PaymentConfirmed || (!ev.Captured() && p.Final()) {
		utils.LogEvent(s.RequestID, "payment", "webhook_replay", fmt.Sprintf("payment_id=%d status=%s", p.ID, p.Status))
		return res, nil
	}

	if ev.Captured() {
		res.Changed, err = s.confirm(ctx, p, ev.PaymentID(), "webhook")
		if res.Changed {
			res.Status = models.PaymentConfirmed
		}
	} else {
		reason := ev.Payload.Payment.Entity.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		res.Changed, err = s.fail(ctx, p, ev.PaymentID(), reason, "webhook")
		if res.Changed {
			res.Status = models.PaymentFailed
		}
	}
	return res, err
}

func (s PaymentService) confirm(ctx context.Context, p models.SemesterPayment, gatewayPaymentID, source string) (bool, error) {
	if p.Status == models.PaymentConfirmed {
		return false, nil
	}

	now := s.now()
	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ok, err := s.Payments.MarkConfirmed(ctx, tx, p.ID, gatewayPaymentID, now)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if _, err := s.Payments.CreateReceipt(ctx, tx, p.ID, ReceiptNumber(p.ID, now), now); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	metrics.PaymentTransitions.WithLabelValues(source, models.PaymentConfirmed).Inc()
	utils.LogEvent(s.RequestID, "payment", "confirmed", fmt.Sprintf("payment_id=%d source=%s", p.ID, source))

	studentID := p.StudentID
	s.Notifications.Notify(ctx, models.Notification{
		Title:          "Transport fee received",
		Message:        fmt.Sprintf("We received %s for semester %s (%s).", utils.FormatINR(p.Amount/100), p.Semester, p.AcademicYear),
		Type:           "success",
		Category:       "payment",
		TargetAudience: models.AudienceSpecificUser,
		TargetUserID:   &studentID,
	})
	return true, nil
}

func (s PaymentService) fail(ctx context.Context, p models.SemesterPayment, gatewayPaymentID, reason, source string) (bool, error) {
	if p.Final() {
		return false, nil
	}
	ok, err := s.Payments.MarkFailed(ctx, p.ID, gatewayPaymentID, utils.Truncate(reason, 255))
	if err != nil {
		return false, err
	}
	if ok {
		metrics.PaymentTransitions.WithLabelValues(source, models.PaymentFailed).Inc()
		utils.LogEvent(s.RequestID, "payment", "failed", fmt.Sprintf("payment_id=%d source=%s", p.ID, source))
	}
	return ok, nil
}

// ExpireStale closes pending payments older than ttl.
func (s PaymentService) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.Payments.ExpireStale(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.PaymentTransitions.WithLabelValues("sweeper", models.PaymentExpired).Add(float64(n))
		utils.LogEvent(s.RequestID, "payment", "expire", fmt.Sprintf("count=%d", n))
	}
	return n, nil
}

// ReceiptNumber is RCPT-YYYYMMDD-<payment id>.
func ReceiptNumber(paymentID int64, at time.Time) string {
	return fmt.Sprintf("RCPT-%s-%06d", at.Format("20060102"), paymentID)
}

// Receipt loads a receipt the principal may see.
func (s PaymentService) Receipt(ctx context.Context, p domain.Principal, id int64) (models.PaymentReceipt, error) {
	rc, err := s.Payments.ReceiptByID(ctx, id)
	if err != nil {
		return rc, err
	}
	if p.Role == domain.RoleStudent && rc.StudentID != p.UserID {
		return models.PaymentReceipt{}, domain.ForbiddenError{Msg: "receipt belongs to another student"}
	}
	return rc, nil
}

// ReceiptForPayment is Receipt looked up by the payment it was issued for.
func (s PaymentService) ReceiptForPayment(ctx context.Context, p domain.Principal, paymentID int64) (models.PaymentReceipt, error) {
	rc, err := s.Payments.ReceiptByPayment(ctx, paymentID)
	if err != nil {
		return rc, err
	}
	if p.Role == domain.RoleStudent && rc.StudentID != p.UserID {
		return models.PaymentReceipt{}, domain.ForbiddenError{Msg: "receipt belongs to another student"}
	}
	return rc, nil
}
