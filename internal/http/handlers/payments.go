package handlers

import (
	"fmt"
	"io"
	"net/http"

	"tms/internal/http/middleware"
	"tms/internal/repositories"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// GET /api/payments/me
func MyPayments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := repositories.PaymentRepository{}.ListByStudent(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// POST /api/payments/orders
func CreatePaymentOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in services.OrderRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	res, err := paymentService(c).CreateOrder(c.Request.Context(), p.UserID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "payment order created", res)
}

// POST /api/payments/verify
func VerifyPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in services.VerifyRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	pay, err := paymentService(c).Verify(c.Request.Context(), p.UserID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "payment confirmed", pay)
}

// POST /api/payments/webhook (unauthenticated; signed by the gateway)
func PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "failed to read body", err)
		return
	}
	if len(body) > maxWebhookBody {
		RespondError(c, http.StatusRequestEntityTooLarge, "webhook body too large", nil)
		return
	}
	res, err := paymentService(c).HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Gateway-Signature"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, res)
}

// GET /api/payments/receipts/:id
func GetReceipt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rc, err := paymentService(c).Receipt(c.Request.Context(), p, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rc)
}

// GET /api/payments/:id/receipt
func GetPaymentReceipt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rc, err := paymentService(c).ReceiptForPayment(c.Request.Context(), p, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rc)
}

// GET /api/payments/receipts/:id/pdf
func GetReceiptPDF(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pdf, filename, err := services.ReceiptService{Payments: paymentService(c), RequestID: middleware.GetRequestID(c)}.PDF(c.Request.Context(), p, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
