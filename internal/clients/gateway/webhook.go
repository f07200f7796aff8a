package gateway

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// WebhookEvent is the subset of the gateway's webhook envelope we act on.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				Amount           int64  `json:"amount"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook decodes a webhook body.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook: %w", err)
	}
	if ev.Event == "" {
		return WebhookEvent{}, fmt.Errorf("webhook event missing")
	}
	return ev, nil
}

// OrderID returns the order the event refers to.
func (e WebhookEvent) OrderID() string {
	if id := e.Payload.Payment.Entity.OrderID; id != "" {
		return id
	}
	return e.Payload.Order.Entity.ID
}

// PaymentID returns the gateway payment id, if any.
func (e WebhookEvent) PaymentID() string {
	return e.Payload.Payment.Entity.ID
}

// Captured reports whether the event confirms the payment.
func (e WebhookEvent) Captured() bool {
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

// Failed reports whether the event fails the payment.
func (e WebhookEvent) Failed() bool {
	return e.Event == EventPaymentFailed
}
