// Package gateway is a client for the payment gateway's orders API and
// signature checks on checkout callbacks and webhooks.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tms/internal/domain"
)

const serviceName = "payment gateway"

type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	HTTPClient    *http.Client
}

type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	httpClient    *http.Client
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    hc,
	}
}

// KeyID is the public key the browser checkout needs.
func (c *Client) KeyID() string {
	return c.keyID
}

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder registers an order; amount is in paise.
func (c *Client) CreateOrder(ctx context.Context, in OrderRequest) (Order, error) {
	if in.Amount <= 0 {
		return Order{}, domain.ValidationError{Field: "amount", Msg: "must be positive"}
	}
	if in.Currency == "" {
		in.Currency = "INR"
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(raw))
	if err != nil {
		return Order{}, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Order{}, domain.UpstreamError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return Order{}, domain.UpstreamError{Service: serviceName, Status: resp.StatusCode}
	}

	var out Order
	if err := json.Unmarshal(body, &out); err != nil {
		return Order{}, domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("decode order: %w", err)}
	}
	if out.ID == "" {
		return Order{}, domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("order id missing")}
	}
	return out, nil
}

// VerifyPaymentSignature checks the checkout callback signature:
// hex(HMAC-SHA256(order_id + "|" + payment_id, key_secret)).
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c.keySecret == "" || orderID == "" || paymentID == "" {
		return false
	}
	return verify([]byte(orderID+"|"+paymentID), c.keySecret, signature)
}

// VerifyWebhookSignature checks hex(HMAC-SHA256(body, webhook_secret)).
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" {
		return false
	}
	return verify(body, c.webhookSecret, signature)
}

// Sign is exposed for tests and local tooling that fake gateway callbacks.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(payload []byte, secret, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), got)
}
