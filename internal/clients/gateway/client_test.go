package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tms/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "s3cret", pass)
		assert.Equal(t, "/orders", r.URL.Path)

		var in OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, int64(1250000), in.Amount)
		assert.Equal(t, "INR", in.Currency)

		_ = json.NewEncoder(w).Encode(Order{ID: "order_1", Amount: in.Amount, Currency: in.Currency, Receipt: in.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, KeyID: "rzp_test", KeySecret: "s3cret"})
	order, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 1250000, Receipt: "TMS-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, KeyID: "bad", KeySecret: "bad"})
	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 100})
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestCreateOrderRejectsZeroAmount(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 0})
	assert.True(t, domain.IsValidation(err))
}

func TestVerifyPaymentSignature(t *testing.T) {
	c := New(Config{KeySecret: "s3cret"})
	sig := Sign([]byte("order_1|pay_9"), "s3cret")

	assert.True(t, c.VerifyPaymentSignature("order_1", "pay_9", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_8", sig))
	assert.False(t, c.VerifyPaymentSignature("order_1", "pay_9", "not-hex"))
	assert.False(t, New(Config{}).VerifyPaymentSignature("order_1", "pay_9", sig))
}

func TestVerifyWebhookSignatureAndParse(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_1","status":"captured"}}}}`)
	c := New(Config{WebhookSecret: "wh"})

	require.True(t, c.VerifyWebhookSignature(body, Sign(body, "wh")))
	assert.False(t, c.VerifyWebhookSignature(body, Sign(body, "other")))

	ev, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.True(t, ev.Captured())
	assert.False(t, ev.Failed())
	assert.Equal(t, "order_1", ev.OrderID())
	assert.Equal(t, "pay_9", ev.PaymentID())
}

func TestParseWebhookOrderPaid(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_2"}}}}`))
	require.NoError(t, err)
	assert.True(t, ev.Captured())
	assert.Equal(t, "order_2", ev.OrderID())

	_, err = ParseWebhook([]byte(`{}`))
	assert.Error(t, err)
}
