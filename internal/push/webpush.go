// Package push delivers Web Push messages signed with the service's VAPID keys.
package push

import (
	"context"
	"io"
	"net/http"
	"time"

	"tms/internal/domain/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sender delivers one payload to one browser subscription and reports the push service status.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error)
}

type Config struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        time.Duration
	HTTPClient *http.Client
}

// VAPIDSender uses webpush-go; it is nil when keys are missing.
type VAPIDSender struct {
	cfg Config
}

func NewVAPIDSender(cfg Config) *VAPIDSender {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &VAPIDSender{cfg: cfg}
}

func (s *VAPIDSender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.cfg.HTTPClient,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL.Seconds()),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Gone reports a status meaning the subscription no longer exists.
func Gone(status int) bool {
	return status == http.StatusGone || status == http.StatusNotFound
}
