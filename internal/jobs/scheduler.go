// Package jobs runs periodic maintenance on its own goroutine.
package jobs

import (
	"context"
	"fmt"
	"time"

	"tms/internal/report"
	"tms/internal/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// PaymentExpirer is implemented by services.PaymentService.
type PaymentExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
}

// New registers the payment sweeper at spec (e.g. "@every 15m").
func New(spec string, payments PaymentExpirer, ttl time.Duration) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { SweepPayments(context.Background(), payments, ttl) }); err != nil {
		return nil, fmt.Errorf("schedule payment sweeper: %w", err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// SweepPayments expires stale pending payments once.
func SweepPayments(ctx context.Context, payments PaymentExpirer, ttl time.Duration) {
	runID := "job-" + uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := payments.ExpireStale(ctx, ttl)
	if err != nil {
		utils.LogEvent(runID, "jobs", "payment_sweep_error", err.Error())
		report.ReportError(err)
		return
	}
	utils.LogEvent(runID, "jobs", "payment_sweep", fmt.Sprintf("expired=%d ttl=%s", n, ttl))
}
