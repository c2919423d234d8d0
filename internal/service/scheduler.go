package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RenewalScheduler runs the subscription renewal sweep once a day.
type RenewalScheduler struct {
	billing *Billing
	hour    int
}

func NewRenewalScheduler(billing *Billing) *RenewalScheduler {
	return &RenewalScheduler{billing: billing, hour: 3}
}

func (s *RenewalScheduler) Run(ctx context.Context) {
	zap.L().Info("renewal scheduler started")
	for {
		now := time.Now()
		next := nextRunTime(now, s.hour, 0)
		select {
		case <-time.After(next.Sub(now)):
			s.sweep()
		case <-ctx.Done():
			zap.L().Info("renewal scheduler stopped")
			return
		}
	}
}

func (s *RenewalScheduler) sweep() {
	start := time.Now()
	renewed, err := s.billing.ProcessDueRenewals(start)
	if err != nil {
		zap.L().Error("renewal sweep failed", zap.Error(err))
		return
	}
	zap.L().Info("renewal sweep finished",
		zap.Int("renewed", renewed),
		zap.Duration("duration", time.Since(start)),
	)
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
