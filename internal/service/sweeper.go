package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/opsmind/auth/internal/metrics"
)

type OTPPurger interface {
	PurgeExpiredOrUsedOTPs(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes used and expired OTP challenges.
type Sweeper struct {
	Store    OTPPurger
	Interval time.Duration
	Log      *slog.Logger
	Metrics  *metrics.Metrics
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.Store.PurgeExpiredOrUsedOTPs(ctx)
	if err != nil {
		s.Log.Error("otp_purge_failed", "error", err)
		return 0, err
	}
	s.Metrics.OTPPurged(n)
	s.Log.Info("otp_purged", "deleted", n)
	return n, nil
}

// Run sweeps once per Interval until ctx is done. A non-positive Interval
// returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
