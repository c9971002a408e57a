package usecase

import (
	"context"
	"time"

	"clinic-auth/internal/data/repository"
	"clinic-auth/pkg/utils"

	"go.uber.org/zap"
)

// Sweeper deletes expired OTP challenges and sessions. Expiry is always
// checked on read, so sweeping only reclaims space.
type Sweeper struct {
	repo     *repository.Repository
	interval time.Duration
	clock    utils.Clock
	metrics  *Metrics
	log      *zap.Logger
}

func NewSweeper(repo *repository.Repository, interval time.Duration, clock utils.Clock, metrics *Metrics, log *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		interval: interval,
		clock:    clock,
		metrics:  metrics,
		log:      log.With(zap.String("service", "sweeper")),
	}
}

// Run sweeps on every tick until ctx is cancelled. A non-positive interval
// disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.clock.Now()

	otps, err := s.repo.OTP.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Error("Failed to sweep OTPs", zap.Error(err))
	}
	sessions, err := s.repo.Session.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Error("Failed to sweep sessions", zap.Error(err))
	}

	s.metrics.SweptRecords.WithLabelValues("otp").Add(float64(otps))
	s.metrics.SweptRecords.WithLabelValues("session").Add(float64(sessions))

	if otps > 0 || sessions > 0 {
		s.log.Info("Expired records swept",
			zap.Int64("otps", otps),
			zap.Int64("sessions", sessions),
		)
	}
}
