package usecase

import (
	"context"
	"testing"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository/memory"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := memory.NewRepository()
	metrics := NewMetrics(prometheus.NewRegistry())

	now := clock.Now()
	require.NoError(t, repo.OTP.Create(ctx, &entity.OTP{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		UserID:     uuid.New(),
		Purpose:    entity.OTPPurposeRegistration,
		Code:       "123456",
		ExpiresAt:  now.Add(time.Minute),
	}))
	require.NoError(t, repo.Session.Create(ctx, &entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		UserID:     uuid.New(),
		FamilyID:   uuid.New(),
		TokenHash:  "h",
		ExpiresAt:  now.Add(time.Hour),
	}))

	sweeper := NewSweeper(repo, time.Minute, clock, metrics, zap.NewNop())

	sweeper.SweepOnce(ctx)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SweptRecords.WithLabelValues("otp")))

	clock.Advance(2 * time.Hour)
	sweeper.SweepOnce(ctx)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SweptRecords.WithLabelValues("otp")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SweptRecords.WithLabelValues("session")))
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSweeper(memory.NewRepository(), time.Millisecond, newFakeClock(), NewMetrics(nil), zap.NewNop())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestMetrics_OutcomeLabels(t *testing.T) {
	assert.Equal(t, "success", outcomeOf(nil))
	assert.Equal(t, "validation", outcomeOf(&ValidationError{}))
	assert.Equal(t, "reused", outcomeOf(ErrTokenReused))
	assert.Equal(t, "storage_unavailable", outcomeOf(storageError(context.DeadlineExceeded)))
	assert.Equal(t, "delivery_failed", outcomeOf(&DeliveryError{Err: context.Canceled}))
	assert.Equal(t, "error", outcomeOf(context.Canceled))
}
