package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Retrying retries failed deliveries with exponential backoff. Context
// cancellation is never retried.
type Retrying struct {
	next       Sender
	maxRetries uint64
	base       time.Duration
	log        *zap.Logger
}

func WithRetry(next Sender, maxRetries uint64, base time.Duration, log *zap.Logger) *Retrying {
	return &Retrying{
		next:       next,
		maxRetries: maxRetries,
		base:       base,
		log:        log.With(zap.String("sender", "retry")),
	}
}

func (r *Retrying) SendOTP(ctx context.Context, destination, code, purpose string) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.base))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := r.next.SendOTP(ctx, destination, code, purpose)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		r.log.Warn("OTP delivery failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.String("purpose", purpose),
		)
		return retry.RetryableError(err)
	})
}
