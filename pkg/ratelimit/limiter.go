// Package ratelimit provides fixed-window limiters keyed by arbitrary strings.
package ratelimit

import (
	"context"
	"time"
)

// Limiter reports whether one more event for key fits in the current window.
// When it does not, retryAfter is the time left until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, retryAfter time.Duration, err error)
	// Reset forgets every event counted for key, opening its window again.
	Reset(ctx context.Context, key string) error
}
