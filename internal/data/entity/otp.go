package entity

import (
	"time"

	"github.com/google/uuid"
)

type OTPPurpose string

const (
	OTPPurposeRegistration OTPPurpose = "registration"

	// OTPPurposeLoginUnlock is reserved for step-up checks on verified
	// accounts. Storage, limiter keys and messages already handle it.
	OTPPurposeLoginUnlock OTPPurpose = "login_unlock"
)

// OTPState is the lifecycle tag of a challenge. Consumed and expired challenges
// are kept distinct so callers can tell "already used" from "timed out".
type OTPState string

const (
	OTPStateActive      OTPState = "active"
	OTPStateConsumed    OTPState = "consumed"
	OTPStateInvalidated OTPState = "invalidated"
	OTPStateExpired     OTPState = "expired"
	OTPStateExhausted   OTPState = "exhausted"
)

type OTP struct {
	BaseSimple
	UserID        uuid.UUID  `db:"user_id"`
	Purpose       OTPPurpose `db:"purpose"`
	Code          string     `db:"code"`
	ExpiresAt     time.Time  `db:"expires_at"`
	Attempts      int        `db:"attempts"`
	ConsumedAt    *time.Time `db:"consumed_at"`
	InvalidatedAt *time.Time `db:"invalidated_at"`
}

// State evaluates the challenge at now. maxAttempts <= 0 disables the cap.
func (o *OTP) State(now time.Time, maxAttempts int) OTPState {
	switch {
	case o.ConsumedAt != nil:
		return OTPStateConsumed
	case o.InvalidatedAt != nil:
		return OTPStateInvalidated
	case !now.Before(o.ExpiresAt):
		return OTPStateExpired
	case maxAttempts > 0 && o.Attempts >= maxAttempts:
		return OTPStateExhausted
	}
	return OTPStateActive
}
