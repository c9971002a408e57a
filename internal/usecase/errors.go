package usecase

import (
	"errors"
	"fmt"
	"time"

	"clinic-auth/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrUserNotFound       = errors.New("user not found")

	ErrOTPExpired          = errors.New("verification code expired")
	ErrOTPMismatch         = errors.New("verification code does not match")
	ErrOTPNotFound         = errors.New("no active verification code")
	ErrOTPAttemptsExceeded = errors.New("too many incorrect attempts")
	ErrOTPCooldown         = errors.New("verification code requested too recently")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenReused  = errors.New("refresh token reuse detected")

	ErrDeliveryFailed     = errors.New("verification code could not be delivered")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries every violated rule, not only the first.
type ValidationError struct {
	Fields []utils.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + utils.FormatValidationErrors(e.Fields)
}

// CooldownError matches ErrOTPCooldown and tells the client how long to wait.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrOTPCooldown, e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrOTPCooldown
}

// RetryAfterSeconds rounds up so clients never retry early.
func (e *CooldownError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// DeliveryError matches ErrDeliveryFailed. The account or challenge it refers
// to was stored, so the client can still proceed to OTP entry and resend.
type DeliveryError struct {
	UserID uuid.UUID
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDeliveryFailed, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Err}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
