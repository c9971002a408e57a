package usecase

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	AuthAttempts     *prometheus.CounterVec
	OTPIssued        *prometheus.CounterVec
	OTPVerifications *prometheus.CounterVec
	Refreshes        *prometheus.CounterVec
	SweptRecords     *prometheus.CounterVec
}

// NewMetrics registers the collectors on registry. A nil registry leaves them
// unregistered, which tests rely on.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Register and login attempts by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		OTPIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_otp_issued_total",
				Help: "Verification codes issued by purpose and delivery result.",
			},
			[]string{"purpose", "delivery"},
		),
		OTPVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_otp_verifications_total",
				Help: "Verification code checks by outcome.",
			},
			[]string{"outcome"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_refresh_total",
				Help: "Refresh token redemptions by outcome.",
			},
			[]string{"outcome"},
		),
		SweptRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_swept_records_total",
				Help: "Expired records deleted by the sweeper.",
			},
			[]string{"kind"},
		),
	}

	if registry != nil {
		registry.MustRegister(m.AuthAttempts, m.OTPIssued, m.OTPVerifications, m.Refreshes, m.SweptRecords)
	}
	return m
}

// outcomeOf maps an error to a low-cardinality label.
func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return "validation"
	}
	for _, c := range outcomeLabels {
		if errors.Is(err, c.err) {
			return c.label
		}
	}
	return "error"
}

var outcomeLabels = []struct {
	err   error
	label string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrEmailTaken, "email_taken"},
	{ErrOTPExpired, "expired"},
	{ErrOTPMismatch, "mismatch"},
	{ErrOTPNotFound, "not_found"},
	{ErrOTPAttemptsExceeded, "attempts_exceeded"},
	{ErrOTPCooldown, "cooldown"},
	{ErrInvalidToken, "invalid"},
	{ErrTokenExpired, "expired"},
	{ErrTokenReused, "reused"},
	{ErrDeliveryFailed, "delivery_failed"},
	{ErrStorageUnavailable, "storage_unavailable"},
}
