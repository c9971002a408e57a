package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"
	"clinic-auth/pkg/ratelimit"
	"clinic-auth/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IssuedOTP is a freshly stored challenge. Code is plaintext and must only be
// handed to a notify.Sender.
type IssuedOTP struct {
	ID         uuid.UUID
	Code       string
	ExpiresAt  time.Time
	RetryAfter time.Duration
}

type OTPService interface {
	Issue(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*IssuedOTP, error)
	Verify(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose, code string) error
	Resend(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*IssuedOTP, error)
	// ReleaseResend gives back the cooldown slot taken by a resend whose code
	// never reached the user.
	ReleaseResend(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose)
}

type otpService struct {
	repo    repository.OTPRepository
	limiter ratelimit.Limiter
	config  utils.OTPConfig
	clock   utils.Clock
	metrics *Metrics
	log     *zap.Logger
}

func NewOTPService(
	repo repository.OTPRepository,
	limiter ratelimit.Limiter,
	config utils.OTPConfig,
	clock utils.Clock,
	metrics *Metrics,
	log *zap.Logger,
) OTPService {
	return &otpService{
		repo:    repo,
		limiter: limiter,
		config:  config,
		clock:   clock,
		metrics: metrics,
		log:     log.With(zap.String("service", "otp")),
	}
}

func (s *otpService) Issue(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*IssuedOTP, error) {
	code, err := utils.GenerateOTP(s.config.Length)
	if err != nil {
		return nil, fmt.Errorf("issue OTP: %w", err)
	}

	now := s.clock.Now()
	otp := &entity.OTP{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    userID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: now.Add(s.config.Expiry),
	}

	if err := s.repo.Create(ctx, otp); err != nil {
		return nil, storageError(err)
	}

	s.log.Info("OTP issued",
		zap.String("user_id", userID.String()),
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", otp.ExpiresAt),
	)

	return &IssuedOTP{ID: otp.ID, Code: code, ExpiresAt: otp.ExpiresAt}, nil
}

func (s *otpService) Verify(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose, code string) error {
	err := s.verify(ctx, userID, purpose, code)
	s.metrics.OTPVerifications.WithLabelValues(outcomeOf(err)).Inc()
	return err
}

func (s *otpService) verify(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose, code string) error {
	// 1. Load the most recent challenge
	otp, err := s.repo.FindLatest(ctx, userID, purpose)
	if err != nil {
		return storageError(err)
	}
	if otp == nil {
		return ErrOTPNotFound
	}

	// 2. Reject anything that is not active
	now := s.clock.Now()
	switch otp.State(now, s.config.MaxAttempts) {
	case entity.OTPStateConsumed, entity.OTPStateInvalidated:
		return ErrOTPNotFound
	case entity.OTPStateExpired:
		return ErrOTPExpired
	case entity.OTPStateExhausted:
		return ErrOTPAttemptsExceeded
	}

	// 3. Wrong code costs one attempt
	if subtle.ConstantTimeCompare([]byte(code), []byte(otp.Code)) != 1 {
		attempts, err := s.repo.IncrementAttempts(ctx, otp.ID, s.config.MaxAttempts)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storageError(err)
		}
		s.log.Warn("OTP mismatch",
			zap.String("user_id", userID.String()),
			zap.String("purpose", string(purpose)),
			zap.Int("attempts", attempts),
		)
		return ErrOTPMismatch
	}

	// 4. Consume exactly once
	if err := s.repo.Consume(ctx, otp.ID, s.config.MaxAttempts, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOTPNotFound
		}
		return storageError(err)
	}

	s.log.Info("OTP verified",
		zap.String("user_id", userID.String()),
		zap.String("purpose", string(purpose)),
	)
	return nil
}

func (s *otpService) Resend(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*IssuedOTP, error) {
	allowed, retryAfter, err := s.limiter.Allow(ctx, resendKey(userID, purpose), s.clock.Now())
	if err != nil {
		return nil, storageError(err)
	}
	if !allowed {
		s.log.Warn("OTP resend throttled",
			zap.String("user_id", userID.String()),
			zap.Duration("retry_after", retryAfter),
		)
		return nil, &CooldownError{RetryAfter: retryAfter}
	}

	issued, err := s.Issue(ctx, userID, purpose)
	if err != nil {
		s.ReleaseResend(ctx, userID, purpose)
		return nil, err
	}
	issued.RetryAfter = s.config.ResendCooldown
	return issued, nil
}

func (s *otpService) ReleaseResend(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) {
	if err := s.limiter.Reset(ctx, resendKey(userID, purpose)); err != nil {
		s.log.Warn("Failed to release resend cooldown",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("purpose", string(purpose)),
		)
	}
}

func resendKey(userID uuid.UUID, purpose entity.OTPPurpose) string {
	return fmt.Sprintf("otp:%s:%s", purpose, userID)
}
