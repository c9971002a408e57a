package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"
	"clinic-auth/internal/dto/request"
	"clinic-auth/internal/dto/response"
	"clinic-auth/pkg/notify"
	"clinic-auth/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	LoginStatusAuthenticated = "authenticated"
	LoginStatusUnverified    = "unverified"
)

// LoginResult holds exactly one of Session or Unverified.
type LoginResult struct {
	Session    *response.SessionResponse
	Unverified *response.UnverifiedResponse
}

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.RegisterResponse, error)
	Login(ctx context.Context, req *request.LoginRequest, meta ClientMeta) (*LoginResult, error)
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, meta ClientMeta) (*response.SessionResponse, error)
	ResendOTP(ctx context.Context, req *request.ResendOTPRequest) (*response.ResendOTPResponse, error)
	RefreshSession(ctx context.Context, refreshToken string, meta ClientMeta) (*response.SessionResponse, error)
	// Logout never fails from the caller's point of view.
	Logout(ctx context.Context, refreshToken string)
}

type authService struct {
	repo      *repository.Repository // grouping userRepo, sessionRepo, & otpRepo
	otp       OTPService
	tokens    TokenService
	hasher    utils.PasswordHasher
	sender    notify.Sender
	config    *utils.Config
	clock     utils.Clock
	metrics   *Metrics
	log       *zap.Logger
	dummyHash string
}

func NewAuthService(
	repo *repository.Repository,
	otp OTPService,
	tokens TokenService,
	hasher utils.PasswordHasher,
	sender notify.Sender,
	config *utils.Config,
	clock utils.Clock,
	metrics *Metrics,
	log *zap.Logger,
) AuthService {
	// compared against when the email is unknown so both paths cost one bcrypt run
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		log.Warn("Failed to prepare dummy password hash", zap.Error(err))
	}

	return &authService{
		repo:      repo,
		otp:       otp,
		tokens:    tokens,
		hasher:    hasher,
		sender:    sender,
		config:    config,
		clock:     clock,
		metrics:   metrics,
		log:       log.With(zap.String("service", "auth")),
		dummyHash: dummyHash,
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.RegisterResponse, error) {
	resp, err := s.register(ctx, req)
	s.metrics.AuthAttempts.WithLabelValues("register", outcomeOf(err)).Inc()
	return resp, err
}

func (s *authService) register(ctx context.Context, req *request.RegisterRequest) (*response.RegisterResponse, error) {
	// 1. Validate and normalize input
	input, err := ValidateRegistration(req)
	if err != nil {
		s.log.Warn("Register validation failed", zap.Error(err))
		return nil, err
	}

	// 2. Check email is free
	existing, err := s.repo.User.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, storageError(err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	// 3. Hash password
	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to process password: %w", err)
	}

	// 4. Create pending user
	now := s.now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FullName:     input.FullName,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hashedPassword,
		Role:         entity.UserRole(input.Role),
		Status:       entity.StatusPending,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, storageError(err)
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	// 5. Issue and deliver the registration code
	issued, err := s.otp.Issue(ctx, user.ID, entity.OTPPurposeRegistration)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, user, issued, entity.OTPPurposeRegistration); err != nil {
		return nil, err
	}

	return &response.RegisterResponse{
		User:         response.UserToResponse(user),
		OTPExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest, meta ClientMeta) (*LoginResult, error) {
	result, err := s.login(ctx, req, meta)
	outcome := outcomeOf(err)
	if result != nil && result.Unverified != nil {
		outcome = LoginStatusUnverified
	}
	s.metrics.AuthAttempts.WithLabelValues("login", outcome).Inc()
	return result, err
}

func (s *authService) login(ctx context.Context, req *request.LoginRequest, meta ClientMeta) (*LoginResult, error) {
	// 1. Validate shape only
	input, err := ValidateLogin(req)
	if err != nil {
		return nil, err
	}

	// 2. Find user, never revealing whether the email exists
	user, err := s.repo.User.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, storageError(err)
	}
	if user == nil {
		s.hasher.Verify(input.Password, s.dummyHash)
		s.log.Warn("Login failed", zap.String("reason", "unknown email"))
		return nil, ErrInvalidCredentials
	}

	// 3. Check password
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.log.Warn("Login failed",
			zap.String("reason", "wrong password"),
			zap.String("user_id", user.ID.String()),
		)
		return nil, ErrInvalidCredentials
	}

	// 4. Pending accounts are routed back to OTP entry
	if !user.IsVerified() {
		return s.unverifiedLogin(ctx, user)
	}

	// 5. Create session
	tokens, err := s.tokens.IssueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return &LoginResult{Session: sessionResponse(user, tokens)}, nil
}

// unverifiedLogin sends a fresh registration code unless one was sent within
// the resend cooldown, in which case the earlier code stays valid.
func (s *authService) unverifiedLogin(ctx context.Context, user *entity.User) (*LoginResult, error) {
	result := &LoginResult{
		Unverified: &response.UnverifiedResponse{
			Status: LoginStatusUnverified,
			UserID: user.ID.String(),
		},
	}

	issued, err := s.otp.Resend(ctx, user.ID, entity.OTPPurposeRegistration)
	if err != nil {
		if errors.Is(err, ErrOTPCooldown) {
			return result, nil
		}
		return nil, err
	}

	if err := s.deliver(ctx, user, issued, entity.OTPPurposeRegistration); err != nil {
		// the client can still ask for a resend from the OTP screen
		s.otp.ReleaseResend(ctx, user.ID, entity.OTPPurposeRegistration)
		s.log.Warn("Login OTP delivery failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
	result.Unverified.OTPExpiresAt = &issued.ExpiresAt
	return result, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, meta ClientMeta) (*response.SessionResponse, error) {
	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	// 2. Load pending user
	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified() {
		return nil, ErrAlreadyVerified
	}

	// 3. Check code
	if err := s.otp.Verify(ctx, user.ID, entity.OTPPurposeRegistration, req.Code); err != nil {
		return nil, err
	}

	// 4. Activate account
	if err := s.repo.User.UpdateStatus(ctx, user.ID, entity.StatusVerified, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError(err)
	}
	user.Status = entity.StatusVerified

	s.log.Info("User verified", zap.String("user_id", user.ID.String()))

	// 5. Create session
	tokens, err := s.tokens.IssueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return sessionResponse(user, tokens), nil
}

func (s *authService) ResendOTP(ctx context.Context, req *request.ResendOTPRequest) (*response.ResendOTPResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified() {
		return nil, ErrAlreadyVerified
	}

	issued, err := s.otp.Resend(ctx, user.ID, entity.OTPPurposeRegistration)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, user, issued, entity.OTPPurposeRegistration); err != nil {
		// a failed send must not lock the user out of retrying
		s.otp.ReleaseResend(ctx, user.ID, entity.OTPPurposeRegistration)
		return nil, err
	}

	cooldown := &CooldownError{RetryAfter: issued.RetryAfter}
	return &response.ResendOTPResponse{
		OTPExpiresAt:      issued.ExpiresAt,
		RetryAfterSeconds: cooldown.RetryAfterSeconds(),
	}, nil
}

func (s *authService) RefreshSession(ctx context.Context, refreshToken string, meta ClientMeta) (*response.SessionResponse, error) {
	user, tokens, err := s.tokens.Refresh(ctx, refreshToken, meta)
	if err != nil {
		return nil, err
	}
	return sessionResponse(user, tokens), nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.log.Error("Failed to revoke session on logout", zap.Error(err))
	}
}

// ==================== HELPER METHODS ====================

func (s *authService) now() time.Time {
	return s.clock.Now()
}

func (s *authService) findUser(ctx context.Context, rawID string) (*entity.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, &ValidationError{Fields: []utils.FieldError{{Field: "user_id", Message: "Must be a valid UUID"}}}
	}

	user, err := s.repo.User.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// deliver sends by SMS only when configured and the user has a phone.
func (s *authService) deliver(ctx context.Context, user *entity.User, issued *IssuedOTP, purpose entity.OTPPurpose) error {
	destination := user.Email
	if s.config.OTP.Channel == "sms" && user.Phone != nil {
		destination = *user.Phone
	}

	err := s.sender.SendOTP(ctx, destination, issued.Code, string(purpose))
	delivery := "sent"
	if err != nil {
		delivery = "failed"
	}
	s.metrics.OTPIssued.WithLabelValues(string(purpose), delivery).Inc()

	if err != nil {
		s.log.Error("Failed to deliver OTP",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
			zap.String("purpose", string(purpose)),
		)
		return &DeliveryError{UserID: user.ID, Err: err}
	}
	return nil
}

func sessionResponse(user *entity.User, tokens *TokenPair) *response.SessionResponse {
	return &response.SessionResponse{
		User:                  response.UserToResponse(user),
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt,
		Destination:           Destination(user.Role),
	}
}
