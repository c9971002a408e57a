package usecase

import (
	"clinic-auth/internal/data/repository"
	"clinic-auth/pkg/notify"
	"clinic-auth/pkg/ratelimit"
	"clinic-auth/pkg/utils"

	"go.uber.org/zap"
)

// Infra bundles the collaborators that are swapped between production,
// development and tests.
type Infra struct {
	Sender  notify.Sender
	Limiter ratelimit.Limiter
	Hasher  utils.PasswordHasher
	Clock   utils.Clock
	Metrics *Metrics
}

type Service struct {
	Auth    AuthService
	User    UserService
	OTP     OTPService
	Token   TokenService
	Sweeper *Sweeper
}

func NewService(repo *repository.Repository, config *utils.Config, infra Infra, log *zap.Logger) *Service {
	if infra.Clock == nil {
		infra.Clock = utils.SystemClock()
	}
	if infra.Hasher == nil {
		infra.Hasher = utils.NewBcryptHasher(config.Security.BcryptCost)
	}
	if infra.Limiter == nil {
		infra.Limiter = ratelimit.NewMemory(1, config.OTP.ResendCooldown)
	}
	if infra.Sender == nil {
		infra.Sender = notify.NewLogSender(log, config.App.Debug)
	}
	if infra.Metrics == nil {
		infra.Metrics = NewMetrics(nil)
	}

	otp := NewOTPService(repo.OTP, infra.Limiter, config.OTP, infra.Clock, infra.Metrics, log)
	tokens := NewTokenService(repo.Session, repo.User, config.JWT, infra.Clock, infra.Metrics, log)

	return &Service{
		Auth:    NewAuthService(repo, otp, tokens, infra.Hasher, infra.Sender, config, infra.Clock, infra.Metrics, log),
		User:    NewUserService(repo.User, log),
		OTP:     otp,
		Token:   tokens,
		Sweeper: NewSweeper(repo, config.App.SweepInterval, infra.Clock, infra.Metrics, log),
	}
}
