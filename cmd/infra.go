package cmd

import (
	"fmt"
	"time"

	"clinic-auth/internal/data/repository"
	"clinic-auth/internal/data/repository/memory"
	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/database"
	"clinic-auth/pkg/notify"
	"clinic-auth/pkg/ratelimit"
	"clinic-auth/pkg/utils"

	"go.uber.org/zap"
)

const (
	deliveryRetries     = 2
	deliveryBaseBackoff = 200 * time.Millisecond
)

// OpenRepository selects the storage driver. The returned func releases the
// connection pool, if any.
func OpenRepository(config *utils.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	if config.App.StorageDriver == utils.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewRepository(), func() {}, nil
	}

	if config.Database.AutoMigrate {
		if err := database.Migrate(database.ConnString(config.Database)); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("Database migrations applied")
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("Database connected successfully")

	return repository.NewRepository(db, logger), db.Close, nil
}

// BuildInfra picks the resend limiter and OTP senders from config.
func BuildInfra(config *utils.Config, logger *zap.Logger) (usecase.Infra, func(), error) {
	infra := usecase.Infra{
		Hasher: utils.NewBcryptHasher(config.Security.BcryptCost),
		Clock:  utils.SystemClock(),
	}
	cleanup := func() {}

	// 1. Resend cooldown
	if config.Redis.Addr != "" {
		client, err := database.InitRedis(config.Redis)
		if err != nil {
			return usecase.Infra{}, nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.Limiter = ratelimit.NewRedis(client, 1, config.OTP.ResendCooldown, config.Redis.Prefix+"rl:")
		cleanup = func() { _ = client.Close() }
		logger.Info("Redis connected, using shared resend limiter")
	} else {
		infra.Limiter = ratelimit.NewMemory(1, config.OTP.ResendCooldown)
	}

	// 2. OTP delivery
	var email notify.Sender = notify.NewLogSender(logger, config.App.Debug)
	if config.Email.Host != "" {
		email = notify.NewSMTPSender(config.Email)
	} else {
		logger.Warn("SMTP_HOST not set, verification codes are only logged")
	}

	router := &notify.Router{Email: email}
	if config.SMS.AccountSID != "" {
		router.SMS = notify.NewTwilioSender(config.SMS)
	} else if config.OTP.Channel == "sms" {
		logger.Warn("OTP_CHANNEL is sms but Twilio is not configured, falling back to email")
	}
	infra.Sender = notify.WithRetry(router, deliveryRetries, deliveryBaseBackoff, logger)

	return infra, cleanup, nil
}
