package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes codes to the log instead of delivering them. Codes are only
// included when revealCode is set, which is meant for local development.
type LogSender struct {
	log        *zap.Logger
	revealCode bool
}

func NewLogSender(log *zap.Logger, revealCode bool) *LogSender {
	return &LogSender{
		log:        log.With(zap.String("sender", "log")),
		revealCode: revealCode,
	}
}

func (s *LogSender) SendOTP(_ context.Context, destination, code, purpose string) error {
	fields := []zap.Field{
		zap.String("destination", destination),
		zap.String("purpose", purpose),
	}
	if s.revealCode {
		fields = append(fields, zap.String("code", code))
	}
	s.log.Info("OTP delivery skipped, no provider configured", fields...)
	return nil
}
