package adaptor

import (
	"errors"
	"net/http"
	"time"

	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/utils"

	"go.uber.org/zap"
)

const (
	storageRetryAfter  = 5 * time.Second
	deliveryRetryAfter = 30 * time.Second
)

// respondServiceError maps usecase errors to HTTP responses. Client failures
// are logged at warn, infrastructure failures at error.
func respondServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *usecase.ValidationError
	var cooldownErr *usecase.CooldownError
	var deliveryErr *usecase.DeliveryError

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", nil, validationErr.Fields)

	case errors.Is(err, usecase.ErrEmailTaken):
		log.Warn(operation+" failed - email taken")
		utils.ResponseError(w, http.StatusConflict, "EMAIL_TAKEN", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrAlreadyVerified):
		log.Warn(operation+" failed - already verified")
		utils.ResponseError(w, http.StatusConflict, "ALREADY_VERIFIED", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrInvalidCredentials):
		utils.ResponseError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrOTPExpired):
		utils.ResponseError(w, http.StatusBadRequest, "OTP_EXPIRED", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrOTPMismatch):
		utils.ResponseError(w, http.StatusBadRequest, "OTP_MISMATCH", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrOTPNotFound):
		utils.ResponseError(w, http.StatusNotFound, "OTP_NOT_FOUND", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrOTPAttemptsExceeded):
		log.Warn(operation+" failed - attempts exceeded")
		utils.ResponseError(w, http.StatusTooManyRequests, "OTP_ATTEMPTS_EXCEEDED", err.Error(), nil, nil)

	case errors.As(err, &cooldownErr):
		utils.ResponseRetryLater(w, http.StatusTooManyRequests, "OTP_COOLDOWN", usecase.ErrOTPCooldown.Error(), cooldownErr.RetryAfter, nil)

	case errors.Is(err, usecase.ErrTokenExpired):
		utils.ResponseError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrTokenReused):
		log.Warn(operation+" failed - refresh token reused")
		utils.ResponseError(w, http.StatusUnauthorized, "TOKEN_REUSED", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrInvalidToken):
		utils.ResponseError(w, http.StatusUnauthorized, "INVALID_TOKEN", err.Error(), nil, nil)

	case errors.Is(err, usecase.ErrUserNotFound):
		utils.ResponseError(w, http.StatusNotFound, "USER_NOT_FOUND", err.Error(), nil, nil)

	case errors.As(err, &deliveryErr):
		log.Error(operation+" failed - delivery", zap.Error(err))
		// the account exists, so the client can continue to OTP entry
		data := map[string]string{"user_id": deliveryErr.UserID.String()}
		utils.ResponseRetryLater(w, http.StatusServiceUnavailable, "DELIVERY_FAILED", usecase.ErrDeliveryFailed.Error(), deliveryRetryAfter, data)

	case errors.Is(err, usecase.ErrStorageUnavailable):
		log.Error(operation+" failed - storage", zap.Error(err))
		utils.ResponseRetryLater(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Service temporarily unavailable", storageRetryAfter, nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
