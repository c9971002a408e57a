package middleware

import (
	"errors"
	"net/http"
	"strings"

	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessTokenParser is satisfied by usecase.TokenService.
type AccessTokenParser interface {
	ParseAccessToken(token string) (*usecase.AccessClaims, error)
}

// AuthJWT validates the bearer access token and stores the principal in the
// request context. No storage is touched.
func AuthJWT(tokens AccessTokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims, err := tokens.ParseAccessToken(token)
			if err != nil {
				if errors.Is(err, usecase.ErrTokenExpired) {
					utils.ResponseError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token expired", nil, nil)
					return
				}
				logger.Warn("Rejected access token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token", nil, nil)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				utils.ResponseError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token", nil, nil)
				return
			}
			sessionID, _ := uuid.Parse(claims.SessionID)

			ctx := utils.SetUserContext(r.Context(), userID, claims.Role, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the authenticated role is
// one of roles. It must run after AuthJWT.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			userID, _ := utils.GetUserIDFromContext(r.Context())
			logger.Warn("Role check failed",
				zap.String("user_id", userID.String()),
				zap.String("role", role),
				zap.String("path", r.URL.Path),
			)
			utils.ResponseForbidden(w, "Insufficient role")
		})
	}
}
