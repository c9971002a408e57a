package wire

import (
	"net/http"

	"clinic-auth/internal/adaptor"
	"clinic-auth/internal/data/entity"
	"clinic-auth/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireUser configures the role-guarded landing endpoints
func wireUser(
	r chi.Router,
	userHandler *adaptor.UserHandler,
	authenticate func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== ADMIN ROUTES ====================
	// requires both a valid access token AND the admin role
	r.With(
		authenticate,
		middleware.RequireRole(log, string(entity.RoleAdmin)),
	).Get("/api/admin/me", userHandler.Me)
}
