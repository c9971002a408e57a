// internal/wire/wire.go
package wire

import (
	"net/http"
	"time"

	"clinic-auth/internal/adaptor"
	"clinic-auth/internal/data/repository"
	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/middleware"
	"clinic-auth/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const requestTimeout = 15 * time.Second

// App holds the assembled router and the services behind it.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes. registry receives both the
// domain and HTTP metrics and is served on /metrics.
func Wiring(
	repo *repository.Repository,
	config *utils.Config,
	infra usecase.Infra,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *App {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if infra.Metrics == nil {
		infra.Metrics = usecase.NewMetrics(registry)
	}

	// Initialize services and handlers
	service := usecase.NewService(repo, config, infra, logger)
	handler := adaptor.NewHandler(service, logger)

	// Setup router
	router := setupRouter(handler, service, config, registry, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	service *usecase.Service,
	config *utils.Config,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.AllowedOrigin))
	r.Use(middleware.Metrics(middleware.NewHTTPMetrics(registry)))
	r.Use(chimw.Timeout(requestTimeout))

	// Apply routes
	authenticate := middleware.AuthJWT(service.Token, logger)
	wireAuth(r, handler.Auth, handler.User, authenticate)
	wireUser(r, handler.User, authenticate, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}
