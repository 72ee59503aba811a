package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ipede/okta-identity-service/internal/application"
	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/config"
	"github.com/ipede/okta-identity-service/internal/infrastructure/database"
	"github.com/ipede/okta-identity-service/internal/infrastructure/jwks"
	"github.com/ipede/okta-identity-service/internal/infrastructure/repository"
	"github.com/ipede/okta-identity-service/internal/infrastructure/token"
	"github.com/ipede/okta-identity-service/internal/interfaces/http/handlers"
	"github.com/ipede/okta-identity-service/internal/interfaces/http/middleware/auth"
	"github.com/ipede/okta-identity-service/internal/interfaces/http/middleware/requestlog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type Router struct {
	router *chi.Mux
	db     *database.Postgres
}

func NewRouter(
	db *database.Postgres,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	keyCache := jwks.NewCache(cfg, logger)
	verifier := token.NewVerifier(cfg, keyCache, logger)

	userRepo := repository.NewUserRepository(db, logger)
	roleRepo := repository.NewRoleRepository(db, logger)
	identityService := application.NewIdentityService(userRepo, logger)
	roleService := application.NewRoleService(userRepo, roleRepo, cfg, logger)

	authMiddleware := auth.NewAuthMiddleware(verifier, identityService, logger)

	// Initialize handlers
	publicHandler := handlers.NewPublicHandler(logger)
	userHandler := handlers.NewUserHandler(roleService, logger)
	itemHandler := handlers.NewItemHandler(logger)

	// Create router with middleware
	router := createRouter()
	router.Use(requestlog.NewRequestLogger(logger).Middleware)

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			// Check database connection
			if err := db.Ping(); err != nil {
				logger.Error("Database health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("Database connection failed"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Alive"))
		})
	})

	// Swagger UI configuration
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
		httpSwagger.DeepLinking(true),
		httpSwagger.PersistAuthorization(true),
	))

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "docs/swagger.json")
	})

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/public", publicHandler.PublicHandler)
		})

		// Protected routes: any authenticated user
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticator)
			r.Get("/protected", publicHandler.ProtectedHandler)
			r.Get("/users/me", userHandler.MeHandler)
		})

		// Editor routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticator,
				authMiddleware.RequireRoles(domain.RoleEditor, domain.RoleAdmin))
			r.Post("/items", itemHandler.CreateItemHandler)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticator,
				authMiddleware.RequireRoles(domain.RoleAdmin))
			r.Get("/users", userHandler.ListUsersHandler)
			r.Put("/users/{id}/role", userHandler.SetRoleHandler)
		})
	})

	return &Router{router: router, db: db}
}

func createRouter() *chi.Mux {
	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))

	return router
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
