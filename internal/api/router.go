package api

import (
	"net/http"

	"github.com/dom/rbac-backend/internal/api/handlers"
	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/api/middleware"
	"github.com/dom/rbac-backend/internal/config"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/metrics"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(services *service.Services, cfg *config.Config, m *metrics.Metrics, log logrus.FieldLogger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	responder := httputil.NewResponder(log, cfg.IsDevelopment())
	gate := middleware.NewGate(services.Auth, responder, log)

	// requirePermission is a no-op unless permission checks are enabled
	requirePermission := func(perms ...string) func(http.Handler) http.Handler {
		if !cfg.EnforcePermissions {
			return func(next http.Handler) http.Handler { return next }
		}
		return gate.RequirePermission(perms...)
	}
	adminOnly := gate.RequireRole(domain.RoleAdmin)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, responder)
	userHandler := handlers.NewUserHandler(services.User, responder)
	roleHandler := handlers.NewRoleHandler(services.Role, responder)
	permissionHandler := handlers.NewPermissionHandler(services.Permission, responder)
	healthHandler := handlers.NewHealthHandler(services.Health)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMessage(w, http.StatusOK, "RBAC backend API is running")
	})
	r.Get("/health", healthHandler.Check)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.With(gate.Auth).Get("/me", authHandler.Me)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(gate.Auth)

		r.With(adminOnly, requirePermission(domain.PermissionUserRead)).Get("/", userHandler.List)
		r.With(adminOnly, requirePermission(domain.PermissionUserCreate)).Post("/", userHandler.Create)
		r.With(requirePermission(domain.PermissionUserRead)).Get("/{id}", userHandler.Get)
		r.With(requirePermission(domain.PermissionUserUpdate)).Put("/{id}", userHandler.Update)
		r.Put("/{id}/change-password", userHandler.ChangePassword)
		r.With(adminOnly, requirePermission(domain.PermissionUserDelete)).Delete("/{id}", userHandler.Delete)
	})

	r.Route("/roles", func(r chi.Router) {
		r.Use(gate.Auth, adminOnly, requirePermission(domain.PermissionRoleManage))

		r.Get("/", roleHandler.List)
		r.Post("/", roleHandler.Create)
		r.Get("/{id}", roleHandler.Get)
		r.Put("/{id}", roleHandler.Update)
		r.Delete("/{id}", roleHandler.Delete)
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Use(gate.Auth, adminOnly, requirePermission(domain.PermissionPermissionManage))

		r.Get("/", permissionHandler.List)
		r.Post("/", permissionHandler.Create)
		r.Get("/{id}", permissionHandler.Get)
		r.Put("/{id}", permissionHandler.Update)
		r.Delete("/{id}", permissionHandler.Delete)
	})

	return r
}
