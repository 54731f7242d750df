package service

import (
	"database/sql"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/config"
	"github.com/dom/rbac-backend/internal/metrics"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Auth       *AuthService
	User       *UserService
	Role       *RoleService
	Permission *PermissionService
	Health     *HealthService
}

func NewServices(repos *repository.Repositories, db *sql.DB, hasher auth.PasswordHasher, cfg *config.Config, m *metrics.Metrics, log logrus.FieldLogger) *Services {
	return &Services{
		Auth: NewAuthService(AuthServiceDeps{
			Users:    repos.User,
			Roles:    repos.Role,
			Sessions: repos.Session,
			Hasher:   hasher,
			Tokens:   auth.NewTokenManager(cfg.JWTSecret),
			TokenTTL: cfg.TokenTTL(),
			Metrics:  m,
			Log:      log,
		}),
		User:       NewUserService(repos.User, repos.Role, hasher),
		Role:       NewRoleService(repos.Role, repos.Permission, repos.User),
		Permission: NewPermissionService(repos.Permission, repos.Role),
		Health:     NewHealthService(db, log),
	}
}
