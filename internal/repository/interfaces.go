package repository

import (
	"context"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/google/uuid"
)

// UserRepository is the credential store. Lookups return
// domain.ErrUserNotFound when nothing matches; Create and Update return
// domain.ErrDuplicateEmail when the unique email index rejects the write.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByRoleID(ctx context.Context, roleID uuid.UUID) (int64, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
	Update(ctx context.Context, role *domain.Role) error
	// ReplacePermissions sets the role's permission set to exactly perms.
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []domain.Permission) error
	// AddPermissions connects perms without removing existing ones.
	AddPermissions(ctx context.Context, roleID uuid.UUID, perms []domain.Permission) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByPermissionID(ctx context.Context, permissionID uuid.UUID) (int64, error)
}

type PermissionRepository interface {
	Create(ctx context.Context, perm *domain.Permission) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error)
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Permission, error)
	List(ctx context.Context) ([]*domain.Permission, error)
	Update(ctx context.Context, perm *domain.Permission) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository is the session store. There is no sweeper; expired rows
// are removed by whoever reads them.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByToken removes every session with the given token and reports how
	// many rows went away.
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type Repositories struct {
	User       UserRepository
	Role       RoleRepository
	Permission PermissionRepository
	Session    SessionRepository
}
