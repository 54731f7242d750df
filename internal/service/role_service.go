package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/google/uuid"
)

type RoleService struct {
	roleRepo       repository.RoleRepository
	permissionRepo repository.PermissionRepository
	userRepo       repository.UserRepository
}

func NewRoleService(roleRepo repository.RoleRepository, permissionRepo repository.PermissionRepository, userRepo repository.UserRepository) *RoleService {
	return &RoleService{
		roleRepo:       roleRepo,
		permissionRepo: permissionRepo,
		userRepo:       userRepo,
	}
}

type CreateRoleInput struct {
	Name          string
	Description   string
	PermissionIDs []uuid.UUID
}

// UpdateRoleInput replaces the permission set only when PermissionIDs is
// non-nil; an empty non-nil slice clears it.
type UpdateRoleInput struct {
	Name          *string
	Description   *string
	PermissionIDs *[]uuid.UUID
}

// List returns every role with its permissions reduced to id and name
func (s *RoleService) List(ctx context.Context) ([]*domain.RoleView, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*domain.RoleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, r.View())
	}
	return views, nil
}

func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	return s.roleRepo.GetByID(ctx, id)
}

func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.NewValidationError("role name is required")
	}

	existing, err := s.roleRepo.GetByName(ctx, input.Name)
	if err == nil && existing != nil {
		return nil, domain.ErrDuplicateRole
	}
	if err != nil && !errors.Is(err, domain.ErrRoleNotFound) {
		return nil, err
	}

	perms, err := s.resolvePermissions(ctx, input.PermissionIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	role := &domain.Role{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	return s.roleRepo.GetByID(ctx, role.ID)
}

func (s *RoleService) Update(ctx context.Context, id uuid.UUID, input UpdateRoleInput) (*domain.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, domain.NewValidationError("role name cannot be empty")
		}
		role.Name = *input.Name
	}
	if input.Description != nil {
		role.Description = *input.Description
	}

	var perms []domain.Permission
	if input.PermissionIDs != nil {
		perms, err = s.resolvePermissions(ctx, *input.PermissionIDs)
		if err != nil {
			return nil, err
		}
	}

	role.UpdatedAt = time.Now()
	role.Permissions = nil
	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	if input.PermissionIDs != nil {
		if err := s.roleRepo.ReplacePermissions(ctx, id, perms); err != nil {
			return nil, err
		}
	}

	return s.roleRepo.GetByID(ctx, id)
}

// Delete refuses while any user holds the role and reports how many do
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.roleRepo.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.userRepo.CountByRoleID(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &domain.DependentsError{Resource: "role", Dependent: "users", Count: count}
	}

	err = s.roleRepo.Delete(ctx, id)
	if errors.Is(err, domain.ErrHasDependents) {
		// A user was assigned the role after the count
		count, cerr := s.userRepo.CountByRoleID(ctx, id)
		if cerr != nil {
			return cerr
		}
		return &domain.DependentsError{Resource: "role", Dependent: "users", Count: count}
	}
	return err
}

func (s *RoleService) resolvePermissions(ctx context.Context, ids []uuid.UUID) ([]domain.Permission, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	perms, err := s.permissionRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(perms) != len(unique) {
		return nil, domain.ErrInvalidPermission
	}
	return perms, nil
}
