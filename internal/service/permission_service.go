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

type PermissionService struct {
	permissionRepo repository.PermissionRepository
	roleRepo       repository.RoleRepository
}

func NewPermissionService(permissionRepo repository.PermissionRepository, roleRepo repository.RoleRepository) *PermissionService {
	return &PermissionService{
		permissionRepo: permissionRepo,
		roleRepo:       roleRepo,
	}
}

type PermissionInput struct {
	Name        *string
	Description *string
}

func (s *PermissionService) List(ctx context.Context) ([]*domain.Permission, error) {
	return s.permissionRepo.List(ctx)
}

func (s *PermissionService) Get(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	return s.permissionRepo.GetByID(ctx, id)
}

func (s *PermissionService) Create(ctx context.Context, name, description string) (*domain.Permission, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("permission name is required")
	}

	existing, err := s.permissionRepo.GetByName(ctx, name)
	if err == nil && existing != nil {
		return nil, domain.ErrDuplicatePermission
	}
	if err != nil && !errors.Is(err, domain.ErrPermissionNotFound) {
		return nil, err
	}

	now := time.Now()
	perm := &domain.Permission{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.permissionRepo.Create(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *PermissionService) Update(ctx context.Context, id uuid.UUID, input PermissionInput) (*domain.Permission, error) {
	perm, err := s.permissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, domain.NewValidationError("permission name cannot be empty")
		}
		perm.Name = *input.Name
	}
	if input.Description != nil {
		perm.Description = *input.Description
	}
	perm.UpdatedAt = time.Now()

	if err := s.permissionRepo.Update(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// Delete refuses while any role still grants the permission
func (s *PermissionService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.permissionRepo.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.roleRepo.CountByPermissionID(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &domain.DependentsError{Resource: "permission", Dependent: "roles", Count: count}
	}

	err = s.permissionRepo.Delete(ctx, id)
	if errors.Is(err, domain.ErrHasDependents) {
		count, cerr := s.roleRepo.CountByPermissionID(ctx, id)
		if cerr != nil {
			return cerr
		}
		return &domain.DependentsError{Resource: "permission", Dependent: "roles", Count: count}
	}
	return err
}
