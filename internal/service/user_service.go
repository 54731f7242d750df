package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	hasher   auth.PasswordHasher
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, hasher auth.PasswordHasher) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		hasher:   hasher,
	}
}

// CreateUserInput is used by administrators; IsActive defaults to true
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    uuid.UUID
	IsActive  *bool
}

// UpdateUserInput holds the fields to change; nil means keep
type UpdateUserInput struct {
	Email          *string
	FirstName      *string
	LastName       *string
	ProfilePicture *string
	RoleID         *uuid.UUID
	IsActive       *bool
}

func (s *UserService) List(ctx context.Context) ([]*domain.UserView, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.UserView, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, domain.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if err := s.ensureRole(ctx, input.RoleID); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     isActive,
		RoleID:       input.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user.View(), nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*domain.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			return nil, domain.NewValidationError("email cannot be empty")
		}
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = input.ProfilePicture
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.RoleID != nil && *input.RoleID != user.RoleID {
		if err := s.ensureRole(ctx, *input.RoleID); err != nil {
			return nil, err
		}
		user.RoleID = *input.RoleID
	}
	user.UpdatedAt = time.Now()

	// Drop the preloaded relation so it can't shadow the new role_id
	user.Role = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return domain.NewValidationError("new password is required")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, id, hashedPassword)
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.userRepo.Delete(ctx, id)
}

func (s *UserService) ensureRole(ctx context.Context, roleID uuid.UUID) error {
	if _, err := s.roleRepo.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return domain.ErrInvalidRole
		}
		return err
	}
	return nil
}
