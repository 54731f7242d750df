// Package seed loads the initial permissions, roles and accounts from a YAML
// file. Applying a file is idempotent: existing rows are updated in place,
// missing permissions are connected, and seeded passwords are reset.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type File struct {
	Permissions []PermissionEntry `yaml:"permissions"`
	Roles       []RoleEntry       `yaml:"roles"`
	Users       []UserEntry       `yaml:"users"`
}

type PermissionEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type RoleEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type UserEntry struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Role      string `yaml:"role"`
	IsActive  *bool  `yaml:"isActive"`
}

// Result counts what Apply created versus updated
type Result struct {
	PermissionsCreated int
	PermissionsUpdated int
	RolesCreated       int
	RolesUpdated       int
	UsersCreated       int
	UsersUpdated       int
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

type Seeder struct {
	repos  *repository.Repositories
	hasher auth.PasswordHasher
	log    logrus.FieldLogger
}

func NewSeeder(repos *repository.Repositories, hasher auth.PasswordHasher, log logrus.FieldLogger) *Seeder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Seeder{repos: repos, hasher: hasher, log: log.WithField("component", "seed")}
}

// Apply writes f in dependency order: permissions, then roles, then users.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}

	perms := make(map[string]domain.Permission, len(f.Permissions))
	for _, entry := range f.Permissions {
		perm, created, err := s.upsertPermission(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("seed permission %q: %w", entry.Name, err)
		}
		if created {
			res.PermissionsCreated++
		} else {
			res.PermissionsUpdated++
		}
		perms[perm.Name] = *perm
	}

	roles := make(map[string]*domain.Role, len(f.Roles))
	for _, entry := range f.Roles {
		role, created, err := s.upsertRole(ctx, entry, perms)
		if err != nil {
			return nil, fmt.Errorf("seed role %q: %w", entry.Name, err)
		}
		if created {
			res.RolesCreated++
		} else {
			res.RolesUpdated++
		}
		roles[role.Name] = role
	}

	for _, entry := range f.Users {
		created, err := s.upsertUser(ctx, entry, roles)
		if err != nil {
			return nil, fmt.Errorf("seed user %q: %w", entry.Email, err)
		}
		if created {
			res.UsersCreated++
		} else {
			res.UsersUpdated++
		}
	}

	s.log.WithFields(logrus.Fields{
		"permissions_created": res.PermissionsCreated,
		"roles_created":       res.RolesCreated,
		"users_created":       res.UsersCreated,
		"users_updated":       res.UsersUpdated,
	}).Info("seed applied")

	return res, nil
}

func (s *Seeder) upsertPermission(ctx context.Context, entry PermissionEntry) (*domain.Permission, bool, error) {
	if entry.Name == "" {
		return nil, false, domain.NewValidationError("permission name is required")
	}

	perm, err := s.repos.Permission.GetByName(ctx, entry.Name)
	if errors.Is(err, domain.ErrPermissionNotFound) {
		perm = &domain.Permission{Name: entry.Name, Description: entry.Description}
		if err := s.repos.Permission.Create(ctx, perm); err != nil {
			return nil, false, err
		}
		return perm, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if perm.Description != entry.Description {
		perm.Description = entry.Description
		if err := s.repos.Permission.Update(ctx, perm); err != nil {
			return nil, false, err
		}
	}
	return perm, false, nil
}

func (s *Seeder) upsertRole(ctx context.Context, entry RoleEntry, perms map[string]domain.Permission) (*domain.Role, bool, error) {
	if entry.Name == "" {
		return nil, false, domain.NewValidationError("role name is required")
	}

	wanted := make([]domain.Permission, 0, len(entry.Permissions))
	for _, name := range entry.Permissions {
		perm, ok := perms[name]
		if !ok {
			found, err := s.repos.Permission.GetByName(ctx, name)
			if err != nil {
				return nil, false, fmt.Errorf("permission %q: %w", name, err)
			}
			perm = *found
		}
		wanted = append(wanted, perm)
	}

	created := false
	role, err := s.repos.Role.GetByName(ctx, entry.Name)
	switch {
	case errors.Is(err, domain.ErrRoleNotFound):
		role = &domain.Role{Name: entry.Name, Description: entry.Description}
		if err := s.repos.Role.Create(ctx, role); err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	case role.Description != entry.Description:
		role.Description = entry.Description
		if err := s.repos.Role.Update(ctx, role); err != nil {
			return nil, false, err
		}
	}

	var missing []domain.Permission
	for _, perm := range wanted {
		if !role.HasPermission(perm.Name) {
			missing = append(missing, perm)
		}
	}
	if len(missing) > 0 {
		if err := s.repos.Role.AddPermissions(ctx, role.ID, missing); err != nil {
			return nil, false, err
		}
	}

	return role, created, nil
}

func (s *Seeder) upsertUser(ctx context.Context, entry UserEntry, roles map[string]*domain.Role) (bool, error) {
	if entry.Email == "" || entry.Password == "" {
		return false, domain.NewValidationError("email and password are required")
	}

	role, ok := roles[entry.Role]
	if !ok {
		found, err := s.repos.Role.GetByName(ctx, entry.Role)
		if err != nil {
			return false, fmt.Errorf("role %q: %w", entry.Role, err)
		}
		role = found
	}

	hash, err := s.hasher.Hash(entry.Password)
	if err != nil {
		return false, err
	}

	isActive := true
	if entry.IsActive != nil {
		isActive = *entry.IsActive
	}

	user, err := s.repos.User.GetByEmail(ctx, entry.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		user = &domain.User{
			Email:        entry.Email,
			PasswordHash: hash,
			FirstName:    entry.FirstName,
			LastName:     entry.LastName,
			IsActive:     isActive,
			RoleID:       role.ID,
		}
		return true, s.repos.User.Create(ctx, user)
	}
	if err != nil {
		return false, err
	}

	user.FirstName = entry.FirstName
	user.LastName = entry.LastName
	user.IsActive = isActive
	user.RoleID = role.ID
	user.Role = nil
	if err := s.repos.User.Update(ctx, user); err != nil {
		return false, err
	}
	return false, s.repos.User.UpdatePassword(ctx, user.ID, hash)
}
