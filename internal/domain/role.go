package domain

import (
	"time"

	"github.com/google/uuid"
)

// Well-known role names used by route guards and the seed data.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Well-known permission names.
const (
	PermissionUserRead         = "user:read"
	PermissionUserCreate       = "user:create"
	PermissionUserUpdate       = "user:update"
	PermissionUserDelete       = "user:delete"
	PermissionRoleManage       = "role:manage"
	PermissionPermissionManage = "permission:manage"
)

type Role struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string       `json:"name" gorm:"uniqueIndex;not null"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions" gorm:"many2many:role_permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Permission struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleView is the role as embedded in user responses
type RoleView struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Permissions []PermissionView `json:"permissions"`
}

type PermissionView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (r *Role) View() *RoleView {
	perms := make([]PermissionView, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, PermissionView{ID: p.ID, Name: p.Name})
	}
	return &RoleView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
	}
}

// HasPermission reports whether the role grants the named permission
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// PermissionNames returns the names of the loaded permissions
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}
