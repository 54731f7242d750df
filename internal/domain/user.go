package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"not null"`
	FirstName      string    `json:"firstName" gorm:"not null"`
	LastName       string    `json:"lastName" gorm:"not null"`
	ProfilePicture *string   `json:"profilePicture"`
	IsActive       bool      `json:"isActive" gorm:"not null"`
	RoleID         uuid.UUID `json:"roleId" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Relations
	Role *Role `json:"role,omitempty" gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// UserView is the public projection of a User. It has no password field, so
// anything built from it cannot leak the hash.
type UserView struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	ProfilePicture *string   `json:"profilePicture"`
	IsActive       bool      `json:"isActive"`
	RoleID         uuid.UUID `json:"roleId"`
	Role           *RoleView `json:"role,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// View projects the user for API responses. The role is included only when
// it was loaded.
func (u *User) View() *UserView {
	v := &UserView{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		IsActive:       u.IsActive,
		RoleID:         u.RoleID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.Role != nil {
		v.Role = u.Role.View()
	}
	return v
}

// RoleName returns the name of the loaded role, or "" if it wasn't preloaded.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

type Session struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Token      string            `json:"-" gorm:"type:text;uniqueIndex;not null"`
	UserID     uuid.UUID         `json:"userId" gorm:"type:uuid;not null;index"`
	ClientInfo datatypes.JSONMap `json:"clientInfo,omitempty" gorm:"type:jsonb"`
	ExpiresAt  time.Time         `json:"expiresAt" gorm:"not null"`
	CreatedAt  time.Time         `json:"createdAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// ExpiredAt reports whether the session is past its expiry at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
