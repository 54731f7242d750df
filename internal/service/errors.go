package service

import (
	"errors"
	"fmt"
	"strings"
)

// Authentication errors. Token signature and payload expiry errors come from
// the auth package (auth.ErrInvalidToken, auth.ErrExpiredToken).
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrMissingToken       = errors.New("authentication token not provided")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrExpiredSession     = errors.New("session expired")
)

// ErrForbidden is matched by every ForbiddenError
var ErrForbidden = errors.New("forbidden")

// ForbiddenError carries what the route required and what the caller had
type ForbiddenError struct {
	RequiredRoles       []string
	RequiredPermissions []string
	UserRole            string
}

func (e *ForbiddenError) Error() string {
	if len(e.RequiredPermissions) > 0 {
		return fmt.Sprintf("role %q lacks permissions [%s]", e.UserRole, strings.Join(e.RequiredPermissions, ", "))
	}
	return fmt.Sprintf("role %q not in [%s]", e.UserRole, strings.Join(e.RequiredRoles, ", "))
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
