package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/google/uuid"
)

// PermissionBuilder creates test permissions with a builder pattern
type PermissionBuilder struct {
	name        string
	description string
}

func NewPermissionBuilder() *PermissionBuilder {
	return &PermissionBuilder{
		name: fmt.Sprintf("perm:%s", uuid.New().String()[:8]),
	}
}

func (b *PermissionBuilder) WithName(name string) *PermissionBuilder {
	b.name = name
	return b
}

func (b *PermissionBuilder) WithDescription(description string) *PermissionBuilder {
	b.description = description
	return b
}

func (b *PermissionBuilder) Build(t *testing.T, repos *repository.Repositories) *domain.Permission {
	t.Helper()

	perm := &domain.Permission{Name: b.name, Description: b.description}
	if err := repos.Permission.Create(context.Background(), perm); err != nil {
		t.Fatalf("failed to create permission: %v", err)
	}
	return perm
}

// RoleBuilder creates test roles with a builder pattern
type RoleBuilder struct {
	name        string
	description string
	permissions []domain.Permission
}

func NewRoleBuilder() *RoleBuilder {
	return &RoleBuilder{
		name: fmt.Sprintf("role_%s", uuid.New().String()[:8]),
	}
}

func (b *RoleBuilder) WithName(name string) *RoleBuilder {
	b.name = name
	return b
}

func (b *RoleBuilder) WithPermissions(perms ...*domain.Permission) *RoleBuilder {
	for _, p := range perms {
		b.permissions = append(b.permissions, *p)
	}
	return b
}

// Build creates the role and returns it reloaded with its permissions
func (b *RoleBuilder) Build(t *testing.T, repos *repository.Repositories) *domain.Role {
	t.Helper()

	ctx := context.Background()
	role := &domain.Role{Name: b.name, Description: b.description, Permissions: b.permissions}
	if err := repos.Role.Create(ctx, role); err != nil {
		t.Fatalf("failed to create role: %v", err)
	}

	loaded, err := repos.Role.GetByID(ctx, role.ID)
	if err != nil {
		t.Fatalf("failed to reload role: %v", err)
	}
	return loaded
}

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      *domain.Role
	inactive  bool
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:     fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		password:  "testpassword123",
		firstName: "Test",
		lastName:  "User",
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithRole(role *domain.Role) *UserBuilder {
	b.role = role
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.inactive = true
	return b
}

// Build creates the user and returns it with the raw password. Without a
// role a fresh one is created.
func (b *UserBuilder) Build(t *testing.T, repos *repository.Repositories) (*domain.User, string) {
	t.Helper()

	if b.role == nil {
		b.role = NewRoleBuilder().Build(t, repos)
	}

	hash, err := TestHasher.Hash(b.password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Email:        b.email,
		PasswordHash: hash,
		FirstName:    b.firstName,
		LastName:     b.lastName,
		IsActive:     !b.inactive,
		RoleID:       b.role.ID,
	}
	if err := repos.User.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	user.Role = b.role

	return user, b.password
}

// DefaultRoles is the standard permission catalogue with its two roles
type DefaultRoles struct {
	Admin       *domain.Role
	User        *domain.Role
	Permissions map[string]*domain.Permission
}

// SeedDefaultRoles creates the admin and user roles: admin holds every
// well-known permission, user holds user:read.
func SeedDefaultRoles(t *testing.T, repos *repository.Repositories) *DefaultRoles {
	t.Helper()

	names := []string{
		domain.PermissionUserRead,
		domain.PermissionUserCreate,
		domain.PermissionUserUpdate,
		domain.PermissionUserDelete,
		domain.PermissionRoleManage,
		domain.PermissionPermissionManage,
	}

	perms := make(map[string]*domain.Permission, len(names))
	all := make([]*domain.Permission, 0, len(names))
	for _, name := range names {
		p := NewPermissionBuilder().WithName(name).Build(t, repos)
		perms[name] = p
		all = append(all, p)
	}

	return &DefaultRoles{
		Admin:       NewRoleBuilder().WithName(domain.RoleAdmin).WithPermissions(all...).Build(t, repos),
		User:        NewRoleBuilder().WithName(domain.RoleUser).WithPermissions(perms[domain.PermissionUserRead]).Build(t, repos),
		Permissions: perms,
	}
}

// LoginResponse matches the API login response
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Login authenticates through the API and returns the token
func (ts *TestServer) Login(t *testing.T, email, password string) string {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed with status %d", resp.StatusCode)
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return loginResp.Token
}

// Do sends a JSON request to the test server
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(CreateAuthenticatedRequest(t, method, ts.URL(path), body, token))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}
