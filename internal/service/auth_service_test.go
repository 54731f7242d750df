package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/metrics"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/dom/rbac-backend/internal/testutil"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-key-for-testing-only"

type authFixture struct {
	store   *testutil.MemoryStore
	repos   *repository.Repositories
	roles   *testutil.DefaultRoles
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	svc     *service.AuthService
	now     time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	repos := store.Repositories()
	f := &authFixture{
		store:   store,
		repos:   repos,
		roles:   testutil.SeedDefaultRoles(t, repos),
		tokens:  auth.NewTokenManager(testSecret),
		metrics: metrics.New(),
		now:     time.Now(),
	}
	f.svc = service.NewAuthService(service.AuthServiceDeps{
		Users:    repos.User,
		Roles:    repos.Role,
		Sessions: repos.Session,
		Hasher:   testutil.TestHasher,
		Tokens:   f.tokens,
		TokenTTL: 24 * time.Hour,
		Metrics:  f.metrics,
		Log:      testutil.QuietLogger(),
		Clock:    func() time.Time { return f.now },
	})
	return f
}

func (f *authFixture) login(t *testing.T, email, password string) *service.LoginResult {
	t.Helper()
	result, err := f.svc.Login(context.Background(), service.LoginInput{Email: email, Password: password})
	require.NoError(t, err)
	return result
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   func(f *authFixture) service.RegisterInput
		setup   func(t *testing.T, f *authFixture)
		wantErr error
	}{
		{
			name: "successful registration",
			input: func(f *authFixture) service.RegisterInput {
				return service.RegisterInput{Email: "new@example.com", Password: "password123", FirstName: "New", LastName: "User", RoleID: f.roles.User.ID}
			},
		},
		{
			name: "duplicate email",
			input: func(f *authFixture) service.RegisterInput {
				return service.RegisterInput{Email: "taken@example.com", Password: "password123", RoleID: f.roles.User.ID}
			},
			setup: func(t *testing.T, f *authFixture) {
				testutil.NewUserBuilder().WithEmail("taken@example.com").WithRole(f.roles.User).Build(t, f.repos)
			},
			wantErr: domain.ErrDuplicateEmail,
		},
		{
			name: "unknown role",
			input: func(f *authFixture) service.RegisterInput {
				return service.RegisterInput{Email: "new@example.com", Password: "password123", RoleID: uuid.New()}
			},
			wantErr: domain.ErrInvalidRole,
		},
		{
			name: "missing password",
			input: func(f *authFixture) service.RegisterInput {
				return service.RegisterInput{Email: "new@example.com", RoleID: f.roles.User.ID}
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			user, err := f.svc.Register(ctx, tt.input(f))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "new@example.com", user.Email)
			assert.True(t, user.IsActive)
			require.NotNil(t, user.Role)
			assert.Equal(t, domain.RoleUser, user.Role.Name)

			stored, err := f.repos.User.GetByEmail(ctx, "new@example.com")
			require.NoError(t, err)
			assert.NotEqual(t, "password123", stored.PasswordHash)
			assert.True(t, testutil.TestHasher.Verify("password123", stored.PasswordHash))
		})
	}
}

func TestAuthService_Register_OnlyOnePerEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	input := service.RegisterInput{Email: "once@example.com", Password: "password123", RoleID: f.roles.User.ID}

	_, err := f.svc.Register(ctx, input)
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, input)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	users, err := f.repos.User.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a 24h session", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.Admin).Build(t, f.repos)

		result, err := f.svc.Login(ctx, service.LoginInput{
			Email:     user.Email,
			Password:  password,
			ClientIP:  "10.0.0.1",
			UserAgent: "test-agent",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, user.ID, result.User.ID)

		session, err := f.repos.Session.GetByToken(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.UserID)
		assert.Equal(t, f.now.Add(24*time.Hour), session.ExpiresAt)
		assert.Equal(t, "10.0.0.1", session.ClientInfo["ip"])

		claims, err := f.tokens.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, domain.RoleAdmin, claims.RoleName)

		assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.SessionsCreated))
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newAuthFixture(t)
		user, _ := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)

		_, errUnknown := f.svc.Login(ctx, service.LoginInput{Email: "nobody@example.com", Password: "whatever"})
		_, errWrong := f.svc.Login(ctx, service.LoginInput{Email: user.Email, Password: "wrong-password"})

		assert.ErrorIs(t, errUnknown, service.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrong, service.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, 0, f.store.SessionCount())
	})

	t.Run("inactive account is reported before the password is checked", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Inactive().Build(t, f.repos)

		_, err := f.svc.Login(ctx, service.LoginInput{Email: user.Email, Password: password})
		assert.ErrorIs(t, err, service.ErrAccountInactive)

		_, err = f.svc.Login(ctx, service.LoginInput{Email: user.Email, Password: "wrong-password"})
		assert.ErrorIs(t, err, service.ErrAccountInactive)

		assert.Equal(t, 0, f.store.SessionCount())
		assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.AuthEvents.WithLabelValues("login", metrics.OutcomeAccountInactive)))
	})

	t.Run("each login gets its own session", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)

		first := f.login(t, user.Email, password)
		second := f.login(t, user.Email, password)

		assert.NotEqual(t, first.Token, second.Token)
		assert.Equal(t, 2, f.store.SessionsForUser(user.ID))
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		result := f.login(t, user.Email, password)

		claims, err := f.svc.Authenticate(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, domain.RoleUser, claims.RoleName)
	})

	t.Run("missing token", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.Authenticate(ctx, "")
		assert.ErrorIs(t, err, service.ErrMissingToken)
	})

	t.Run("malformed token", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.Authenticate(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		f := newAuthFixture(t)
		user, _ := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		forged, err := auth.NewTokenManager("some-other-secret").Issue(user.ID, user.Email, domain.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = f.svc.Authenticate(ctx, forged)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token payload", func(t *testing.T) {
		f := newAuthFixture(t)
		user, _ := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		expired, err := f.tokens.Issue(user.ID, user.Email, domain.RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = f.svc.Authenticate(ctx, expired)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("valid signature without session", func(t *testing.T) {
		f := newAuthFixture(t)
		user, _ := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		token, err := f.tokens.Issue(user.ID, user.Email, domain.RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = f.svc.Authenticate(ctx, token)
		assert.ErrorIs(t, err, service.ErrInvalidSession)
	})

	t.Run("session belonging to another user", func(t *testing.T) {
		f := newAuthFixture(t)
		owner, _ := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		other, _ := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		token, err := f.tokens.Issue(owner.ID, owner.Email, domain.RoleUser, time.Hour)
		require.NoError(t, err)
		require.NoError(t, f.repos.Session.Create(ctx, &domain.Session{
			Token:     token,
			UserID:    other.ID,
			ExpiresAt: f.now.Add(time.Hour),
		}))

		_, err = f.svc.Authenticate(ctx, token)
		assert.ErrorIs(t, err, service.ErrInvalidSession)
	})

	t.Run("expired session is deleted when presented", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		result := f.login(t, user.Email, password)

		f.now = f.now.Add(24*time.Hour + time.Second)

		_, err := f.svc.Authenticate(ctx, result.Token)
		assert.ErrorIs(t, err, service.ErrExpiredSession)

		_, err = f.repos.Session.GetByToken(ctx, result.Token)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// The row is gone, so the next attempt no longer finds a session
		_, err = f.svc.Authenticate(ctx, result.Token)
		assert.ErrorIs(t, err, service.ErrInvalidSession)

		assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.SessionsRevoked.WithLabelValues("expired")))
	})

	t.Run("session expiry is not extended by use", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		result := f.login(t, user.Email, password)
		start := f.now

		f.now = start.Add(23 * time.Hour)
		_, err := f.svc.Authenticate(ctx, result.Token)
		require.NoError(t, err)

		session, err := f.repos.Session.GetByToken(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, start.Add(24*time.Hour), session.ExpiresAt)

		f.now = start.Add(24 * time.Hour)
		_, err = f.svc.Authenticate(ctx, result.Token)
		assert.ErrorIs(t, err, service.ErrExpiredSession)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes only the presented token", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		first := f.login(t, user.Email, password)
		second := f.login(t, user.Email, password)

		require.NoError(t, f.svc.Logout(ctx, first.Token))

		_, err := f.svc.Authenticate(ctx, first.Token)
		assert.ErrorIs(t, err, service.ErrInvalidSession)

		_, err = f.svc.Authenticate(ctx, second.Token)
		assert.NoError(t, err)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := newAuthFixture(t)
		user, password := testutil.NewUserBuilder().WithRole(f.roles.User).Build(t, f.repos)
		result := f.login(t, user.Email, password)

		assert.NoError(t, f.svc.Logout(ctx, result.Token))
		assert.NoError(t, f.svc.Logout(ctx, result.Token))
		assert.NoError(t, f.svc.Logout(ctx, "never-issued"))
		assert.NoError(t, f.svc.Logout(ctx, ""))
		assert.Equal(t, 0, f.store.SessionCount())
	})
}

func TestAuthService_Me(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user, _ := testutil.NewUserBuilder().WithRole(f.roles.Admin).Build(t, f.repos)

	view, err := f.svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, view.Email)
	require.NotNil(t, view.Role)
	assert.Len(t, view.Role.Permissions, 6)

	_, err = f.svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthService_AuthorizeRoles(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name    string
		role    string
		allowed []string
		wantErr bool
	}{
		{name: "exact match", role: domain.RoleAdmin, allowed: []string{domain.RoleAdmin}},
		{name: "one of several", role: domain.RoleUser, allowed: []string{domain.RoleAdmin, domain.RoleUser}},
		{name: "not listed", role: domain.RoleUser, allowed: []string{domain.RoleAdmin}, wantErr: true},
		{name: "empty allow-list", role: domain.RoleAdmin, allowed: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.AuthorizeRoles(&auth.Claims{RoleName: tt.role}, tt.allowed...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, service.ErrForbidden)
			var forbidden *service.ForbiddenError
			require.ErrorAs(t, err, &forbidden)
			assert.Equal(t, tt.role, forbidden.UserRole)
			assert.Equal(t, tt.allowed, forbidden.RequiredRoles)
		})
	}
}

func TestAuthService_AuthorizePermissions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.AuthorizePermissions(ctx, &auth.Claims{RoleName: domain.RoleAdmin},
		domain.PermissionUserDelete, domain.PermissionRoleManage))
	assert.NoError(t, f.svc.AuthorizePermissions(ctx, &auth.Claims{RoleName: domain.RoleUser},
		domain.PermissionUserRead))

	err := f.svc.AuthorizePermissions(ctx, &auth.Claims{RoleName: domain.RoleUser},
		domain.PermissionUserRead, domain.PermissionUserDelete)
	var forbidden *service.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, []string{domain.PermissionUserDelete}, forbidden.RequiredPermissions)
	assert.Equal(t, domain.RoleUser, forbidden.UserRole)

	err = f.svc.AuthorizePermissions(ctx, &auth.Claims{RoleName: "ghost"}, domain.PermissionUserRead)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
