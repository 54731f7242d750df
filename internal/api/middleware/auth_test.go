package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/api/middleware"
	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthenticator accepts exactly one token
type stubAuthenticator struct {
	token  string
	claims *auth.Claims
	err    error
	perms  map[string]bool
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.token {
		return nil, auth.ErrInvalidToken
	}
	return s.claims, nil
}

func (s *stubAuthenticator) AuthorizeRoles(claims *auth.Claims, roles ...string) error {
	for _, r := range roles {
		if r == claims.RoleName {
			return nil
		}
	}
	return &service.ForbiddenError{RequiredRoles: roles, UserRole: claims.RoleName}
}

func (s *stubAuthenticator) AuthorizePermissions(ctx context.Context, claims *auth.Claims, permissions ...string) error {
	for _, p := range permissions {
		if !s.perms[p] {
			return &service.ForbiddenError{RequiredPermissions: []string{p}, UserRole: claims.RoleName}
		}
	}
	return nil
}

func newGate(stub *stubAuthenticator) *middleware.Gate {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return middleware.NewGate(stub, httputil.NewResponder(log, false), log)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{name: "valid", header: "Bearer abc.def", wantToken: "abc.def", wantOK: true},
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Token abc"},
		{name: "lowercase scheme", header: "bearer abc"},
		{name: "no token", header: "Bearer "},
		{name: "extra parts", header: "Bearer abc def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			token, ok := middleware.BearerToken(r)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestGate_Auth(t *testing.T) {
	claims := &auth.Claims{UserID: uuid.New(), Email: "a@example.com", RoleName: "user"}

	t.Run("stores claims for the handler", func(t *testing.T) {
		gate := newGate(&stubAuthenticator{token: "good", claims: claims})

		var seen *auth.Claims
		h := gate.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = middleware.GetClaims(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, claims, seen)
	})

	tests := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header", header: ""},
		{name: "bad token", header: "Bearer bad"},
		{name: "expired session", header: "Bearer good", err: service.ErrExpiredSession},
		{name: "expired token", header: "Bearer good", err: auth.ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newGate(&stubAuthenticator{token: "good", claims: claims, err: tt.err})
			called := false
			h := gate.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, r)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.False(t, called)
		})
	}
}

func TestGate_RequireRole(t *testing.T) {
	stub := &stubAuthenticator{token: "good", claims: &auth.Claims{UserID: uuid.New(), RoleName: "user"}}
	gate := newGate(stub)

	tests := []struct {
		name       string
		roles      []string
		wantStatus int
	}{
		{name: "allowed", roles: []string{"admin", "user"}, wantStatus: http.StatusOK},
		{name: "forbidden", roles: []string{"admin"}, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := gate.Auth(gate.RequireRole(tt.roles...)(okHandler))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer good")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, r)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	t.Run("without Auth in front", func(t *testing.T) {
		rr := httptest.NewRecorder()
		gate.RequireRole("user")(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGate_RequirePermission(t *testing.T) {
	stub := &stubAuthenticator{
		token:  "good",
		claims: &auth.Claims{UserID: uuid.New(), RoleName: "user"},
		perms:  map[string]bool{"user:read": true},
	}
	gate := newGate(stub)

	run := func(perms ...string) *httptest.ResponseRecorder {
		h := gate.Auth(gate.RequirePermission(perms...)(okHandler))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		return rr
	}

	assert.Equal(t, http.StatusOK, run("user:read").Code)

	rr := run("user:read", "user:delete")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `"requiredPermissions":["user:delete"]`)
}

func TestCORS(t *testing.T) {
	h := middleware.CORS("https://app.example.com")(okHandler)

	t.Run("preflight short-circuits", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/users", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("normal request passes through with headers", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Methods"))
	})
}
