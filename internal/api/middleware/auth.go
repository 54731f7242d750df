package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// Authenticator is the part of the auth service the gate depends on
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	AuthorizeRoles(claims *auth.Claims, roles ...string) error
	AuthorizePermissions(ctx context.Context, claims *auth.Claims, permissions ...string) error
}

// Gate builds the authentication and authorization middleware
type Gate struct {
	auth      Authenticator
	responder *httputil.Responder
	log       logrus.FieldLogger
}

func NewGate(authenticator Authenticator, responder *httputil.Responder, log logrus.FieldLogger) *Gate {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{
		auth:      authenticator,
		responder: responder,
		log:       log.WithField("component", "gate"),
	}
}

// Auth rejects requests without a valid bearer token and live session, and
// stores the token claims in the request context.
func (g *Gate) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			g.log.WithField("path", r.URL.Path).Debug("missing or malformed authorization header")
			g.responder.Error(w, r, service.ErrMissingToken)
			return
		}

		claims, err := g.auth.Authenticate(r.Context(), token)
		if err != nil {
			g.log.WithField("path", r.URL.Path).WithError(err).Debug("authentication failed")
			g.responder.Error(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request only if the caller's role is one of roles.
// It must run after Auth.
func (g *Gate) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				g.responder.Error(w, r, service.ErrMissingToken)
				return
			}
			if err := g.auth.AuthorizeRoles(claims, roles...); err != nil {
				g.responder.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission allows the request only if the caller's role grants all
// of permissions. It must run after Auth.
func (g *Gate) RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				g.responder.Error(w, r, service.ErrMissingToken)
				return
			}
			if err := g.auth.AuthorizePermissions(r.Context(), claims, permissions...); err != nil {
				g.responder.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
