package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/metrics"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// SessionTTL is the fixed lifetime of a session row. It is not extended on
// use.
const SessionTTL = 24 * time.Hour

type AuthService struct {
	userRepo    repository.UserRepository
	roleRepo    repository.RoleRepository
	sessionRepo repository.SessionRepository
	hasher      auth.PasswordHasher
	tokens      *auth.TokenManager
	tokenTTL    time.Duration
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
	now         func() time.Time
}

type AuthServiceDeps struct {
	Users    repository.UserRepository
	Roles    repository.RoleRepository
	Sessions repository.SessionRepository
	Hasher   auth.PasswordHasher
	Tokens   *auth.TokenManager
	TokenTTL time.Duration
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
	// Clock defaults to time.Now
	Clock func() time.Time
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = SessionTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AuthService{
		userRepo:    deps.Users,
		roleRepo:    deps.Roles,
		sessionRepo: deps.Sessions,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		tokenTTL:    ttl,
		metrics:     deps.Metrics,
		log:         log.WithField("component", "auth"),
		now:         clock,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    uuid.UUID
}

type LoginInput struct {
	Email     string
	Password  string
	ClientIP  string
	UserAgent string
}

type LoginResult struct {
	Token string
	User  *domain.UserView
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.UserView, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}

	// Check if email exists. The unique index stays the final word if two
	// registrations race past this point.
	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, domain.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	role, err := s.roleRepo.GetByID(ctx, input.RoleID)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, domain.ErrInvalidRole
		}
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     true,
		RoleID:       role.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	user.Role = role
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user.View(), nil
}

// Login checks the account state before the password so an inactive account
// always reports ErrAccountInactive. Unknown email and wrong password share
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.Auth("login", metrics.OutcomeInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.Auth("login", metrics.OutcomeError)
		return nil, err
	}

	if !user.IsActive {
		s.metrics.Auth("login", metrics.OutcomeAccountInactive)
		return nil, ErrAccountInactive
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.metrics.Auth("login", metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.RoleName(), s.tokenTTL)
	if err != nil {
		s.metrics.Auth("login", metrics.OutcomeError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.now()
	session := &domain.Session{
		ID:        uuid.New(),
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}
	if input.ClientIP != "" || input.UserAgent != "" {
		session.ClientInfo = datatypes.JSONMap{
			"ip":        input.ClientIP,
			"userAgent": input.UserAgent,
		}
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.metrics.Auth("login", metrics.OutcomeError)
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.metrics.Auth("login", metrics.OutcomeSuccess)
	s.metrics.SessionCreated()
	s.log.WithField("user_id", user.ID).Info("user logged in")

	return &LoginResult{
		Token: token,
		User:  user.View(),
	}, nil
}

// Logout removes every session carrying token. Unknown tokens are not an
// error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	n, err := s.sessionRepo.DeleteByToken(ctx, token)
	if err != nil {
		return err
	}
	s.metrics.SessionRevoked("logout", n)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

// Authenticate validates a presented token: signature and payload expiry
// first, then the session row. A row found past its expiry is deleted here;
// nothing else removes it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		s.metrics.Auth("gate", metrics.OutcomeMissingToken)
		return nil, ErrMissingToken
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			s.metrics.Auth("gate", metrics.OutcomeExpiredToken)
		} else {
			s.metrics.Auth("gate", metrics.OutcomeInvalidToken)
		}
		return nil, err
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.metrics.Auth("gate", metrics.OutcomeInvalidSession)
			return nil, ErrInvalidSession
		}
		s.metrics.Auth("gate", metrics.OutcomeError)
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session.UserID != claims.UserID {
		s.metrics.Auth("gate", metrics.OutcomeInvalidSession)
		return nil, ErrInvalidSession
	}

	if session.ExpiredAt(s.now()) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			s.metrics.Auth("gate", metrics.OutcomeError)
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		s.metrics.SessionRevoked("expired", 1)
		s.metrics.Auth("gate", metrics.OutcomeExpiredSession)
		return nil, ErrExpiredSession
	}

	s.metrics.Auth("gate", metrics.OutcomeSuccess)
	return claims, nil
}

// AuthorizeRoles is a plain allow-list match on the role name in the token.
func (s *AuthService) AuthorizeRoles(claims *auth.Claims, roles ...string) error {
	for _, r := range roles {
		if claims.RoleName == r {
			return nil
		}
	}
	s.metrics.Auth("authorize", metrics.OutcomeForbidden)
	return &ForbiddenError{
		RequiredRoles: roles,
		UserRole:      claims.RoleName,
	}
}

// AuthorizePermissions requires every named permission on the caller's role,
// resolved from the store on each call.
func (s *AuthService) AuthorizePermissions(ctx context.Context, claims *auth.Claims, permissions ...string) error {
	role, err := s.roleRepo.GetByName(ctx, claims.RoleName)
	if err != nil && !errors.Is(err, domain.ErrRoleNotFound) {
		return fmt.Errorf("resolve role permissions: %w", err)
	}

	var missing []string
	for _, p := range permissions {
		if role == nil || !role.HasPermission(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	s.metrics.Auth("authorize", metrics.OutcomeForbidden)
	return &ForbiddenError{
		RequiredPermissions: missing,
		UserRole:            claims.RoleName,
	}
}
