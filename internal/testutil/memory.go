package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the repository interfaces.
// It enforces the same unique and foreign-key rules as the postgres schema
// and returns the same domain errors.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]domain.User
	roles     map[uuid.UUID]domain.Role
	perms     map[uuid.UUID]domain.Permission
	rolePerms map[uuid.UUID][]uuid.UUID
	sessions  map[uuid.UUID]domain.Session
	clock     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]domain.User),
		roles:     make(map[uuid.UUID]domain.Role),
		perms:     make(map[uuid.UUID]domain.Permission),
		rolePerms: make(map[uuid.UUID][]uuid.UUID),
		sessions:  make(map[uuid.UUID]domain.Session),
		clock:     time.Now,
	}
}

// Repositories exposes the store through the repository interfaces
func (s *MemoryStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:       &memoryUserRepo{s},
		Role:       &memoryRoleRepo{s},
		Permission: &memoryPermissionRepo{s},
		Session:    &memorySessionRepo{s},
	}
}

// SessionCount returns the number of stored sessions
func (s *MemoryStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionsForUser returns the number of sessions held by userID
func (s *MemoryStore) SessionsForUser(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

// stamp fills the id and timestamps gorm would set on insert
func (s *MemoryStore) stamp(id *uuid.UUID, created, updated *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := s.clock()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// roleWithPermissions must be called with mu held
func (s *MemoryStore) roleWithPermissions(id uuid.UUID) (*domain.Role, bool) {
	role, ok := s.roles[id]
	if !ok {
		return nil, false
	}
	role.Permissions = []domain.Permission{}
	for _, pid := range s.rolePerms[id] {
		role.Permissions = append(role.Permissions, s.perms[pid])
	}
	return &role, true
}

// ---- users ----

type memoryUserRepo struct{ s *MemoryStore }

func (r *memoryUserRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.s.users {
		if u.Email == email && id != except {
			return true
		}
	}
	return false
}

func (r *memoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roles[user.RoleID]; !ok {
		return domain.ErrInvalidRole
	}
	if r.emailTaken(user.Email, uuid.Nil) {
		return domain.ErrDuplicateEmail
	}
	r.s.stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	stored := *user
	stored.Role = nil
	r.s.users[user.ID] = stored
	return nil
}

func (r *memoryUserRepo) withRole(u domain.User) *domain.User {
	if role, ok := r.s.roleWithPermissions(u.RoleID); ok {
		u.Role = role
	}
	return &u
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.withRole(u), nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return r.withRole(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, r.withRole(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.s.roles[user.RoleID]; !ok {
		return domain.ErrInvalidRole
	}
	if r.emailTaken(user.Email, user.ID) {
		return domain.ErrDuplicateEmail
	}

	existing.Email = user.Email
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.ProfilePicture = user.ProfilePicture
	existing.IsActive = user.IsActive
	existing.RoleID = user.RoleID
	existing.UpdatedAt = r.s.clock()
	user.UpdatedAt = existing.UpdatedAt
	r.s.users[user.ID] = existing
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	r.s.users[id] = u
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	for sid, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, sid)
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *memoryUserRepo) CountByRoleID(ctx context.Context, roleID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, u := range r.s.users {
		if u.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

// ---- roles ----

type memoryRoleRepo struct{ s *MemoryStore }

func (r *memoryRoleRepo) nameTaken(name string, except uuid.UUID) bool {
	for id, role := range r.s.roles {
		if role.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r *memoryRoleRepo) permissionIDs(perms []domain.Permission) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(perms))
	for _, p := range perms {
		if _, ok := r.s.perms[p.ID]; !ok {
			return nil, domain.ErrInvalidPermission
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *memoryRoleRepo) Create(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(role.Name, uuid.Nil) {
		return domain.ErrDuplicateRole
	}
	ids, err := r.permissionIDs(role.Permissions)
	if err != nil {
		return err
	}
	r.s.stamp(&role.ID, &role.CreatedAt, &role.UpdatedAt)

	stored := *role
	stored.Permissions = nil
	r.s.roles[role.ID] = stored
	r.s.rolePerms[role.ID] = ids
	return nil
}

func (r *memoryRoleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	role, ok := r.s.roleWithPermissions(id)
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return role, nil
}

func (r *memoryRoleRepo) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for id, role := range r.s.roles {
		if role.Name == name {
			found, _ := r.s.roleWithPermissions(id)
			return found, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r *memoryRoleRepo) List(ctx context.Context) ([]*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	roles := make([]*domain.Role, 0, len(r.s.roles))
	for id := range r.s.roles {
		role, _ := r.s.roleWithPermissions(id)
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (r *memoryRoleRepo) Update(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.roles[role.ID]
	if !ok {
		return domain.ErrRoleNotFound
	}
	if r.nameTaken(role.Name, role.ID) {
		return domain.ErrDuplicateRole
	}
	existing.Name = role.Name
	existing.Description = role.Description
	existing.UpdatedAt = r.s.clock()
	r.s.roles[role.ID] = existing
	return nil
}

func (r *memoryRoleRepo) ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roles[roleID]; !ok {
		return domain.ErrRoleNotFound
	}
	ids, err := r.permissionIDs(perms)
	if err != nil {
		return err
	}
	r.s.rolePerms[roleID] = ids
	return nil
}

func (r *memoryRoleRepo) AddPermissions(ctx context.Context, roleID uuid.UUID, perms []domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roles[roleID]; !ok {
		return domain.ErrRoleNotFound
	}
	ids, err := r.permissionIDs(perms)
	if err != nil {
		return err
	}
	for _, id := range ids {
		linked := false
		for _, existing := range r.s.rolePerms[roleID] {
			if existing == id {
				linked = true
				break
			}
		}
		if !linked {
			r.s.rolePerms[roleID] = append(r.s.rolePerms[roleID], id)
		}
	}
	return nil
}

func (r *memoryRoleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roles[id]; !ok {
		return domain.ErrRoleNotFound
	}
	for _, u := range r.s.users {
		if u.RoleID == id {
			return domain.ErrHasDependents
		}
	}
	delete(r.s.roles, id)
	delete(r.s.rolePerms, id)
	return nil
}

func (r *memoryRoleRepo) CountByPermissionID(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, ids := range r.s.rolePerms {
		for _, id := range ids {
			if id == permissionID {
				n++
			}
		}
	}
	return n, nil
}

// ---- permissions ----

type memoryPermissionRepo struct{ s *MemoryStore }

func (r *memoryPermissionRepo) nameTaken(name string, except uuid.UUID) bool {
	for id, p := range r.s.perms {
		if p.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r *memoryPermissionRepo) Create(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(perm.Name, uuid.Nil) {
		return domain.ErrDuplicatePermission
	}
	r.s.stamp(&perm.ID, &perm.CreatedAt, &perm.UpdatedAt)
	r.s.perms[perm.ID] = *perm
	return nil
}

func (r *memoryPermissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.perms[id]
	if !ok {
		return nil, domain.ErrPermissionNotFound
	}
	return &p, nil
}

func (r *memoryPermissionRepo) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.perms {
		if p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrPermissionNotFound
}

func (r *memoryPermissionRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	perms := []domain.Permission{}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if p, ok := r.s.perms[id]; ok && !seen[id] {
			seen[id] = true
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (r *memoryPermissionRepo) List(ctx context.Context) ([]*domain.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	perms := make([]*domain.Permission, 0, len(r.s.perms))
	for _, p := range r.s.perms {
		p := p
		perms = append(perms, &p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, nil
}

func (r *memoryPermissionRepo) Update(ctx context.Context, perm *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.perms[perm.ID]
	if !ok {
		return domain.ErrPermissionNotFound
	}
	if r.nameTaken(perm.Name, perm.ID) {
		return domain.ErrDuplicatePermission
	}
	existing.Name = perm.Name
	existing.Description = perm.Description
	existing.UpdatedAt = r.s.clock()
	r.s.perms[perm.ID] = existing
	return nil
}

func (r *memoryPermissionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.perms[id]; !ok {
		return domain.ErrPermissionNotFound
	}
	for _, ids := range r.s.rolePerms {
		for _, pid := range ids {
			if pid == id {
				return domain.ErrHasDependents
			}
		}
	}
	delete(r.s.perms, id)
	return nil
}

// ---- sessions ----

type memorySessionRepo struct{ s *MemoryStore }

func (r *memorySessionRepo) Create(ctx context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[session.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, existing := range r.s.sessions {
		if existing.Token == session.Token {
			return domain.ErrDuplicateSession
		}
	}
	r.s.stamp(&session.ID, &session.CreatedAt, nil)

	stored := *session
	stored.User = nil
	r.s.sessions[session.ID] = stored
	return nil
}

func (r *memorySessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sess := range r.s.sessions {
		if sess.Token == token {
			found := sess
			return &found, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *memorySessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, id)
	return nil
}

func (r *memorySessionRepo) DeleteByToken(ctx context.Context, token string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if sess.Token == token {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memorySessionRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}
