package service_test

import (
	"context"
	"testing"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/repository"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/dom/rbac-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoleService(t *testing.T) (*service.RoleService, *repository.Repositories) {
	t.Helper()
	repos := testutil.NewMemoryStore().Repositories()
	return service.NewRoleService(repos.Role, repos.Permission, repos.User), repos
}

func TestRoleService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("with permissions", func(t *testing.T) {
		svc, repos := newRoleService(t)
		read := testutil.NewPermissionBuilder().WithName("doc:read").Build(t, repos)
		write := testutil.NewPermissionBuilder().WithName("doc:write").Build(t, repos)

		role, err := svc.Create(ctx, service.CreateRoleInput{
			Name:          "editor",
			PermissionIDs: []uuid.UUID{read.ID, write.ID, read.ID},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"doc:read", "doc:write"}, role.PermissionNames())
	})

	t.Run("unknown permission id", func(t *testing.T) {
		svc, _ := newRoleService(t)
		_, err := svc.Create(ctx, service.CreateRoleInput{Name: "editor", PermissionIDs: []uuid.UUID{uuid.New()}})
		assert.ErrorIs(t, err, domain.ErrInvalidPermission)
	})

	t.Run("duplicate name", func(t *testing.T) {
		svc, repos := newRoleService(t)
		testutil.NewRoleBuilder().WithName("editor").Build(t, repos)
		_, err := svc.Create(ctx, service.CreateRoleInput{Name: "editor"})
		assert.ErrorIs(t, err, domain.ErrDuplicateRole)
	})

	t.Run("blank name", func(t *testing.T) {
		svc, _ := newRoleService(t)
		_, err := svc.Create(ctx, service.CreateRoleInput{Name: " "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestRoleService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repos := newRoleService(t)
	read := testutil.NewPermissionBuilder().WithName("doc:read").Build(t, repos)
	write := testutil.NewPermissionBuilder().WithName("doc:write").Build(t, repos)
	role := testutil.NewRoleBuilder().WithName("editor").WithPermissions(read).Build(t, repos)

	t.Run("omitted permissionIds keeps the set", func(t *testing.T) {
		desc := "Edits documents"
		updated, err := svc.Update(ctx, role.ID, service.UpdateRoleInput{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Edits documents", updated.Description)
		assert.Equal(t, []string{"doc:read"}, updated.PermissionNames())
	})

	t.Run("permissionIds replaces the set", func(t *testing.T) {
		ids := []uuid.UUID{write.ID}
		updated, err := svc.Update(ctx, role.ID, service.UpdateRoleInput{PermissionIDs: &ids})
		require.NoError(t, err)
		assert.Equal(t, []string{"doc:write"}, updated.PermissionNames())
	})

	t.Run("empty permissionIds clears the set", func(t *testing.T) {
		ids := []uuid.UUID{}
		updated, err := svc.Update(ctx, role.ID, service.UpdateRoleInput{PermissionIDs: &ids})
		require.NoError(t, err)
		assert.Empty(t, updated.Permissions)
	})

	t.Run("rename onto an existing role", func(t *testing.T) {
		testutil.NewRoleBuilder().WithName("viewer").Build(t, repos)
		name := "viewer"
		_, err := svc.Update(ctx, role.ID, service.UpdateRoleInput{Name: &name})
		assert.ErrorIs(t, err, domain.ErrDuplicateRole)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.New(), service.UpdateRoleInput{})
		assert.ErrorIs(t, err, domain.ErrRoleNotFound)
	})
}

func TestRoleService_List(t *testing.T) {
	ctx := context.Background()
	svc, repos := newRoleService(t)
	read := testutil.NewPermissionBuilder().WithName("doc:read").Build(t, repos)
	testutil.NewRoleBuilder().WithName("viewer").WithPermissions(read).Build(t, repos)

	roles, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, []domain.PermissionView{{ID: read.ID, Name: "doc:read"}}, roles[0].Permissions)
}

func TestRoleService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refused while users hold the role", func(t *testing.T) {
		svc, repos := newRoleService(t)
		role := testutil.NewRoleBuilder().Build(t, repos)
		testutil.NewUserBuilder().WithRole(role).Build(t, repos)
		testutil.NewUserBuilder().WithRole(role).Build(t, repos)

		err := svc.Delete(ctx, role.ID)
		assert.ErrorIs(t, err, domain.ErrHasDependents)

		var dependents *domain.DependentsError
		require.ErrorAs(t, err, &dependents)
		assert.Equal(t, int64(2), dependents.Count)

		_, err = repos.Role.GetByID(ctx, role.ID)
		assert.NoError(t, err)
	})

	t.Run("removes an unused role with permissions", func(t *testing.T) {
		svc, repos := newRoleService(t)
		perm := testutil.NewPermissionBuilder().Build(t, repos)
		role := testutil.NewRoleBuilder().WithPermissions(perm).Build(t, repos)

		require.NoError(t, svc.Delete(ctx, role.ID))

		_, err := repos.Role.GetByID(ctx, role.ID)
		assert.ErrorIs(t, err, domain.ErrRoleNotFound)
		count, err := repos.Role.CountByPermissionID(ctx, perm.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _ := newRoleService(t)
		assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), domain.ErrRoleNotFound)
	})
}
