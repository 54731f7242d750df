package postgres

import (
	"context"
	"errors"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *roleRepository {
	return &roleRepository{db: db}
}

// Create inserts the role and links the permissions it carries. The
// permissions themselves must already exist.
func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	err := r.db.WithContext(ctx).Omit("Permissions.*").Create(role).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrInvalidPermission
	}
	return translate(err, nil, domain.ErrDuplicateRole)
}

func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, domain.ErrRoleNotFound, nil)
	}
	return &role, nil
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, "name = ?", name).Error
	if err != nil {
		return nil, translate(err, domain.ErrRoleNotFound, nil)
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	var roles []*domain.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Order("name").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	result := r.db.WithContext(ctx).
		Model(role).
		Select("name", "description", "updated_at").
		Updates(role)
	if err := translate(result.Error, nil, domain.ErrDuplicateRole); err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []domain.Permission) error {
	assoc := r.db.WithContext(ctx).Model(&domain.Role{ID: roleID}).Association("Permissions")
	var err error
	if len(perms) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(perms)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrInvalidPermission
	}
	return err
}

func (r *roleRepository) AddPermissions(ctx context.Context, roleID uuid.UUID, perms []domain.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Role{ID: roleID}).Association("Permissions").Append(perms)
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrInvalidPermission
	}
	return err
}

// Delete unlinks the role's permissions and removes it. A user still holding
// the role makes the foreign key reject the delete, reported as
// domain.ErrHasDependents.
func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Role{ID: id}).Association("Permissions").Clear(); err != nil {
			return err
		}
		result := tx.Delete(&domain.Role{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrRoleNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrHasDependents
	}
	return err
}

func (r *roleRepository) CountByPermissionID(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("role_permissions").
		Where("permission_id = ?", permissionID).
		Count(&count).Error
	return count, err
}
