package postgres

import (
	"context"
	"errors"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *permissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) Create(ctx context.Context, perm *domain.Permission) error {
	err := r.db.WithContext(ctx).Create(perm).Error
	return translate(err, nil, domain.ErrDuplicatePermission)
}

func (r *permissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	var perm domain.Permission
	err := r.db.WithContext(ctx).First(&perm, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, domain.ErrPermissionNotFound, nil)
	}
	return &perm, nil
}

func (r *permissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	var perm domain.Permission
	err := r.db.WithContext(ctx).First(&perm, "name = ?", name).Error
	if err != nil {
		return nil, translate(err, domain.ErrPermissionNotFound, nil)
	}
	return &perm, nil
}

func (r *permissionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Permission, error) {
	perms := []domain.Permission{}
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	var perms []*domain.Permission
	err := r.db.WithContext(ctx).Order("name").Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) Update(ctx context.Context, perm *domain.Permission) error {
	result := r.db.WithContext(ctx).
		Model(perm).
		Select("name", "description", "updated_at").
		Updates(perm)
	if err := translate(result.Error, nil, domain.ErrDuplicatePermission); err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return domain.ErrPermissionNotFound
	}
	return nil
}

func (r *permissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Permission{}, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
		return domain.ErrHasDependents
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPermissionNotFound
	}
	return nil
}
