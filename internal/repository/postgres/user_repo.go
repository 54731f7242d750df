package postgres

import (
	"context"
	"errors"

	"github.com/dom/rbac-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Omit("Role").Create(user).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrInvalidRole
	}
	return translate(err, nil, domain.ErrDuplicateEmail)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Role.Permissions").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, domain.ErrUserNotFound, nil)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Role.Permissions").
		First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err, domain.ErrUserNotFound, nil)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Order("created_at").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Update writes the profile columns, including zero values such as
// is_active=false. The password hash is only changed by UpdatePassword.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).
		Model(user).
		Select("email", "first_name", "last_name", "profile_picture", "is_active", "role_id", "updated_at").
		Updates(user)
	if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
		return domain.ErrInvalidRole
	}
	if err := translate(result.Error, nil, domain.ErrDuplicateEmail); err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes the user together with its sessions
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Session{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

func (r *userRepository) CountByRoleID(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}
