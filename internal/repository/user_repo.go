package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	AddActivity(ctx context.Context, id uint, delta int) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// AddActivity shifts the stored score in place so concurrent writers never lose updates.
func (r *userRepository) AddActivity(ctx context.Context, id uint, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("activity", gorm.Expr("activity + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
