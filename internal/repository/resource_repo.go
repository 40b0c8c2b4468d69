package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// ResourceRepository persists course resources.
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uint) (models.Resource, error)
	LockByID(ctx context.Context, id uint) (models.Resource, error)
	Save(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id uint) error
	ListByCourse(ctx context.Context, courseID uint) ([]models.Resource, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Resource, error)
}

type resourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository constructs a GORM-backed resource repository.
func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *resourceRepository) GetByID(ctx context.Context, id uint) (models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, id).Error; err != nil {
		return models.Resource{}, err
	}
	return resource, nil
}

func (r *resourceRepository) LockByID(ctx context.Context, id uint) (models.Resource, error) {
	var resource models.Resource
	if err := forUpdate(r.db.WithContext(ctx)).First(&resource, id).Error; err != nil {
		return models.Resource{}, err
	}
	return resource, nil
}

func (r *resourceRepository) Save(ctx context.Context, resource *models.Resource) error {
	return r.db.WithContext(ctx).Save(resource).Error
}

func (r *resourceRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Resource{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *resourceRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *resourceRepository) ListByUser(ctx context.Context, userID uint) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}
