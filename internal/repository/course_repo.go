package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// CourseRepository exposes the course and department lookups the content
// services depend on.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Exists(ctx context.Context, id uint) (bool, error)
	GetDepartment(ctx context.Context, id uint) (models.Department, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *courseRepository) GetDepartment(ctx context.Context, id uint) (models.Department, error) {
	var department models.Department
	if err := r.db.WithContext(ctx).First(&department, id).Error; err != nil {
		return models.Department{}, err
	}
	return department, nil
}
