package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// InteractionRepository persists course comments.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	GetByID(ctx context.Context, id uint) (models.Interaction, error)
	LockByID(ctx context.Context, id uint) (models.Interaction, error)
	FindByCourseAndUser(ctx context.Context, courseID, userID uint) (*models.Interaction, error)
	Save(ctx context.Context, interaction *models.Interaction) error
	Delete(ctx context.Context, id uint) error
	ListByCourse(ctx context.Context, courseID uint) ([]models.Interaction, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Interaction, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository constructs a GORM-backed repository.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	return r.db.WithContext(ctx).Create(interaction).Error
}

func (r *interactionRepository) GetByID(ctx context.Context, id uint) (models.Interaction, error) {
	var interaction models.Interaction
	if err := r.db.WithContext(ctx).First(&interaction, id).Error; err != nil {
		return models.Interaction{}, err
	}
	return interaction, nil
}

func (r *interactionRepository) LockByID(ctx context.Context, id uint) (models.Interaction, error) {
	var interaction models.Interaction
	if err := forUpdate(r.db.WithContext(ctx)).First(&interaction, id).Error; err != nil {
		return models.Interaction{}, err
	}
	return interaction, nil
}

// FindByCourseAndUser returns nil when the user has not commented on the course yet.
func (r *interactionRepository) FindByCourseAndUser(ctx context.Context, courseID, userID uint) (*models.Interaction, error) {
	var interaction models.Interaction
	err := forUpdate(r.db.WithContext(ctx)).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Take(&interaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &interaction, nil
}

func (r *interactionRepository) Save(ctx context.Context, interaction *models.Interaction) error {
	return r.db.WithContext(ctx).Save(interaction).Error
}

func (r *interactionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Interaction{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *interactionRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Interaction, error) {
	var interactions []models.Interaction
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&interactions).Error; err != nil {
		return nil, err
	}
	return interactions, nil
}

func (r *interactionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Interaction, error) {
	var interactions []models.Interaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&interactions).Error; err != nil {
		return nil, err
	}
	return interactions, nil
}
