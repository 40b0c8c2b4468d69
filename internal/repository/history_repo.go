package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// HistoryRepository is the append-only activity ledger. It offers no update or
// delete operations.
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.History) error
	ListByUser(ctx context.Context, userID uint) ([]models.History, error)
	Latest(ctx context.Context, userID, objectID uint, kinds []models.ActionType) (*models.History, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository constructs the ledger repository.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *models.History) error {
	if entry.ID != 0 {
		return errors.New("history entries are immutable once persisted")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByUser returns the user's entries newest first, ties broken by insertion order.
func (r *historyRepository) ListByUser(ctx context.Context, userID uint) ([]models.History, error) {
	var entries []models.History
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Latest returns the most recent entry among kinds for the (user, object) pair,
// or nil when there is none.
func (r *historyRepository) Latest(ctx context.Context, userID, objectID uint, kinds []models.ActionType) (*models.History, error) {
	if len(kinds) == 0 {
		return nil, nil
	}

	var entry models.History
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND object_id = ? AND action_type IN ?", userID, objectID, kinds).
		Order("timestamp DESC").
		Order("id DESC").
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
