package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
)

// activityLedger stamps and appends ledger entries. Timestamps handed out by
// one ledger never decrease, even if the wall clock steps backwards. Across
// processes, callers pass the latest persisted timestamp as a floor.
type activityLedger struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newActivityLedger(now func() time.Time) *activityLedger {
	if now == nil {
		now = time.Now
	}
	return &activityLedger{now: now}
}

func (l *activityLedger) stamp(floor time.Time) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	if ts.Before(l.last) {
		ts = l.last
	}
	if ts.Before(floor) {
		ts = floor.UTC()
	}
	l.last = ts
	return ts
}

// record appends one entry. objectID may be zero for actions without a target.
func (l *activityLedger) record(ctx context.Context, history repository.HistoryRepository, userID uint, action models.ActionType, objectID uint, metadata map[string]interface{}) (models.History, error) {
	return l.recordAfter(ctx, history, time.Time{}, userID, action, objectID, metadata)
}

// recordAfter appends one entry stamped no earlier than floor.
func (l *activityLedger) recordAfter(ctx context.Context, history repository.HistoryRepository, floor time.Time, userID uint, action models.ActionType, objectID uint, metadata map[string]interface{}) (models.History, error) {
	entry := models.History{
		UserID:     userID,
		ActionType: action,
		Timestamp:  l.stamp(floor),
	}
	if objectID != 0 {
		id := objectID
		entry.ObjectID = &id
	}
	if len(metadata) > 0 {
		entry.Metadata = datatypes.JSONMap(metadata)
	}
	if err := history.Append(ctx, &entry); err != nil {
		return models.History{}, storageFault(err)
	}
	return entry, nil
}

// activityEvent describes a committed entry and the delta it caused.
func activityEvent(entry models.History, scoredUser uint, delta int) dto.ActivityEvent {
	return dto.ActivityEvent{
		ID:         uuid.NewString(),
		Action:     entry.ActionType.String(),
		UserID:     entry.UserID,
		ObjectID:   entry.ObjectID,
		ScoredUser: scoredUser,
		Delta:      delta,
		OccurredAt: entry.Timestamp,
	}
}
