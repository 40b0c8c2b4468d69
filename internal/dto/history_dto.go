package dto

import (
	"time"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// HistoryResponse is one ledger entry as shown to its owner.
type HistoryResponse struct {
	ID         uint                   `json:"id"`
	Action     string                 `json:"action"`
	ObjectType string                 `json:"object_type,omitempty"`
	ObjectID   *uint                  `json:"object_id,omitempty"`
	Object     *HistoryObject         `json:"object"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// HistoryObject summarises the entity an entry refers to. It is null in the
// response once that entity has been deleted.
type HistoryObject struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	CourseID *uint  `json:"course_id,omitempty"`
}

// NewHistoryResponse converts a ledger row into a DTO without its object.
func NewHistoryResponse(entry models.History) HistoryResponse {
	return HistoryResponse{
		ID:         entry.ID,
		Action:     entry.ActionType.String(),
		ObjectType: string(entry.ActionType.ObjectKind()),
		ObjectID:   entry.ObjectID,
		Metadata:   entry.Metadata,
		Timestamp:  entry.Timestamp,
	}
}
