package dto

import "time"

// EngagementResponse reports the outcome of a like/dislike toggle.
type EngagementResponse struct {
	TargetType string `json:"target_type"`
	TargetID   uint   `json:"target_id"`
	Applied    bool   `json:"applied"`
	Reason     string `json:"reason,omitempty"`
	Liked      bool   `json:"liked"`
	Disliked   bool   `json:"disliked"`
	Likes      int    `json:"likes"`
	Dislikes   int    `json:"dislikes"`
}

// EngagementStatusResponse is the derived engagement of one user on one target.
type EngagementStatusResponse struct {
	TargetType string `json:"target_type"`
	TargetID   uint   `json:"target_id"`
	UserID     uint   `json:"user_id"`
	Liked      bool   `json:"liked"`
	Disliked   bool   `json:"disliked"`
}

// ActivityEvent is broadcast after a ledger entry has been committed.
type ActivityEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	UserID     uint      `json:"user_id"`
	ObjectID   *uint     `json:"object_id,omitempty"`
	ScoredUser uint      `json:"scored_user_id,omitempty"`
	Delta      int       `json:"delta"`
	OccurredAt time.Time `json:"occurred_at"`
}
