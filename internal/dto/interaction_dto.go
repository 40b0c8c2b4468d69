package dto

import (
	"time"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// InteractionCreateRequest is the payload for commenting on a course.
type InteractionCreateRequest struct {
	Content *string `json:"content" validate:"omitempty,min=1,max=4000"`
	Rating  *uint8  `json:"rating" validate:"omitempty,min=1,max=10"`
}

// InteractionUpdateRequest is the payload for editing an existing comment.
type InteractionUpdateRequest struct {
	Content *string `json:"content" validate:"omitempty,min=1,max=4000"`
	Rating  *uint8  `json:"rating" validate:"omitempty,min=1,max=10"`
}

// InteractionResponse is the serialized representation of a comment.
type InteractionResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	Rating    *uint8    `json:"rating,omitempty"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInteractionResponse converts a model into a DTO.
func NewInteractionResponse(interaction models.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:        interaction.ID,
		CourseID:  interaction.CourseID,
		UserID:    interaction.UserID,
		Content:   interaction.Content,
		Rating:    interaction.Rating,
		Likes:     interaction.Likes,
		Dislikes:  interaction.Dislikes,
		CreatedAt: interaction.CreatedAt,
		UpdatedAt: interaction.UpdatedAt,
	}
}

// NewInteractionResponseSlice converts a slice of models into DTOs.
func NewInteractionResponseSlice(interactions []models.Interaction) []InteractionResponse {
	out := make([]InteractionResponse, 0, len(interactions))
	for _, interaction := range interactions {
		out = append(out, NewInteractionResponse(interaction))
	}
	return out
}
