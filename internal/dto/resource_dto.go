package dto

import (
	"io"
	"time"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// ResourceUploadRequest carries the metadata sent alongside an uploaded file.
type ResourceUploadRequest struct {
	CourseID     uint   `form:"course_id" validate:"required,gt=0"`
	Name         string `form:"name" validate:"required,min=1,max=63"`
	Description  string `form:"description" validate:"max=255"`
	ResourceType string `form:"resource_type" validate:"required,oneof=exam assignment note textbook slides other"`
	FileType     string `form:"file_type" validate:"omitempty,oneof=pdf text other"`
}

// ResourceResponse is the serialized representation of a resource.
type ResourceResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ResourceType string    `json:"resource_type"`
	FileType     string    `json:"file_type"`
	FileSizeMB   float64   `json:"file_size_mb"`
	FilePath     string    `json:"file_path"`
	CourseID     uint      `json:"course_id"`
	UserID       uint      `json:"user_id"`
	Views        int       `json:"views"`
	Likes        int       `json:"likes"`
	Dislikes     int       `json:"dislikes"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewResourceResponse converts a model into a DTO.
func NewResourceResponse(resource models.Resource) ResourceResponse {
	return ResourceResponse{
		ID:           resource.ID,
		Name:         resource.Name,
		Description:  resource.Description,
		ResourceType: string(resource.ResourceType),
		FileType:     string(resource.File.FileType),
		FileSizeMB:   resource.File.FileSizeMB,
		FilePath:     resource.File.FilePath,
		CourseID:     resource.CourseID,
		UserID:       resource.UserID,
		Views:        resource.Views,
		Likes:        resource.Likes,
		Dislikes:     resource.Dislikes,
		CreatedAt:    resource.CreatedAt,
	}
}

// NewResourceResponseSlice converts a slice of models into DTOs.
func NewResourceResponseSlice(resources []models.Resource) []ResourceResponse {
	out := make([]ResourceResponse, 0, len(resources))
	for _, resource := range resources {
		out = append(out, NewResourceResponse(resource))
	}
	return out
}

// ResourceFileStream is an opened resource blob ready to be sent to a client.
type ResourceFileStream struct {
	FileName string
	FileType string
	Body     io.ReadCloser
}
