package models

import (
	"strings"
	"time"
)

// ResourceType classifies learning material.
type ResourceType string

const (
	ResourceTypeExam       ResourceType = "exam"
	ResourceTypeAssignment ResourceType = "assignment"
	ResourceTypeNote       ResourceType = "note"
	ResourceTypeTextbook   ResourceType = "textbook"
	ResourceTypeSlides     ResourceType = "slides"
	ResourceTypeOther      ResourceType = "other"
)

// FileType is the coarse kind of a stored resource file.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeText  FileType = "text"
	FileTypeOther FileType = "other"
)

// ParseFileType maps a client supplied name onto a FileType, falling back to other.
func ParseFileType(name string) FileType {
	switch FileType(strings.ToLower(strings.TrimSpace(name))) {
	case FileTypePDF:
		return FileTypePDF
	case FileTypeText:
		return FileTypeText
	default:
		return FileTypeOther
	}
}

// ResourceFile describes the blob a resource owns in external storage.
type ResourceFile struct {
	FileType   FileType `gorm:"size:16;not null" json:"file_type"`
	FileSizeMB float64  `gorm:"not null" json:"file_size_mb"`
	FilePath   string   `gorm:"size:255;not null" json:"file_path"`
}

// Resource is an uploaded file attached to a course.
type Resource struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:63;not null" json:"name"`
	Description  string       `gorm:"size:255" json:"description"`
	ResourceType ResourceType `gorm:"size:16;not null" json:"resource_type"`
	File         ResourceFile `gorm:"embedded;embeddedPrefix:file_" json:"file"`
	CourseID     uint         `gorm:"index;not null" json:"course_id"`
	UserID       uint         `gorm:"index;not null" json:"user_id"`
	Views        int          `gorm:"not null;default:0" json:"views"`
	Likes        int          `gorm:"not null;default:0" json:"likes"`
	Dislikes     int          `gorm:"not null;default:0" json:"dislikes"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (r *Resource) TargetID() uint { return r.ID }

func (r *Resource) OwnerID() uint { return r.UserID }

func (r *Resource) Counters() (likes, dislikes *int) { return &r.Likes, &r.Dislikes }
