package models

import "time"

// Interaction is a user's comment and optional rating on a course. Each user
// holds at most one interaction per course.
type Interaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_interaction_course_user" json:"course_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_interaction_course_user;index" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	Rating    *uint8    `json:"rating"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Dislikes  int       `gorm:"not null;default:0" json:"dislikes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Interaction) TargetID() uint { return i.ID }

func (i *Interaction) OwnerID() uint { return i.UserID }

func (i *Interaction) Counters() (likes, dislikes *int) { return &i.Likes, &i.Dislikes }
