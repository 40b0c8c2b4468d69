package models

import "time"

// Department groups courses offered by one faculty.
type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:63;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Course is the subject resources and comments are attached to.
type Course struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"size:31;uniqueIndex;not null" json:"code"`
	Name         string    `gorm:"size:63;not null" json:"name"`
	DepartmentID uint      `gorm:"index;not null" json:"department_id"`
	Credits      float64   `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
