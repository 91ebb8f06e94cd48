package models

import "time"

// Project represents one completed solar installation in the portfolio.
// Image is the stored filename of the project's picture in the upload directory.
type Project struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null" validate:"required"`
	Category  Category  `json:"category" gorm:"type:varchar(32);not null;index" validate:"required,category"`
	Location  string    `json:"location" gorm:"type:varchar(255);not null" validate:"required"`
	Capacity  string    `json:"capacity" gorm:"type:varchar(64);not null" validate:"required"`
	Image     string    `json:"image" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}
