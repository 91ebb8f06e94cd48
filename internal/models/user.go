package models

import "time"

// User is the administrative principal allowed to manage projects.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	PasswordHash string    `json:"-" gorm:"column:password;type:varchar(255);not null"` // bcrypt, never serialized
	CreatedAt    time.Time `json:"createdAt"`
}
