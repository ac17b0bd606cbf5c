package models

import (
	"time"

	"gorm.io/gorm"
)

// Record is a user-scoped note on the dashboard: a title plus free-form
// notes, e.g. a reminder about a lease clause or a filing deadline.
type Record struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Title  string `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Notes  string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
