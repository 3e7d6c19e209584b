package models

import "gorm.io/gorm"

// Favorite marks a photo a user has added to their favorites list
type Favorite struct {
	gorm.Model
	UserID  uint   `json:"user_id" gorm:"index;uniqueIndex:idx_user_photo"`
	PhotoID string `json:"photo_id" gorm:"index;uniqueIndex:idx_user_photo"` // MongoDB ObjectID as hex string
}
