package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User represents a registered account stored in PostgreSQL.
type User struct {
	gorm.Model     `json:"-"`
	ID             uint   `json:"id" gorm:"primaryKey"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username" gorm:"uniqueIndex"` // mention resolution does exact, case-sensitive lookups on this
	Password       string `json:"-"`                           // bcrypt hash, never serialized
	Location       string `json:"location"`
	Occupation     string `json:"occupation"`
	Description    string `json:"description"`
	LastActivityID string `json:"last_activity_id,omitempty"` // hex ID of the user's most recent Activity document
}

// UserCompact is the displayable identity embedded in populated responses
type UserCompact struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

// ToCompact converts a User to its compact display form
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

// RegisterRequest defines the request body for user registration
type RegisterRequest struct {
	FirstName   string `json:"firstName" validate:"required,min=1,max=50"`
	LastName    string `json:"lastName" validate:"required,min=1,max=50"`
	Username    string `json:"username" validate:"required,min=2,max=30"`
	Password    string `json:"password" validate:"required,min=6"`
	Location    string `json:"location,omitempty" validate:"omitempty,max=100"`
	Occupation  string `json:"occupation,omitempty" validate:"omitempty,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// LoginRequest defines the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest defines the request body for profile edits
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName,omitempty" validate:"omitempty,min=1,max=50"`
	LastName    string `json:"lastName,omitempty" validate:"omitempty,min=1,max=50"`
	Location    string `json:"location,omitempty" validate:"omitempty,max=100"`
	Occupation  string `json:"occupation,omitempty" validate:"omitempty,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
