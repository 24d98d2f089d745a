// Package models contains data models for the auth service.
package models

import "time"

// User represents a gotchu.lol account in the database. Username and email
// are stored lowercase and unique; PasswordHash never leaves this service.
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	DisplayName  string     `json:"display_name"`
	Bio          string     `json:"bio"`
	AvatarURL    string     `json:"avatar_url"`
	IsVerified   bool       `json:"is_verified" gorm:"not null;default:false"`
	Plan         string     `json:"plan" gorm:"not null;default:free"`
	Theme        string     `json:"theme"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// Snapshot returns the safe field subset cached per user and returned to
// clients. Credential material is excluded.
func (u *User) Snapshot() *UserSnapshot {
	return &UserSnapshot{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		IsVerified:  u.IsVerified,
		Plan:        u.Plan,
		Theme:       u.Theme,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// UserSnapshot is the credential-free view of a user, stored in the user
// cache and embedded in API responses.
type UserSnapshot struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Bio         string     `json:"bio"`
	AvatarURL   string     `json:"avatar_url"`
	IsVerified  bool       `json:"is_verified"`
	Plan        string     `json:"plan"`
	Theme       string     `json:"theme"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
