package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole controls what a CRM user can do
type UserRole string

const (
	RoleDirector UserRole = "Director"
	RoleSales    UserRole = "Sales"
	RoleViewer   UserRole = "Viewer"
)

// User is a CRM operator. Users are provisioned by a Director and matched
// against Google sign-in by email; there is no self-registration.
type User struct {
	Username  string    `gorm:"primaryKey;size:30;not null" json:"username" binding:"required,alphanum"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      UserRole  `gorm:"size:20;not null;default:'Viewer'" json:"role"`
	AvatarURL string    `gorm:"size:512" json:"avatar,omitempty"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// SessionDuration is the length of time a session remains valid
const SessionDuration = time.Hour * 24 * 7 // 1 week

// Session is a server-side login session tied to a provisioned user
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"-"`
	Username  string    `gorm:"size:30;not null;index" json:"-"`
	Email     string    `gorm:"size:255" json:"-"`
	ClientIP  string    `gorm:"size:64" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"-"`
}

// BeforeCreate hook for sessions
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(SessionDuration)
	}
	return nil
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// CreateUserRequest is the admin payload for provisioning a user
type CreateUserRequest struct {
	Username string   `json:"username" binding:"required,alphanum"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Role     UserRole `json:"role" binding:"required,oneof=Director Sales Viewer"`
}

// UpdateUserRequest carries partial user updates
type UpdateUserRequest struct {
	Name  *string   `json:"name"`
	Email *string   `json:"email" binding:"omitempty,email"`
	Role  *UserRole `json:"role" binding:"omitempty,oneof=Director Sales Viewer"`
}
