package models

import "time"

// ChatRole identifies who wrote a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a user's conversation with the CRM
// assistant. History is kept per user so follow-up questions can refer
// back to earlier answers.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:50" json:"id"`
	Username  string    `gorm:"size:50;not null;index" json:"username"`
	Role      ChatRole  `gorm:"size:10;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
