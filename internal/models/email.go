package models

import "time"

// EmailTemplate is a reusable outreach email with {{placeholder}} fields
type EmailTemplate struct {
	ID        string    `gorm:"primaryKey;size:50" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Subject   string    `gorm:"size:255;not null" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// EmailLogStatus is the delivery state of an outbound email
type EmailLogStatus string

const (
	EmailSent   EmailLogStatus = "sent"
	EmailDraft  EmailLogStatus = "draft"
	EmailFailed EmailLogStatus = "failed"
)

// EmailLog records one outbound email to a lead
type EmailLog struct {
	ID        string         `gorm:"primaryKey;size:50" json:"id"`
	LeadID    string         `gorm:"size:50;not null;index" json:"lead_id"`
	Date      time.Time      `gorm:"not null;index" json:"date"`
	Subject   string         `gorm:"size:255;not null" json:"subject"`
	Status    EmailLogStatus `gorm:"size:10;not null;index" json:"status"`
	MessageID string         `gorm:"size:255;index" json:"message_id,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

// EmailLogAttachment stores attachment metadata for an email log entry.
// The attachment bodies themselves live with the provider, not in the CRM.
type EmailLogAttachment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmailLogID string    `gorm:"size:50;not null;index" json:"email_log_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Size       int64     `gorm:"not null" json:"size"`
	Type       string    `gorm:"size:120" json:"type"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// EmailReply is an inbound reply matched to a sent email
type EmailReply struct {
	ID               string    `gorm:"primaryKey;size:50" json:"id"`
	EmailLogID       string    `gorm:"size:50;not null;index" json:"email_log_id"`
	LeadID           string    `gorm:"size:50;not null;index" json:"lead_id"`
	FromEmail        string    `gorm:"size:255;not null" json:"from_email"`
	FromName         string    `gorm:"size:120" json:"from_name,omitempty"`
	Subject          string    `gorm:"size:255" json:"subject"`
	Body             string    `gorm:"type:text" json:"body"`
	ReplyDate        time.Time `gorm:"not null;index" json:"reply_date"`
	MessageID        string    `gorm:"size:255" json:"message_id,omitempty"`
	InReplyTo        string    `gorm:"size:255;index" json:"in_reply_to,omitempty"`
	ReferencesHeader string    `gorm:"type:text" json:"references_header,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}
