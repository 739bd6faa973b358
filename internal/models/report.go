package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ReportFrequency is how often a report subscription fires
type ReportFrequency string

const (
	ReportDaily   ReportFrequency = "daily"
	ReportWeekly  ReportFrequency = "weekly"
	ReportMonthly ReportFrequency = "monthly"
)

// ReportSubscription configures one recurring manager report: who receives
// it, on what schedule, and which sections it contains. The scheduler is the
// only writer of LastSentAt.
type ReportSubscription struct {
	ID             string          `gorm:"primaryKey;size:50" json:"id"`
	RecipientEmail string          `gorm:"size:255;not null" json:"recipient_email"`
	RecipientName  string          `gorm:"size:120" json:"recipient_name"`
	Frequency      ReportFrequency `gorm:"size:10;not null" json:"frequency"`
	DayOfWeek      *int            `json:"day_of_week,omitempty"`  // 0=Sunday..6=Saturday, weekly only
	DayOfMonth     *int            `json:"day_of_month,omitempty"` // 1-31, monthly only
	TriggerHour    int             `gorm:"not null" json:"trigger_hour"`
	TriggerMinute  int             `gorm:"not null" json:"trigger_minute"`
	Timezone       string          `gorm:"size:64;not null;default:'Asia/Ho_Chi_Minh'" json:"timezone"`
	Enabled        bool            `gorm:"not null;default:true" json:"enabled"`

	IncludeStats         bool `gorm:"not null;default:true" json:"include_stats"`
	IncludeNewLeads      bool `gorm:"not null;default:true" json:"include_new_leads"`
	IncludeEmailActivity bool `gorm:"not null;default:true" json:"include_email_activity"`
	IncludeTopLeads      bool `gorm:"not null;default:true" json:"include_top_leads"`
	TopLeadsCount        int  `gorm:"not null;default:10" json:"top_leads_count"`

	LastSentAt *time.Time `gorm:"index" json:"last_sent_at,omitempty"`
	LastError  string     `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Validate rejects configuration errors before the row ever reaches the
// store, so the scheduler never has to deal with them per tick.
func (s *ReportSubscription) Validate() error {
	switch s.Frequency {
	case ReportDaily:
	case ReportWeekly:
		if s.DayOfWeek == nil {
			return fmt.Errorf("day_of_week is required for weekly reports")
		}
		if *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return fmt.Errorf("day_of_week must be between 0 and 6, got %d", *s.DayOfWeek)
		}
	case ReportMonthly:
		if s.DayOfMonth == nil {
			return fmt.Errorf("day_of_month is required for monthly reports")
		}
		if *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return fmt.Errorf("day_of_month must be between 1 and 31, got %d", *s.DayOfMonth)
		}
	default:
		return fmt.Errorf("frequency must be daily, weekly or monthly, got %q", s.Frequency)
	}

	if s.TriggerHour < 0 || s.TriggerHour > 23 {
		return fmt.Errorf("trigger_hour must be between 0 and 23, got %d", s.TriggerHour)
	}
	if s.TriggerMinute < 0 || s.TriggerMinute > 59 {
		return fmt.Errorf("trigger_minute must be between 0 and 59, got %d", s.TriggerMinute)
	}
	if s.TopLeadsCount < 1 || s.TopLeadsCount > 100 {
		return fmt.Errorf("top_leads_count must be between 1 and 100, got %d", s.TopLeadsCount)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return nil
}

// Location resolves the subscription's IANA timezone. Validate has already
// run on every stored row, so failures here indicate store corruption.
func (s *ReportSubscription) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// ReportDelivery is one attempt to deliver a report, successful or not.
// Kept as an append-only audit log next to the subscription.
type ReportDelivery struct {
	ID             string          `gorm:"primaryKey;size:50" json:"id"`
	SubscriptionID string          `gorm:"size:50;not null;index" json:"subscription_id"`
	RecipientEmail string          `gorm:"size:255;not null" json:"recipient_email"`
	ReportType     ReportFrequency `gorm:"size:10;not null" json:"report_type"`
	PeriodStart    time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd      time.Time       `gorm:"not null" json:"period_end"`
	SentAt         time.Time       `gorm:"not null;index;autoCreateTime" json:"sent_at"`
	Status         string          `gorm:"size:10;not null" json:"status"` // "sent" or "failed"
	ErrorMessage   string          `gorm:"type:text" json:"error_message,omitempty"`
	StatsSummary   datatypes.JSON  `json:"stats_summary,omitempty"`
	MessageID      string          `gorm:"size:255" json:"message_id,omitempty"`
}

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// CreateReportSubscriptionRequest is the admin payload for creating a
// subscription. Defaults mirror the UI: all sections on, top 10 leads.
type CreateReportSubscriptionRequest struct {
	RecipientEmail       string          `json:"recipient_email" binding:"required,email"`
	RecipientName        string          `json:"recipient_name"`
	Frequency            ReportFrequency `json:"frequency" binding:"required,oneof=daily weekly monthly"`
	DayOfWeek            *int            `json:"day_of_week"`
	DayOfMonth           *int            `json:"day_of_month"`
	TriggerHour          int             `json:"trigger_hour" binding:"min=0,max=23"`
	TriggerMinute        int             `json:"trigger_minute" binding:"min=0,max=59"`
	Timezone             string          `json:"timezone"`
	Enabled              *bool           `json:"enabled"`
	IncludeStats         *bool           `json:"include_stats"`
	IncludeNewLeads      *bool           `json:"include_new_leads"`
	IncludeEmailActivity *bool           `json:"include_email_activity"`
	IncludeTopLeads      *bool           `json:"include_top_leads"`
	TopLeadsCount        int             `json:"top_leads_count"`
}

// UpdateReportSubscriptionRequest carries partial updates; nil fields are
// left untouched.
type UpdateReportSubscriptionRequest struct {
	RecipientEmail       *string          `json:"recipient_email"`
	RecipientName        *string          `json:"recipient_name"`
	Frequency            *ReportFrequency `json:"frequency"`
	DayOfWeek            *int             `json:"day_of_week"`
	DayOfMonth           *int             `json:"day_of_month"`
	TriggerHour          *int             `json:"trigger_hour"`
	TriggerMinute        *int             `json:"trigger_minute"`
	Timezone             *string          `json:"timezone"`
	Enabled              *bool            `json:"enabled"`
	IncludeStats         *bool            `json:"include_stats"`
	IncludeNewLeads      *bool            `json:"include_new_leads"`
	IncludeEmailActivity *bool            `json:"include_email_activity"`
	IncludeTopLeads      *bool            `json:"include_top_leads"`
	TopLeadsCount        *int             `json:"top_leads_count"`
}
