package models

import (
	"time"

	"gorm.io/datatypes"
)

// LeadStatus tracks where a lead sits in the sales pipeline
type LeadStatus string

const (
	LeadNew       LeadStatus = "New"
	LeadContacted LeadStatus = "Contacted"
	LeadQualified LeadStatus = "Qualified"
	LeadWon       LeadStatus = "Won"
	LeadLost      LeadStatus = "Lost"
)

// Lead represents a sales lead (an organisation plus its key contact)
type Lead struct {
	ID          string `gorm:"primaryKey;size:50" json:"id"`
	CompanyName string `gorm:"size:255;not null;index" json:"company_name"`
	Industry    string `gorm:"size:120;index" json:"industry"`
	Country     string `gorm:"size:120;index" json:"country"`
	City        string `gorm:"size:120" json:"city"`
	Website     string `gorm:"size:255" json:"website,omitempty"`

	KeyPersonName     string `gorm:"size:120" json:"key_person_name"`
	KeyPersonTitle    string `gorm:"size:120" json:"key_person_title,omitempty"`
	KeyPersonEmail    string `gorm:"size:255" json:"key_person_email,omitempty"`
	KeyPersonPhone    string `gorm:"size:60" json:"key_person_phone,omitempty"`
	KeyPersonLinkedin string `gorm:"size:255" json:"key_person_linkedin,omitempty"`

	SecondaryPersonName  string `gorm:"size:120" json:"secondary_person_name,omitempty"`
	SecondaryPersonTitle string `gorm:"size:120" json:"secondary_person_title,omitempty"`
	SecondaryPersonEmail string `gorm:"size:255" json:"secondary_person_email,omitempty"`

	TotalEvents       int    `gorm:"not null;default:0" json:"total_events"`
	VietnamEvents     int    `gorm:"not null;default:0" json:"vietnam_events"`
	NumberOfDelegates *int   `json:"number_of_delegates,omitempty"`
	PastEventsHistory string `gorm:"type:text" json:"past_events_history,omitempty"`
	Notes             string `gorm:"type:text" json:"notes,omitempty"`
	ResearchNotes     string `gorm:"type:text" json:"research_notes,omitempty"`

	Status        LeadStatus     `gorm:"size:20;not null;default:'New';index" json:"status"`
	LeadScore     *int           `gorm:"index" json:"lead_score,omitempty"`
	ScoreFactors  datatypes.JSON `json:"score_factors,omitempty"`
	LastContacted *time.Time     `json:"last_contacted,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// LeadWithEmailCount is a Lead joined with the number of emails sent to it
type LeadWithEmailCount struct {
	Lead
	EmailCount int `json:"email_count"`
}

// CreateLeadRequest is the payload for creating a lead
type CreateLeadRequest struct {
	CompanyName       string     `json:"company_name" binding:"required"`
	Industry          string     `json:"industry"`
	Country           string     `json:"country"`
	City              string     `json:"city"`
	Website           string     `json:"website"`
	KeyPersonName     string     `json:"key_person_name"`
	KeyPersonTitle    string     `json:"key_person_title"`
	KeyPersonEmail    string     `json:"key_person_email" binding:"omitempty,email"`
	KeyPersonPhone    string     `json:"key_person_phone"`
	KeyPersonLinkedin string     `json:"key_person_linkedin"`
	TotalEvents       int        `json:"total_events"`
	VietnamEvents     int        `json:"vietnam_events"`
	NumberOfDelegates *int       `json:"number_of_delegates"`
	PastEventsHistory string     `json:"past_events_history"`
	Notes             string     `json:"notes"`
	Status            LeadStatus `json:"status" binding:"omitempty,oneof=New Contacted Qualified Won Lost"`
}

// LeadStats is the summary returned by GET /api/leads/stats
type LeadStats struct {
	Total     int64            `json:"total"`
	New       int64            `json:"new"`
	Contacted int64            `json:"contacted"`
	Qualified int64            `json:"qualified"`
	Won       int64            `json:"won"`
	Lost      int64            `json:"lost"`
	ByCountry map[string]int64 `json:"by_country"`
}
