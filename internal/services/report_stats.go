package services

import (
	"fmt"
	"leadcrm/internal/database"
	"leadcrm/internal/models"
	"math"
	"time"

	"gorm.io/gorm"
)

// CountRow is a (label, count) pair from a GROUP BY query
type CountRow struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DayCount is the number of emails sent on one calendar day
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// TopLead is one row of the top-leads-by-score section
type TopLead struct {
	ID            string `json:"id"`
	CompanyName   string `json:"company_name"`
	LeadScore     int    `json:"lead_score"`
	Status        string `json:"status"`
	Country       string `json:"country"`
	Industry      string `json:"industry"`
	KeyPersonName string `json:"key_person_name"`
}

// ReportStats is everything a manager report can contain for one period
type ReportStats struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	PeriodType  models.ReportFrequency

	LeadsTotal     int64
	LeadsNew       int64
	LeadsContacted int64
	LeadsQualified int64
	NewInPeriod    int64
	ByStatus       []CountRow
	ByCountry      []CountRow
	ByIndustry     []CountRow

	EmailsSent           int64
	EmailsSentInPeriod   int64
	Replies              int64
	RepliesInPeriod      int64
	ReplyRate            float64
	UniqueLeadsContacted int64
	EmailsByDay          []DayCount

	TopLeads []TopLead
}

// ReportStatsService runs the aggregate queries behind manager reports
type ReportStatsService struct {
	db *gorm.DB
}

func NewReportStatsService() *ReportStatsService {
	return &ReportStatsService{db: database.GetDB()}
}

// periodBoundaries returns the start and end of the current reporting period
// for the given frequency: the calendar day, the Monday-to-Sunday week, or
// the calendar month containing ref.
func periodBoundaries(frequency models.ReportFrequency, ref time.Time) (time.Time, time.Time) {
	loc := ref.Location()
	switch frequency {
	case models.ReportWeekly:
		// ISO week: Monday is day one
		offset := (int(ref.Weekday()) + 6) % 7
		start := time.Date(ref.Year(), ref.Month(), ref.Day()-offset, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
		return start, end
	case models.ReportMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return start, end
	default:
		start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return start, end
	}
}

// GenerateStats builds the full statistics set for one reporting period.
// Any query failure fails the whole build; a report is never assembled from
// partial numbers.
func (s *ReportStatsService) GenerateStats(start, end time.Time, periodType models.ReportFrequency, topLeadsCount int) (*ReportStats, error) {
	stats := &ReportStats{
		PeriodStart: start,
		PeriodEnd:   end,
		PeriodType:  periodType,
	}

	leadCounts := []struct {
		Status string
		Target *int64
	}{
		{string(models.LeadNew), &stats.LeadsNew},
		{string(models.LeadContacted), &stats.LeadsContacted},
		{string(models.LeadQualified), &stats.LeadsQualified},
	}

	if err := s.db.Model(&models.Lead{}).Count(&stats.LeadsTotal).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	for _, lc := range leadCounts {
		if err := s.db.Model(&models.Lead{}).Where("status = ?", lc.Status).Count(lc.Target).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s leads: %w", lc.Status, err)
		}
	}
	if err := s.db.Model(&models.Lead{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&stats.NewInPeriod).Error; err != nil {
		return nil, fmt.Errorf("failed to count new leads in period: %w", err)
	}

	if err := s.db.Model(&models.Lead{}).
		Select("status as label, count(*) as count").
		Group("status").Order("count DESC").
		Scan(&stats.ByStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group leads by status: %w", err)
	}
	if err := s.db.Model(&models.Lead{}).
		Select("coalesce(nullif(country, ''), 'Unknown') as label, count(*) as count").
		Group("label").Order("count DESC").Limit(10).
		Scan(&stats.ByCountry).Error; err != nil {
		return nil, fmt.Errorf("failed to group leads by country: %w", err)
	}
	if err := s.db.Model(&models.Lead{}).
		Select("coalesce(nullif(industry, ''), 'Unknown') as label, count(*) as count").
		Group("label").Order("count DESC").Limit(10).
		Scan(&stats.ByIndustry).Error; err != nil {
		return nil, fmt.Errorf("failed to group leads by industry: %w", err)
	}

	if err := s.db.Model(&models.EmailLog{}).
		Where("status = ?", models.EmailSent).
		Count(&stats.EmailsSent).Error; err != nil {
		return nil, fmt.Errorf("failed to count sent emails: %w", err)
	}
	if err := s.db.Model(&models.EmailLog{}).
		Where("status = ? AND date BETWEEN ? AND ?", models.EmailSent, start, end).
		Count(&stats.EmailsSentInPeriod).Error; err != nil {
		return nil, fmt.Errorf("failed to count sent emails in period: %w", err)
	}
	if err := s.db.Model(&models.EmailReply{}).Count(&stats.Replies).Error; err != nil {
		return nil, fmt.Errorf("failed to count replies: %w", err)
	}
	if err := s.db.Model(&models.EmailReply{}).
		Where("reply_date BETWEEN ? AND ?", start, end).
		Count(&stats.RepliesInPeriod).Error; err != nil {
		return nil, fmt.Errorf("failed to count replies in period: %w", err)
	}
	if err := s.db.Model(&models.EmailLog{}).
		Where("status = ?", models.EmailSent).
		Distinct("lead_id").
		Count(&stats.UniqueLeadsContacted).Error; err != nil {
		return nil, fmt.Errorf("failed to count contacted leads: %w", err)
	}

	if stats.EmailsSent > 0 {
		rate := float64(stats.Replies) / float64(stats.EmailsSent) * 100
		stats.ReplyRate = math.Round(rate*10) / 10
	}

	if err := s.db.Model(&models.EmailLog{}).
		Select("to_char(date, 'YYYY-MM-DD') as day, count(*) as count").
		Where("status = ? AND date BETWEEN ? AND ?", models.EmailSent, start, end).
		Group("day").Order("day").
		Scan(&stats.EmailsByDay).Error; err != nil {
		return nil, fmt.Errorf("failed to count emails by day: %w", err)
	}

	var topRows []models.Lead
	if err := s.db.Model(&models.Lead{}).
		Where("lead_score IS NOT NULL").
		Order("lead_score DESC").Limit(topLeadsCount).
		Find(&topRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load top leads: %w", err)
	}
	for _, lead := range topRows {
		score := 0
		if lead.LeadScore != nil {
			score = *lead.LeadScore
		}
		stats.TopLeads = append(stats.TopLeads, TopLead{
			ID:            lead.ID,
			CompanyName:   lead.CompanyName,
			LeadScore:     score,
			Status:        string(lead.Status),
			Country:       lead.Country,
			Industry:      lead.Industry,
			KeyPersonName: lead.KeyPersonName,
		})
	}

	return stats, nil
}
