package services

import (
	"leadcrm/internal/models"
	"testing"
	"time"
)

func TestPeriodBoundaries(t *testing.T) {
	t.Parallel()
	hcm, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	tests := []struct {
		name      string
		frequency models.ReportFrequency
		ref       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "daily covers the calendar day",
			frequency: models.ReportDaily,
			ref:       time.Date(2026, 3, 10, 8, 30, 0, 0, hcm),
			wantStart: time.Date(2026, 3, 10, 0, 0, 0, 0, hcm),
			wantEnd:   time.Date(2026, 3, 11, 0, 0, 0, 0, hcm).Add(-time.Nanosecond),
		},
		{
			name:      "weekly starts on Monday",
			frequency: models.ReportWeekly,
			ref:       time.Date(2026, 3, 12, 8, 30, 0, 0, hcm), // Thursday
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, hcm),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, hcm).Add(-time.Nanosecond),
		},
		{
			name:      "weekly on a Monday starts that day",
			frequency: models.ReportWeekly,
			ref:       time.Date(2026, 3, 9, 0, 0, 0, 0, hcm),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, hcm),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, hcm).Add(-time.Nanosecond),
		},
		{
			name:      "weekly on a Sunday reaches back six days",
			frequency: models.ReportWeekly,
			ref:       time.Date(2026, 3, 15, 23, 0, 0, 0, hcm),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, hcm),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, hcm).Add(-time.Nanosecond),
		},
		{
			name:      "monthly covers the calendar month",
			frequency: models.ReportMonthly,
			ref:       time.Date(2026, 2, 14, 12, 0, 0, 0, hcm),
			wantStart: time.Date(2026, 2, 1, 0, 0, 0, 0, hcm),
			wantEnd:   time.Date(2026, 3, 1, 0, 0, 0, 0, hcm).Add(-time.Nanosecond),
		},
		{
			name:      "monthly in December rolls into January",
			frequency: models.ReportMonthly,
			ref:       time.Date(2026, 12, 31, 23, 59, 0, 0, hcm),
			wantStart: time.Date(2026, 12, 1, 0, 0, 0, 0, hcm),
			wantEnd:   time.Date(2027, 1, 1, 0, 0, 0, 0, hcm).Add(-time.Nanosecond),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end := periodBoundaries(tt.frequency, tt.ref)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
		})
	}
}
