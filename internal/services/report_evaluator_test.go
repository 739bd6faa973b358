package services

import (
	"leadcrm/internal/models"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func dailySub(hour, minute int) *models.ReportSubscription {
	return &models.ReportSubscription{
		ID:             "sub-daily",
		RecipientEmail: "manager@example.com",
		Frequency:      models.ReportDaily,
		TriggerHour:    hour,
		TriggerMinute:  minute,
		Timezone:       "Asia/Ho_Chi_Minh",
		Enabled:        true,
	}
}

func TestIsDueDaily(t *testing.T) {
	t.Parallel()
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")

	tests := []struct {
		name     string
		now      time.Time
		lastSent *time.Time
		want     bool
	}{
		{
			name: "fires at exact minute",
			now:  time.Date(2026, 3, 10, 8, 30, 0, 0, hcm),
			want: true,
		},
		{
			name: "wrong minute",
			now:  time.Date(2026, 3, 10, 8, 31, 0, 0, hcm),
			want: false,
		},
		{
			name: "wrong hour",
			now:  time.Date(2026, 3, 10, 9, 30, 0, 0, hcm),
			want: false,
		},
		{
			name:     "already sent today",
			now:      time.Date(2026, 3, 10, 8, 30, 0, 0, hcm),
			lastSent: timePtr(time.Date(2026, 3, 10, 8, 30, 5, 0, hcm)),
			want:     false,
		},
		{
			name:     "sent yesterday fires again",
			now:      time.Date(2026, 3, 10, 8, 30, 0, 0, hcm),
			lastSent: timePtr(time.Date(2026, 3, 9, 8, 30, 5, 0, hcm)),
			want:     true,
		},
		{
			name: "sent earlier today in UTC same local day",
			now:  time.Date(2026, 3, 10, 8, 30, 0, 0, hcm),
			// 01:30 UTC on March 10 is 08:30 the same day in Ho Chi Minh.
			lastSent: timePtr(time.Date(2026, 3, 10, 1, 30, 5, 0, time.UTC)),
			want:     false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sub := dailySub(8, 30)
			sub.LastSentAt = tt.lastSent
			if got := isDue(sub, tt.now); got != tt.want {
				t.Errorf("isDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDueDisabled(t *testing.T) {
	t.Parallel()
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")
	sub := dailySub(8, 30)
	sub.Enabled = false
	if isDue(sub, time.Date(2026, 3, 10, 8, 30, 0, 0, hcm)) {
		t.Error("disabled subscription must never be due")
	}
}

func TestIsDueWeekly(t *testing.T) {
	t.Parallel()
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")

	weeklySub := func(dow int) *models.ReportSubscription {
		return &models.ReportSubscription{
			ID:             "sub-weekly",
			RecipientEmail: "manager@example.com",
			Frequency:      models.ReportWeekly,
			DayOfWeek:      intPtr(dow),
			TriggerHour:    9,
			TriggerMinute:  0,
			Timezone:       "Asia/Ho_Chi_Minh",
			Enabled:        true,
		}
	}

	// 2026-03-09 is a Monday.
	monday := time.Date(2026, 3, 9, 9, 0, 0, 0, hcm)

	tests := []struct {
		name     string
		sub      *models.ReportSubscription
		now      time.Time
		lastSent *time.Time
		want     bool
	}{
		{
			name: "fires on configured weekday",
			sub:  weeklySub(1),
			now:  monday,
			want: true,
		},
		{
			name: "wrong weekday",
			sub:  weeklySub(1),
			now:  monday.AddDate(0, 0, 1),
			want: false,
		},
		{
			name:     "already sent this week",
			sub:      weeklySub(1),
			now:      monday,
			lastSent: timePtr(monday.Add(-time.Hour)), // earlier the same Monday
			want:     false,
		},
		{
			name:     "sent mid previous week fires again",
			sub:      weeklySub(1),
			now:      monday,
			lastSent: timePtr(monday.AddDate(0, 0, -3)), // Friday of the previous week
			want:     true,
		},
		{
			name:     "sent last week fires again",
			sub:      weeklySub(1),
			now:      monday,
			lastSent: timePtr(monday.AddDate(0, 0, -7)),
			want:     true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.sub.LastSentAt = tt.lastSent
			if got := isDue(tt.sub, tt.now); got != tt.want {
				t.Errorf("isDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDueMonthlyClamped(t *testing.T) {
	t.Parallel()
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")

	monthlySub := func(dom int) *models.ReportSubscription {
		return &models.ReportSubscription{
			ID:             "sub-monthly",
			RecipientEmail: "manager@example.com",
			Frequency:      models.ReportMonthly,
			DayOfMonth:     intPtr(dom),
			TriggerHour:    7,
			TriggerMinute:  0,
			Timezone:       "Asia/Ho_Chi_Minh",
			Enabled:        true,
		}
	}

	tests := []struct {
		name     string
		sub      *models.ReportSubscription
		now      time.Time
		lastSent *time.Time
		want     bool
	}{
		{
			name: "fires on configured day",
			sub:  monthlySub(15),
			now:  time.Date(2026, 4, 15, 7, 0, 0, 0, hcm),
			want: true,
		},
		{
			name: "day 31 clamps to Feb 28",
			sub:  monthlySub(31),
			now:  time.Date(2026, 2, 28, 7, 0, 0, 0, hcm),
			want: true,
		},
		{
			name: "day 31 clamps to Feb 29 on leap year",
			sub:  monthlySub(31),
			now:  time.Date(2028, 2, 29, 7, 0, 0, 0, hcm),
			want: true,
		},
		{
			name: "no fire on Feb 28 in leap year when clamped to 29",
			sub:  monthlySub(31),
			now:  time.Date(2028, 2, 28, 7, 0, 0, 0, hcm),
			want: false,
		},
		{
			name: "day 31 fires on actual 31st",
			sub:  monthlySub(31),
			now:  time.Date(2026, 3, 31, 7, 0, 0, 0, hcm),
			want: true,
		},
		{
			name:     "already sent this month",
			sub:      monthlySub(15),
			now:      time.Date(2026, 4, 15, 7, 0, 0, 0, hcm),
			lastSent: timePtr(time.Date(2026, 4, 1, 7, 0, 0, 0, hcm)),
			want:     false,
		},
		{
			name:     "sent last month fires again",
			sub:      monthlySub(15),
			now:      time.Date(2026, 4, 15, 7, 0, 0, 0, hcm),
			lastSent: timePtr(time.Date(2026, 3, 15, 7, 0, 0, 0, hcm)),
			want:     true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.sub.LastSentAt = tt.lastSent
			if got := isDue(tt.sub, tt.now); got != tt.want {
				t.Errorf("isDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscriptionPeriodKeyWeekly(t *testing.T) {
	t.Parallel()

	sub := &models.ReportSubscription{
		Frequency: models.ReportWeekly,
		DayOfWeek: intPtr(1), // Monday
	}

	// Wednesday 2026-03-11 maps back to Monday 2026-03-09.
	wednesday := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	got := subscriptionPeriodKey(sub, wednesday)
	want := periodKey{year: 2026, month: time.March, day: 9}
	if got != want {
		t.Errorf("subscriptionPeriodKey() = %+v, want %+v", got, want)
	}

	// Monday itself counts as its own period start.
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := subscriptionPeriodKey(sub, monday); got != want {
		t.Errorf("subscriptionPeriodKey(monday) = %+v, want %+v", got, want)
	}

	// Sunday before belongs to the previous week.
	sunday := time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC)
	prev := periodKey{year: 2026, month: time.March, day: 2}
	if got := subscriptionPeriodKey(sub, sunday); got != prev {
		t.Errorf("subscriptionPeriodKey(sunday) = %+v, want %+v", got, prev)
	}
}

func TestDaysInMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2026, time.February, 28},
		{2028, time.February, 29},
		{2026, time.April, 30},
		{2026, time.December, 31},
		{2000, time.February, 29},
		{1900, time.February, 28},
	}
	for _, tt := range tests {
		if got := daysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("daysInMonth(%d, %v) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}
