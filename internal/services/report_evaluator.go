package services

import (
	"leadcrm/internal/models"
	"time"
)

// Clock supplies the current wall-clock time. The scheduler resolves it into
// each subscription's timezone; tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// periodKey identifies one delivery cycle of a subscription. For daily
// subscriptions it is the calendar date, for weekly the date of the most
// recent occurrence of the configured weekday, for monthly the (year, month)
// pair. Two instants with the same key belong to the same cycle.
type periodKey struct {
	year  int
	month time.Month
	day   int
}

func (k periodKey) before(other periodKey) bool {
	if k.year != other.year {
		return k.year < other.year
	}
	if k.month != other.month {
		return k.month < other.month
	}
	return k.day < other.day
}

// subscriptionPeriodKey computes the period key for t, which must already be
// in the subscription's timezone.
func subscriptionPeriodKey(sub *models.ReportSubscription, t time.Time) periodKey {
	switch sub.Frequency {
	case models.ReportWeekly:
		// Walk back to the most recent occurrence of the configured
		// weekday (today counts if the weekdays match).
		target := 0
		if sub.DayOfWeek != nil {
			target = *sub.DayOfWeek
		}
		offset := (int(t.Weekday()) - target + 7) % 7
		d := t.AddDate(0, 0, -offset)
		return periodKey{year: d.Year(), month: d.Month(), day: d.Day()}
	case models.ReportMonthly:
		return periodKey{year: t.Year(), month: t.Month()}
	default:
		return periodKey{year: t.Year(), month: t.Month(), day: t.Day()}
	}
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// isDue reports whether now is the subscription's trigger moment: the local
// time-of-day matches to the minute, the day matches the frequency rule, and
// the subscription has not already been sent this period. now must be in the
// subscription's timezone.
//
// Monthly subscriptions targeting a day the month doesn't have (e.g. the
// 31st in February) fire on the month's last day instead, every such month.
func isDue(sub *models.ReportSubscription, now time.Time) bool {
	if !sub.Enabled {
		return false
	}

	if now.Hour() != sub.TriggerHour || now.Minute() != sub.TriggerMinute {
		return false
	}

	switch sub.Frequency {
	case models.ReportWeekly:
		if sub.DayOfWeek == nil || int(now.Weekday()) != *sub.DayOfWeek {
			return false
		}
	case models.ReportMonthly:
		if sub.DayOfMonth == nil {
			return false
		}
		target := *sub.DayOfMonth
		if last := daysInMonth(now.Year(), now.Month()); target > last {
			target = last
		}
		if now.Day() != target {
			return false
		}
	}

	// A null LastSentAt means the subscription has never fired; it becomes
	// due on the next matching tick, never retroactively.
	if sub.LastSentAt != nil {
		last := sub.LastSentAt.In(now.Location())
		if !subscriptionPeriodKey(sub, last).before(subscriptionPeriodKey(sub, now)) {
			return false
		}
	}

	return true
}
