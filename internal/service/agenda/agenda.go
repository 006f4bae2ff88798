// Package agenda answers the read-only "what is coming up" questions over a
// snapshot of appointments.
package agenda

import (
	"time"

	"github.com/sbrito346/school-project/internal/domain"
)

// DefaultLookahead is how far ahead Upcoming looks when no window is configured.
const DefaultLookahead = 15 * time.Minute

// Upcoming returns every appointment of every customer whose start falls in
// [now, now+lookahead], in customer then list order. A non-positive lookahead
// uses DefaultLookahead.
func Upcoming(customers []domain.Customer, now time.Time, lookahead time.Duration) []domain.Appointment {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	until := now.Add(lookahead)

	var out []domain.Appointment
	for _, c := range customers {
		for _, a := range c.Appointments {
			if a.Start.Before(now) || a.Start.After(until) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

// ForUser keeps the appointments assigned to userID.
func ForUser(appts []domain.Appointment, userID int64) []domain.Appointment {
	var out []domain.Appointment
	for _, a := range appts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// InWeekOf keeps appointments starting in the same ISO week as now, judged in loc.
func InWeekOf(appts []domain.Appointment, now time.Time, loc *time.Location) []domain.Appointment {
	year, week := now.In(loc).ISOWeek()
	var out []domain.Appointment
	for _, a := range appts {
		y, w := a.Start.In(loc).ISOWeek()
		if y == year && w == week {
			out = append(out, a)
		}
	}
	return out
}

// InMonthOf keeps appointments starting in the same calendar month as now, judged in loc.
func InMonthOf(appts []domain.Appointment, now time.Time, loc *time.Location) []domain.Appointment {
	ref := now.In(loc)
	var out []domain.Appointment
	for _, a := range appts {
		s := a.Start.In(loc)
		if s.Year() == ref.Year() && s.Month() == ref.Month() {
			out = append(out, a)
		}
	}
	return out
}
