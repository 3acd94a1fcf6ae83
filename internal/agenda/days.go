package agenda

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "patrolcal/internal/log"
)

// DayKeyLayout is the ISO date form used for day buckets.
const DayKeyLayout = "2006-01-02"

// DayKeyOf formats t's calendar date in its own location.
func DayKeyOf(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD key into its civil date.
func ParseDayKey(key string) (time.Time, error) {
	d, err := time.Parse(DayKeyLayout, key)
	if err != nil {
		return time.Time{}, err
	}
	return CivilDate(d), nil
}

// CivilDate maps t's wall-clock date to noon UTC of the same date.
//
// Day arithmetic runs on these values rather than on midnights in the
// display zone, which do not exist on days whose clock change skips 00:00.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

// ClockOn returns the instant minutes past the start of day's date in loc.
func ClockOn(day time.Time, minutes int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, loc)
}

// DaysBetween counts calendar dates from a to b, ignoring time of day.
// Both values are compared by their own wall-clock date.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}

// DailyRun returns n consecutive civil dates starting at first's date.
func DailyRun(first time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	start := CivilDate(first)
	if n == 1 {
		return []time.Time{start}
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   n,
		Dtstart: start,
	})
	if err != nil {
		appLog.Error("agenda: daily rule rejected, stepping manually", err, "start", start, "count", n)
		return stepDays(start, n)
	}
	days := r.All()
	if len(days) != n {
		return stepDays(start, n)
	}
	return days
}

func stepDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}
