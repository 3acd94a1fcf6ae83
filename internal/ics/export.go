package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"patrolcal/internal/agenda"
	appLog "patrolcal/internal/log"
	"patrolcal/internal/model"
)

const productID = "-//patrolcal//patrol sessions//EN"

// uidNamespace scopes the name-based UUIDs derived from event ids.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("patrolcal:event"))

// ExportOptions controls calendar-level metadata.
type ExportOptions struct {
	// CalendarName is written as X-WR-CALNAME when set.
	CalendarName string
	// Location is the zone day keys and layout clock times refer to.
	// If nil, time.Local is used.
	Location *time.Location
	// Now stamps DTSTAMP. If zero, time.Now is used.
	Now time.Time
}

// EventUID derives a stable iCalendar UID from a per-day event id.
func EventUID(eventID string) string {
	return uuid.NewSHA1(uidNamespace, []byte(eventID)).String() + "@patrolcal"
}

// Export renders every event of days as a VEVENT, in day-key order. Each
// VEVENT covers the event's layout slice of its day, not the full session.
func Export(days agenda.DayMap, opts ExportOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	count := 0
	for _, key := range days.Keys() {
		day, err := agenda.ParseDayKey(key)
		if err != nil {
			appLog.Error("ics export: skipping bad day key", err, "key", key)
			continue
		}
		for _, ev := range days.Events(key) {
			addEvent(cal, ev, day, loc, now)
			count++
		}
	}

	appLog.Debug("ics export completed", "days", len(days), "events", count)
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, ev model.CalendarEvent, day time.Time, loc *time.Location, now time.Time) {
	startClock, endClock := agenda.SplitRange(ev.LayoutTime)
	start := agenda.ClockOn(day, agenda.ParseMinutes(startClock), loc)
	end := agenda.ClockOn(day, agenda.ParseMinutes(endClock), loc)
	if end.Before(start) {
		end = start
	}

	vev := cal.AddEvent(EventUID(ev.ID))
	vev.SetDtStampTime(now)
	vev.SetStartAt(start)
	vev.SetEndAt(end)
	vev.SetSummary(ev.Title)
	vev.SetLocation(ev.Location)
	vev.SetDescription(describe(ev))
	if ev.Session != nil && ev.Session.Status != "" {
		vev.SetProperty(ical.ComponentPropertyCategories, ev.Session.Status)
	}
}

func describe(ev model.CalendarEvent) string {
	var b strings.Builder
	b.WriteString(ev.DisplayTime)

	s := ev.Session
	if s == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "\nCheckpoints: %d/%d", s.NumberOfCheckedPoints, s.NumberOfPoints)
	for _, e := range s.Employees {
		fmt.Fprintf(&b, "\nStaff: %s (%s)", e.Name, e.Username)
	}
	if s.Comments != "" {
		b.WriteString("\n")
		b.WriteString(s.Comments)
	}
	return b.String()
}
