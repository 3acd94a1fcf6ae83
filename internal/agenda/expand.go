package agenda

import (
	"strconv"
	"time"

	"patrolcal/internal/model"
)

const (
	clockLayout   = "15:04"
	displayLayout = "02/01 15:04"
	rangeSep      = " - "

	dayOpen  = "00:00"
	dayClose = "23:59"
)

// Expander projects sessions onto calendar days.
//
// All instants are converted into Location before dates and clock times are
// taken from them, so a session's day keys depend on the display timezone.
type Expander struct {
	// Location is the display timezone. If nil, time.Local is used.
	Location *time.Location
	Locale   Locale
}

// NewExpander builds an Expander for the given display zone and locale.
func NewExpander(loc *time.Location, locale Locale) Expander {
	return Expander{Location: loc, Locale: locale}
}

func (x Expander) location() *time.Location {
	if x.Location == nil {
		return time.Local
	}
	return x.Location
}

// Expand returns one CalendarEvent per calendar day touched by the session,
// first day first.
//
//   - The first day starts at the planned start clock time, later days at 00:00.
//   - The last day ends at the planned end clock time, earlier days at 23:59.
//   - DisplayTime and SpanTime are the same on every event of the session.
//
// An end before the start is not rejected: it yields a single event carrying
// the raw clock times.
func (x Expander) Expand(s model.Session) []model.CalendarEvent {
	loc := x.location()

	anchor := s.EffectiveStart().In(loc)
	planStart := s.PlanStartTime.In(loc)
	planEnd := s.PlanEndTime.In(loc)

	daysSpanned := DaysBetween(anchor, planEnd)
	if daysSpanned < 0 {
		daysSpanned = 0
	}

	startClock := planStart.Format(clockLayout)
	endClock := planEnd.Format(clockLayout)
	spanTime := startClock + rangeSep + endClock
	displayTime := planStart.Format(displayLayout) + rangeSep + planEnd.Format(displayLayout)
	location := x.summary(s)

	session := s
	days := DailyRun(anchor, daysSpanned+1)
	events := make([]model.CalendarEvent, 0, len(days))

	for i, day := range days {
		dayStart, dayEnd := startClock, endClock
		if i > 0 {
			dayStart = dayOpen
		}
		if i < daysSpanned {
			dayEnd = dayClose
		}

		key := DayKeyOf(day)
		events = append(events, model.CalendarEvent{
			ID:          EventID(s.ID, key),
			SessionID:   s.ID,
			DayKey:      key,
			LayoutTime:  dayStart + rangeSep + dayEnd,
			SpanTime:    spanTime,
			DisplayTime: displayTime,
			Title:       s.Name,
			Location:    location,
			Session:     &session,
		})
	}

	return events
}

// summary only reports the checkpoint count; zone fields are left out.
func (x Expander) summary(s model.Session) string {
	label := x.Locale.PointsLabel
	if label == "" {
		label = Vietnamese.PointsLabel
	}
	return label + ": " + strconv.Itoa(s.NumberOfPoints)
}

// EventID builds the per-day event identifier.
func EventID(sessionID int64, dayKey string) string {
	return strconv.FormatInt(sessionID, 10) + "_" + dayKey
}
