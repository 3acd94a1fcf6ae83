package agenda

import (
	"time"

	"patrolcal/internal/model"
)

// MonthGridCells is the fixed six-week month grid size.
const MonthGridCells = 42

// CellKind tells whether a grid cell belongs to the shown month.
type CellKind string

const (
	CellPrev    CellKind = "prev"
	CellCurrent CellKind = "current"
	CellNext    CellKind = "next"
)

// Cell is one day of the month grid.
type Cell struct {
	Date   time.Time
	Key    string
	Day    int
	Kind   CellKind
	Events []model.CalendarEvent
}

// WeekStart returns the civil date that opens the week containing date.
func WeekStart(date time.Time, first time.Weekday) time.Time {
	offset := (int(date.Weekday()) - int(first) + 7) % 7
	return CivilDate(date).AddDate(0, 0, -offset)
}

// WeekDays returns the seven days of the week containing date.
func WeekDays(date time.Time, first time.Weekday) []time.Time {
	return DailyRun(WeekStart(date, first), 7)
}

// MonthGrid lays out the month containing date as 42 cells, padded with the
// tail of the previous month and the head of the next. Only cells of the
// shown month carry events.
func MonthGrid(date time.Time, first time.Weekday, days DayMap) []Cell {
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	gridStart := WeekStart(monthStart, first)

	cells := make([]Cell, 0, MonthGridCells)
	for _, d := range DailyRun(gridStart, MonthGridCells) {
		c := Cell{Date: d, Key: DayKeyOf(d), Day: d.Day()}
		switch {
		case d.Before(monthStart):
			c.Kind = CellPrev
		case d.Month() != monthStart.Month():
			c.Kind = CellNext
		default:
			c.Kind = CellCurrent
			c.Events = days.Events(c.Key)
		}
		cells = append(cells, c)
	}
	return cells
}
