package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"patrolcal/internal/agenda"
	appLog "patrolcal/internal/log"
	"patrolcal/internal/model"
)

// pageFiles maps a page to its content template. Day and week share the
// timeline layout and differ only in column count.
var pageFiles = map[string]string{
	"agenda":  "agenda.html",
	"day":     "timeline.html",
	"week":    "timeline.html",
	"month":   "month.html",
	"session": "session.html",
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"px": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "px" },
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for name, file := range pageFiles {
		t, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS,
			"templates/base.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// pageData is shared by every view.
type pageData struct {
	Title   string
	Mode    string
	Date    string
	Prev    string
	Next    string
	Today   string
	Locale  agenda.Locale
	Updated time.Time
	Content any
}

// card is an event positioned on a timeline column.
type card struct {
	ID          string
	SessionID   int64
	Title       string
	Location    string
	DisplayTime string
	LayoutTime  string
	Top         float64
	Height      float64
}

type column struct {
	Key     string
	Label   string
	Day     int
	IsToday bool
	Cards   []card
	// NowTop is the current-time line offset, -1 when not today.
	NowTop float64
}

type timelineView struct {
	Hours      []string
	HourHeight float64
	Height     float64
	Columns    []column
}

type monthCell struct {
	Key     string
	Day     int
	Kind    agenda.CellKind
	IsToday bool
	Count   int
	Titles  []string
}

type monthView struct {
	Weekdays []string
	Cells    []monthCell
}

type agendaDay struct {
	Key    string
	Label  string
	Events []model.CalendarEvent
}

type checkRow struct {
	Index       int
	Beacon      string
	BeaconID    int64
	Checked     bool
	CheckinTime string
	FailedCount int
	Distance    string
	RSSI        string
}

type sessionView struct {
	Session     model.Session
	Events      []model.CalendarEvent
	PlanStart   string
	PlanEnd     string
	ActualStart string
	ActualEnd   string
	Checks      []checkRow
}

const detailLayout = "02/01/2006 15:04"

func formatOptional(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(detailLayout)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	data.Locale = s.locale
	data.Today = s.todayKey()
	data.Updated = s.store.Snapshot().UpdatedAt

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		appLog.Error("failed to render page", err, "page", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) dayLabel(d time.Time) string {
	return fmt.Sprintf("%s, %d %s", s.locale.DayNames[d.Weekday()], d.Day(), s.locale.MonthNames[d.Month()-1])
}

// column places the events of one day. Cards whose inset height is not
// positive are dropped.
func (s *Server) column(day time.Time, days agenda.DayMap) column {
	key := agenda.DayKeyOf(day)
	col := column{
		Key:     key,
		Label:   s.locale.DayNamesShort[day.Weekday()],
		Day:     day.Day(),
		IsToday: key == s.todayKey(),
		NowTop:  -1,
	}
	if col.IsToday {
		col.NowTop = s.timeline.Offset(s.now().In(s.loc).Format("15:04"))
	}
	for _, ev := range days.Events(key) {
		box, ok := s.timeline.Layout(ev.LayoutTime).Inset(agenda.DefaultCardPadding)
		if !ok {
			continue
		}
		col.Cards = append(col.Cards, card{
			ID:          ev.ID,
			SessionID:   ev.SessionID,
			Title:       ev.Title,
			Location:    ev.Location,
			DisplayTime: ev.DisplayTime,
			LayoutTime:  ev.LayoutTime,
			Top:         box.Top,
			Height:      box.Height,
		})
	}
	return col
}

func (s *Server) timelineView(cols []column) timelineView {
	hours := make([]string, 0, agenda.HoursPerDay)
	for h := 0; h < agenda.HoursPerDay; h++ {
		hours = append(hours, fmt.Sprintf("%02d:00", h))
	}
	return timelineView{
		Hours:      hours,
		HourHeight: s.timeline.Scale(),
		Height:     s.timeline.Height(),
		Columns:    cols,
	}
}

func (s *Server) handleDayView(w http.ResponseWriter, r *http.Request) {
	date, err := s.selectedDate(r)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	days := s.store.Snapshot().Days.SortChronological()

	s.render(w, "day", pageData{
		Title:   s.dayLabel(date),
		Mode:    "day",
		Date:    agenda.DayKeyOf(date),
		Prev:    agenda.DayKeyOf(date.AddDate(0, 0, -1)),
		Next:    agenda.DayKeyOf(date.AddDate(0, 0, 1)),
		Content: s.timelineView([]column{s.column(date, days)}),
	})
}

func (s *Server) handleWeekView(w http.ResponseWriter, r *http.Request) {
	date, err := s.selectedDate(r)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	days := s.store.Snapshot().Days.SortChronological()

	week := agenda.WeekDays(date, s.weekDay)
	cols := make([]column, 0, len(week))
	for _, d := range week {
		cols = append(cols, s.column(d, days))
	}

	first, last := week[0], week[len(week)-1]
	s.render(w, "week", pageData{
		Title:   first.Format("02/01") + " - " + last.Format("02/01/2006"),
		Mode:    "week",
		Date:    agenda.DayKeyOf(date),
		Prev:    agenda.DayKeyOf(date.AddDate(0, 0, -7)),
		Next:    agenda.DayKeyOf(date.AddDate(0, 0, 7)),
		Content: s.timelineView(cols),
	})
}

func (s *Server) handleMonthView(w http.ResponseWriter, r *http.Request) {
	date, err := s.selectedDate(r)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	days := s.store.Snapshot().Days
	today := s.todayKey()

	view := monthView{}
	for i := 0; i < 7; i++ {
		view.Weekdays = append(view.Weekdays, s.locale.DayNamesShort[(int(s.weekDay)+i)%7])
	}
	for _, c := range agenda.MonthGrid(date, s.weekDay, days) {
		mc := monthCell{Key: c.Key, Day: c.Day, Kind: c.Kind, IsToday: c.Key == today, Count: len(c.Events)}
		for _, ev := range c.Events {
			mc.Titles = append(mc.Titles, ev.Title)
		}
		view.Cells = append(view.Cells, mc)
	}

	monthStart := time.Date(date.Year(), date.Month(), 1, 12, 0, 0, 0, time.UTC)
	s.render(w, "month", pageData{
		Title:   s.locale.MonthNames[date.Month()-1] + " " + strconv.Itoa(date.Year()),
		Mode:    "month",
		Date:    agenda.DayKeyOf(date),
		Prev:    agenda.DayKeyOf(monthStart.AddDate(0, -1, 0)),
		Next:    agenda.DayKeyOf(monthStart.AddDate(0, 1, 0)),
		Content: view,
	})
}

// handleAgendaView lists every non-empty day from the selected date onward
// (or from ?from=, when given) in key order.
func (s *Server) handleAgendaView(w http.ResponseWriter, r *http.Request) {
	date, err := s.selectedDate(r)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	from := agenda.DayKeyOf(date)
	if r.URL.Query().Get("all") == "1" {
		from = ""
	}
	days := s.store.Snapshot().Days.Range(from, "")

	var list []agendaDay
	for _, key := range days.Keys() {
		d, err := agenda.ParseDayKey(key)
		if err != nil {
			continue
		}
		list = append(list, agendaDay{Key: key, Label: s.dayLabel(d), Events: days.Events(key)})
	}

	s.render(w, "agenda", pageData{
		Title:   s.locale.Today + " " + s.todayKey(),
		Mode:    "agenda",
		Date:    from,
		Content: list,
	})
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad session id", http.StatusBadRequest)
		return
	}
	snap := s.store.Snapshot()
	sess, ok := snap.Session(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var events []model.CalendarEvent
	for _, key := range snap.Days.Keys() {
		for _, ev := range snap.Days.Events(key) {
			if ev.SessionID == id {
				events = append(events, ev)
			}
		}
	}

	view := sessionView{
		Session:     sess,
		Events:      events,
		PlanStart:   sess.PlanStartTime.In(s.loc).Format(detailLayout),
		PlanEnd:     sess.PlanEndTime.In(s.loc).Format(detailLayout),
		ActualStart: formatOptional(sess.ActualStartTime, s.loc),
		ActualEnd:   formatOptional(sess.ActualEndTime, s.loc),
	}
	for _, l := range sess.PatrolLogs {
		view.Checks = append(view.Checks, checkRow{
			Index:       l.Index,
			Beacon:      l.Beacon.Name,
			BeaconID:    l.BeaconID,
			Checked:     l.IsChecked,
			CheckinTime: formatOptional(l.CheckinTime, s.loc),
			FailedCount: l.Beacon.FailedCount,
			Distance:    formatFloat(l.DistanceEstimated),
			RSSI:        formatFloat(l.RSSI),
		})
	}

	s.render(w, "session", pageData{
		Title:   sess.Name,
		Mode:    "session",
		Content: view,
	})
}
