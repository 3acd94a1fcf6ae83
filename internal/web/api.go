package web

import (
	"net/http"
	"time"

	"patrolcal/internal/agenda"
	"patrolcal/internal/ics"
	appLog "patrolcal/internal/log"
	"patrolcal/internal/model"
)

// eventDTO is the JSON view of a CalendarEvent; the full session is left
// out and can be fetched from /api/sessions.
type eventDTO struct {
	ID          string     `json:"id"`
	SessionID   int64      `json:"session_id"`
	DayKey      string     `json:"day_key"`
	LayoutTime  string     `json:"layout_time"`
	SpanTime    string     `json:"span_time"`
	DisplayTime string     `json:"display_time"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Box         agenda.Box `json:"box"`
	// Visible is false when the inset card would have no height.
	Visible bool `json:"visible"`
}

type eventsResponse struct {
	Date       string     `json:"date"`
	HourHeight float64    `json:"hour_height"`
	Events     []eventDTO `json:"events"`
}

type daysResponse struct {
	Days      map[string][]eventDTO `json:"days"`
	Total     int                   `json:"total"`
	UpdatedAt time.Time             `json:"updated_at"`
	Timezone  string                `json:"timezone"`
	WeekStart string                `json:"week_start"`
}

type sessionsResponse struct {
	Data      []model.Session `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
	LastError string          `json:"last_error,omitempty"`
}

func (s *Server) toDTO(ev model.CalendarEvent) eventDTO {
	box := s.timeline.Layout(ev.LayoutTime)
	_, visible := box.Inset(agenda.DefaultCardPadding)
	return eventDTO{
		ID:          ev.ID,
		SessionID:   ev.SessionID,
		DayKey:      ev.DayKey,
		LayoutTime:  ev.LayoutTime,
		SpanTime:    ev.SpanTime,
		DisplayTime: ev.DisplayTime,
		Title:       ev.Title,
		Location:    ev.Location,
		Box:         box,
		Visible:     visible,
	}
}

func (s *Server) toDTOs(evs []model.CalendarEvent) []eventDTO {
	out := make([]eventDTO, 0, len(evs))
	for _, ev := range evs {
		out = append(out, s.toDTO(ev))
	}
	return out
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	resp := sessionsResponse{Data: snap.Sessions, UpdatedAt: snap.UpdatedAt}
	if resp.Data == nil {
		resp.Data = []model.Session{}
	}
	if snap.LastErr != nil {
		resp.LastError = snap.LastErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents returns one day bucket.
//
// GET /api/events?date=2026-02-03[&order=time]
//   - date:  day key, defaults to today in the configured timezone
//   - order: "time" sorts by layout start; default keeps session order
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	date, err := s.selectedDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	key := agenda.DayKeyOf(date)

	days := s.store.Snapshot().Days
	if r.URL.Query().Get("order") == "time" {
		days = agenda.DayMap{key: days.Events(key)}.SortChronological()
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Date:       key,
		HourHeight: s.timeline.Scale(),
		Events:     s.toDTOs(days.Events(key)),
	})
}

// handleDays returns the day-keyed map, optionally bounded.
//
// GET /api/days?from=2026-02-01&to=2026-02-28
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, k := range []string{from, to} {
		if k == "" {
			continue
		}
		if _, err := agenda.ParseDayKey(k); err != nil {
			writeError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
			return
		}
	}

	snap := s.store.Snapshot()
	days := snap.Days.Range(from, to)

	resp := daysResponse{
		Days:      make(map[string][]eventDTO, len(days)),
		Total:     days.Total(),
		UpdatedAt: snap.UpdatedAt,
		Timezone:  s.loc.String(),
		WeekStart: s.cfg.WeekStart,
	}
	for k, evs := range days {
		resp.Days[k] = s.toDTOs(evs)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not available")
		return
	}
	if err := s.refresher.Refresh(r.Context()); err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "failed to fetch patrol sessions")
		return
	}
	s.handleSessions(w, r)
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.store.Snapshot().Days, ics.ExportOptions{
		CalendarName: "Patrol sessions",
		Location:     s.loc,
		Now:          s.now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="patrols.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
