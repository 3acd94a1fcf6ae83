package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"patrolcal/internal/agenda"
	"patrolcal/internal/config"
	"patrolcal/internal/model"
	"patrolcal/internal/refresh"
)

type stubSource struct {
	sessions []model.Session
	err      error
}

func (s *stubSource) FetchSessions(context.Context) ([]model.Session, error) {
	return s.sessions, s.err
}

func testSessions() []model.Session {
	phone := "0900000000"
	checkin := time.Date(2026, 2, 3, 22, 30, 0, 0, time.UTC)
	rssi := -70.0
	return []model.Session{
		{
			ID: 1, Name: "Morning", Status: "DONE",
			PlanStartTime:  time.Date(2026, 2, 3, 6, 0, 0, 0, time.UTC),
			PlanEndTime:    time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
			NumberOfPoints: 12,
		},
		{
			ID: 2, Name: "Night", Status: "PENDING",
			PlanStartTime:         time.Date(2026, 2, 3, 22, 0, 0, 0, time.UTC),
			PlanEndTime:           time.Date(2026, 2, 4, 2, 0, 0, 0, time.UTC),
			NumberOfPoints:        3,
			NumberOfCheckedPoints: 1,
			Employees:             []model.Employee{{ID: 9, Username: "guard9", Name: "Tran B", Phone: &phone}},
			PatrolLogs: []model.PatrolLog{{
				ID: 1, BeaconID: 5, IsChecked: true, CheckinTime: &checkin, RSSI: &rssi,
				Beacon: model.Beacon{ID: 5, Name: "North gate", FailedCount: 4},
			}},
		},
		{
			ID: 3, Name: "Blip",
			PlanStartTime: time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC),
			PlanEndTime:   time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC),
		},
	}
}

type env struct {
	srv    *Server
	source *stubSource
}

func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Locale = "en"
	if mutate != nil {
		mutate(cfg)
	}

	src := &stubSource{sessions: testSessions()}
	store := refresh.NewStore()
	r, err := refresh.NewRefresher(src, agenda.NewExpander(time.UTC, agenda.English), store, cfg.RefreshCron)
	require.NoError(t, err)
	require.NoError(t, r.Refresh(context.Background()))

	srv, err := NewServer(cfg, store, r)
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2026, 2, 3, 7, 30, 0, 0, time.UTC) }
	return &env{srv: srv, source: src}
}

func (e *env) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestAPIEvents(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, http.MethodGet, "/api/events?date=2026-02-03")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2026-02-03", resp.Date)
	require.Len(t, resp.Events, 3)

	// Session order is kept.
	require.Equal(t, "1_2026-02-03", resp.Events[0].ID)
	require.Equal(t, agenda.Box{Top: 360, Height: 180}, resp.Events[0].Box)
	require.True(t, resp.Events[0].Visible)

	require.Equal(t, "2_2026-02-03", resp.Events[1].ID)
	require.Equal(t, "22:00 - 23:59", resp.Events[1].LayoutTime)
	require.Equal(t, "03/02 22:00 - 04/02 02:00", resp.Events[1].DisplayTime)

	require.Equal(t, "3_2026-02-03", resp.Events[2].ID)
	require.False(t, resp.Events[2].Visible)
}

func TestAPIEvents_OrderByTime(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/events?date=2026-02-03&order=time")

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	ids := []string{}
	for _, ev := range resp.Events {
		ids = append(ids, ev.ID)
	}
	require.Equal(t, []string{"1_2026-02-03", "3_2026-02-03", "2_2026-02-03"}, ids)
}

func TestAPIEvents_DefaultsToToday(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/events")
	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2026-02-03", resp.Date)
}

func TestAPIEvents_BadDate(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/events?date=03-02-2026")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIEvents_UnsetHourHeight(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.HourHeight = 0 })
	rec := e.do(t, http.MethodGet, "/api/events?date=2026-02-03")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, agenda.DefaultHourHeight, resp.HourHeight)
	require.Equal(t, agenda.Box{Top: 360, Height: 180}, resp.Events[0].Box)
}

func TestAPIEvents_SkippedMidnightDate(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.Timezone = "America/Santiago" })
	rec := e.do(t, http.MethodGet, "/api/events?date=2026-09-06")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2026-09-06", resp.Date)

	rec = e.do(t, http.MethodGet, "/week?date=2026-09-06")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "31/08 - 06/09/2026")
}

func TestAPIDays(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, http.MethodGet, "/api/days")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp daysResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 4, resp.Total)
	require.Len(t, resp.Days, 2)
	require.Equal(t, "00:00 - 02:00", resp.Days["2026-02-04"][0].LayoutTime)
	require.Equal(t, "UTC", resp.Timezone)

	rec = e.do(t, http.MethodGet, "/api/days?from=2026-02-04")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)

	rec = e.do(t, http.MethodGet, "/api/days?to=bogus")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPISessionsAndRefresh(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, http.MethodGet, "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)

	e.source.sessions = e.source.sessions[:1]
	rec = e.do(t, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)

	e.source.err = errors.New("HTTP error! status: 500")
	rec = e.do(t, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/sessions")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.NotEmpty(t, resp.LastError)
}

func TestRefreshUnavailable(t *testing.T) {
	cfg := config.DefaultConfig()
	srv, err := NewServer(cfg, refresh.NewStore(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestICSFeed(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/calendar.ics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	require.Equal(t, 4, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
}

func TestBasicAuth(t *testing.T) {
	e := newEnv(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	})

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/sessions").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.SetBasicAuth("admin", "pw")
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDayView(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/day?date=2026-02-03")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `data-ready="true"`)
	require.Contains(t, body, `data-event="1_2026-02-03"`)
	require.Contains(t, body, "top: 364.5px; height: 171.0px")
	require.Contains(t, body, `data-event="2_2026-02-03"`)
	// Zero-length session is not drawn on the timeline.
	require.NotContains(t, body, `data-event="3_2026-02-03"`)
	// 07:30 now-line.
	require.Contains(t, body, `class="now" style="top: 450.0px"`)
}

func TestWeekView(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/week?date=2026-02-04")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Equal(t, 7, strings.Count(body, `<div class="col`))
	require.Contains(t, body, `data-event="2_2026-02-04"`)
	require.Contains(t, body, "02/02 - 08/02/2026")
}

func TestMonthView(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/month?date=2026-02-14")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Equal(t, agenda.MonthGridCells, strings.Count(body, "data-day="))
	require.Contains(t, body, "February 2026")
	require.Contains(t, body, `class="current today" data-day="2026-02-03"`)
}

func TestAgendaView(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/agenda?date=2026-02-04")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `data-day="2026-02-04"`)
	require.NotContains(t, body, `data-day="2026-02-03"`)

	rec = e.do(t, http.MethodGet, "/agenda?all=1")
	require.Contains(t, rec.Body.String(), `data-day="2026-02-03"`)
}

func TestSessionView(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/sessions/2")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "Tran B (guard9)")
	require.Contains(t, body, "0900000000")
	require.Contains(t, body, "North gate (ID: 5)")
	require.Contains(t, body, "03/02/2026 22:30")
	require.Contains(t, body, "RSSI -70")
	require.Contains(t, body, "/day?date=2026-02-04")

	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/sessions/99").Code)
	require.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/sessions/abc").Code)
}

func TestRootRedirects(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/agenda", rec.Header().Get("Location"))
}
