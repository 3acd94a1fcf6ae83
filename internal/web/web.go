package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"patrolcal/internal/agenda"
	"patrolcal/internal/config"
	appLog "patrolcal/internal/log"
	"patrolcal/internal/refresh"
)

// Refresher triggers an out-of-schedule session fetch.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Server serves the JSON API, the ICS feed and the four calendar views, all
// from the Store's current snapshot.
type Server struct {
	cfg       *config.Config
	store     *refresh.Store
	refresher Refresher

	loc      *time.Location
	locale   agenda.Locale
	timeline agenda.Timeline
	weekDay  time.Weekday

	mux   *http.ServeMux
	pages map[string]*template.Template

	// now is swapped in tests.
	now func() time.Time
}

//go:embed templates/*.html
var templateFS embed.FS

// NewServer constructs a new Server. refresher may be nil, in which case
// POST /api/refresh answers 503.
func NewServer(cfg *config.Config, store *refresh.Store, refresher Refresher) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("web: config is nil")
	}
	if store == nil {
		return nil, errors.New("web: store is nil")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		refresher: refresher,
		loc:       cfg.Location(),
		locale:    agenda.LocaleByName(cfg.Locale),
		timeline:  agenda.Timeline{HourHeight: cfg.HourHeight},
		weekDay:   cfg.FirstWeekday(),
		mux:       http.NewServeMux(),
		pages:     pages,
		now:       time.Now,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)

	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/agenda", http.StatusFound)
	})
	s.mux.HandleFunc("GET /agenda", s.handleAgendaView)
	s.mux.HandleFunc("GET /day", s.handleDayView)
	s.mux.HandleFunc("GET /week", s.handleWeekView)
	s.mux.HandleFunc("GET /month", s.handleMonthView)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleSessionView)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="PatrolCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// selectedDate reads ?date=YYYY-MM-DD, defaulting to today in the display zone.
func (s *Server) selectedDate(r *http.Request) (time.Time, error) {
	if key := r.URL.Query().Get("date"); key != "" {
		return agenda.ParseDayKey(key)
	}
	return agenda.CivilDate(s.now().In(s.loc)), nil
}

func (s *Server) todayKey() string {
	return agenda.DayKeyOf(s.now().In(s.loc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
