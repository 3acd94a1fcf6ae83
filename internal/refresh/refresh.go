package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"patrolcal/internal/agenda"
	appLog "patrolcal/internal/log"
	"patrolcal/internal/model"
)

// Source supplies the full session list.
type Source interface {
	FetchSessions(ctx context.Context) ([]model.Session, error)
}

// Snapshot is the result of the last successful refresh.
type Snapshot struct {
	Sessions  []model.Session
	Days      agenda.DayMap
	UpdatedAt time.Time
	// LastErr is the error of the most recent attempt, nil if it succeeded.
	LastErr error
}

// Session looks up a session by id.
func (s Snapshot) Session(id int64) (model.Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return model.Session{}, false
}

// Store keeps the latest Snapshot for concurrent readers.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{snap: Snapshot{Days: agenda.DayMap{}}}
}

// Snapshot returns the current state. Callers must not mutate it.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) set(sessions []model.Session, days agenda.DayMap, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Sessions: sessions, Days: days, UpdatedAt: at}
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastErr = err
}

// Refresher pulls sessions from a Source into a Store, once on demand and
// then on a cron schedule. A failed pull keeps the previous snapshot.
type Refresher struct {
	source   Source
	expander agenda.Expander
	store    *Store
	spec     string

	mu   sync.Mutex
	cron *cron.Cron
	done chan struct{}
}

// NewRefresher validates spec (standard 5-field cron) and wires the parts.
func NewRefresher(src Source, exp agenda.Expander, store *Store, spec string) (*Refresher, error) {
	if src == nil {
		return nil, errors.New("refresh: source is nil")
	}
	if store == nil {
		return nil, errors.New("refresh: store is nil")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, err
	}
	return &Refresher{source: src, expander: exp, store: store, spec: spec}, nil
}

// Refresh fetches once and replaces the snapshot on success.
func (r *Refresher) Refresh(ctx context.Context) error {
	started := time.Now()
	sessions, err := r.source.FetchSessions(ctx)
	if err != nil {
		r.store.fail(err)
		appLog.Error("refresh failed; keeping previous sessions", err)
		return err
	}

	days := agenda.Group(r.expander, sessions)
	r.store.set(sessions, days, time.Now())

	appLog.Info("refresh completed",
		"sessions", len(sessions),
		"days", len(days),
		"events", days.Total(),
		"took", time.Since(started),
	)
	return nil
}

// Start schedules Refresh. The schedule stops when ctx is canceled or Stop is
// called.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("refresh: already started")
	}

	var opts []cron.Option
	if r.expander.Location != nil {
		opts = append(opts, cron.WithLocation(r.expander.Location))
	}
	c := cron.New(opts...)
	if _, err := c.AddFunc(r.spec, func() {
		_ = r.Refresh(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	done := make(chan struct{})
	r.cron, r.done = c, done

	appLog.Info("refresh schedule started", "refresh", r.spec)

	go func() {
		select {
		case <-ctx.Done():
			r.halt(c)
		case <-done:
		}
	}()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	r.halt(nil)
}

// halt stops the current schedule. A non-nil only restricts it to that
// schedule, so a stale context cannot stop a later Start.
func (r *Refresher) halt(only *cron.Cron) {
	r.mu.Lock()
	c := r.cron
	if c == nil || (only != nil && c != only) {
		r.mu.Unlock()
		return
	}
	close(r.done)
	r.cron, r.done = nil, nil
	r.mu.Unlock()

	<-c.Stop().Done()
	appLog.Info("refresh schedule stopped")
}

func (r *Refresher) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cron != nil
}
