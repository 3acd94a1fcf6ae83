package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"patrolcal/internal/agenda"
	"patrolcal/internal/model"
)

type fakeSource struct {
	calls    atomic.Int32
	sessions []model.Session
	err      error
}

func (f *fakeSource) FetchSessions(context.Context) ([]model.Session, error) {
	f.calls.Add(1)
	return f.sessions, f.err
}

func newSession(id int64) model.Session {
	start := time.Date(2026, 2, 3, 22, 0, 0, 0, time.UTC)
	return model.Session{ID: id, Name: "night", PlanStartTime: start, PlanEndTime: start.Add(4 * time.Hour)}
}

func TestRefresh_ReplacesSnapshot(t *testing.T) {
	src := &fakeSource{sessions: []model.Session{newSession(1)}}
	store := NewStore()
	r, err := NewRefresher(src, agenda.NewExpander(time.UTC, agenda.Vietnamese), store, "*/5 * * * *")
	require.NoError(t, err)

	require.NoError(t, r.Refresh(context.Background()))

	snap := store.Snapshot()
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, 2, snap.Days.Total())
	require.Len(t, snap.Days.Events("2026-02-04"), 1)
	require.False(t, snap.UpdatedAt.IsZero())
	require.NoError(t, snap.LastErr)

	s, ok := snap.Session(1)
	require.True(t, ok)
	require.Equal(t, "night", s.Name)
	_, ok = snap.Session(2)
	require.False(t, ok)
}

func TestRefresh_FailureKeepsPrevious(t *testing.T) {
	src := &fakeSource{sessions: []model.Session{newSession(1)}}
	store := NewStore()
	r, err := NewRefresher(src, agenda.NewExpander(time.UTC, agenda.Vietnamese), store, "@hourly")
	require.NoError(t, err)
	require.NoError(t, r.Refresh(context.Background()))

	src.err = errors.New("connection refused")
	require.Error(t, r.Refresh(context.Background()))

	snap := store.Snapshot()
	require.Len(t, snap.Sessions, 1)
	require.EqualError(t, snap.LastErr, "connection refused")
}

func TestNewRefresher_Validation(t *testing.T) {
	exp := agenda.NewExpander(time.UTC, agenda.Vietnamese)
	_, err := NewRefresher(&fakeSource{}, exp, NewStore(), "every now and then")
	require.Error(t, err)
	_, err = NewRefresher(nil, exp, NewStore(), "@hourly")
	require.Error(t, err)
	_, err = NewRefresher(&fakeSource{}, exp, nil, "@hourly")
	require.Error(t, err)
}

func TestStartStop(t *testing.T) {
	src := &fakeSource{}
	r, err := NewRefresher(src, agenda.NewExpander(time.UTC, agenda.Vietnamese), NewStore(), "@hourly")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Start(ctx))
	require.Error(t, r.Start(ctx))
	r.Stop()
	r.Stop()
	require.False(t, r.running())
	require.Zero(t, src.calls.Load())
}

func TestRestartAfterStop(t *testing.T) {
	r, err := NewRefresher(&fakeSource{}, agenda.NewExpander(time.UTC, agenda.Vietnamese), NewStore(), "@hourly")
	require.NoError(t, err)

	first, cancelFirst := context.WithCancel(context.Background())
	require.NoError(t, r.Start(first))
	r.Stop()

	second, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()
	require.NoError(t, r.Start(second))

	// The first schedule's context no longer controls anything.
	cancelFirst()
	require.Never(t, func() bool { return !r.running() }, 100*time.Millisecond, 10*time.Millisecond)

	cancelSecond()
	require.Eventually(t, func() bool { return !r.running() }, time.Second, 10*time.Millisecond)
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}

func TestNewStoreEmpty(t *testing.T) {
	snap := NewStore().Snapshot()
	require.NotNil(t, snap.Days)
	require.Empty(t, snap.Sessions)
}
