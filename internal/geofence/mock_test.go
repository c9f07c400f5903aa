package geofence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/notify"
	"github.com/njoerd114/placereminder/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.Open(filepath.Join(t.TempDir(), "geofence.db"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestRegistry returns a registry whose clock is controlled by the caller.
func newTestRegistry(t *testing.T, limit int) (*Registry, *time.Time) {
	t.Helper()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(openTestStore(t), limit, discardLogger())
	r.now = func() time.Time { return now }
	return r, &now
}

// --- Fake reminder source ----------------------------------------------------

type fakeReminders struct {
	mu      sync.Mutex
	byID    map[string]model.Reminder
	err     string
	lookups []string
	ctxErrs []error
	block   chan struct{}
}

func newFakeReminders(rs ...model.Reminder) *fakeReminders {
	f := &fakeReminders{byID: make(map[string]model.Reminder)}
	for _, r := range rs {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeReminders) GetReminder(ctx context.Context, id string) model.Result[model.Reminder] {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, id)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())

	if f.err != "" {
		return model.Failure[model.Reminder](f.err, nil)
	}
	r, ok := f.byID[id]
	if !ok {
		return model.Failure[model.Reminder](model.MsgReminderNotFound, nil)
	}
	return model.Success(r)
}

// --- Fake dispatcher ---------------------------------------------------------

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail map[string]bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[n.ReminderID] {
		return errors.New("push gateway unavailable")
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeDispatcher) ids() map[string]notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]notify.Notification, len(f.sent))
	for _, n := range f.sent {
		out[n.ReminderID] = n
	}
	return out
}

// --- Failing store -----------------------------------------------------------

type brokenStore struct{}

var errDisk = errors.New("disk I/O error")

func (brokenStore) UpsertGeofence(context.Context, *state.Geofence) error { return errDisk }
func (brokenStore) GetGeofences(context.Context) ([]*state.Geofence, error) {
	return nil, errDisk
}
func (brokenStore) GetGeofenceByID(context.Context, string) (*state.Geofence, error) {
	return nil, errDisk
}
func (brokenStore) DeleteGeofences(context.Context, ...string) error { return errDisk }
func (brokenStore) DeleteAllGeofences(context.Context) error { return errDisk }
func (brokenStore) DeleteExpiredGeofences(context.Context, time.Time) (int64, error) {
	return 0, errDisk
}
