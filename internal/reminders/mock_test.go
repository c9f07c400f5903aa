package reminders

import (
	"context"
	"errors"
	"sync"

	"github.com/njoerd114/placereminder/internal/state"
)

// --- Fake data source --------------------------------------------------------

// fakeDataSource keeps rows in memory. When err is set every call fails with
// it, which lets tests drive the failure paths.
type fakeDataSource struct {
	mu    sync.Mutex
	rows  []*state.Reminder
	err   error
	calls int
}

func newFakeDataSource(rows ...*state.Reminder) *fakeDataSource {
	return &fakeDataSource{rows: rows}
}

func (f *fakeDataSource) setError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = errors.New(msg)
}

func (f *fakeDataSource) GetReminders(_ context.Context) ([]*state.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*state.Reminder, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeDataSource) GetReminderByID(_ context.Context, id string) (*state.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDataSource) SaveReminder(_ context.Context, r *state.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	for i, existing := range f.rows {
		if existing.ID == r.ID {
			f.rows[i] = r
			return nil
		}
	}
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeDataSource) DeleteAllReminders(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.rows = nil
	return nil
}
