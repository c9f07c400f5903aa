package viewmodel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Fake repository ---------------------------------------------------------

// fakeRepo is an in-memory reminder repository. When errMsg is set reads fail
// with it; when saveErr is set writes fail.
type fakeRepo struct {
	mu        sync.Mutex
	reminders []model.Reminder
	errMsg    string
	saveErr   error
	saves     int
}

func (f *fakeRepo) GetReminders(_ context.Context) model.Result[[]model.Reminder] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errMsg != "" {
		return model.Failure[[]model.Reminder](f.errMsg, nil)
	}
	return model.Success(append([]model.Reminder{}, f.reminders...))
}

func (f *fakeRepo) SaveReminder(_ context.Context, r model.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	for i, existing := range f.reminders {
		if existing.ID == r.ID {
			f.reminders[i] = r
			return nil
		}
	}
	f.reminders = append(f.reminders, r)
	return nil
}

// --- Fake registrar ----------------------------------------------------------

type fakeRegistrar struct {
	mu         sync.Mutex
	registered map[string]geofence.Request
	err        error
	removed    []string
	restored   []string
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: make(map[string]geofence.Request)}
}

func (f *fakeRegistrar) Register(_ context.Context, req geofence.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered[req.ID] = req
	return nil
}

func (f *fakeRegistrar) Remove(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.registered, id)
		f.removed = append(f.removed, id)
	}
	return nil
}

func (f *fakeRegistrar) Lookup(_ context.Context, id string) (*geofence.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.registered[id]
	if !ok {
		return nil, nil
	}
	return &geofence.Registration{Request: req}, nil
}

func (f *fakeRegistrar) Restore(_ context.Context, reg geofence.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[reg.ID] = reg.Request
	f.restored = append(f.restored, reg.ID)
	return nil
}

var errTooMany = &geofence.Error{Code: geofence.CodeTooManyGeofences, Err: errors.New("limit of 100 reached")}

// --- Observation helpers -----------------------------------------------------

// recorder collects values delivered to an observer.
type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

func (r *recorder[T]) last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		var zero T
		return zero, false
	}
	return r.got[len(r.got)-1], true
}
