package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Fake repository ---------------------------------------------------------

type fakeRepo struct {
	mu      sync.Mutex
	byID    map[string]model.Reminder
	order   []string
	errMsg  string
	saveErr error
	delErr  error
}

func newFakeRepo(rs ...model.Reminder) *fakeRepo {
	f := &fakeRepo{byID: make(map[string]model.Reminder)}
	for _, r := range rs {
		_ = f.SaveReminder(context.Background(), r)
	}
	return f
}

func (f *fakeRepo) GetReminders(_ context.Context) model.Result[[]model.Reminder] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errMsg != "" {
		return model.Failure[[]model.Reminder](f.errMsg, nil)
	}
	out := make([]model.Reminder, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return model.Success(out)
}

func (f *fakeRepo) GetReminder(_ context.Context, id string) model.Result[model.Reminder] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errMsg != "" {
		return model.Failure[model.Reminder](f.errMsg, nil)
	}
	r, ok := f.byID[id]
	if !ok {
		return model.Failure[model.Reminder](model.MsgReminderNotFound, nil)
	}
	return model.Success(r)
}

func (f *fakeRepo) SaveReminder(_ context.Context, r model.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.byID[r.ID]; !ok {
		f.order = append(f.order, r.ID)
	}
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRepo) DeleteAllReminders(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.byID = make(map[string]model.Reminder)
	f.order = nil
	return nil
}

// --- Fake geofences ----------------------------------------------------------

type fakeGeofences struct {
	mu         sync.Mutex
	registered map[string]geofence.Request
	err        error
	removedAll bool
}

func newFakeGeofences() *fakeGeofences {
	return &fakeGeofences{registered: make(map[string]geofence.Request)}
}

func (f *fakeGeofences) Register(_ context.Context, req geofence.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered[req.ID] = req
	return nil
}

func (f *fakeGeofences) Remove(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.registered, id)
	}
	return nil
}

func (f *fakeGeofences) Lookup(_ context.Context, id string) (*geofence.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.registered[id]
	if !ok {
		return nil, nil
	}
	return &geofence.Registration{Request: req}, nil
}

func (f *fakeGeofences) Restore(_ context.Context, reg geofence.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[reg.ID] = reg.Request
	return nil
}

func (f *fakeGeofences) RemoveAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered = make(map[string]geofence.Request)
	f.removedAll = true
	return nil
}

func (f *fakeGeofences) List(_ context.Context) ([]geofence.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]geofence.Registration, 0, len(f.registered))
	for _, req := range f.registered {
		out = append(out, geofence.Registration{Request: req})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var errTooMany = &geofence.Error{Code: geofence.CodeTooManyGeofences}

var errDisk = errors.New("disk I/O error")

// --- Fake event handler ------------------------------------------------------

type fakeEvents struct {
	mu     sync.Mutex
	events []geofence.Event
}

func (f *fakeEvents) Handle(_ context.Context, ev geofence.Event) geofence.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return geofence.Stats{
		Transition: ev.Transition.String(),
		Triggered:  len(ev.TriggeringGeofences),
		Notified:   len(ev.TriggeringGeofences),
	}
}
