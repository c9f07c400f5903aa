// Package reminders is the repository between the view-models and the
// persistence layer.
//
// Every call runs on a bounded [worker.Pool] so callers on the UI or request
// path never block the database directly. Reads return [model.Result] and
// never a raw error: persistence failures and not-found are data the caller
// renders.
package reminders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/state"
	"github.com/njoerd114/placereminder/internal/worker"
)

// DataSource is the subset of [state.Store] methods used by the repository.
// Defining it as an interface allows fake injection in tests.
type DataSource interface {
	GetReminders(ctx context.Context) ([]*state.Reminder, error)
	GetReminderByID(ctx context.Context, id string) (*state.Reminder, error)
	SaveReminder(ctx context.Context, r *state.Reminder) error
	DeleteAllReminders(ctx context.Context) error
}

// Source is what view-models and the geofence handler depend on.
// Implemented by [Repository].
type Source interface {
	GetReminders(ctx context.Context) model.Result[[]model.Reminder]
	GetReminder(ctx context.Context, id string) model.Result[model.Reminder]
	SaveReminder(ctx context.Context, r model.Reminder) error
	DeleteAllReminders(ctx context.Context) error
}

// Repository implements [Source] over a [DataSource]. It is safe for
// concurrent use. Create one with [NewRepository].
type Repository struct {
	ds   DataSource
	pool *worker.Pool
	log  *slog.Logger
}

// NewRepository creates a Repository. A nil pool gets a pool of
// [worker.DefaultSize].
func NewRepository(ds DataSource, pool *worker.Pool, logger *slog.Logger) *Repository {
	if pool == nil {
		pool = worker.NewPool(worker.DefaultSize)
	}
	return &Repository{ds: ds, pool: pool, log: logger}
}

// GetReminders returns every saved reminder. An empty store is a success with
// an empty slice.
func (r *Repository) GetReminders(ctx context.Context) model.Result[[]model.Reminder] {
	rows, err := worker.Submit(ctx, r.pool, r.ds.GetReminders)
	if err != nil {
		r.log.Error("loading reminders", "error", err)
		return model.Failure[[]model.Reminder](err.Error(), nil)
	}

	out := make([]model.Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToReminder(row))
	}
	r.log.Debug("loaded reminders", "count", len(out))
	return model.Success(out)
}

// GetReminder returns the reminder with the given id, or a failure carrying
// [model.MsgReminderNotFound] when none exists.
func (r *Repository) GetReminder(ctx context.Context, id string) model.Result[model.Reminder] {
	row, err := worker.Submit(ctx, r.pool, func(ctx context.Context) (*state.Reminder, error) {
		return r.ds.GetReminderByID(ctx, id)
	})
	if err != nil {
		r.log.Error("loading reminder", "id", id, "error", err)
		return model.Failure[model.Reminder](err.Error(), nil)
	}
	if row == nil {
		r.log.Debug("reminder not found", "id", id)
		return model.Failure[model.Reminder](model.MsgReminderNotFound, nil)
	}
	return model.Success(rowToReminder(row))
}

// SaveReminder inserts or replaces the reminder keyed by its ID.
func (r *Repository) SaveReminder(ctx context.Context, rem model.Reminder) error {
	row := reminderToRow(rem)
	err := r.pool.Do(ctx, func(ctx context.Context) error {
		return r.ds.SaveReminder(ctx, row)
	})
	if err != nil {
		return fmt.Errorf("saving reminder %q: %w", rem.ID, err)
	}
	r.log.Debug("reminder saved", "id", rem.ID)
	return nil
}

// DeleteAllReminders removes every reminder.
func (r *Repository) DeleteAllReminders(ctx context.Context) error {
	if err := r.pool.Do(ctx, r.ds.DeleteAllReminders); err != nil {
		return fmt.Errorf("deleting all reminders: %w", err)
	}
	r.log.Info("all reminders deleted")
	return nil
}
