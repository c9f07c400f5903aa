package viewmodel

import (
	"context"
	"log/slog"

	"github.com/njoerd114/placereminder/internal/live"
	"github.com/njoerd114/placereminder/internal/model"
)

// ReminderLister is the repository read used by [RemindersList].
// Implemented by [reminders.Repository].
type ReminderLister interface {
	GetReminders(ctx context.Context) model.Result[[]model.Reminder]
}

// RemindersList is the view-model of the reminder list screen.
type RemindersList struct {
	Base

	// Reminders holds the items of the last successful load.
	Reminders live.Value[[]model.ReminderItem]

	repo ReminderLister
}

// NewRemindersList creates the list view-model. Background work is bound to
// ctx.
func NewRemindersList(ctx context.Context, repo ReminderLister, logger *slog.Logger) *RemindersList {
	vm := &RemindersList{repo: repo}
	vm.init(ctx, logger)
	return vm
}

// LoadReminders starts loading in the background. Use [Base.Wait] to block
// until it finished.
func (vm *RemindersList) LoadReminders() {
	vm.scope.Launch(func(ctx context.Context) { vm.Load(ctx) })
}

// Load fetches reminders and updates the observable state. It returns the
// failure, or nil on success.
//
// On success Reminders is replaced and ShowNoData reflects whether the list is
// empty. On failure the message is shown verbatim in the snackbar and
// ShowNoData is set. ShowLoading is cleared in both cases.
func (vm *RemindersList) Load(ctx context.Context) *model.ResultError {
	vm.ShowLoading.Set(true)
	res := vm.repo.GetReminders(ctx)
	vm.ShowLoading.Set(false)

	rems, ok := res.Value()
	if !ok {
		msg := res.Err().Message
		vm.log.Warn("loading reminders failed", "error", msg)
		vm.ShowSnackBar.Emit(msg)
		vm.ShowNoData.Set(true)
		return res.Err()
	}

	items := make([]model.ReminderItem, 0, len(rems))
	for _, r := range rems {
		items = append(items, model.ItemFromReminder(r))
	}
	vm.Reminders.Set(items)
	vm.ShowNoData.Set(len(items) == 0)
	vm.log.Debug("reminders loaded", "count", len(items))
	return nil
}

// NavigateToAddReminder opens the save-reminder screen.
func (vm *RemindersList) NavigateToAddReminder() {
	vm.Navigation.Emit(To(DestinationSaveReminder))
}
