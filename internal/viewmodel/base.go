package viewmodel

import (
	"context"
	"log/slog"

	"github.com/njoerd114/placereminder/internal/live"
)

// NavigationKind distinguishes navigation commands.
type NavigationKind int

const (
	NavigateBack NavigationKind = iota
	NavigateBackTo
	NavigateTo
)

// Screen destinations.
const (
	DestinationReminderList   = "reminder-list"
	DestinationSaveReminder   = "save-reminder"
	DestinationSelectLocation = "select-location"
)

// NavigationCommand asks the front end to change screens.
type NavigationCommand struct {
	Kind        NavigationKind
	Destination string
}

// Back returns to the previous screen.
func Back() NavigationCommand { return NavigationCommand{Kind: NavigateBack} }

// BackTo pops screens until dest is on top.
func BackTo(dest string) NavigationCommand {
	return NavigationCommand{Kind: NavigateBackTo, Destination: dest}
}

// To opens dest.
func To(dest string) NavigationCommand {
	return NavigationCommand{Kind: NavigateTo, Destination: dest}
}

func (c NavigationCommand) String() string {
	switch c.Kind {
	case NavigateBack:
		return "back"
	case NavigateBackTo:
		return "back-to:" + c.Destination
	default:
		return "to:" + c.Destination
	}
}

// Base carries the observable fields every view-model shares.
type Base struct {
	ShowLoading      live.Value[bool]
	ShowNoData       live.Value[bool]
	ShowErrorMessage live.Event[string]
	ShowSnackBar     live.Event[string]
	ShowToast        live.Event[string]
	Navigation       live.Event[NavigationCommand]

	scope *Scope
	log   *slog.Logger
}

func (b *Base) init(ctx context.Context, logger *slog.Logger) {
	b.scope = NewScope(ctx, logger)
	b.log = logger
}

// Wait blocks until background work launched by the view-model finished.
func (b *Base) Wait() { b.scope.Wait() }

// Close cancels background work and waits for it.
func (b *Base) Close() { b.scope.Close() }
