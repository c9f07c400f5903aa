package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/live"
	"github.com/njoerd114/placereminder/internal/model"
)

// ReminderSaver is the repository write used by [SaveReminder].
// Implemented by [reminders.Repository].
type ReminderSaver interface {
	SaveReminder(ctx context.Context, r model.Reminder) error
}

// POI is a point of interest picked on the map.
type POI struct {
	Name      string  `json:"name"`
	PlaceID   string  `json:"place_id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Outcome classifies the result of a save attempt.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeInvalid
	OutcomeRegistrationFailed
	OutcomePersistFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeRegistrationFailed:
		return "registration_failed"
	case OutcomePersistFailed:
		return "persist_failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// SaveResult is what [SaveReminder.Save] reports. Message is the text shown
// to the user.
type SaveResult struct {
	Outcome Outcome
	Message string
	Item    model.ReminderItem
}

// SaveReminder is the view-model of the save-reminder form.
type SaveReminder struct {
	Base

	ReminderTitle       live.Value[string]
	ReminderDescription live.Value[string]
	SelectedLocation    live.Value[string]
	SelectedPOI         live.Value[*POI]
	Latitude            live.Value[*float64]
	Longitude           live.Value[*float64]

	repo      ReminderSaver
	registrar geofence.Registrar
	opts      geofence.Options
}

// NewSaveReminder creates the save view-model. Background work is bound to
// ctx.
func NewSaveReminder(ctx context.Context, repo ReminderSaver, registrar geofence.Registrar, opts geofence.Options, logger *slog.Logger) *SaveReminder {
	vm := &SaveReminder{repo: repo, registrar: registrar, opts: opts}
	vm.init(ctx, logger)
	return vm
}

// SelectPOI stores the picked point and fills the location label and
// coordinates from it.
func (vm *SaveReminder) SelectPOI(poi POI) {
	vm.SelectedPOI.Set(&poi)
	vm.SelectedLocation.Set(poi.Name)
	vm.Latitude.Set(model.Float(poi.Latitude))
	vm.Longitude.Set(model.Float(poi.Longitude))
}

// NavigateToSelectLocation clears the picked point and opens the map.
func (vm *SaveReminder) NavigateToSelectLocation() {
	vm.SelectedPOI.Set(nil)
	vm.Navigation.Emit(To(DestinationSelectLocation))
}

// Item builds a reminder item from the current form values with a fresh ID.
func (vm *SaveReminder) Item() model.ReminderItem {
	title, _ := vm.ReminderTitle.Get()
	desc, _ := vm.ReminderDescription.Get()
	loc, _ := vm.SelectedLocation.Get()
	lat, _ := vm.Latitude.Get()
	lng, _ := vm.Longitude.Get()
	return model.NewReminderItem(title, desc, loc, lat, lng)
}

// OnClear resets every form field.
func (vm *SaveReminder) OnClear() {
	vm.ReminderTitle.Set("")
	vm.ReminderDescription.Set("")
	vm.SelectedLocation.Set("")
	vm.SelectedPOI.Set(nil)
	vm.Latitude.Set(nil)
	vm.Longitude.Set(nil)
}

// ValidateEnteredData reports whether item can be saved. A missing title or
// location label is shown in the snackbar.
func (vm *SaveReminder) ValidateEnteredData(item model.ReminderItem) bool {
	if msg := validate(item); msg != "" {
		vm.ShowSnackBar.Emit(msg)
		return false
	}
	return true
}

// ValidateAndSaveReminder validates item and, when valid, saves it in the
// background. It reports whether validation passed.
func (vm *SaveReminder) ValidateAndSaveReminder(item model.ReminderItem) bool {
	if !vm.ValidateEnteredData(item) {
		return false
	}
	vm.scope.Launch(func(ctx context.Context) { vm.save(ctx, item) })
	return true
}

// Save validates, registers the geofence, and persists item, emitting the
// same observable state as [SaveReminder.ValidateAndSaveReminder]. It blocks
// until done.
func (vm *SaveReminder) Save(ctx context.Context, item model.ReminderItem) SaveResult {
	if !vm.ValidateEnteredData(item) {
		return SaveResult{Outcome: OutcomeInvalid, Message: validate(item), Item: item}
	}
	return vm.save(ctx, item)
}

// save registers the geofence first and persists second. When persisting
// fails the registration is rolled back to what it was before: the prior
// registration of an existing reminder is restored, a new one is removed.
func (vm *SaveReminder) save(ctx context.Context, item model.ReminderItem) SaveResult {
	if item.ID == "" {
		item.ID = model.NewID()
	}

	req, ok := vm.opts.RequestFor(item)
	if !ok {
		vm.ShowErrorMessage.Emit(model.MsgSelectLocation)
		return SaveResult{Outcome: OutcomeInvalid, Message: model.MsgSelectLocation, Item: item}
	}
	if err := req.Validate(); err != nil {
		return vm.invalid(item, fmt.Errorf("%w: %w", geofence.ErrInvalidRequest, err))
	}

	prior, err := vm.registrar.Lookup(ctx, item.ID)
	if err != nil {
		return vm.registrationFailed(item, err)
	}
	if err := vm.registrar.Register(ctx, req); err != nil {
		if errors.Is(err, geofence.ErrInvalidRequest) {
			return vm.invalid(item, err)
		}
		return vm.registrationFailed(item, err)
	}

	vm.ShowLoading.Set(true)
	err = vm.repo.SaveReminder(ctx, item.Reminder())
	vm.ShowLoading.Set(false)

	if err != nil {
		vm.log.Error("saving reminder", "id", item.ID, "error", err)
		vm.rollback(context.WithoutCancel(ctx), item.ID, prior)
		msg := fmt.Sprintf("Could not save reminder: %v", err)
		vm.ShowErrorMessage.Emit(msg)
		return SaveResult{Outcome: OutcomePersistFailed, Message: msg, Item: item}
	}

	vm.log.Info("reminder saved", "id", item.ID, "title", item.Title)
	vm.ShowToast.Emit(model.MsgReminderSaved)
	vm.Navigation.Emit(Back())
	return SaveResult{Outcome: OutcomeSaved, Message: model.MsgReminderSaved, Item: item}
}

func (vm *SaveReminder) invalid(item model.ReminderItem, err error) SaveResult {
	msg := err.Error()
	vm.log.Warn("rejecting geofence request", "id", item.ID, "error", err)
	vm.ShowSnackBar.Emit(msg)
	return SaveResult{Outcome: OutcomeInvalid, Message: msg, Item: item}
}

func (vm *SaveReminder) registrationFailed(item model.ReminderItem, err error) SaveResult {
	msg := geofence.Message(err)
	vm.log.Error("registering geofence", "id", item.ID, "error", err)
	vm.ShowErrorMessage.Emit(msg)
	return SaveResult{Outcome: OutcomeRegistrationFailed, Message: msg, Item: item}
}

// rollback undoes the registration made for a save that did not persist.
func (vm *SaveReminder) rollback(ctx context.Context, id string, prior *geofence.Registration) {
	if prior != nil {
		if err := vm.registrar.Restore(ctx, *prior); err != nil {
			vm.log.Error("restoring geofence after failed save", "id", id, "error", err)
		}
		return
	}
	if err := vm.registrar.Remove(ctx, id); err != nil {
		vm.log.Error("removing geofence after failed save", "id", id, "error", err)
	}
}

func validate(item model.ReminderItem) string {
	if strings.TrimSpace(item.Title) == "" {
		return model.MsgEnterTitle
	}
	if strings.TrimSpace(item.Location) == "" {
		return model.MsgSelectLocation
	}
	return ""
}
