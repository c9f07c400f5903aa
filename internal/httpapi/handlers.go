package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/viewmodel"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// reminderJSON is the wire form of a reminder.
type reminderJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func toJSON(item model.ReminderItem) reminderJSON {
	return reminderJSON{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Location:    item.Location,
		Latitude:    item.Latitude,
		Longitude:   item.Longitude,
	}
}

func (j reminderJSON) item() model.ReminderItem {
	return model.ReminderItem{
		ID:          j.ID,
		Title:       j.Title,
		Description: j.Description,
		Location:    j.Location,
		Latitude:    j.Latitude,
		Longitude:   j.Longitude,
	}
}

// eventJSON is the wire form of a delivered transition.
type eventJSON struct {
	Transition          string             `json:"transition"`
	TriggeringGeofences []string           `json:"triggering_geofences"`
	ErrorCode           int                `json:"error_code,omitempty"`
	Location            *geofence.Location `json:"location,omitempty"`
}

func (j eventJSON) event() (geofence.Event, error) {
	ev := geofence.Event{
		TriggeringGeofences: j.TriggeringGeofences,
		ErrorCode:           j.ErrorCode,
		Location:            j.Location,
	}
	if ev.HasError() {
		return ev, nil
	}
	t, err := geofence.ParseTransition(j.Transition)
	if err != nil {
		return ev, err
	}
	ev.Transition = t
	return ev, nil
}

type saveResponse struct {
	Message  string       `json:"message"`
	Reminder reminderJSON `json:"reminder"`
}

// --- Handlers ----------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListReminders runs the list view-model once per request.
func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	vm := viewmodel.NewRemindersList(r.Context(), s.repo, s.log)
	defer vm.Close()

	if rerr := vm.Load(r.Context()); rerr != nil {
		writeError(w, http.StatusInternalServerError, rerr.Message)
		return
	}
	items, _ := vm.Reminders.Get()
	out := make([]reminderJSON, 0, len(items))
	for _, it := range items {
		out = append(out, toJSON(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res := s.repo.GetReminder(r.Context(), id)
	rem, ok := res.Value()
	if !ok {
		status := http.StatusInternalServerError
		if res.Err().Message == model.MsgReminderNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, res.Err().Message)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(model.ItemFromReminder(rem)))
}

// handleSaveReminder runs the save view-model once per request.
func (s *Server) handleSaveReminder(w http.ResponseWriter, r *http.Request) {
	var body reminderJSON
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vm := viewmodel.NewSaveReminder(r.Context(), s.repo, s.geofences, s.opts, s.log)
	defer vm.Close()

	res := vm.Save(r.Context(), body.item())
	var status int
	switch res.Outcome {
	case viewmodel.OutcomeSaved:
		status = http.StatusCreated
	case viewmodel.OutcomeInvalid:
		status = http.StatusUnprocessableEntity
	case viewmodel.OutcomeRegistrationFailed:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	if res.Outcome != viewmodel.OutcomeSaved {
		writeError(w, status, res.Message)
		return
	}
	writeJSON(w, status, saveResponse{Message: res.Message, Reminder: toJSON(res.Item)})
}

// handleDeleteReminders clears reminders and their registrations.
func (s *Server) handleDeleteReminders(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteAllReminders(r.Context()); err != nil {
		s.log.Error("deleting reminders", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.geofences.RemoveAll(r.Context()); err != nil {
		s.log.Error("removing geofences", "error", err)
		writeError(w, http.StatusInternalServerError, geofence.Message(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGeofences(w http.ResponseWriter, r *http.Request) {
	regs, err := s.geofences.List(r.Context())
	if err != nil {
		s.log.Error("listing geofences", "error", err)
		writeError(w, http.StatusInternalServerError, geofence.Message(err))
		return
	}
	if regs == nil {
		regs = []geofence.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleGeofenceEvent(w http.ResponseWriter, r *http.Request) {
	var body eventJSON
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := body.event()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.events.Handle(r.Context(), ev))
}

// --- Encoding ----------------------------------------------------------------

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
