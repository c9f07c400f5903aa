// Package model defines the reminder types shared across the persistence
// layer, repository, view-models, and geofence handler.
package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// User-facing messages. They are part of the observable contract of the
// repository and view-models, so callers may compare against them.
const (
	MsgReminderNotFound = "Reminder not found!"
	MsgEnterTitle       = "Please enter title"
	MsgSelectLocation   = "Please select location"
	MsgReminderSaved    = "Reminder Saved !"
)

// Reminder is the persisted form of a location reminder.
type Reminder struct {
	// ID is generated on creation and never changes. It doubles as the
	// geofence request id, which ties the registration to this record.
	ID string

	// Title is the reminder's display title. May be empty before validation.
	Title string

	// Description is optional free text shown in the notification body.
	Description string

	// Location is the free-text label of the picked point of interest.
	Location string

	// Latitude and Longitude are nil until a point is picked on the map.
	Latitude  *float64
	Longitude *float64
}

// NewID returns a fresh reminder identifier.
func NewID() string {
	return uuid.NewString()
}

// NewReminder builds a reminder, generating an ID when id is empty.
func NewReminder(id, title, description, location string, lat, lng *float64) Reminder {
	if id == "" {
		id = NewID()
	}
	return Reminder{
		ID:          id,
		Title:       title,
		Description: description,
		Location:    location,
		Latitude:    lat,
		Longitude:   lng,
	}
}

// HasPoint reports whether both coordinates are set.
func (r Reminder) HasPoint() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Equal compares every field, including the coordinate values.
func (r Reminder) Equal(o Reminder) bool {
	return r.ID == o.ID &&
		r.Title == o.Title &&
		r.Description == o.Description &&
		r.Location == o.Location &&
		floatPtrEqual(r.Latitude, o.Latitude) &&
		floatPtrEqual(r.Longitude, o.Longitude)
}

// String returns a compact log-friendly representation.
func (r Reminder) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q @ %q", r.ID, r.Title, r.Location)
	if r.HasPoint() {
		fmt.Fprintf(&b, " (%.6f, %.6f)", *r.Latitude, *r.Longitude)
	}
	return b.String()
}

// Float returns a pointer to v. Convenient for building coordinates.
func Float(v float64) *float64 { return &v }

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
