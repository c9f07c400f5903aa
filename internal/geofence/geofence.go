// Package geofence models geofence registrations and reacts to transition
// events delivered by the device.
//
// The mobile OS monitors the regions. This package keeps the registrations
// the device should monitor ([Registry]), expires them ([Sweeper]), and turns
// delivered transitions into notifications ([Handler]).
package geofence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/njoerd114/placereminder/internal/model"
)

// Registration defaults.
const (
	DefaultRadiusMeters = 100.0
	DefaultExpiration   = 24 * time.Hour

	// NeverExpire keeps a registration until it is removed explicitly.
	NeverExpire time.Duration = -1
)

// Transition is a geofence transition type. Values combine as a bitmask in
// [Request.Transitions].
type Transition int

const (
	TransitionEnter Transition = 1
	TransitionExit  Transition = 2
	TransitionDwell Transition = 4
)

// String returns the lower-case transition name.
func (t Transition) String() string {
	switch t {
	case TransitionEnter:
		return "enter"
	case TransitionExit:
		return "exit"
	case TransitionDwell:
		return "dwell"
	case 0:
		return "none"
	}
	var parts []string
	for _, x := range []Transition{TransitionEnter, TransitionExit, TransitionDwell} {
		if t&x != 0 {
			parts = append(parts, x.String())
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("transition(%d)", int(t))
	}
	return strings.Join(parts, "|")
}

// Has reports whether every bit of x is set in t.
func (t Transition) Has(x Transition) bool { return t&x == x && x != 0 }

// ParseTransition accepts a transition name ("enter", "exit", "dwell") in any
// case.
func ParseTransition(s string) (Transition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enter":
		return TransitionEnter, nil
	case "exit":
		return TransitionExit, nil
	case "dwell":
		return TransitionDwell, nil
	}
	return 0, fmt.Errorf("unknown transition %q", s)
}

// --- Request -----------------------------------------------------------------

// Request asks the platform to monitor a circular region. ID is the reminder
// ID, so a triggered geofence leads back to its reminder.
type Request struct {
	ID             string        `json:"id"`
	Latitude       float64       `json:"latitude"`
	Longitude      float64       `json:"longitude"`
	RadiusMeters   float64       `json:"radius_meters"`
	Transitions    Transition    `json:"transitions"`
	Expiration     time.Duration `json:"expiration"`
	InitialTrigger Transition    `json:"initial_trigger"`
}

// Validate checks the request is something a platform would accept.
func (r Request) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		errs = append(errs, fmt.Errorf("latitude %v out of range [-90, 90]", r.Latitude))
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		errs = append(errs, fmt.Errorf("longitude %v out of range [-180, 180]", r.Longitude))
	}
	if r.RadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("radius %v must be positive", r.RadiusMeters))
	}
	if r.Transitions == 0 {
		errs = append(errs, errors.New("at least one transition type is required"))
	}
	if r.Expiration == 0 {
		errs = append(errs, errors.New("expiration must be positive or NeverExpire"))
	}
	return errors.Join(errs...)
}

// Options control how requests are built from reminders.
type Options struct {
	RadiusMeters float64
	Expiration   time.Duration
}

// DefaultOptions returns a 100 m radius with a 24 h expiration.
func DefaultOptions() Options {
	return Options{RadiusMeters: DefaultRadiusMeters, Expiration: DefaultExpiration}
}

// RequestFor builds the request for item. It reports false when the item has
// no point, since a region cannot be built without one.
func (o Options) RequestFor(item model.ReminderItem) (Request, bool) {
	if item.Latitude == nil || item.Longitude == nil {
		return Request{}, false
	}
	radius := o.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	exp := o.Expiration
	if exp == 0 {
		exp = DefaultExpiration
	}
	return Request{
		ID:             item.ID,
		Latitude:       *item.Latitude,
		Longitude:      *item.Longitude,
		RadiusMeters:   radius,
		Transitions:    TransitionEnter | TransitionExit,
		Expiration:     exp,
		InitialTrigger: TransitionEnter,
	}, true
}

// --- Event -------------------------------------------------------------------

// Location is the device position reported with an event.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Event is a transition delivered by the platform. A non-zero ErrorCode means
// the platform reported a failure instead of a transition.
type Event struct {
	Transition          Transition
	TriggeringGeofences []string
	ErrorCode           int
	Location            *Location
}

// HasError reports whether the platform delivered an error.
func (e Event) HasError() bool { return e.ErrorCode != 0 }

// --- Registrar ---------------------------------------------------------------

// Registrar adds and removes geofence registrations. Lookup and Restore let
// a caller put back the registration a failed update replaced.
// Implemented by [Registry].
type Registrar interface {
	Register(ctx context.Context, req Request) error
	Remove(ctx context.Context, ids ...string) error
	Lookup(ctx context.Context, id string) (*Registration, error)
	Restore(ctx context.Context, reg Registration) error
}
