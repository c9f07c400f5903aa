// Package notify delivers reminder notifications to the user's devices.
//
// A [Dispatcher] fans a [Notification] out to every configured [Notifier]
// (Home Assistant mobile push, Telegram, the log). A failing notifier does not
// stop the others.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/njoerd114/placereminder/internal/model"
)

// LinkScheme is the URL scheme the mobile app registers for tap-through.
const LinkScheme = "placereminder"

// DefaultTimeout bounds a single notifier send.
const DefaultTimeout = 10 * time.Second

// Notification is what a user sees when a reminder's geofence triggers.
type Notification struct {
	ReminderID  string
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64

	// Transition is the triggering transition name, e.g. "enter". Optional.
	Transition string

	// Link opens the reminder's detail screen when the notification is tapped.
	Link string
}

// New builds the notification for a reminder item.
func New(item model.ReminderItem) Notification {
	return Notification{
		ReminderID:  item.ID,
		Title:       item.Title,
		Description: item.Description,
		Location:    item.Location,
		Latitude:    item.Latitude,
		Longitude:   item.Longitude,
		Link:        ReminderLink(item.ID),
	}
}

// ReminderLink returns the tap-through URL for a reminder.
func ReminderLink(id string) string {
	return LinkScheme + "://reminders/" + id
}

// Body renders the notification text below the title.
func (n Notification) Body() string {
	var parts []string
	if n.Description != "" {
		parts = append(parts, n.Description)
	}
	if n.Location != "" {
		parts = append(parts, "📍 "+n.Location)
	}
	return strings.Join(parts, "\n")
}

// Notifier sends a notification through one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// --- Dispatcher --------------------------------------------------------------

// Dispatcher sends every notification to all registered notifiers in
// parallel. Create one with [NewDispatcher].
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	log       *slog.Logger
}

// NewDispatcher creates a Dispatcher. A timeout of zero uses [DefaultTimeout].
func NewDispatcher(timeout time.Duration, logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{notifiers: notifiers, timeout: timeout, log: logger}
}

// Notifiers returns the names of the registered notifiers.
func (d *Dispatcher) Notifiers() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Dispatch sends n through every notifier and waits for all of them. The
// returned error joins the failures of individual notifiers.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if len(d.notifiers) == 0 {
		d.log.Warn("no notifiers configured, dropping notification", "reminder_id", n.ReminderID)
		return nil
	}

	errs := make([]error, len(d.notifiers))
	var wg sync.WaitGroup
	for i, nt := range d.notifiers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = d.send(ctx, nt, n)
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, nt Notifier, n Notification) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s notifier panicked: %v", nt.Name(), r)
		}
		if err != nil {
			d.log.Error("notification failed", "notifier", nt.Name(), "reminder_id", n.ReminderID, "error", err)
		}
	}()

	if err := nt.Notify(ctx, n); err != nil {
		return fmt.Errorf("%s: %w", nt.Name(), err)
	}
	d.log.Debug("notification sent", "notifier", nt.Name(), "reminder_id", n.ReminderID)
	return nil
}

// --- Log notifier ------------------------------------------------------------

// LogNotifier writes notifications to a logger. Used when no push channel is
// configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.log.Info("reminder notification",
		"reminder_id", n.ReminderID,
		"title", n.Title,
		"location", n.Location,
		"transition", n.Transition,
		"link", n.Link,
	)
	return nil
}
