package geofence

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/notify"
)

const (
	otelScope        = "placereminder/geofence"
	spanHandle       = "geofence.handle"
	metricEvents     = "placereminder.geofence.events"
	metricNotified   = "placereminder.geofence.notifications.sent"
	metricLookupMiss = "placereminder.geofence.lookups.failed"
	metricErrors     = "placereminder.geofence.errors"
)

// ReminderSource looks up the reminder behind a triggered geofence.
// Implemented by [reminders.Repository].
type ReminderSource interface {
	GetReminder(ctx context.Context, id string) model.Result[model.Reminder]
}

// Dispatcher delivers a notification. Implemented by [notify.Dispatcher].
type Dispatcher interface {
	Dispatch(ctx context.Context, n notify.Notification) error
}

// Stats summarises one handled event.
type Stats struct {
	Transition string `json:"transition"`
	Triggered  int    `json:"triggered"`
	Notified   int    `json:"notified"`
	Failed     int    `json:"failed"`
	Ignored    bool   `json:"ignored,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Handler turns delivered transition events into notifications.
// Create one with [NewHandler].
type Handler struct {
	reminders  ReminderSource
	dispatcher Dispatcher
	log        *slog.Logger

	// OTel instruments, always non-nil (no-op when telemetry is disabled).
	tracer        trace.Tracer
	cntEvents     metric.Int64Counter
	cntNotified   metric.Int64Counter
	cntLookupMiss metric.Int64Counter
	cntErrors     metric.Int64Counter
}

// NewHandler creates a Handler.
func NewHandler(reminders ReminderSource, dispatcher Dispatcher, logger *slog.Logger) *Handler {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Handler{
		reminders:  reminders,
		dispatcher: dispatcher,
		log:        logger,

		tracer:        tracer,
		cntEvents:     mustCounter(metricEvents, "Number of geofence events received"),
		cntNotified:   mustCounter(metricNotified, "Number of reminder notifications dispatched"),
		cntLookupMiss: mustCounter(metricLookupMiss, "Number of triggered geofences whose reminder could not be loaded"),
		cntErrors:     mustCounter(metricErrors, "Number of geofence events carrying a platform error"),
	}
}

// Handle processes one event and returns once every triggered geofence has
// been handled.
//
// Error events are logged and dropped. Transitions other than enter and exit
// are ignored. Each triggering geofence is looked up and notified on its own
// goroutine; a failed lookup is logged and does not affect the others. The
// work runs on a context detached from ctx's cancellation and cannot be
// aborted once started.
func (h *Handler) Handle(ctx context.Context, ev Event) Stats {
	ctx = context.WithoutCancel(ctx)
	ctx, span := h.tracer.Start(ctx, spanHandle)
	defer span.End()

	stats := Stats{Transition: ev.Transition.String(), Triggered: len(ev.TriggeringGeofences)}
	span.SetAttributes(
		attribute.String("geofence.transition", stats.Transition),
		attribute.Int("geofence.triggered", stats.Triggered),
	)
	h.cntEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", stats.Transition)))

	if ev.HasError() {
		msg := ErrorMessage(ev.ErrorCode)
		h.log.Error("geofence event error", "code", ev.ErrorCode, "message", msg)
		h.cntErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, msg)
		stats.Error = msg
		return stats
	}

	if ev.Transition != TransitionEnter && ev.Transition != TransitionExit {
		h.log.Debug("ignoring geofence transition", "transition", stats.Transition)
		stats.Ignored = true
		return stats
	}

	h.log.Info("geofence transition", "transition", stats.Transition, "triggered", stats.Triggered)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range ev.TriggeringGeofences {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := h.notifyOne(ctx, id, ev)
			mu.Lock()
			if ok {
				stats.Notified++
			} else {
				stats.Failed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	span.SetAttributes(
		attribute.Int("geofence.notified", stats.Notified),
		attribute.Int("geofence.failed", stats.Failed),
	)
	return stats
}

// notifyOne handles a single triggering geofence and reports whether a
// notification was dispatched.
func (h *Handler) notifyOne(ctx context.Context, id string, ev Event) bool {
	h.log.Debug("geofence triggered", "id", id)

	res := h.reminders.GetReminder(ctx, id)
	rem, ok := res.Value()
	if !ok {
		h.log.Warn("no reminder for triggered geofence", "id", id, "error", res.Err().Message)
		h.cntLookupMiss.Add(ctx, 1)
		return false
	}

	n := notify.New(model.ItemFromReminder(rem))
	n.Transition = ev.Transition.String()
	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		h.log.Error("dispatching reminder notification", "id", id, "error", err)
		return false
	}
	h.cntNotified.Add(ctx, 1)
	return true
}
