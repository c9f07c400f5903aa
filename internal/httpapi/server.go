// Package httpapi exposes reminders and geofence events over HTTP.
//
// The device saves reminders and fetches the geofences it should monitor;
// when the OS delivers a transition it posts the event back, which fans out
// to the configured notifiers.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/model"
)

// Repository is the reminder store used by the API.
// Implemented by [reminders.Repository].
type Repository interface {
	GetReminders(ctx context.Context) model.Result[[]model.Reminder]
	GetReminder(ctx context.Context, id string) model.Result[model.Reminder]
	SaveReminder(ctx context.Context, r model.Reminder) error
	DeleteAllReminders(ctx context.Context) error
}

// Geofences is the registration set used by the API.
// Implemented by [geofence.Registry].
type Geofences interface {
	geofence.Registrar
	RemoveAll(ctx context.Context) error
	List(ctx context.Context) ([]geofence.Registration, error)
}

// EventHandler processes delivered transition events.
// Implemented by [geofence.Handler].
type EventHandler interface {
	Handle(ctx context.Context, ev geofence.Event) geofence.Stats
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	repo      Repository
	geofences Geofences
	events    EventHandler
	opts      geofence.Options
	token     string
	log       *slog.Logger
	router    *mux.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every route except
// /health. An empty token disables the check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithGeofenceOptions sets the radius and expiration used for new reminders.
func WithGeofenceOptions(opts geofence.Options) Option {
	return func(s *Server) { s.opts = opts }
}

// New builds the server and its routes.
func New(repo Repository, geofences Geofences, events EventHandler, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		repo:      repo,
		geofences: geofences,
		events:    events,
		opts:      geofence.DefaultOptions(),
		log:       logger,
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.authenticate)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/reminders", s.handleListReminders).Methods(http.MethodGet)
	r.HandleFunc("/reminders", s.handleSaveReminder).Methods(http.MethodPost)
	r.HandleFunc("/reminders", s.handleDeleteReminders).Methods(http.MethodDelete)
	r.HandleFunc("/reminders/{id}", s.handleGetReminder).Methods(http.MethodGet)

	r.HandleFunc("/geofences", s.handleListGeofences).Methods(http.MethodGet)
	r.HandleFunc("/geofence/events", s.handleGeofenceEvent).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- Middleware --------------------------------------------------------------

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
