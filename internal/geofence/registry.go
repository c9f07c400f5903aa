package geofence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/njoerd114/placereminder/internal/state"
)

// DefaultMaxGeofences mirrors the per-app limit mobile platforms enforce.
const DefaultMaxGeofences = 100

// Store is the subset of [state.Store] methods used by the registry.
type Store interface {
	UpsertGeofence(ctx context.Context, g *state.Geofence) error
	GetGeofences(ctx context.Context) ([]*state.Geofence, error)
	GetGeofenceByID(ctx context.Context, id string) (*state.Geofence, error)
	DeleteGeofences(ctx context.Context, ids ...string) error
	DeleteAllGeofences(ctx context.Context) error
	DeleteExpiredGeofences(ctx context.Context, now time.Time) (int64, error)
}

// Registration is a stored request plus its bookkeeping.
type Registration struct {
	Request
	RegisteredAt time.Time  `json:"registered_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Registry is the in-process [Registrar]. Registrations are persisted so the
// device can fetch the set it should monitor.
type Registry struct {
	store Store
	limit int
	now   func() time.Time
	log   *slog.Logger

	// mu serialises the limit check with the write that follows it.
	mu sync.Mutex
}

// NewRegistry creates a Registry. A limit of zero or less uses
// [DefaultMaxGeofences].
func NewRegistry(store Store, limit int, logger *slog.Logger) *Registry {
	if limit <= 0 {
		limit = DefaultMaxGeofences
	}
	return &Registry{store: store, limit: limit, now: time.Now, log: logger}
}

// Register validates req and stores it, replacing any registration with the
// same ID. It fails with [CodeTooManyGeofences] when a new ID would exceed
// the limit, and with [CodeNotAvailable] when the store cannot be reached.
func (r *Registry) Register(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	active, err := r.active(ctx, now)
	if err != nil {
		return &Error{Code: CodeNotAvailable, Err: err}
	}
	if _, exists := active[req.ID]; !exists && len(active) >= r.limit {
		return &Error{Code: CodeTooManyGeofences, Err: fmt.Errorf("limit of %d reached", r.limit)}
	}

	g := &state.Geofence{
		ID:             req.ID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		RadiusMeters:   req.RadiusMeters,
		Transitions:    int(req.Transitions),
		InitialTrigger: int(req.InitialTrigger),
		RegisteredAt:   now,
	}
	if req.Expiration != NeverExpire {
		g.ExpiresAt = now.Add(req.Expiration)
	}
	if err := r.store.UpsertGeofence(ctx, g); err != nil {
		return &Error{Code: CodeNotAvailable, Err: err}
	}

	r.log.Info("geofence registered",
		"id", req.ID,
		"radius_m", req.RadiusMeters,
		"transitions", req.Transitions.String(),
		"expires_at", g.ExpiresAt,
	)
	return nil
}

// Lookup returns the active registration with the given ID, or nil when
// there is none or it has expired.
func (r *Registry) Lookup(ctx context.Context, id string) (*Registration, error) {
	g, err := r.store.GetGeofenceByID(ctx, id)
	if err != nil {
		return nil, &Error{Code: CodeNotAvailable, Err: err}
	}
	if g == nil || expired(g, r.now()) {
		return nil, nil
	}
	reg := rowToRegistration(g)
	return &reg, nil
}

// Restore writes reg back exactly as it was returned by [Registry.Lookup],
// keeping its original registration and expiry times.
func (r *Registry) Restore(ctx context.Context, reg Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &state.Geofence{
		ID:             reg.ID,
		Latitude:       reg.Latitude,
		Longitude:      reg.Longitude,
		RadiusMeters:   reg.RadiusMeters,
		Transitions:    int(reg.Transitions),
		InitialTrigger: int(reg.InitialTrigger),
		RegisteredAt:   reg.RegisteredAt,
	}
	if reg.ExpiresAt != nil {
		g.ExpiresAt = *reg.ExpiresAt
	}
	if err := r.store.UpsertGeofence(ctx, g); err != nil {
		return &Error{Code: CodeNotAvailable, Err: err}
	}
	r.log.Info("geofence restored", "id", reg.ID)
	return nil
}

// Remove deletes the registrations with the given IDs. Unknown IDs are
// ignored.
func (r *Registry) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.store.DeleteGeofences(ctx, ids...); err != nil {
		return &Error{Code: CodeNotAvailable, Err: err}
	}
	r.log.Info("geofences removed", "ids", ids)
	return nil
}

// RemoveAll deletes every registration.
func (r *Registry) RemoveAll(ctx context.Context) error {
	if err := r.store.DeleteAllGeofences(ctx); err != nil {
		return &Error{Code: CodeNotAvailable, Err: err}
	}
	r.log.Info("all geofences removed")
	return nil
}

// List returns the registrations that have not expired, oldest first.
func (r *Registry) List(ctx context.Context) ([]Registration, error) {
	rows, err := r.store.GetGeofences(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing geofences: %w", err)
	}

	now := r.now()
	out := make([]Registration, 0, len(rows))
	for _, g := range rows {
		if expired(g, now) {
			continue
		}
		out = append(out, rowToRegistration(g))
	}
	return out, nil
}

// Sweep deletes expired registrations and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteExpiredGeofences(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("sweeping geofences: %w", err)
	}
	if n > 0 {
		r.log.Info("expired geofences removed", "count", n)
	}
	return n, nil
}

func (r *Registry) active(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	rows, err := r.store.GetGeofences(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(rows))
	for _, g := range rows {
		if !expired(g, now) {
			ids[g.ID] = struct{}{}
		}
	}
	return ids, nil
}

func expired(g *state.Geofence, now time.Time) bool {
	return !g.ExpiresAt.IsZero() && !g.ExpiresAt.After(now)
}

func rowToRegistration(g *state.Geofence) Registration {
	reg := Registration{
		Request: Request{
			ID:             g.ID,
			Latitude:       g.Latitude,
			Longitude:      g.Longitude,
			RadiusMeters:   g.RadiusMeters,
			Transitions:    Transition(g.Transitions),
			InitialTrigger: Transition(g.InitialTrigger),
			Expiration:     NeverExpire,
		},
		RegisteredAt: g.RegisteredAt,
	}
	if !g.ExpiresAt.IsZero() {
		exp := g.ExpiresAt
		reg.ExpiresAt = &exp
		reg.Expiration = exp.Sub(g.RegisteredAt)
	}
	return reg
}
