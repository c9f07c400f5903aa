// Package state manages the SQLite database that holds saved reminders and
// the geofence registrations derived from them.
//
// Only this package may open or query the database. All other packages receive
// a [*Store] and call its methods.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reminders (
    id          TEXT PRIMARY KEY NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    latitude    REAL,
    longitude   REAL
);

CREATE TABLE IF NOT EXISTS geofences (
    id              TEXT    PRIMARY KEY NOT NULL,
    latitude        REAL    NOT NULL,
    longitude       REAL    NOT NULL,
    radius_meters   REAL    NOT NULL,
    transitions     INTEGER NOT NULL,
    initial_trigger INTEGER NOT NULL DEFAULT 0,
    expires_at      TEXT    NOT NULL DEFAULT '',
    registered_at   TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_geofences_expires_at ON geofences (expires_at) WHERE expires_at != '';
`

// Reminder is a row of the reminders table. Latitude and Longitude are nil
// when the reminder has no point yet.
type Reminder struct {
	ID          string
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
}

// Geofence is a row of the geofences table. A zero ExpiresAt means the
// registration never expires.
type Geofence struct {
	ID             string
	Latitude       float64
	Longitude      float64
	RadiusMeters   float64
	Transitions    int
	InitialTrigger int
	ExpiresAt      time.Time
	RegisteredAt   time.Time
}

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the database:
// ~/.local/share/placereminder/reminders.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "placereminder", "reminders.db"), nil
}

// Open opens (or creates) the database at path with the cgo driver.
func Open(path string) (*Store, error) {
	return OpenWithDriver(DriverCGO, path)
}

// OpenWithDriver opens (or creates) the SQLite database at path using the
// named driver, applies the schema, and configures WAL mode.
func OpenWithDriver(driver, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL. The engine serializes
	// writes; callers add no locking of their own.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func buildDSN(driver, path string) (string, error) {
	switch driver {
	case DriverCGO:
		return path + "?_journal_mode=WAL&_busy_timeout=5000", nil
	case DriverPureGo:
		return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", driver, DriverCGO, DriverPureGo)
	}
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- reminders ---------------------------------------------------------------

// SaveReminder inserts the reminder or updates the existing row with the
// same ID in place, keeping its position in [Store.GetReminders].
func (s *Store) SaveReminder(ctx context.Context, r *Reminder) error {
	const q = `
		INSERT INTO reminders
		    (id, title, description, location, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    title       = excluded.title,
		    description = excluded.description,
		    location    = excluded.location,
		    latitude    = excluded.latitude,
		    longitude   = excluded.longitude`

	_, err := s.db.ExecContext(ctx, q,
		r.ID,
		r.Title,
		r.Description,
		r.Location,
		nullFloat(r.Latitude),
		nullFloat(r.Longitude),
	)
	if err != nil {
		return fmt.Errorf("saving reminder %q: %w", r.ID, err)
	}
	return nil
}

// GetReminders returns every stored reminder ordered by first insertion.
func (s *Store) GetReminders(ctx context.Context) ([]*Reminder, error) {
	const q = `
		SELECT id, title, description, location, latitude, longitude
		FROM reminders ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reminders []*Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// GetReminderByID returns the reminder with the given ID, or (nil, nil) if
// no such reminder exists.
func (s *Store) GetReminderByID(ctx context.Context, id string) (*Reminder, error) {
	const q = `
		SELECT id, title, description, location, latitude, longitude
		FROM reminders WHERE id = ?`
	row := s.db.QueryRowContext(ctx, q, id)
	return scanReminder(row)
}

// DeleteAllReminders removes every reminder.
func (s *Store) DeleteAllReminders(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reminders`); err != nil {
		return fmt.Errorf("deleting reminders: %w", err)
	}
	return nil
}

// CountReminders returns the number of stored reminders.
func (s *Store) CountReminders(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminders`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting reminders: %w", err)
	}
	return count, nil
}

// --- geofences ---------------------------------------------------------------

// UpsertGeofence inserts or replaces a registration keyed by its ID.
func (s *Store) UpsertGeofence(ctx context.Context, g *Geofence) error {
	const q = `
		INSERT INTO geofences
		    (id, latitude, longitude, radius_meters, transitions,
		     initial_trigger, expires_at, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    latitude        = excluded.latitude,
		    longitude       = excluded.longitude,
		    radius_meters   = excluded.radius_meters,
		    transitions     = excluded.transitions,
		    initial_trigger = excluded.initial_trigger,
		    expires_at      = excluded.expires_at,
		    registered_at   = excluded.registered_at`

	_, err := s.db.ExecContext(ctx, q,
		g.ID,
		g.Latitude,
		g.Longitude,
		g.RadiusMeters,
		g.Transitions,
		g.InitialTrigger,
		formatTime(g.ExpiresAt),
		formatTime(g.RegisteredAt),
	)
	if err != nil {
		return fmt.Errorf("upserting geofence %q: %w", g.ID, err)
	}
	return nil
}

// GetGeofences returns every registration, expired or not.
func (s *Store) GetGeofences(ctx context.Context) ([]*Geofence, error) {
	const q = `
		SELECT id, latitude, longitude, radius_meters, transitions,
		       initial_trigger, expires_at, registered_at
		FROM geofences ORDER BY registered_at`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying geofences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fences []*Geofence
	for rows.Next() {
		g, err := scanGeofence(rows)
		if err != nil {
			return nil, err
		}
		fences = append(fences, g)
	}
	return fences, rows.Err()
}

// GetGeofenceByID returns the registration with the given ID, expired or
// not, or (nil, nil) if there is none.
func (s *Store) GetGeofenceByID(ctx context.Context, id string) (*Geofence, error) {
	const q = `
		SELECT id, latitude, longitude, radius_meters, transitions,
		       initial_trigger, expires_at, registered_at
		FROM geofences WHERE id = ?`
	return scanGeofence(s.db.QueryRowContext(ctx, q, id))
}

// DeleteGeofences removes the registrations with the given IDs. Unknown IDs
// are ignored.
func (s *Store) DeleteGeofences(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `DELETE FROM geofences WHERE id IN (` + placeholders + `)`
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("deleting %d geofence(s): %w", len(ids), err)
	}
	return nil
}

// DeleteAllGeofences removes every registration.
func (s *Store) DeleteAllGeofences(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM geofences`); err != nil {
		return fmt.Errorf("deleting geofences: %w", err)
	}
	return nil
}

// DeleteExpiredGeofences removes registrations whose expiry is at or before
// now and returns how many were removed.
func (s *Store) DeleteExpiredGeofences(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM geofences WHERE expires_at != '' AND expires_at <= ?`
	res, err := s.db.ExecContext(ctx, q, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired geofences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting expired geofences: %w", err)
	}
	return n, nil
}

// --- helpers -----------------------------------------------------------------

// scanGeofence reads one geofence row; (nil, nil) means no row.
func scanGeofence(s scanner) (*Geofence, error) {
	var g Geofence
	var expires, registered string
	err := s.Scan(
		&g.ID,
		&g.Latitude,
		&g.Longitude,
		&g.RadiusMeters,
		&g.Transitions,
		&g.InitialTrigger,
		&expires,
		&registered,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning geofence row: %w", err)
	}
	g.ExpiresAt, _ = parseTime(expires)
	g.RegisteredAt, _ = parseTime(registered)
	return &g, nil
}

// scanner matches both *sql.Row and *sql.Rows so scanReminder can be reused.
type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (*Reminder, error) {
	var r Reminder
	var lat, lng sql.NullFloat64

	err := s.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.Location,
		&lat,
		&lng,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reminder row: %w", err)
	}

	if lat.Valid {
		v := lat.Float64
		r.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		r.Longitude = &v
	}
	return &r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// formatTime uses a fixed-width layout so stored timestamps compare correctly
// as strings.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

const timeLayout = "2006-01-02T15:04:05.000000000Z"
