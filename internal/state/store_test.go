package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func sampleReminder() *Reminder {
	return &Reminder{
		ID:          "reminder1",
		Title:       "just a test reminder",
		Description: "pick up the parcel",
		Location:    "Test Location",
		Latitude:    ptr(123.456789123),
		Longitude:   ptr(321.012345678),
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)
	n, err := s.CountReminders(context.Background())
	if err != nil {
		t.Fatalf("CountReminders after open: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty store after open, got %d rows", n)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.SaveReminder(context.Background(), sampleReminder()); err != nil {
		t.Fatalf("SaveReminder: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("s1.Close: %v", err)
	}

	// Re-opening the same file must not fail or wipe data.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	n, err := s2.CountReminders(context.Background())
	if err != nil {
		t.Fatalf("CountReminders: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 reminder after reopen, got %d", n)
	}
}

func TestOpenWithDriver_PureGo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purego.db")
	s, err := OpenWithDriver(DriverPureGo, path)
	if err != nil {
		t.Fatalf("OpenWithDriver: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SaveReminder(ctx, sampleReminder()); err != nil {
		t.Fatalf("SaveReminder: %v", err)
	}
	got, err := s.GetReminderByID(ctx, "reminder1")
	if err != nil {
		t.Fatalf("GetReminderByID: %v", err)
	}
	if got == nil || got.Title != "just a test reminder" {
		t.Errorf("got %+v, want saved reminder", got)
	}
}

func TestOpenWithDriver_Unknown(t *testing.T) {
	_, err := OpenWithDriver("postgres", filepath.Join(t.TempDir(), "x.db"))
	if err == nil {
		t.Fatal("expected error for unsupported driver, got nil")
	}
}

func TestSaveAndGetByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleReminder()

	if err := s.SaveReminder(ctx, want); err != nil {
		t.Fatalf("SaveReminder: %v", err)
	}

	got, err := s.GetReminderByID(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetReminderByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetReminderByID returned nil, want reminder")
	}
	if got.Title != want.Title {
		t.Errorf("Title = %q, want %q", got.Title, want.Title)
	}
	if got.Description != want.Description {
		t.Errorf("Description = %q, want %q", got.Description, want.Description)
	}
	if got.Location != want.Location {
		t.Errorf("Location = %q, want %q", got.Location, want.Location)
	}
	if got.Latitude == nil || *got.Latitude != *want.Latitude {
		t.Errorf("Latitude = %v, want %v", got.Latitude, *want.Latitude)
	}
	if got.Longitude == nil || *got.Longitude != *want.Longitude {
		t.Errorf("Longitude = %v, want %v", got.Longitude, *want.Longitude)
	}
}

func TestSave_NilCoordinatesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &Reminder{ID: "no-point", Title: "Somewhere", Location: "TBD"}
	if err := s.SaveReminder(ctx, r); err != nil {
		t.Fatalf("SaveReminder: %v", err)
	}
	got, err := s.GetReminderByID(ctx, "no-point")
	if err != nil {
		t.Fatalf("GetReminderByID: %v", err)
	}
	if got.Latitude != nil || got.Longitude != nil {
		t.Errorf("expected nil coordinates, got %v, %v", got.Latitude, got.Longitude)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetReminderByID(context.Background(), "NON_EXISTENT_ID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing reminder, got %+v", got)
	}
}

func TestSave_ReplacesSameID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := sampleReminder()

	if err := s.SaveReminder(ctx, r); err != nil {
		t.Fatalf("initial SaveReminder: %v", err)
	}

	r.Title = "updated title"
	r.Latitude = ptr(1)
	if err := s.SaveReminder(ctx, r); err != nil {
		t.Fatalf("second SaveReminder: %v", err)
	}

	all, err := s.GetReminders(ctx)
	if err != nil {
		t.Fatalf("GetReminders: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 reminder after replace, got %d", len(all))
	}
	if all[0].Title != "updated title" {
		t.Errorf("Title = %q, want %q", all[0].Title, "updated title")
	}
	if *all[0].Latitude != 1 {
		t.Errorf("Latitude = %v, want 1", *all[0].Latitude)
	}
}

func TestGetReminders_InsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := s.SaveReminder(ctx, &Reminder{ID: id, Title: id, Location: "x"}); err != nil {
			t.Fatalf("SaveReminder %q: %v", id, err)
		}
	}

	all, err := s.GetReminders(ctx)
	if err != nil {
		t.Fatalf("GetReminders: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d reminders, want 3", len(all))
	}
	for i, want := range []string{"b", "a", "c"} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestSaveReminder_UpdateKeepsPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveReminder(ctx, &Reminder{ID: id, Title: id, Location: "x"}); err != nil {
			t.Fatalf("SaveReminder %q: %v", id, err)
		}
	}
	if err := s.SaveReminder(ctx, &Reminder{ID: "a", Title: "a2", Location: "y"}); err != nil {
		t.Fatalf("updating a: %v", err)
	}

	all, err := s.GetReminders(ctx)
	if err != nil {
		t.Fatalf("GetReminders: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d reminders, want 3", len(all))
	}
	if all[0].ID != "a" || all[0].Title != "a2" || all[0].Location != "y" {
		t.Errorf("all[0] = %+v, want updated a first", all[0])
	}
	if all[1].ID != "b" || all[2].ID != "c" {
		t.Errorf("order = %s,%s,%s, want a,b,c", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestDeleteAllReminders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2"} {
		if err := s.SaveReminder(ctx, &Reminder{ID: id, Title: id}); err != nil {
			t.Fatalf("SaveReminder: %v", err)
		}
	}
	if err := s.DeleteAllReminders(ctx); err != nil {
		t.Fatalf("DeleteAllReminders: %v", err)
	}

	all, err := s.GetReminders(ctx)
	if err != nil {
		t.Fatalf("GetReminders: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no reminders after delete, got %d", len(all))
	}

	// Deleting an empty table is not an error.
	if err := s.DeleteAllReminders(ctx); err != nil {
		t.Errorf("DeleteAllReminders on empty table: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Geofences
// ---------------------------------------------------------------------------

func TestGeofence_UpsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	g := &Geofence{
		ID:             "r1",
		Latitude:       52.52,
		Longitude:      13.405,
		RadiusMeters:   100,
		Transitions:    3,
		InitialTrigger: 1,
		ExpiresAt:      now.Add(24 * time.Hour),
		RegisteredAt:   now,
	}
	if err := s.UpsertGeofence(ctx, g); err != nil {
		t.Fatalf("UpsertGeofence: %v", err)
	}

	g.RadiusMeters = 250
	if err := s.UpsertGeofence(ctx, g); err != nil {
		t.Fatalf("second UpsertGeofence: %v", err)
	}

	all, err := s.GetGeofences(ctx)
	if err != nil {
		t.Fatalf("GetGeofences: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d geofences, want 1", len(all))
	}
	if all[0].RadiusMeters != 250 {
		t.Errorf("RadiusMeters = %v, want 250", all[0].RadiusMeters)
	}
	if !all[0].ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", all[0].ExpiresAt, now.Add(24*time.Hour))
	}
	if !all[0].RegisteredAt.Equal(now) {
		t.Errorf("RegisteredAt = %v, want %v", all[0].RegisteredAt, now)
	}
}

func TestGeofence_GetByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	got, err := s.GetGeofenceByID(ctx, "r1")
	if err != nil || got != nil {
		t.Fatalf("GetGeofenceByID on empty table = %+v, %v; want nil, nil", got, err)
	}

	want := &Geofence{
		ID:           "r1",
		Latitude:     52.52,
		Longitude:    13.405,
		RadiusMeters: 100,
		Transitions:  3,
		ExpiresAt:    now.Add(time.Hour),
		RegisteredAt: now,
	}
	if err := s.UpsertGeofence(ctx, want); err != nil {
		t.Fatalf("UpsertGeofence: %v", err)
	}

	got, err = s.GetGeofenceByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetGeofenceByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetGeofenceByID = nil, want row")
	}
	if got.Latitude != want.Latitude || got.RadiusMeters != want.RadiusMeters || got.Transitions != want.Transitions {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) || !got.RegisteredAt.Equal(want.RegisteredAt) {
		t.Errorf("times = %v / %v, want %v / %v", got.ExpiresAt, got.RegisteredAt, want.ExpiresAt, want.RegisteredAt)
	}
}

func TestGeofence_DeleteByIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.UpsertGeofence(ctx, &Geofence{ID: id, RadiusMeters: 100, Transitions: 3}); err != nil {
			t.Fatalf("UpsertGeofence: %v", err)
		}
	}
	if err := s.DeleteGeofences(ctx, "a", "c", "missing"); err != nil {
		t.Fatalf("DeleteGeofences: %v", err)
	}

	all, err := s.GetGeofences(ctx)
	if err != nil {
		t.Fatalf("GetGeofences: %v", err)
	}
	if len(all) != 1 || all[0].ID != "b" {
		t.Errorf("remaining = %+v, want only b", all)
	}

	if err := s.DeleteGeofences(ctx); err != nil {
		t.Errorf("DeleteGeofences with no IDs: %v", err)
	}
}

func TestGeofence_DeleteExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	fences := []*Geofence{
		{ID: "expired", RadiusMeters: 100, Transitions: 3, ExpiresAt: now.Add(-time.Minute)},
		{ID: "boundary", RadiusMeters: 100, Transitions: 3, ExpiresAt: now},
		{ID: "live", RadiusMeters: 100, Transitions: 3, ExpiresAt: now.Add(time.Hour)},
		{ID: "forever", RadiusMeters: 100, Transitions: 3},
	}
	for _, g := range fences {
		if err := s.UpsertGeofence(ctx, g); err != nil {
			t.Fatalf("UpsertGeofence %q: %v", g.ID, err)
		}
	}

	n, err := s.DeleteExpiredGeofences(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredGeofences: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}

	all, err := s.GetGeofences(ctx)
	if err != nil {
		t.Fatalf("GetGeofences: %v", err)
	}
	ids := map[string]bool{}
	for _, g := range all {
		ids[g.ID] = true
	}
	if !ids["live"] || !ids["forever"] || len(ids) != 2 {
		t.Errorf("remaining = %v, want live and forever", ids)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if path == "" {
		t.Error("DefaultDBPath returned empty string")
	}
}
