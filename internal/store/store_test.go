package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q", s.Path())
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, kind := range []struct{ typ, name string }{
		{"table", "sessions"},
		{"table", "volume_events"},
		{"index", "idx_volume_events_session_id"},
		{"index", "idx_volume_events_created_at"},
	} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type=? AND name=?", kind.typ, kind.name,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s %q should exist after migrations: %v", kind.typ, kind.name, err)
		}
	}

	// Migrations are idempotent.
	if err := s.runMigrations(); err != nil {
		t.Errorf("second migration run failed: %v", err)
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}

	err := s.Events().Record(&VolumeEvent{SessionID: "no-such-session", Level: 10})
	if err == nil {
		t.Error("event for an unknown session should violate the foreign key")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Start(2, "plugin")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(sess.ID) != 36 {
		t.Errorf("session id %q is not a uuid", sess.ID)
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Camera != 2 || got.Backend != "plugin" || got.EndedAt != nil {
		t.Errorf("unexpected session %+v", got)
	}

	if err := repo.End(sess.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	got, err = repo.GetByID(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.EndedAt == nil || got.EndedAt.Before(got.StartedAt) {
		t.Errorf("EndedAt = %v, StartedAt = %v", got.EndedAt, got.StartedAt)
	}

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) = %v, want ErrNotFound", err)
	}
	if err := repo.End("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("End(missing) = %v, want ErrNotFound", err)
	}
}

func TestEventRepository_History(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Start(0, "system")
	if err != nil {
		t.Fatal(err)
	}

	events := s.Events()
	for _, level := range []int{0, 14, 50, 100} {
		e := &VolumeEvent{SessionID: sess.ID, Level: level, Distance: level + 10}
		if err := events.Record(e); err != nil {
			t.Fatalf("Record(%d) error = %v", level, err)
		}
		if e.ID == 0 || e.CreatedAt.IsZero() {
			t.Errorf("Record did not fill ID/CreatedAt: %+v", e)
		}
	}

	history, err := events.History(3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []int{100, 50, 14}
	if len(history) != len(want) {
		t.Fatalf("History(3) returned %d events", len(history))
	}
	for i, w := range want {
		if history[i].Level != w {
			t.Errorf("history[%d].Level = %d, want %d", i, history[i].Level, w)
		}
	}

	n, err := events.CountBySession(sess.ID)
	if err != nil || n != 4 {
		t.Errorf("CountBySession() = %d, %v", n, err)
	}

	if err := events.Record(&VolumeEvent{SessionID: sess.ID, Level: 101}); err == nil {
		t.Error("level above 100 should violate the check constraint")
	}
}

func TestEventRepository_HistoryEmpty(t *testing.T) {
	s := newTestStore(t)
	history, err := s.Events().History(10)
	if err != nil {
		t.Fatal(err)
	}
	if history == nil || len(history) != 0 {
		t.Errorf("History() = %v, want empty slice", history)
	}
}

func TestJournal(t *testing.T) {
	s := newTestStore(t)

	j, err := s.Begin(0, "system")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	for _, rec := range []struct{ level, distance int }{
		{14, 30}, {14, 31}, {14, 30}, {0, 5}, {0, 0}, {100, 200}, {14, 30},
	} {
		if err := j.Record(rec.level, rec.distance); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := s.Events().CountBySession(j.Session().ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("recorded %d events, want 4 (repeats skipped)", n)
	}

	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	sess, err := s.Sessions().GetByID(j.Session().ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.EndedAt == nil {
		t.Error("session not ended")
	}
}
