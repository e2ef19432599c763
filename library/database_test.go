package library

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteEmptyDatabaseLoadsNothing(t *testing.T) {
	s := tempDB(t)
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Fatalf("want nil snapshot from fresh db, got %+v", snap)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	lib := populate(t, s, newClock())
	if err := lib.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := New(s)
	if err := loaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if want, got := lib.Snapshot(), loaded.Snapshot(); !reflect.DeepEqual(want, got) {
		t.Fatalf("snapshot mismatch\nwant %+v\ngot  %+v", want, got)
	}
}

func TestSQLiteSaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	if err := populate(t, s, newClock()).Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	small := New(s)
	if err := small.AddBook(Book{ISBN: "999", Title: "Only", Stock: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := small.Save(ctx); err != nil {
		t.Fatalf("second save: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Books) != 1 || len(snap.Members) != 0 || len(snap.Transactions) != 0 {
		t.Fatalf("stale rows survived: %+v", snap)
	}

	var loans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM loans`).Scan(&loans); err != nil {
		t.Fatalf("count loans: %v", err)
	}
	if loans != 0 {
		t.Fatalf("want no loans left, got %d", loans)
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "library.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	lib := populate(t, s, newClock())
	if err := lib.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := lib.Snapshot()
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	loaded := New(s)
	if err := loaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.Snapshot(); !reflect.DeepEqual(want, got) {
		t.Fatalf("snapshot mismatch after reopen\nwant %+v\ngot  %+v", want, got)
	}
}

func TestSQLiteDetectsTampering(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	lib := populate(t, s, newClock())
	if err := lib.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := s.db.Exec(`UPDATE books SET stock = 99`); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	loaded := New(s)
	err := loaded.Load(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("want ErrChecksumMismatch, got %v", err)
	}
	if len(loaded.Books()) != 0 {
		t.Fatalf("library must stay empty after a rejected load")
	}
}

func TestSQLiteLargeTitle(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	huge := strings.Repeat("lorem ipsum ", 50_000) // ~550 KB

	lib := New(s)
	if err := lib.AddBook(Book{ISBN: "111", Title: huge, Stock: 1}); err != nil {
		t.Fatalf("add book: %v", err)
	}
	if err := lib.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := New(s)
	if err := loaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	b, ok := loaded.Book("111")
	if !ok || b.Title != huge {
		t.Fatalf("large title did not survive the round trip")
	}
}

func TestSQLiteRejectsInvalidSnapshot(t *testing.T) {
	s := tempDB(t)
	err := s.Save(context.Background(), &Snapshot{Books: []Book{{ISBN: "1", Stock: -2}}})
	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("want ErrMalformedSnapshot, got %v", err)
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	s := tempDB(t)
	if err := applyMigrations(s.db); err != nil {
		t.Fatalf("second migration: %v", err)
	}
	var version int
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != schemaVersion {
		t.Fatalf("want schema version %d, got %d", schemaVersion, version)
	}
}
