package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"calendar-assistant/internal/domain/events"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
}

func TestInsertAndGet_RoundTrip(t *testing.T) {
	repo := NewEventRepo(openTestDB(t))

	d := events.Draft{
		Title:       "standup",
		Start:       at(9),
		End:         at(10),
		Description: "daily",
		Location:    "room 1",
		Attendees:   []string{"ana@example.com", "leo@example.com"},
	}
	e, err := repo.Insert(context.Background(), d, false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != d.Title || !got.Start.Equal(d.Start) || !got.End.Equal(d.End) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Attendees) != 2 || got.Attendees[0] != "ana@example.com" {
		t.Fatalf("attendees mismatch: %v", got.Attendees)
	}
	if got.SyncedAt != nil {
		t.Fatalf("local insert must not set SyncedAt")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not assigned")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := NewEventRepo(openTestDB(t))

	if _, err := repo.GetByID(context.Background(), 42); !errors.Is(err, events.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsert_InsertThenUpdatePreservesID(t *testing.T) {
	repo := NewEventRepo(openTestDB(t))

	d := events.Draft{Title: "remote", Start: at(9), End: at(10), ExternalID: "ext-1"}

	e1, inserted, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert insert: %v", err)
	}
	if !inserted || e1.SyncedAt == nil {
		t.Fatalf("first upsert should insert with SyncedAt")
	}

	d.Title = "remote v2"
	d.Start, d.End = at(14), at(15)
	e2, inserted, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	if inserted || e2.ID != e1.ID {
		t.Fatalf("second upsert must update in place: inserted=%v id=%d", inserted, e2.ID)
	}
	if e2.Title != "remote v2" || !e2.Start.Equal(at(14)) {
		t.Fatalf("fields not overwritten: %+v", e2)
	}
	if !e2.CreatedAt.Equal(e1.CreatedAt) {
		t.Fatalf("CreatedAt must survive the update")
	}
}

func TestUpsert_RecreatesAfterSoftDelete(t *testing.T) {
	repo := NewEventRepo(openTestDB(t))

	d := events.Draft{Title: "remote", Start: at(9), End: at(10), ExternalID: "ext-1"}
	e1, _, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), e1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	e2, inserted, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert after delete: %v", err)
	}
	if !inserted || e2.ID == e1.ID {
		t.Fatalf("expected a fresh row after soft delete: inserted=%v id=%d", inserted, e2.ID)
	}
}

func TestQuery_RangeOrderAndLimit(t *testing.T) {
	repo := NewEventRepo(openTestDB(t))

	for _, d := range []events.Draft{
		{Title: "late", Start: at(18), End: at(19)},
		{Title: "early", Start: at(9), End: at(10)},
		{Title: "mid", Start: at(12), End: at(13)},
	} {
		if _, err := repo.Insert(context.Background(), d, false); err != nil {
			t.Fatalf("insert %s: %v", d.Title, err)
		}
	}

	all, err := repo.Query(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 || all[0].Title != "early" || all[2].Title != "late" {
		t.Fatalf("expected Start asc, got %+v", all)
	}

	from, to := at(11), at(14)
	ranged, err := repo.Query(context.Background(), events.Filter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("ranged query: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Title != "mid" {
		t.Fatalf("expected only mid, got %+v", ranged)
	}

	limited, err := repo.Query(context.Background(), events.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("limited query: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 with limit, got %d", len(limited))
	}
}

func TestSoftDelete_IdempotentAndExcludesFromQueries(t *testing.T) {
	repo := NewEventRepo(openTestDB(t))

	e, err := repo.Insert(context.Background(), events.Draft{Title: "a", Start: at(9), End: at(10)}, false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.SoftDelete(context.Background(), e.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), e.ID); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), 42); !errors.Is(err, events.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := repo.Query(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("deleted events must not be listed, got %d", len(got))
	}

	// Pero GetByID los sigue devolviendo, marcados.
	deleted, err := repo.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if !deleted.Deleted {
		t.Fatalf("expected Deleted=true")
	}
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo := NewEventRepo(db1)
	if _, err := repo.Insert(context.Background(), events.Draft{Title: "a", Start: at(9), End: at(10)}, false); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db1.Close()

	// Reabrir no debe re-aplicar el esquema ni perder datos.
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db2.Close()

	got, err := NewEventRepo(db2).Query(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("query after reopen: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected data to survive reopen, got %d events", len(got))
	}
}
